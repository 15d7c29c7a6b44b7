package driver

import (
	"fmt"

	"ferry/internal/diag"
	"ferry/internal/export"
)

// ExportUnit validates and interns the export type of every top-level
// variable in the unit, then keeps everything the successful ones reach.
// It reports true when the unit produced no errors; failed declarations are
// diagnostics in the unit's bag, never a reason to stop the others.
func ExportUnit(u *Unit) bool {
	for _, v := range u.vars {
		decl := &export.DeclRef{Name: v.Name, Span: u.spanOf(v.Name)}

		t, err := u.resolve(v.Type)
		if err != nil {
			diag.ReportError(diag.BagReporter{Bag: u.Bag}, diag.RegUnknownType, decl.Span,
				fmt.Sprintf("unknown type %q for variable '%s'", v.Type, v.Name)).Emit()
			continue
		}

		et, ok := u.Registry.Create(decl, t)
		if !ok {
			continue
		}
		et.Keep()
		u.Exported = append(u.Exported, ExportedVar{Name: v.Name, Type: et})
	}

	u.Bag.Sort()
	u.Bag.Dedup()
	return !u.Bag.HasErrors()
}
