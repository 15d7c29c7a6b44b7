package export

import (
	"strconv"

	"ferry/internal/diag"
	"ferry/internal/hosttype"
)

// ConstantArrayName is the sentinel used where an array would need a
// structural name. Names starting with the dummy prefix are never interned;
// constant arrays are keyed by host type identity instead.
const ConstantArrayName = "<ConstantArray>"

const dummyNamePrefix = '<'

// isDummyName reports whether a canonical name must stay out of the
// name-keyed registry table.
func isDummyName(name string) bool {
	return name == "" || name[0] == dummyNamePrefix
}

// TypeName derives the canonical, serializable name of a host type.
// Empty means the type has no derivable name.
func TypeName(host *hosttype.Interner, t hosttype.TypeID) string {
	t = host.Canonical(t)
	tt, ok := host.Lookup(t)
	if !ok {
		return ""
	}

	switch tt.Kind {
	case hosttype.KindBuiltin:
		if !builtinExportable(tt.Builtin) {
			return ""
		}
		return tt.Builtin.Mnemonic()

	case hosttype.KindRecord:
		name, _ := host.Strings().Lookup(host.RecordName(t))
		return name

	case hosttype.KindPointer:
		// "*" plus the pointee's name; resolution failure fails the whole name.
		pointee := host.Canonical(tt.Elem)
		if _, pointeeName, ok := NormalizeType(host, pointee, nil, nil); ok {
			return "*" + pointeeName
		}
		return ""

	case hosttype.KindVector:
		return vectorTypeName(host, tt)

	case hosttype.KindArray:
		// Constructing a structural name for an array is not worth it; arrays
		// are interned by identity downstream.
		return ConstantArrayName

	default:
		return ""
	}
}

func vectorTypeName(host *hosttype.Interner, tt hosttype.Type) string {
	elem, ok := host.Lookup(host.Canonical(tt.Elem))
	if !ok || elem.Kind != hosttype.KindBuiltin || !builtinExportable(elem.Builtin) {
		return ""
	}
	if tt.Count < 2 || tt.Count > 4 {
		return ""
	}
	return elem.Builtin.Mnemonic() + strconv.FormatUint(uint64(tt.Count), 10)
}

// NormalizeType composes the exportability check with name resolution: a
// type normalizes only when it is exportable and yields a non-empty
// canonical name. An anonymous-but-otherwise-exportable type is its own
// reportable error.
func NormalizeType(host *hosttype.Interner, t hosttype.TypeID, r diag.Reporter, decl *DeclRef) (hosttype.TypeID, string, bool) {
	t, ok := TypeExportable(host, t, r, decl)
	if !ok {
		return hosttype.NoTypeID, "", false
	}
	name := TypeName(host, t)
	if name == "" {
		if r != nil && decl != nil {
			diag.ReportError(r, diag.ExpAnonymousType, decl.Span,
				"anonymous types cannot be exported").Emit()
		}
		return hosttype.NoTypeID, "", false
	}
	return t, name, true
}
