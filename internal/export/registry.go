package export

import (
	"fmt"

	"fortio.org/safecast"

	"ferry/internal/diag"
	"ferry/internal/hosttype"
	"ferry/internal/layout"
	"ferry/internal/source"
)

// Registry interns one compilation unit's export types. Named types are
// deduplicated by canonical name; constant arrays have no canonical name and
// are deduplicated by host type identity instead. The registry owns every
// *Type it hands out.
type Registry struct {
	host     *hosttype.Interner
	layout   *layout.Engine
	reporter diag.Reporter

	types  map[string]*Type
	arrays map[hosttype.TypeID]*Type
	order  []*Type
}

func NewRegistry(host *hosttype.Interner, engine *layout.Engine, r diag.Reporter) *Registry {
	return &Registry{
		host:     host,
		layout:   engine,
		reporter: r,
		types:    make(map[string]*Type, 16),
		arrays:   make(map[hosttype.TypeID]*Type, 4),
	}
}

// Host returns the host type graph this registry reads from.
func (reg *Registry) Host() *hosttype.Interner {
	return reg.host
}

// Create validates a host type and interns its export form. Repeated calls
// for the same type return the same instance. On failure the registry is
// left without an entry for the failed type; siblings interned along the way
// stay.
func (reg *Registry) Create(decl *DeclRef, t hosttype.TypeID) (*Type, bool) {
	t, name, ok := NormalizeType(reg.host, t, reg.reporter, decl)
	if !ok {
		return nil, false
	}
	return reg.create(t, name, decl)
}

// ExportedTypes returns every interned type in creation order.
func (reg *Registry) ExportedTypes() []*Type {
	return reg.order
}

// KeptTypes returns the interned types reached by a Keep traversal, in
// creation order.
func (reg *Registry) KeptTypes() []*Type {
	var kept []*Type
	for _, t := range reg.order {
		if t.Kept() {
			kept = append(kept, t)
		}
	}
	return kept
}

// Find returns the interned type with the given canonical name, nil when
// absent. Dummy names never resolve.
func (reg *Registry) Find(name string) *Type {
	if isDummyName(name) {
		return nil
	}
	return reg.types[name]
}

func (reg *Registry) create(t hosttype.TypeID, name string, decl *DeclRef) (*Type, bool) {
	if !isDummyName(name) {
		if existing, ok := reg.types[name]; ok {
			return existing, true
		}
	}

	tt, ok := reg.host.Lookup(t)
	if !ok {
		reg.report(diag.RegUnknownType, declSpan(decl), "unknown type cannot be exported")
		return nil, false
	}

	switch tt.Kind {
	case hosttype.KindRecord:
		dt := SpecificTypeByName(name)
		switch {
		case dt == DataTypeUnknown:
			return reg.newRecordType(t, name, decl)
		case IsMatrixType(dt):
			return reg.newMatrixType(t, name, dt)
		default:
			// Runtime handle structs export as opaque primitives.
			return reg.intern(&Type{Class: ClassPrimitive, Name: name, Data: dt, Kind: DataKindUser}), true
		}

	case hosttype.KindBuiltin:
		dt := builtinDataType(tt.Builtin)
		if dt == DataTypeUnknown {
			reg.report(diag.RegBuiltinNotExportable, declSpan(decl),
				fmt.Sprintf("built-in type cannot be exported: '%s'", tt.Builtin.Mnemonic()))
			return nil, false
		}
		return reg.intern(&Type{Class: ClassPrimitive, Name: name, Data: dt, Kind: DataKindUser}), true

	case hosttype.KindPointer:
		return reg.newPointerType(tt, name, decl)

	case hosttype.KindVector:
		return reg.newVectorType(tt, name, decl)

	case hosttype.KindArray:
		return reg.newConstantArrayType(t, tt, decl)

	default:
		reg.report(diag.RegUnknownType, declSpan(decl), "type cannot be exported")
		return nil, false
	}
}

// newPointerType builds a pointer export type. A pointee that is itself a
// pointer collapses to a plain int-sized value: the second level of
// indirection carries no exportable shape.
func (reg *Registry) newPointerType(tt hosttype.Type, name string, decl *DeclRef) (*Type, bool) {
	pointee := reg.host.Canonical(tt.Elem)

	var elem *Type
	if reg.host.KindOf(pointee) == hosttype.KindPointer {
		var ok bool
		elem, ok = reg.Create(decl, reg.host.Builtins().Int)
		if !ok {
			return nil, false
		}
	} else {
		pt, pname, ok := NormalizeType(reg.host, pointee, reg.reporter, decl)
		if !ok {
			return nil, false
		}
		elem, ok = reg.create(pt, pname, decl)
		if !ok {
			return nil, false
		}
	}
	return reg.intern(&Type{Class: ClassPointer, Name: name, Elem: elem}), true
}

func (reg *Registry) newVectorType(tt hosttype.Type, name string, decl *DeclRef) (*Type, bool) {
	elem, ok := reg.host.Lookup(reg.host.Canonical(tt.Elem))
	if !ok || elem.Kind != hosttype.KindBuiltin {
		reg.report(diag.RegUnknownType, declSpan(decl), "vector element type cannot be exported")
		return nil, false
	}
	dt := builtinDataType(elem.Builtin)
	if dt == DataTypeUnknown {
		reg.report(diag.RegBuiltinNotExportable, declSpan(decl),
			fmt.Sprintf("built-in type cannot be exported: '%s'", elem.Builtin.Mnemonic()))
		return nil, false
	}
	return reg.intern(&Type{Class: ClassVector, Name: name, Data: dt, Kind: DataKindUser, Count: tt.Count}), true
}

func (reg *Registry) newConstantArrayType(t hosttype.TypeID, tt hosttype.Type, decl *DeclRef) (*Type, bool) {
	if existing, ok := reg.arrays[t]; ok {
		return existing, true
	}
	// The checker never passes a zero-length array through; hitting one here
	// is an internal invariant violation.
	if tt.Count == 0 {
		panic("export: zero-length constant array reached the registry")
	}

	et, ename, ok := NormalizeType(reg.host, tt.Elem, reg.reporter, decl)
	if !ok {
		return nil, false
	}
	elem, ok := reg.create(et, ename, decl)
	if !ok {
		return nil, false
	}

	at := &Type{Class: ClassConstantArray, Name: ConstantArrayName, Count: tt.Count, Elem: elem}
	reg.arrays[t] = at
	reg.order = append(reg.order, at)
	return at, true
}

// newRecordType interns a record. The entry goes into the registry before
// field resolution so self-referential shapes terminate; a failed field rolls
// back only this record's own entry.
func (reg *Registry) newRecordType(t hosttype.TypeID, name string, decl *DeclRef) (*Type, bool) {
	info, ok := reg.host.RecordInfo(t)
	if !ok || !info.Defined {
		reg.report(diag.RegRecordNotDefined, declSpan(decl),
			fmt.Sprintf("struct is not defined in this module: '%s'", name))
		return nil, false
	}

	l, err := reg.layout.LayoutOf(t)
	if err != nil {
		reg.report(diag.RegRecordNotDefined, info.Decl,
			fmt.Sprintf("struct has no computable layout: '%s'", name))
		return nil, false
	}

	allocSize, convErr := safecast.Conv[uint64](l.Size)
	if convErr != nil {
		panic(fmt.Errorf("export: record size overflow for %q: %w", name, convErr))
	}

	rt := &Type{
		Class:      ClassRecord,
		Name:       name,
		Packed:     info.Packed,
		Artificial: info.Artificial,
		AllocSize:  allocSize,
		Fields:     make([]Field, 0, len(info.Fields)),
	}
	orderIdx := len(reg.order)
	reg.types[name] = rt
	reg.order = append(reg.order, rt)

	for i, f := range info.Fields {
		fieldName, _ := reg.host.Strings().Lookup(f.Name)
		if f.BitWidth > 0 {
			reg.report(diag.RegRecordBitField, info.Decl,
				fmt.Sprintf("bit fields are not able to be exported: '%s.%s'", name, fieldName))
			reg.rollback(name, orderIdx)
			return nil, false
		}

		ft, fname, ok := NormalizeType(reg.host, f.Type, reg.reporter, decl)
		if !ok {
			reg.rollback(name, orderIdx)
			return nil, false
		}
		fieldType, ok := reg.create(ft, fname, decl)
		if !ok {
			reg.report(diag.RegFieldNotExportable, info.Decl,
				fmt.Sprintf("field type cannot be exported: '%s.%s'", name, fieldName))
			reg.rollback(name, orderIdx)
			return nil, false
		}

		offset, convErr := safecast.Conv[uint32](l.FieldOffsets[i])
		if convErr != nil {
			panic(fmt.Errorf("export: field offset overflow for %q: %w", name, convErr))
		}
		rt.Fields = append(rt.Fields, Field{
			Name:   fieldName,
			Type:   fieldType,
			Parent: rt,
			Offset: offset,
		})
	}
	return rt, true
}

// newMatrixType validates the runtime matrix struct shape: exactly one field
// holding a float array of dim-squared elements.
func (reg *Registry) newMatrixType(t hosttype.TypeID, name string, dt DataType) (*Type, bool) {
	dim := MatrixDim(dt)
	info, ok := reg.host.RecordInfo(t)
	if !ok || !info.Defined {
		reg.report(diag.RegRecordNotDefined, source.Span{},
			fmt.Sprintf("struct is not defined in this module: '%s'", name))
		return nil, false
	}

	if len(info.Fields) == 0 {
		reg.report(diag.RegMatrixNoFields, info.Decl,
			fmt.Sprintf("invalid matrix struct: must have 1 field for saving values: '%s'", name))
		return nil, false
	}

	ft, ok := reg.host.Lookup(reg.host.Canonical(info.Fields[0].Type))
	if !ok || ft.Kind != hosttype.KindArray {
		reg.report(diag.RegMatrixFieldNotArray, info.Decl,
			fmt.Sprintf("invalid matrix struct: first field should be an array with constant size: '%s'", name))
		return nil, false
	}
	elem, ok := reg.host.Lookup(reg.host.Canonical(ft.Elem))
	if !ok || elem.Kind != hosttype.KindBuiltin || elem.Builtin != hosttype.BuiltinFloat {
		reg.report(diag.RegMatrixFieldNotFloat, info.Decl,
			fmt.Sprintf("invalid matrix struct: first field should be a float array: '%s'", name))
		return nil, false
	}
	if ft.Count != dim*dim {
		reg.report(diag.RegMatrixWrongSize, info.Decl,
			fmt.Sprintf("invalid matrix struct: first field should be a float array with %d elements: '%s'", dim*dim, name))
		return nil, false
	}
	if len(info.Fields) != 1 {
		reg.report(diag.RegMatrixExtraFields, info.Decl,
			fmt.Sprintf("invalid matrix struct: must have exactly 1 field: '%s'", name))
		return nil, false
	}

	return reg.intern(&Type{Class: ClassMatrix, Name: name, Count: dim}), true
}

func (reg *Registry) intern(t *Type) *Type {
	if !isDummyName(t.Name) {
		reg.types[t.Name] = t
	}
	reg.order = append(reg.order, t)
	return t
}

// rollback removes a record's own provisional entry. Nested types interned
// while resolving its fields are valid on their own and stay.
func (reg *Registry) rollback(name string, orderIdx int) {
	delete(reg.types, name)
	if orderIdx < len(reg.order) && reg.order[orderIdx] != nil && reg.order[orderIdx].Name == name {
		reg.order = append(reg.order[:orderIdx], reg.order[orderIdx+1:]...)
	}
}

func (reg *Registry) report(code diag.Code, span source.Span, msg string) {
	if reg.reporter == nil {
		return
	}
	diag.ReportError(reg.reporter, code, span, msg).Emit()
}

func declSpan(decl *DeclRef) source.Span {
	if decl == nil {
		return source.Span{}
	}
	return decl.Span
}
