package export

import (
	"fmt"

	"ferry/internal/diag"
	"ferry/internal/hosttype"
	"ferry/internal/source"
)

// DeclRef names the top-level declaration an export attempt started from.
// It only exists to locate diagnostics; the checker never reads the type
// through it.
type DeclRef struct {
	Name string
	Span source.Span
}

// TypeExportable decides whether a host type may cross the export boundary.
// On success it returns the canonical form of the type. On rejection it
// emits one descriptive diagnostic (when a reporter is available) and
// returns false.
func TypeExportable(host *hosttype.Interner, t hosttype.TypeID, r diag.Reporter, decl *DeclRef) (hosttype.TypeID, bool) {
	visited := make(map[hosttype.TypeID]struct{}, 8)
	return typeExportable(host, t, visited, r, decl, hosttype.NoTypeID)
}

// reportTypeError prefers the enclosing record declaration for the location
// and the quoted name; a plain declaration is the fallback for things like
// array variables that cannot be exported.
func reportTypeError(host *hosttype.Interner, r diag.Reporter, decl *DeclRef, topRecord hosttype.TypeID, code diag.Code, format string) {
	if r == nil {
		return
	}
	if topRecord != hosttype.NoTypeID {
		info, ok := host.RecordInfo(topRecord)
		if !ok {
			return
		}
		name, _ := host.Strings().Lookup(host.RecordName(topRecord))
		diag.ReportError(r, code, info.Decl, fmt.Sprintf(format, name)).Emit()
		return
	}
	if decl != nil {
		diag.ReportError(r, code, decl.Span, fmt.Sprintf(format, decl.Name)).Emit()
	}
}

// typeExportable applies the structural legality rules to the canonical form
// of t. visited is the currently-validating set: a record already present
// short-circuits to "exportable", which both terminates self-referential
// record graphs and leaves full validation to the outer pass.
func typeExportable(
	host *hosttype.Interner,
	t hosttype.TypeID,
	visited map[hosttype.TypeID]struct{},
	r diag.Reporter,
	decl *DeclRef,
	topRecord hosttype.TypeID,
) (hosttype.TypeID, bool) {
	t = host.Canonical(t)
	if t == hosttype.NoTypeID {
		return hosttype.NoTypeID, false
	}
	if _, ok := visited[t]; ok {
		return t, true
	}
	tt, ok := host.Lookup(t)
	if !ok {
		return hosttype.NoTypeID, false
	}

	switch tt.Kind {
	case hosttype.KindBuiltin:
		if builtinExportable(tt.Builtin) {
			return t, true
		}
		reportTypeError(host, r, decl, topRecord, diag.ExpUnsupportedBuiltin,
			"built-in type cannot be exported: '%s'")
		return hosttype.NoTypeID, false

	case hosttype.KindRecord:
		return recordExportable(host, t, visited, r, decl, topRecord)

	case hosttype.KindPointer:
		if topRecord != hosttype.NoTypeID {
			reportTypeError(host, r, nil, topRecord, diag.ExpPointerInStruct,
				"structures containing pointers cannot be exported: '%s'")
			return hosttype.NoTypeID, false
		}
		pointee := host.Canonical(tt.Elem)
		switch host.KindOf(pointee) {
		case hosttype.KindPointer:
			// Double or higher pointers collapse to a generic handle later;
			// no further checks here.
			return t, true
		case hosttype.KindArray:
			reportTypeError(host, r, decl, topRecord, diag.ExpPointerToArray,
				"pointers to array types cannot be exported: '%s'")
			return hosttype.NoTypeID, false
		}
		if _, ok := typeExportable(host, pointee, visited, r, decl, topRecord); !ok {
			return hosttype.NoTypeID, false
		}
		return t, true

	case hosttype.KindVector:
		if tt.Count < 2 || tt.Count > 4 {
			reportTypeError(host, r, decl, topRecord, diag.ExpVectorSize,
				"vectors with width other than 2, 3 or 4 cannot be exported: '%s'")
			return hosttype.NoTypeID, false
		}
		elem := host.Canonical(tt.Elem)
		if host.KindOf(elem) != hosttype.KindBuiltin {
			reportTypeError(host, r, decl, topRecord, diag.ExpVectorNonPrimitive,
				"vectors of non-primitive types cannot be exported: '%s'")
			return hosttype.NoTypeID, false
		}
		if _, ok := typeExportable(host, elem, visited, r, decl, topRecord); !ok {
			return hosttype.NoTypeID, false
		}
		return t, true

	case hosttype.KindArray:
		return constantArrayExportable(host, t, tt, visited, r, decl, topRecord)

	default:
		reportTypeError(host, r, decl, topRecord, diag.ExpUnsupportedTypeClass,
			"type cannot be exported: '%s'")
		return hosttype.NoTypeID, false
	}
}

func recordExportable(
	host *hosttype.Interner,
	t hosttype.TypeID,
	visited map[hosttype.TypeID]struct{},
	r diag.Reporter,
	decl *DeclRef,
	topRecord hosttype.TypeID,
) (hosttype.TypeID, bool) {
	// Runtime-specific structs (matrices, handles) need no structural checks.
	if SpecificType(host, t) != DataTypeUnknown {
		return t, true
	}

	info, ok := host.RecordInfo(t)
	if !ok {
		return hosttype.NoTypeID, false
	}
	if info.Union {
		reportTypeError(host, r, nil, t, diag.ExpUnion,
			"unions cannot be exported: '%s'")
		return hosttype.NoTypeID, false
	}
	if !info.Defined {
		reportTypeError(host, r, nil, t, diag.ExpStructNotDefined,
			"struct is not defined in this module: '%s'")
		return hosttype.NoTypeID, false
	}
	if topRecord == hosttype.NoTypeID {
		topRecord = t
	}
	if host.RecordName(t) == source.NoStringID {
		if r != nil {
			diag.ReportError(r, diag.ExpAnonymousStruct, info.Decl,
				"anonymous structures cannot be exported").Emit()
		}
		return hosttype.NoTypeID, false
	}

	// Fast checks before walking fields.
	if info.FlexibleArray {
		reportTypeError(host, r, nil, topRecord, diag.ExpFlexibleArrayMember,
			"structures with flexible array members cannot be exported: '%s'")
		return hosttype.NoTypeID, false
	}
	if HasHandleField(host, t) {
		reportTypeError(host, r, nil, topRecord, diag.ExpEmbeddedHandle,
			"structures containing object handles cannot be exported: '%s'")
		return hosttype.NoTypeID, false
	}

	// Insert before recursing into fields: the cycle guard.
	visited[t] = struct{}{}

	recordName, _ := host.Strings().Lookup(host.RecordName(t))
	for _, f := range info.Fields {
		ft := host.Canonical(f.Type)
		if _, ok := typeExportable(host, ft, visited, r, decl, topRecord); !ok {
			return hosttype.NoTypeID, false
		}
		if f.BitWidth > 0 {
			if r != nil {
				fieldName, _ := host.Strings().Lookup(f.Name)
				diag.ReportError(r, diag.ExpBitField, info.Decl,
					fmt.Sprintf("bit fields are not able to be exported: '%s.%s'", recordName, fieldName)).Emit()
			}
			return hosttype.NoTypeID, false
		}
	}
	return t, true
}

func constantArrayExportable(
	host *hosttype.Interner,
	t hosttype.TypeID,
	tt hosttype.Type,
	visited map[hosttype.TypeID]struct{},
	r diag.Reporter,
	decl *DeclRef,
	topRecord hosttype.TypeID,
) (hosttype.TypeID, bool) {
	elem := host.Canonical(tt.Elem)
	et, ok := host.Lookup(elem)
	if !ok {
		return hosttype.NoTypeID, false
	}

	if et.Kind == hosttype.KindArray {
		reportTypeError(host, r, decl, topRecord, diag.ExpMultidimArray,
			"multidimensional arrays cannot be exported: '%s'")
		return hosttype.NoTypeID, false
	}
	if et.Kind == hosttype.KindVector {
		base := host.Canonical(et.Elem)
		if host.KindOf(base) != hosttype.KindBuiltin {
			reportTypeError(host, r, decl, topRecord, diag.ExpVectorNonPrimitive,
				"vectors of non-primitive types cannot be exported: '%s'")
			return hosttype.NoTypeID, false
		}
		// A width-3 vector is padded to a 4-element slot; inside an array the
		// padding becomes part of the stride, so only length 1 is safe.
		if et.Count == 3 && tt.Count != 1 {
			reportTypeError(host, r, decl, topRecord, diag.ExpArrayOfVec3,
				"arrays of width 3 vector types cannot be exported: '%s'")
			return hosttype.NoTypeID, false
		}
	}

	if _, ok := typeExportable(host, elem, visited, r, decl, topRecord); !ok {
		return hosttype.NoTypeID, false
	}
	return t, true
}

// builtinExportable is the scalar whitelist. Platform-width-dependent
// character kinds are excluded.
func builtinExportable(bk hosttype.BuiltinKind) bool {
	switch bk {
	case hosttype.BuiltinBool,
		hosttype.BuiltinChar, hosttype.BuiltinUChar,
		hosttype.BuiltinShort, hosttype.BuiltinUShort,
		hosttype.BuiltinInt, hosttype.BuiltinUInt,
		hosttype.BuiltinLong, hosttype.BuiltinULong,
		hosttype.BuiltinFloat, hosttype.BuiltinDouble:
		return true
	default:
		return false
	}
}

// HasHandleField reports whether a record embeds an opaque runtime handle,
// directly or through arrays and nested structs. Used as the checker's
// fast-path rejection for records.
func HasHandleField(host *hosttype.Interner, t hosttype.TypeID) bool {
	return hasHandleField(host, t, make(map[hosttype.TypeID]struct{}, 4))
}

func hasHandleField(host *hosttype.Interner, t hosttype.TypeID, seen map[hosttype.TypeID]struct{}) bool {
	t = stripArrays(host, host.Canonical(t))
	if _, ok := seen[t]; ok {
		return false
	}
	seen[t] = struct{}{}

	info, ok := host.RecordInfo(t)
	if !ok || !info.Defined {
		return false
	}
	for _, f := range info.Fields {
		ft := stripArrays(host, host.Canonical(f.Type))
		if dt := SpecificType(host, ft); IsHandleType(dt) {
			return true
		}
		if host.KindOf(ft) == hosttype.KindRecord && hasHandleField(host, ft, seen) {
			return true
		}
	}
	return false
}

func stripArrays(host *hosttype.Interner, t hosttype.TypeID) hosttype.TypeID {
	for {
		tt, ok := host.Lookup(t)
		if !ok || tt.Kind != hosttype.KindArray {
			return t
		}
		t = host.Canonical(tt.Elem)
	}
}
