package hosttype

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"ferry/internal/source"
)

// Field is one declared member of a record, in declaration order.
type Field struct {
	Name     source.StringID
	Type     TypeID
	BitWidth uint32 // 0 means "not a bit-field"
}

// RecordInfo stores everything the export core may read about a record:
// its name, redeclaration names, definedness, layout attributes and fields.
type RecordInfo struct {
	Name          source.StringID
	Decl          source.Span
	Union         bool
	Packed        bool
	Defined       bool
	Artificial    bool
	FlexibleArray bool
	Redecls       []source.StringID
	Fields        []Field
}

// AliasInfo stores metadata for a typedef-like alias.
type AliasInfo struct {
	Name   source.StringID
	Decl   source.Span
	Target TypeID
}

// Builtins stores TypeIDs for the seeded scalar types.
type Builtins struct {
	Bool, Char, UChar     TypeID
	Short, UShort         TypeID
	Int, UInt             TypeID
	Long, ULong           TypeID
	Float, Double         TypeID
	WChar, LongDouble     TypeID
	Invalid               TypeID
}

// Interner owns one compilation unit's host type graph. Structural types
// (builtins, pointers, vectors, arrays) are deduplicated by shape; records
// and aliases are nominal and get a fresh slot per registration.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	records  []RecordInfo
	aliases  []AliasInfo
	strings  *source.Interner
}

type typeKey struct {
	Kind    Kind
	Builtin BuiltinKind
	Elem    TypeID
	Count   uint32
	Payload uint32
}

// NewInterner constructs an interner seeded with the builtin scalars.
func NewInterner(strings *source.Interner) *Interner {
	if strings == nil {
		strings = source.NewInterner()
	}
	in := &Interner{
		index:   make(map[typeKey]TypeID, 64),
		strings: strings,
	}
	in.records = append(in.records, RecordInfo{}) // reserve 0 as invalid sentinel
	in.aliases = append(in.aliases, AliasInfo{})
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Bool = in.Intern(MakeBuiltin(BuiltinBool))
	in.builtins.Char = in.Intern(MakeBuiltin(BuiltinChar))
	in.builtins.UChar = in.Intern(MakeBuiltin(BuiltinUChar))
	in.builtins.Short = in.Intern(MakeBuiltin(BuiltinShort))
	in.builtins.UShort = in.Intern(MakeBuiltin(BuiltinUShort))
	in.builtins.Int = in.Intern(MakeBuiltin(BuiltinInt))
	in.builtins.UInt = in.Intern(MakeBuiltin(BuiltinUInt))
	in.builtins.Long = in.Intern(MakeBuiltin(BuiltinLong))
	in.builtins.ULong = in.Intern(MakeBuiltin(BuiltinULong))
	in.builtins.Float = in.Intern(MakeBuiltin(BuiltinFloat))
	in.builtins.Double = in.Intern(MakeBuiltin(BuiltinDouble))
	in.builtins.WChar = in.Intern(MakeBuiltin(BuiltinWChar))
	in.builtins.LongDouble = in.Intern(MakeBuiltin(BuiltinLongDouble))
	return in
}

// Builtins returns TypeIDs for the seeded scalars.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Strings returns the identifier interner shared by this unit.
func (in *Interner) Strings() *source.Interner {
	return in.strings
}

// Intern ensures the structural descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := keyOf(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("hosttype: len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[keyOf(t)] = id
	return id
}

func keyOf(t Type) typeKey {
	return typeKey{Kind: t.Kind, Builtin: t.Builtin, Elem: t.Elem, Count: t.Count, Payload: t.Payload}
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("hosttype: invalid TypeID")
	}
	return tt
}

// Pointer interns a pointer to elem.
func (in *Interner) Pointer(elem TypeID) TypeID {
	return in.Intern(MakePointer(elem))
}

// Vector interns a fixed vector of a builtin element.
func (in *Interner) Vector(elem TypeID, count uint32) TypeID {
	return in.Intern(MakeVector(elem, count))
}

// Array interns a constant-size array.
func (in *Interner) Array(elem TypeID, count uint32) TypeID {
	return in.Intern(MakeArray(elem, count))
}

// Function interns an opaque "other" structural kind. The export core only
// ever rejects it, so one shared instance is enough.
func (in *Interner) Function() TypeID {
	return in.Intern(Type{Kind: KindFunction})
}

// RegisterRecord allocates a nominal record slot and returns its TypeID.
func (in *Interner) RegisterRecord(name source.StringID, decl source.Span) TypeID {
	slot := in.appendRecordInfo(RecordInfo{Name: name, Decl: decl})
	return in.internRaw(Type{Kind: KindRecord, Payload: slot})
}

// RecordInfo returns mutable metadata for the record TypeID.
func (in *Interner) RecordInfo(id TypeID) (*RecordInfo, bool) {
	info := in.recordInfo(id)
	if info == nil {
		return nil, false
	}
	return info, true
}

// SetRecordFields stores the resolved field descriptors and marks the record
// as defined in this unit.
func (in *Interner) SetRecordFields(id TypeID, fields []Field) {
	info := in.recordInfo(id)
	if info == nil {
		return
	}
	info.Fields = slices.Clone(fields)
	info.Defined = true
}

// AddRedecl records an extra declaration name (e.g. from a typedef).
func (in *Interner) AddRedecl(id TypeID, name source.StringID) {
	info := in.recordInfo(id)
	if info == nil {
		return
	}
	info.Redecls = append(info.Redecls, name)
}

// RecordName returns the record's own name, falling back to the first
// non-empty redeclaration name.
func (in *Interner) RecordName(id TypeID) source.StringID {
	info := in.recordInfo(id)
	if info == nil {
		return source.NoStringID
	}
	if info.Name != source.NoStringID {
		return info.Name
	}
	for _, r := range info.Redecls {
		if r != source.NoStringID {
			return r
		}
	}
	return source.NoStringID
}

// RegisterAlias allocates an alias slot pointing at target.
func (in *Interner) RegisterAlias(name source.StringID, decl source.Span, target TypeID) TypeID {
	slot := in.appendAliasInfo(AliasInfo{Name: name, Decl: decl, Target: target})
	return in.internRaw(Type{Kind: KindAlias, Payload: slot})
}

// AliasTarget retrieves the aliased target type.
func (in *Interner) AliasTarget(id TypeID) (TypeID, bool) {
	info := in.aliasInfo(id)
	if info == nil || info.Target == NoTypeID {
		return NoTypeID, false
	}
	return info.Target, true
}

// Canonical strips aliases down to the underlying structural type.
func (in *Interner) Canonical(id TypeID) TypeID {
	seen := make(map[TypeID]struct{}, 4)
	for id != NoTypeID {
		if _, ok := seen[id]; ok {
			return id
		}
		seen[id] = struct{}{}
		tt, ok := in.Lookup(id)
		if !ok || tt.Kind != KindAlias {
			return id
		}
		target, ok := in.AliasTarget(id)
		if !ok {
			return id
		}
		id = target
	}
	return id
}

// KindOf returns the structural kind of the canonical form of id.
func (in *Interner) KindOf(id TypeID) Kind {
	tt, ok := in.Lookup(in.Canonical(id))
	if !ok {
		return KindInvalid
	}
	return tt.Kind
}

func (in *Interner) recordInfo(id TypeID) *RecordInfo {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindRecord {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.records) {
		return nil
	}
	return &in.records[tt.Payload]
}

func (in *Interner) aliasInfo(id TypeID) *AliasInfo {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindAlias {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.aliases) {
		return nil
	}
	return &in.aliases[tt.Payload]
}

func (in *Interner) appendRecordInfo(info RecordInfo) uint32 {
	in.records = append(in.records, info)
	slot, err := safecast.Conv[uint32](len(in.records) - 1)
	if err != nil {
		panic(fmt.Errorf("hosttype: record info overflow: %w", err))
	}
	return slot
}

func (in *Interner) appendAliasInfo(info AliasInfo) uint32 {
	in.aliases = append(in.aliases, info)
	slot, err := safecast.Conv[uint32](len(in.aliases) - 1)
	if err != nil {
		panic(fmt.Errorf("hosttype: alias info overflow: %w", err))
	}
	return slot
}
