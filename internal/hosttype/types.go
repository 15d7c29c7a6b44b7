package hosttype

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates the structural classes a host type can have. This is the
// whole surface the export core may depend on; the host compiler's richer
// type system never leaks past it.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBuiltin
	KindRecord
	KindPointer
	KindVector
	KindArray
	KindAlias
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindBuiltin:
		return "builtin"
	case KindRecord:
		return "record"
	case KindPointer:
		return "pointer"
	case KindVector:
		return "vector"
	case KindArray:
		return "array"
	case KindAlias:
		return "alias"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for any host type.
type Type struct {
	Kind    Kind
	Builtin BuiltinKind // for builtins and vector elements
	Elem    TypeID      // pointee / element type
	Count   uint32      // vector width or array length
	Payload uint32      // record/alias side-table slot
}

// MakeBuiltin describes a scalar builtin.
func MakeBuiltin(bk BuiltinKind) Type {
	return Type{Kind: KindBuiltin, Builtin: bk}
}

// MakePointer describes a pointer to elem.
func MakePointer(elem TypeID) Type {
	return Type{Kind: KindPointer, Elem: elem}
}

// MakeVector describes a fixed short vector of a builtin element.
func MakeVector(elem TypeID, count uint32) Type {
	return Type{Kind: KindVector, Elem: elem, Count: count}
}

// MakeArray describes a constant-size array.
func MakeArray(elem TypeID, count uint32) Type {
	return Type{Kind: KindArray, Elem: elem, Count: count}
}
