package export

import (
	"fmt"

	"ferry/internal/backend"
)

// Class tags the six concrete export-type kinds.
type Class uint8

const (
	ClassPrimitive Class = iota
	ClassPointer
	ClassVector
	ClassMatrix
	ClassConstantArray
	ClassRecord
)

func (c Class) String() string {
	switch c {
	case ClassPrimitive:
		return "primitive"
	case ClassPointer:
		return "pointer"
	case ClassVector:
		return "vector"
	case ClassMatrix:
		return "matrix"
	case ClassConstantArray:
		return "constant array"
	case ClassRecord:
		return "record"
	default:
		return fmt.Sprintf("Class(%d)", c)
	}
}

// Field is one member of a record export type, mirroring the host layout.
type Field struct {
	Name   string
	Type   *Type
	Parent *Type
	Offset uint32 // byte offset inside the record
}

// Type is the interned, immutable description of an exportable type. One
// tagged variant covers all six classes; which payload fields are meaningful
// depends on Class. The registry is the sole owner; everything else holds
// non-owning references.
type Type struct {
	Class Class
	Name  string

	Data DataType // Primitive, Vector
	Kind DataKind // Primitive, Vector

	Count uint32 // Vector width, Matrix dimension, ConstantArray length

	Elem *Type // Pointer pointee, ConstantArray element

	Fields     []Field // Record, in declaration order
	Packed     bool    // Record
	Artificial bool    // Record
	AllocSize  uint64  // Record, bytes

	kept    bool
	backend backend.Type
}

// IsHandle reports whether this is an opaque runtime handle primitive.
func (t *Type) IsHandle() bool {
	return t.Class == ClassPrimitive && IsHandleType(t.Data)
}

// Kept reports whether a keep traversal reached this type.
func (t *Type) Kept() bool {
	return t.kept
}

// Keep marks the type and everything it references as reachable. It also
// drops any cached backend conversion so the next request recomputes it
// under the new reachability. Idempotent: a second call on an already-kept
// type returns false and stops the recursion.
func (t *Type) Keep() bool {
	if t.kept {
		return false
	}
	t.kept = true
	t.backend = nil

	switch t.Class {
	case ClassPointer, ClassConstantArray:
		if t.Elem != nil {
			t.Elem.Keep()
		}
	case ClassRecord:
		for i := range t.Fields {
			if t.Fields[i].Type != nil {
				t.Fields[i].Type.Keep()
			}
		}
	}
	return true
}

// Equals compares structural shape: same class plus kind-specific payload.
// Field names and offsets are deliberately not compared. This is a query,
// never a normalization step; the registry does not merge equal entries.
func (t *Type) Equals(other *Type) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Class != other.Class {
		return false
	}
	switch t.Class {
	case ClassPrimitive:
		return t.Data == other.Data
	case ClassVector:
		return t.Data == other.Data && t.Count == other.Count
	case ClassPointer:
		return t.Elem.Equals(other.Elem)
	case ClassMatrix:
		return t.Count == other.Count
	case ClassConstantArray:
		return t.Count == other.Count && t.Elem.Equals(other.Elem)
	case ClassRecord:
		if len(t.Fields) != len(other.Fields) {
			return false
		}
		for i := range t.Fields {
			if !t.Fields[i].Type.Equals(other.Fields[i].Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
