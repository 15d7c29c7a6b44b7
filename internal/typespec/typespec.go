// Package typespec serializes export types into self-contained binary
// descriptors and reads them back. The blob is a fixed big-endian u32 length
// prefix followed by a msgpack payload; the prefix lets hosts size-check and
// skip descriptors without a msgpack decoder.
package typespec

import (
	"ferry/internal/export"
)

// Wire tags for the six descriptor shapes. Part of the blob contract; do not
// reorder.
const (
	tagPrimitive uint8 = iota
	tagPointer
	tagVector
	tagMatrix
	tagConstantArray
	tagRecord
)

// Spec is the decoded, registry-independent form of a descriptor. It mirrors
// export.Type shape for shape but owns nothing and resolves nothing.
type Spec struct {
	Class export.Class
	Name  string

	Data  export.DataType
	Count uint32

	Elem   *Spec
	Fields []FieldSpec
}

// FieldSpec is one record member in a decoded descriptor.
type FieldSpec struct {
	Name string
	Type *Spec
	Kind export.DataKind
}

func classTag(c export.Class) (uint8, bool) {
	switch c {
	case export.ClassPrimitive:
		return tagPrimitive, true
	case export.ClassPointer:
		return tagPointer, true
	case export.ClassVector:
		return tagVector, true
	case export.ClassMatrix:
		return tagMatrix, true
	case export.ClassConstantArray:
		return tagConstantArray, true
	case export.ClassRecord:
		return tagRecord, true
	default:
		return 0, false
	}
}

func tagClass(tag uint8) (export.Class, bool) {
	switch tag {
	case tagPrimitive:
		return export.ClassPrimitive, true
	case tagPointer:
		return export.ClassPointer, true
	case tagVector:
		return export.ClassVector, true
	case tagMatrix:
		return export.ClassMatrix, true
	case tagConstantArray:
		return export.ClassConstantArray, true
	case tagRecord:
		return export.ClassRecord, true
	default:
		return 0, false
	}
}

func matrixDataType(dim uint32) (export.DataType, bool) {
	switch dim {
	case 2:
		return export.DataTypeMatrix2x2, true
	case 3:
		return export.DataTypeMatrix3x3, true
	case 4:
		return export.DataTypeMatrix4x4, true
	default:
		return export.DataTypeUnknown, false
	}
}
