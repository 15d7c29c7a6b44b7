package export

import (
	"fmt"

	"ferry/internal/hosttype"
)

// DataType tags the scalar payload of primitive and vector export types.
// The matrix and handle ranges are pseudo-primitives: runtime-defined structs
// that cross the boundary as opaque tagged values. The numbering is part of
// the binary descriptor contract; do not reorder.
type DataType uint8

const (
	DataTypeUnknown DataType = iota
	DataTypeFloat32
	DataTypeFloat64
	DataTypeSigned8
	DataTypeSigned16
	DataTypeSigned32
	DataTypeSigned64
	DataTypeUnsigned8
	DataTypeUnsigned16
	DataTypeUnsigned32
	DataTypeUnsigned64
	DataTypeBoolean
	DataTypeUnsigned565
	DataTypeUnsigned5551
	DataTypeUnsigned4444

	DataTypeMatrix2x2
	DataTypeMatrix3x3
	DataTypeMatrix4x4

	DataTypeElement
	DataTypeType
	DataTypeAllocation
	DataTypeSampler
	DataTypeScript
	DataTypeMesh
	DataTypeProgramFragment
	DataTypeProgramVertex
	DataTypeProgramRaster
	DataTypeProgramStore
	DataTypeFont

	DataTypeMax
)

const (
	FirstMatrixType = DataTypeMatrix2x2
	LastMatrixType  = DataTypeMatrix4x4
	FirstHandleType = DataTypeElement
	LastHandleType  = DataTypeFont
)

// DataKind is a usage hint carried next to the data type: plain numeric
// values are DataKindUser; packed-color subtypes tell the runtime how to
// interpret the channels.
type DataKind uint8

const (
	DataKindUser DataKind = iota
	DataKindPixelL
	DataKindPixelA
	DataKindPixelLA
	DataKindPixelRGB
	DataKindPixelRGBA
)

var dataTypeNames = [DataTypeMax]string{
	DataTypeFloat32:         "float32",
	DataTypeFloat64:         "float64",
	DataTypeSigned8:         "signed8",
	DataTypeSigned16:        "signed16",
	DataTypeSigned32:        "signed32",
	DataTypeSigned64:        "signed64",
	DataTypeUnsigned8:       "unsigned8",
	DataTypeUnsigned16:      "unsigned16",
	DataTypeUnsigned32:      "unsigned32",
	DataTypeUnsigned64:      "unsigned64",
	DataTypeBoolean:         "boolean",
	DataTypeUnsigned565:     "unsigned565",
	DataTypeUnsigned5551:    "unsigned5551",
	DataTypeUnsigned4444:    "unsigned4444",
	DataTypeMatrix2x2:       "matrix2x2",
	DataTypeMatrix3x3:       "matrix3x3",
	DataTypeMatrix4x4:       "matrix4x4",
	DataTypeElement:         "element",
	DataTypeType:            "type",
	DataTypeAllocation:      "allocation",
	DataTypeSampler:         "sampler",
	DataTypeScript:          "script",
	DataTypeMesh:            "mesh",
	DataTypeProgramFragment: "program_fragment",
	DataTypeProgramVertex:   "program_vertex",
	DataTypeProgramRaster:   "program_raster",
	DataTypeProgramStore:    "program_store",
	DataTypeFont:            "font",
}

func (dt DataType) String() string {
	if dt < DataTypeMax && dataTypeNames[dt] != "" {
		return dataTypeNames[dt]
	}
	return fmt.Sprintf("DataType(%d)", uint8(dt))
}

// IsMatrixType reports whether dt falls in the matrix pseudo-primitive range.
func IsMatrixType(dt DataType) bool {
	return dt >= FirstMatrixType && dt <= LastMatrixType
}

// IsHandleType reports whether dt is an opaque runtime handle.
func IsHandleType(dt DataType) bool {
	return dt >= FirstHandleType && dt <= LastHandleType
}

// MatrixDim returns the square dimension of a matrix data type, 0 otherwise.
func MatrixDim(dt DataType) uint32 {
	switch dt {
	case DataTypeMatrix2x2:
		return 2
	case DataTypeMatrix3x3:
		return 3
	case DataTypeMatrix4x4:
		return 4
	default:
		return 0
	}
}

var sizeOfDataTypeInBits = [DataTypeMax]uint32{
	DataTypeFloat32:         32,
	DataTypeFloat64:         64,
	DataTypeSigned8:         8,
	DataTypeSigned16:        16,
	DataTypeSigned32:        32,
	DataTypeSigned64:        64,
	DataTypeUnsigned8:       8,
	DataTypeUnsigned16:      16,
	DataTypeUnsigned32:      32,
	DataTypeUnsigned64:      64,
	DataTypeBoolean:         8,
	DataTypeUnsigned565:     16,
	DataTypeUnsigned5551:    16,
	DataTypeUnsigned4444:    16,
	DataTypeMatrix2x2:       4 * 32,
	DataTypeMatrix3x3:       9 * 32,
	DataTypeMatrix4x4:       16 * 32,
	DataTypeElement:         32,
	DataTypeType:            32,
	DataTypeAllocation:      32,
	DataTypeSampler:         32,
	DataTypeScript:          32,
	DataTypeMesh:            32,
	DataTypeProgramFragment: 32,
	DataTypeProgramVertex:   32,
	DataTypeProgramRaster:   32,
	DataTypeProgramStore:    32,
	DataTypeFont:            32,
}

// GetSizeInBits is a pure table lookup. A value outside the valid range
// means the checker let something through it should not have; that is a bug,
// not a user error, so fail loudly.
func GetSizeInBits(dt DataType) uint32 {
	if dt <= DataTypeUnknown || dt >= DataTypeMax {
		panic(fmt.Sprintf("export: GetSizeInBits: unknown data type %d", dt))
	}
	return sizeOfDataTypeInBits[dt]
}

// specificTypes maps the runtime's well-known struct names to their
// pseudo-primitive tags. Built once, read-only.
var specificTypes = map[string]DataType{
	"rt_matrix2x2":        DataTypeMatrix2x2,
	"rt_matrix3x3":        DataTypeMatrix3x3,
	"rt_matrix4x4":        DataTypeMatrix4x4,
	"rt_element":          DataTypeElement,
	"rt_type":             DataTypeType,
	"rt_allocation":       DataTypeAllocation,
	"rt_sampler":          DataTypeSampler,
	"rt_script":           DataTypeScript,
	"rt_mesh":             DataTypeMesh,
	"rt_program_fragment": DataTypeProgramFragment,
	"rt_program_vertex":   DataTypeProgramVertex,
	"rt_program_raster":   DataTypeProgramRaster,
	"rt_program_store":    DataTypeProgramStore,
	"rt_font":             DataTypeFont,
}

// SpecificTypeByName resolves a struct name to its pseudo-primitive tag,
// DataTypeUnknown for ordinary user structs.
func SpecificTypeByName(name string) DataType {
	if name == "" {
		return DataTypeUnknown
	}
	return specificTypes[name]
}

// SpecificType resolves a host type to its pseudo-primitive tag. Only
// canonical record types can be runtime-specific.
func SpecificType(host *hosttype.Interner, t hosttype.TypeID) DataType {
	t = host.Canonical(t)
	tt, ok := host.Lookup(t)
	if !ok || tt.Kind != hosttype.KindRecord {
		return DataTypeUnknown
	}
	name, ok := host.Strings().Lookup(host.RecordName(t))
	if !ok {
		return DataTypeUnknown
	}
	return SpecificTypeByName(name)
}

// builtinDataType maps an exportable scalar builtin to its data type.
func builtinDataType(bk hosttype.BuiltinKind) DataType {
	switch bk {
	case hosttype.BuiltinBool:
		return DataTypeBoolean
	case hosttype.BuiltinChar:
		return DataTypeSigned8
	case hosttype.BuiltinUChar:
		return DataTypeUnsigned8
	case hosttype.BuiltinShort:
		return DataTypeSigned16
	case hosttype.BuiltinUShort:
		return DataTypeUnsigned16
	case hosttype.BuiltinInt:
		return DataTypeSigned32
	case hosttype.BuiltinUInt:
		return DataTypeUnsigned32
	case hosttype.BuiltinLong:
		return DataTypeSigned64
	case hosttype.BuiltinULong:
		return DataTypeUnsigned64
	case hosttype.BuiltinFloat:
		return DataTypeFloat32
	case hosttype.BuiltinDouble:
		return DataTypeFloat64
	default:
		// Platform-width-dependent kinds never get a data type.
		return DataTypeUnknown
	}
}
