package export

import (
	"fmt"

	"fortio.org/safecast"

	"ferry/internal/backend"
)

// BackendType lowers the export type through the builder, caching the
// result on the type. Records use the two-phase declare-then-define protocol
// and publish the opaque declaration into the cache before lowering fields,
// so reference cycles through the cache terminate.
func (t *Type) BackendType(b backend.Builder) backend.Type {
	if t.backend != nil {
		return t.backend
	}

	if t.Class == ClassRecord {
		opaque := b.DeclareOpaque(t.Name)
		t.backend = opaque
		fields := make([]backend.Type, len(t.Fields))
		for i := range t.Fields {
			fields[i] = t.Fields[i].Type.BackendType(b)
		}
		opaque.Define(fields, t.Packed)
		return opaque
	}

	bt := t.lower(b)
	t.backend = bt
	return bt
}

func (t *Type) lower(b backend.Builder) backend.Type {
	switch t.Class {
	case ClassPrimitive:
		return primitiveBackendType(b, t.Data)

	case ClassPointer:
		return b.Pointer(t.Elem.BackendType(b))

	case ClassVector:
		count, err := safecast.Conv[int](t.Count)
		if err != nil {
			panic(fmt.Errorf("export: vector width overflow: %w", err))
		}
		return b.Vector(primitiveBackendType(b, t.Data), count)

	case ClassMatrix:
		// A matrix lowers to the runtime struct shape it validates against:
		// a single float array of dim-squared elements.
		return b.Struct([]backend.Type{b.Array(b.Float(32), t.Count*t.Count)}, false)

	case ClassConstantArray:
		return b.Array(t.Elem.BackendType(b), t.Count)

	default:
		panic(fmt.Sprintf("export: cannot lower %s type %q", t.Class, t.Name))
	}
}

// primitiveBackendType lowers a scalar tag. Packed-color subtypes are plain
// 16-bit integers at this level; the channel interpretation lives in the
// descriptor, not the lowered type.
func primitiveBackendType(b backend.Builder, dt DataType) backend.Type {
	if IsHandleType(dt) {
		return b.Handle()
	}
	switch dt {
	case DataTypeBoolean:
		return b.Bool()
	case DataTypeFloat32:
		return b.Float(32)
	case DataTypeFloat64:
		return b.Float(64)
	case DataTypeSigned8, DataTypeUnsigned8:
		return b.Int(8)
	case DataTypeSigned16, DataTypeUnsigned16,
		DataTypeUnsigned565, DataTypeUnsigned5551, DataTypeUnsigned4444:
		return b.Int(16)
	case DataTypeSigned32, DataTypeUnsigned32:
		return b.Int(32)
	case DataTypeSigned64, DataTypeUnsigned64:
		return b.Int(64)
	default:
		panic(fmt.Sprintf("export: cannot lower data type %d as a primitive", dt))
	}
}
