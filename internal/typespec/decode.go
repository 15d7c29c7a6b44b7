package typespec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"ferry/internal/export"
)

// Maximum nesting a well-formed descriptor can reach. Pointers do not nest
// under records and arrays are single-dimensional, so real descriptors are
// shallow; the limit only bounds hostile input.
const maxDepth = 64

// Decode reads a framed descriptor back into a Spec tree. The blob must
// contain exactly one descriptor; trailing bytes are an error.
func Decode(blob []byte) (*Spec, error) {
	if len(blob) < 4 {
		return nil, fmt.Errorf("typespec: blob shorter than the length prefix")
	}
	size := binary.BigEndian.Uint32(blob)
	if uint64(size) != uint64(len(blob)-4) {
		return nil, fmt.Errorf("typespec: length prefix %d does not match payload size %d", size, len(blob)-4)
	}

	dec := msgpack.NewDecoder(bytes.NewReader(blob[4:]))
	s, err := decodeType(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.DecodeInterface(); err == nil {
		return nil, fmt.Errorf("typespec: trailing data after descriptor")
	}
	return s, nil
}

func decodeType(dec *msgpack.Decoder, depth int) (*Spec, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("typespec: descriptor nests deeper than %d", maxDepth)
	}

	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, fmt.Errorf("typespec: malformed descriptor: %w", err)
	}
	tag, err := dec.DecodeUint8()
	if err != nil {
		return nil, fmt.Errorf("typespec: malformed descriptor tag: %w", err)
	}
	class, ok := tagClass(tag)
	if !ok {
		return nil, fmt.Errorf("typespec: unknown descriptor tag %d", tag)
	}

	switch class {
	case export.ClassPrimitive:
		if n != 2 {
			return nil, fmt.Errorf("typespec: primitive descriptor has %d elements", n)
		}
		dt, err := decodeDataType(dec)
		if err != nil {
			return nil, err
		}
		return &Spec{Class: class, Data: dt}, nil

	case export.ClassPointer:
		if n != 2 {
			return nil, fmt.Errorf("typespec: pointer descriptor has %d elements", n)
		}
		elem, err := decodeType(dec, depth+1)
		if err != nil {
			return nil, err
		}
		return &Spec{Class: class, Elem: elem}, nil

	case export.ClassVector:
		if n != 3 {
			return nil, fmt.Errorf("typespec: vector descriptor has %d elements", n)
		}
		dt, err := decodeDataType(dec)
		if err != nil {
			return nil, err
		}
		count, err := dec.DecodeUint32()
		if err != nil {
			return nil, fmt.Errorf("typespec: malformed vector width: %w", err)
		}
		if count < 2 || count > 4 {
			return nil, fmt.Errorf("typespec: vector width %d out of range", count)
		}
		return &Spec{Class: class, Data: dt, Count: count}, nil

	case export.ClassMatrix:
		if n != 2 {
			return nil, fmt.Errorf("typespec: matrix descriptor has %d elements", n)
		}
		dt, err := decodeDataType(dec)
		if err != nil {
			return nil, err
		}
		dim := export.MatrixDim(dt)
		if dim == 0 {
			return nil, fmt.Errorf("typespec: data type %d is not a matrix", dt)
		}
		return &Spec{Class: class, Data: dt, Count: dim}, nil

	case export.ClassConstantArray:
		if n != 3 {
			return nil, fmt.Errorf("typespec: array descriptor has %d elements", n)
		}
		elem, err := decodeType(dec, depth+1)
		if err != nil {
			return nil, err
		}
		count, err := dec.DecodeUint32()
		if err != nil {
			return nil, fmt.Errorf("typespec: malformed array length: %w", err)
		}
		if count == 0 {
			return nil, fmt.Errorf("typespec: zero-length array descriptor")
		}
		return &Spec{Class: class, Elem: elem, Count: count}, nil

	case export.ClassRecord:
		if n != 3 {
			return nil, fmt.Errorf("typespec: record descriptor has %d elements", n)
		}
		name, err := dec.DecodeString()
		if err != nil {
			return nil, fmt.Errorf("typespec: malformed record name: %w", err)
		}
		nfields, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, fmt.Errorf("typespec: malformed record field list: %w", err)
		}
		fields := make([]FieldSpec, 0, nfields)
		for i := 0; i < nfields; i++ {
			fn, err := dec.DecodeArrayLen()
			if err != nil || fn != 3 {
				return nil, fmt.Errorf("typespec: malformed field %d of %q", i, name)
			}
			fname, err := dec.DecodeString()
			if err != nil {
				return nil, fmt.Errorf("typespec: malformed field name in %q: %w", name, err)
			}
			ftype, err := decodeType(dec, depth+1)
			if err != nil {
				return nil, err
			}
			kind, err := dec.DecodeUint8()
			if err != nil {
				return nil, fmt.Errorf("typespec: malformed data kind for %q.%q: %w", name, fname, err)
			}
			fields = append(fields, FieldSpec{Name: fname, Type: ftype, Kind: export.DataKind(kind)})
		}
		return &Spec{Class: class, Name: name, Fields: fields}, nil

	default:
		return nil, fmt.Errorf("typespec: unknown descriptor tag %d", tag)
	}
}

func decodeDataType(dec *msgpack.Decoder) (export.DataType, error) {
	v, err := dec.DecodeUint8()
	if err != nil {
		return export.DataTypeUnknown, fmt.Errorf("typespec: malformed data type: %w", err)
	}
	dt := export.DataType(v)
	if dt == export.DataTypeUnknown || dt >= export.DataTypeMax {
		return export.DataTypeUnknown, fmt.Errorf("typespec: data type %d out of range", v)
	}
	return dt, nil
}
