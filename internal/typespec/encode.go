package typespec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"ferry/internal/export"
)

// Encode serializes a fully interned export type into a framed descriptor.
// Any failure on a nested shape fails the whole blob; partial descriptors
// are never produced.
func Encode(t *export.Type) ([]byte, error) {
	var payload bytes.Buffer
	enc := msgpack.NewEncoder(&payload)
	if err := encodeType(enc, t); err != nil {
		return nil, err
	}

	size, err := safecast.Conv[uint32](payload.Len())
	if err != nil {
		return nil, fmt.Errorf("typespec: descriptor for %q too large: %w", t.Name, err)
	}
	blob := make([]byte, 4, 4+payload.Len())
	binary.BigEndian.PutUint32(blob, size)
	return append(blob, payload.Bytes()...), nil
}

func encodeType(enc *msgpack.Encoder, t *export.Type) error {
	if t == nil {
		return fmt.Errorf("typespec: cannot encode a nil type")
	}
	tag, ok := classTag(t.Class)
	if !ok {
		return fmt.Errorf("typespec: cannot encode class %d", t.Class)
	}

	switch t.Class {
	case export.ClassPrimitive:
		if t.Data == export.DataTypeUnknown || t.Data >= export.DataTypeMax {
			return fmt.Errorf("typespec: primitive %q has invalid data type %d", t.Name, t.Data)
		}
		if err := enc.EncodeArrayLen(2); err != nil {
			return err
		}
		if err := enc.EncodeUint8(tag); err != nil {
			return err
		}
		return enc.EncodeUint8(uint8(t.Data))

	case export.ClassPointer:
		if err := enc.EncodeArrayLen(2); err != nil {
			return err
		}
		if err := enc.EncodeUint8(tag); err != nil {
			return err
		}
		return encodeType(enc, t.Elem)

	case export.ClassVector:
		if t.Data == export.DataTypeUnknown || t.Data >= export.DataTypeMax {
			return fmt.Errorf("typespec: vector %q has invalid data type %d", t.Name, t.Data)
		}
		if err := enc.EncodeArrayLen(3); err != nil {
			return err
		}
		if err := enc.EncodeUint8(tag); err != nil {
			return err
		}
		if err := enc.EncodeUint8(uint8(t.Data)); err != nil {
			return err
		}
		return enc.EncodeUint32(t.Count)

	case export.ClassMatrix:
		dt, ok := matrixDataType(t.Count)
		if !ok {
			return fmt.Errorf("typespec: matrix %q has invalid dimension %d", t.Name, t.Count)
		}
		if err := enc.EncodeArrayLen(2); err != nil {
			return err
		}
		if err := enc.EncodeUint8(tag); err != nil {
			return err
		}
		return enc.EncodeUint8(uint8(dt))

	case export.ClassConstantArray:
		if err := enc.EncodeArrayLen(3); err != nil {
			return err
		}
		if err := enc.EncodeUint8(tag); err != nil {
			return err
		}
		if err := encodeType(enc, t.Elem); err != nil {
			return err
		}
		return enc.EncodeUint32(t.Count)

	case export.ClassRecord:
		if err := enc.EncodeArrayLen(3); err != nil {
			return err
		}
		if err := enc.EncodeUint8(tag); err != nil {
			return err
		}
		if err := enc.EncodeString(t.Name); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(t.Fields)); err != nil {
			return err
		}
		for i := range t.Fields {
			f := &t.Fields[i]
			if err := enc.EncodeArrayLen(3); err != nil {
				return err
			}
			if err := enc.EncodeString(f.Name); err != nil {
				return err
			}
			if err := encodeType(enc, f.Type); err != nil {
				return err
			}
			fieldKind := export.DataKindUser
			if f.Type != nil {
				fieldKind = f.Type.Kind
			}
			if err := enc.EncodeUint8(uint8(fieldKind)); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("typespec: cannot encode class %d", t.Class)
	}
}
