package typespec

import (
	"encoding/binary"
	"testing"

	"ferry/internal/export"
)

func roundTrip(t *testing.T, et *export.Type) *Spec {
	t.Helper()
	blob, err := Encode(et)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got := binary.BigEndian.Uint32(blob); int(got) != len(blob)-4 {
		t.Fatalf("length prefix %d, payload %d", got, len(blob)-4)
	}
	s, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return s
}

func TestPrimitiveRoundTrip(t *testing.T) {
	s := roundTrip(t, &export.Type{Class: export.ClassPrimitive, Name: "float", Data: export.DataTypeFloat32})
	if s.Class != export.ClassPrimitive || s.Data != export.DataTypeFloat32 {
		t.Fatalf("got class %s data %d", s.Class, s.Data)
	}
}

func TestPointerRoundTrip(t *testing.T) {
	et := &export.Type{
		Class: export.ClassPointer,
		Name:  "*int",
		Elem:  &export.Type{Class: export.ClassPrimitive, Name: "int", Data: export.DataTypeSigned32},
	}
	s := roundTrip(t, et)
	if s.Class != export.ClassPointer || s.Elem == nil || s.Elem.Data != export.DataTypeSigned32 {
		t.Fatalf("pointer did not round-trip: %+v", s)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	s := roundTrip(t, &export.Type{Class: export.ClassVector, Name: "float4", Data: export.DataTypeFloat32, Count: 4})
	if s.Class != export.ClassVector || s.Data != export.DataTypeFloat32 || s.Count != 4 {
		t.Fatalf("vector did not round-trip: %+v", s)
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	s := roundTrip(t, &export.Type{Class: export.ClassMatrix, Name: "rt_matrix3x3", Count: 3})
	if s.Class != export.ClassMatrix || s.Data != export.DataTypeMatrix3x3 || s.Count != 3 {
		t.Fatalf("matrix did not round-trip: %+v", s)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	intT := &export.Type{Class: export.ClassPrimitive, Name: "int", Data: export.DataTypeSigned32}
	vecT := &export.Type{Class: export.ClassVector, Name: "float4", Data: export.DataTypeFloat32, Count: 4}
	arrT := &export.Type{Class: export.ClassConstantArray, Name: export.ConstantArrayName, Count: 8, Elem: intT}
	rec := &export.Type{
		Class: export.ClassRecord,
		Name:  "Particle",
		Fields: []export.Field{
			{Name: "pos", Type: vecT},
			{Name: "trail", Type: arrT},
		},
	}

	s := roundTrip(t, rec)
	if s.Class != export.ClassRecord || s.Name != "Particle" || len(s.Fields) != 2 {
		t.Fatalf("record did not round-trip: %+v", s)
	}
	if s.Fields[0].Name != "pos" || s.Fields[0].Type.Class != export.ClassVector {
		t.Fatalf("field 0 = %+v", s.Fields[0])
	}
	trail := s.Fields[1].Type
	if trail.Class != export.ClassConstantArray || trail.Count != 8 || trail.Elem.Data != export.DataTypeSigned32 {
		t.Fatalf("field 1 = %+v", trail)
	}
}

func TestEncodeRejectsBadShapes(t *testing.T) {
	if _, err := Encode(&export.Type{Class: export.ClassMatrix, Name: "m", Count: 5}); err == nil {
		t.Fatalf("dimension-5 matrix must not encode")
	}
	if _, err := Encode(&export.Type{Class: export.ClassPointer, Name: "*x"}); err == nil {
		t.Fatalf("pointer without pointee must not encode")
	}
	if _, err := Encode(&export.Type{Class: export.ClassPrimitive, Name: "p", Data: export.DataTypeUnknown}); err == nil {
		t.Fatalf("unknown data type must not encode")
	}
}

func TestDecodeRejectsBadBlobs(t *testing.T) {
	if _, err := Decode([]byte{0, 0}); err == nil {
		t.Fatalf("truncated prefix must not decode")
	}

	blob, err := Encode(&export.Type{Class: export.ClassPrimitive, Name: "int", Data: export.DataTypeSigned32})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	bad := append([]byte(nil), blob...)
	binary.BigEndian.PutUint32(bad, uint32(len(bad))) // prefix larger than payload
	if _, err := Decode(bad); err == nil {
		t.Fatalf("mismatched prefix must not decode")
	}

	// The registry never produces out-of-range widths, but the decoder must
	// still reject them from foreign blobs.
	wide, err := Encode(&export.Type{Class: export.ClassVector, Name: "float7", Data: export.DataTypeFloat32, Count: 7})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(wide); err == nil {
		t.Fatalf("width-7 vector must not decode")
	}
}
