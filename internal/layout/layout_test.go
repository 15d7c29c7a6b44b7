package layout

import (
	"errors"
	"testing"

	"ferry/internal/hosttype"
	"ferry/internal/source"
)

func newEngine() (*Engine, *hosttype.Interner) {
	in := hosttype.NewInterner(nil)
	return New(X86_64LinuxGNU(), in), in
}

func TestScalarAndPointerSizes(t *testing.T) {
	e, in := newEngine()
	b := in.Builtins()
	cases := []struct {
		id   hosttype.TypeID
		size int
	}{
		{b.Bool, 1},
		{b.Char, 1},
		{b.Short, 2},
		{b.Int, 4},
		{b.Long, 8},
		{b.Float, 4},
		{b.Double, 8},
		{in.Pointer(b.Float), 8},
	}
	for _, c := range cases {
		got, err := e.SizeOf(c.id)
		if err != nil {
			t.Fatalf("SizeOf(%d): %v", c.id, err)
		}
		if got != c.size {
			t.Fatalf("SizeOf(%d) = %d, want %d", c.id, got, c.size)
		}
	}
}

func TestVec3OccupiesFourElements(t *testing.T) {
	e, in := newEngine()
	b := in.Builtins()
	v3 := in.Vector(b.Float, 3)
	size, err := e.SizeOf(v3)
	if err != nil {
		t.Fatalf("SizeOf: %v", err)
	}
	if size != 16 {
		t.Fatalf("float3 allocates a float4 slot: size=%d, want 16", size)
	}
	v2, _ := e.SizeOf(in.Vector(b.Float, 2))
	if v2 != 8 {
		t.Fatalf("float2 size=%d, want 8", v2)
	}
}

func TestRecordOffsetsWithPadding(t *testing.T) {
	e, in := newEngine()
	b := in.Builtins()
	s := in.Strings()
	// struct { char c; int i; double d; }
	r := in.RegisterRecord(s.Intern("Mixed"), source.Span{})
	in.SetRecordFields(r, []hosttype.Field{
		{Name: s.Intern("c"), Type: b.Char},
		{Name: s.Intern("i"), Type: b.Int},
		{Name: s.Intern("d"), Type: b.Double},
	})
	l, err := e.LayoutOf(r)
	if err != nil {
		t.Fatalf("LayoutOf: %v", err)
	}
	want := []int{0, 4, 8}
	for i, off := range want {
		if l.FieldOffsets[i] != off {
			t.Fatalf("field %d offset = %d, want %d", i, l.FieldOffsets[i], off)
		}
	}
	if l.Size != 16 || l.Align != 8 {
		t.Fatalf("size/align = %d/%d, want 16/8", l.Size, l.Align)
	}
}

func TestPackedRecordHasNoPadding(t *testing.T) {
	e, in := newEngine()
	b := in.Builtins()
	s := in.Strings()
	r := in.RegisterRecord(s.Intern("Tight"), source.Span{})
	info, _ := in.RecordInfo(r)
	info.Packed = true
	in.SetRecordFields(r, []hosttype.Field{
		{Name: s.Intern("c"), Type: b.Char},
		{Name: s.Intern("i"), Type: b.Int},
	})
	l, err := e.LayoutOf(r)
	if err != nil {
		t.Fatalf("LayoutOf: %v", err)
	}
	if l.Size != 5 || l.FieldOffsets[1] != 1 {
		t.Fatalf("packed layout wrong: size=%d offsets=%v", l.Size, l.FieldOffsets)
	}
}

func TestUndefinedRecordFails(t *testing.T) {
	e, in := newEngine()
	r := in.RegisterRecord(in.Strings().Intern("Fwd"), source.Span{})
	_, err := e.LayoutOf(r)
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Kind != ErrUndefinedRecord {
		t.Fatalf("expected undefined-record error, got %v", err)
	}
}

func TestValueRecursionIsDetected(t *testing.T) {
	e, in := newEngine()
	s := in.Strings()
	r := in.RegisterRecord(s.Intern("Self"), source.Span{})
	in.SetRecordFields(r, []hosttype.Field{{Name: s.Intern("next"), Type: r}})
	_, err := e.LayoutOf(r)
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Kind != ErrRecursiveUnsized {
		t.Fatalf("expected recursive-unsized error, got %v", err)
	}
}

func TestPointerBreaksRecursion(t *testing.T) {
	e, in := newEngine()
	s := in.Strings()
	b := in.Builtins()
	r := in.RegisterRecord(s.Intern("Node"), source.Span{})
	in.SetRecordFields(r, []hosttype.Field{
		{Name: s.Intern("next"), Type: in.Pointer(r)},
		{Name: s.Intern("v"), Type: b.Int},
	})
	l, err := e.LayoutOf(r)
	if err != nil {
		t.Fatalf("LayoutOf: %v", err)
	}
	if l.Size != 16 {
		t.Fatalf("size=%d, want 16", l.Size)
	}
}
