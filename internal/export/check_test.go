package export

import (
	"testing"

	"ferry/internal/diag"
	"ferry/internal/hosttype"
	"ferry/internal/layout"
	"ferry/internal/source"
)

type fixture struct {
	host *hosttype.Interner
	bag  *diag.Bag
	rep  diag.BagReporter
	reg  *Registry
}

func newFixture() *fixture {
	host := hosttype.NewInterner(source.NewInterner())
	bag := diag.NewBag(32)
	f := &fixture{host: host, bag: bag, rep: diag.BagReporter{Bag: bag}}
	f.reg = NewRegistry(host, layout.New(layout.X86_64LinuxGNU(), host), f.rep)
	return f
}

func (f *fixture) record(name string, fields ...hosttype.Field) hosttype.TypeID {
	id := f.host.RegisterRecord(f.host.Strings().Intern(name), source.Span{})
	f.host.SetRecordFields(id, fields)
	return id
}

func (f *fixture) field(name string, t hosttype.TypeID) hosttype.Field {
	return hosttype.Field{Name: f.host.Strings().Intern(name), Type: t}
}

func (f *fixture) matrixRecord(name string, elems uint32) hosttype.TypeID {
	arr := f.host.Array(f.host.Builtins().Float, elems)
	return f.record(name, f.field("m", arr))
}

func (f *fixture) hasCode(t *testing.T, code diag.Code) {
	t.Helper()
	for _, d := range f.bag.Items() {
		if d.Code == code {
			return
		}
	}
	t.Fatalf("expected diagnostic %s, got %d diagnostics", code, f.bag.Len())
}

func decl(name string) *DeclRef {
	return &DeclRef{Name: name}
}

func TestBuiltinNamesAndWhitelist(t *testing.T) {
	f := newFixture()
	b := f.host.Builtins()

	cases := []struct {
		id   hosttype.TypeID
		name string
	}{
		{b.Bool, "bool"},
		{b.Char, "char"},
		{b.UChar, "uchar"},
		{b.Short, "short"},
		{b.UShort, "ushort"},
		{b.Int, "int"},
		{b.UInt, "uint"},
		{b.Long, "long"},
		{b.ULong, "ulong"},
		{b.Float, "float"},
		{b.Double, "double"},
	}
	for _, c := range cases {
		if got := TypeName(f.host, c.id); got != c.name {
			t.Fatalf("TypeName = %q, want %q", got, c.name)
		}
		if _, ok := TypeExportable(f.host, c.id, f.rep, decl("v")); !ok {
			t.Fatalf("%s must be exportable", c.name)
		}
	}

	if _, ok := TypeExportable(f.host, b.WChar, f.rep, decl("v")); ok {
		t.Fatalf("wchar must not be exportable")
	}
	f.hasCode(t, diag.ExpUnsupportedBuiltin)
}

func TestVectorNamingAndWidth(t *testing.T) {
	f := newFixture()
	b := f.host.Builtins()

	v4 := f.host.Vector(b.Float, 4)
	if got := TypeName(f.host, v4); got != "float4" {
		t.Fatalf("TypeName = %q, want %q", got, "float4")
	}
	v2 := f.host.Vector(b.UChar, 2)
	if got := TypeName(f.host, v2); got != "uchar2" {
		t.Fatalf("TypeName = %q, want %q", got, "uchar2")
	}

	v5 := f.host.Vector(b.Float, 5)
	if _, ok := TypeExportable(f.host, v5, f.rep, decl("v")); ok {
		t.Fatalf("width-5 vector must be rejected")
	}
	f.hasCode(t, diag.ExpVectorSize)
}

func TestPointerNaming(t *testing.T) {
	f := newFixture()
	b := f.host.Builtins()

	p := f.host.Pointer(b.Int)
	if got := TypeName(f.host, p); got != "*int" {
		t.Fatalf("TypeName = %q, want %q", got, "*int")
	}

	s := f.record("Particle", f.field("life", b.Int))
	ps := f.host.Pointer(s)
	if got := TypeName(f.host, ps); got != "*Particle" {
		t.Fatalf("TypeName = %q, want %q", got, "*Particle")
	}
}

func TestPointerInStructRejected(t *testing.T) {
	f := newFixture()
	s := f.record("Bad", f.field("p", f.host.Pointer(f.host.Builtins().Int)))
	if _, ok := TypeExportable(f.host, s, f.rep, decl("v")); ok {
		t.Fatalf("struct with pointer field must be rejected")
	}
	f.hasCode(t, diag.ExpPointerInStruct)
}

func TestSelfReferentialPointerRejected(t *testing.T) {
	// struct Node { Node *next; int v; } fails on the pointer-in-struct rule
	// before the cycle guard ever matters.
	f := newFixture()
	node := f.host.RegisterRecord(f.host.Strings().Intern("Node"), source.Span{})
	f.host.SetRecordFields(node, []hosttype.Field{
		f.field("next", f.host.Pointer(node)),
		f.field("v", f.host.Builtins().Int),
	})
	if _, ok := TypeExportable(f.host, node, f.rep, decl("v")); ok {
		t.Fatalf("self-referential pointer member must be rejected")
	}
	f.hasCode(t, diag.ExpPointerInStruct)
}

func TestPointerToArrayRejected(t *testing.T) {
	f := newFixture()
	p := f.host.Pointer(f.host.Array(f.host.Builtins().Int, 4))
	if _, ok := TypeExportable(f.host, p, f.rep, decl("v")); ok {
		t.Fatalf("pointer to array must be rejected")
	}
	f.hasCode(t, diag.ExpPointerToArray)
}

func TestDoublePointerAccepted(t *testing.T) {
	f := newFixture()
	pp := f.host.Pointer(f.host.Pointer(f.host.Builtins().Float))
	if _, ok := TypeExportable(f.host, pp, f.rep, decl("v")); !ok {
		t.Fatalf("double pointer must be exportable")
	}
}

func TestArrayOfVec3Rule(t *testing.T) {
	f := newFixture()
	v3 := f.host.Vector(f.host.Builtins().Float, 3)

	if _, ok := TypeExportable(f.host, f.host.Array(v3, 2), f.rep, decl("v")); ok {
		t.Fatalf("float3[2] must be rejected")
	}
	f.hasCode(t, diag.ExpArrayOfVec3)

	if _, ok := TypeExportable(f.host, f.host.Array(v3, 1), f.rep, decl("v")); !ok {
		t.Fatalf("float3[1] must be exportable")
	}
}

func TestMultidimArrayRejected(t *testing.T) {
	f := newFixture()
	inner := f.host.Array(f.host.Builtins().Int, 2)
	if _, ok := TypeExportable(f.host, f.host.Array(inner, 3), f.rep, decl("v")); ok {
		t.Fatalf("int[3][2] must be rejected")
	}
	f.hasCode(t, diag.ExpMultidimArray)
}

func TestUnionRejected(t *testing.T) {
	f := newFixture()
	u := f.record("U", f.field("a", f.host.Builtins().Int))
	info, _ := f.host.RecordInfo(u)
	info.Union = true

	if _, ok := TypeExportable(f.host, u, f.rep, decl("v")); ok {
		t.Fatalf("union must be rejected")
	}
	f.hasCode(t, diag.ExpUnion)
}

func TestUndefinedStructRejected(t *testing.T) {
	f := newFixture()
	fwd := f.host.RegisterRecord(f.host.Strings().Intern("Fwd"), source.Span{})
	if _, ok := TypeExportable(f.host, fwd, f.rep, decl("v")); ok {
		t.Fatalf("forward-declared struct must be rejected")
	}
	f.hasCode(t, diag.ExpStructNotDefined)
}

func TestAnonymousStructRejected(t *testing.T) {
	f := newFixture()
	anon := f.host.RegisterRecord(source.NoStringID, source.Span{})
	f.host.SetRecordFields(anon, []hosttype.Field{f.field("a", f.host.Builtins().Int)})

	if _, ok := TypeExportable(f.host, anon, f.rep, decl("v")); ok {
		t.Fatalf("anonymous struct must be rejected")
	}
	f.hasCode(t, diag.ExpAnonymousStruct)
}

func TestBitFieldRejected(t *testing.T) {
	f := newFixture()
	s := f.record("Flags", hosttype.Field{
		Name:     f.host.Strings().Intern("low"),
		Type:     f.host.Builtins().Int,
		BitWidth: 3,
	})
	if _, ok := TypeExportable(f.host, s, f.rep, decl("v")); ok {
		t.Fatalf("struct with bit field must be rejected")
	}
	f.hasCode(t, diag.ExpBitField)
}

func TestFlexibleArrayRejected(t *testing.T) {
	f := newFixture()
	s := f.record("Buf", f.field("len", f.host.Builtins().Int))
	info, _ := f.host.RecordInfo(s)
	info.FlexibleArray = true

	if _, ok := TypeExportable(f.host, s, f.rep, decl("v")); ok {
		t.Fatalf("struct with flexible array member must be rejected")
	}
	f.hasCode(t, diag.ExpFlexibleArrayMember)
}

func TestHandleFieldRejected(t *testing.T) {
	f := newFixture()
	element := f.record("rt_element")

	direct := f.record("HasElem", f.field("e", element))
	if _, ok := TypeExportable(f.host, direct, f.rep, decl("v")); ok {
		t.Fatalf("struct embedding a handle must be rejected")
	}
	f.hasCode(t, diag.ExpEmbeddedHandle)

	inner := f.record("Inner", f.field("fs", f.host.Array(element, 3)))
	nested := f.record("Outer", f.field("in", inner))
	if _, ok := TypeExportable(f.host, nested, f.rep, decl("v")); ok {
		t.Fatalf("handle reachable through array and nesting must be rejected")
	}
}

func TestAliasIsTransparent(t *testing.T) {
	f := newFixture()
	b := f.host.Builtins()
	alias := f.host.RegisterAlias(f.host.Strings().Intern("myint"), source.Span{}, b.Int)

	canon, ok := TypeExportable(f.host, alias, f.rep, decl("v"))
	if !ok {
		t.Fatalf("alias of int must be exportable")
	}
	if canon != b.Int {
		t.Fatalf("canonical form = %d, want %d", canon, b.Int)
	}
	if got := TypeName(f.host, alias); got != "int" {
		t.Fatalf("TypeName = %q, want %q", got, "int")
	}
}

func TestMutualRecursionPassesChecker(t *testing.T) {
	f := newFixture()
	a := f.host.RegisterRecord(f.host.Strings().Intern("A"), source.Span{})
	b := f.host.RegisterRecord(f.host.Strings().Intern("B"), source.Span{})
	f.host.SetRecordFields(a, []hosttype.Field{f.field("b", b)})
	f.host.SetRecordFields(b, []hosttype.Field{f.field("a", a)})

	// The validating set short-circuits the revisit; sizing this shape is the
	// layout engine's problem, not the checker's.
	if _, ok := TypeExportable(f.host, a, f.rep, decl("v")); !ok {
		t.Fatalf("checker must terminate and accept the recursive record graph")
	}
}
