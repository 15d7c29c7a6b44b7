package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ferry/internal/diag"
	"ferry/internal/export"
	"ferry/internal/typespec"
)

const particlesManifest = `
name = "particles"
pragmas = ["version(1)", "rt_fp_relaxed"]

[[types]]
name = "Particle"
fields = [
  { name = "pos", type = "float4" },
  { name = "life", type = "int" },
]

[[types]]
kind = "alias"
name = "particle_t"
target = "Particle"

[[vars]]
name = "gParticle"
type = "Particle"

[[vars]]
name = "gCount"
type = "uint"

[[vars]]
name = "gAlias"
type = "particle_t"
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unit.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func loadUnit(t *testing.T, content string) *Unit {
	t.Helper()
	u, err := LoadUnit(writeManifest(t, content))
	if err != nil {
		t.Fatalf("LoadUnit: %v", err)
	}
	return u
}

func hasCode(t *testing.T, u *Unit, code diag.Code) {
	t.Helper()
	for _, d := range u.Bag.Items() {
		if d.Code == code {
			return
		}
	}
	t.Fatalf("expected diagnostic %s in unit %s, got %d diagnostics", code, u.Name, u.Bag.Len())
}

func TestLoadAndExportUnit(t *testing.T) {
	u := loadUnit(t, particlesManifest)
	if u.Name != "particles" {
		t.Fatalf("unit name = %q", u.Name)
	}
	if v, ok := u.Pragmas.Value("version"); !ok || v != "1" {
		t.Fatalf("version pragma = %q, %v", v, ok)
	}

	if !ExportUnit(u) {
		t.Fatalf("export failed: %+v", u.Bag.Items())
	}
	if len(u.Exported) != 3 {
		t.Fatalf("exported %d vars, want 3", len(u.Exported))
	}

	rec := u.Registry.Find("Particle")
	if rec == nil || rec.Class != export.ClassRecord || !rec.Kept() {
		t.Fatalf("Particle not interned and kept")
	}
	// The alias is transparent: gAlias shares the record's interned instance.
	if u.Exported[2].Type != rec {
		t.Fatalf("alias must resolve to the same interned record")
	}
}

func TestTypeExpressions(t *testing.T) {
	u := loadUnit(t, `
name = "exprs"

[[vars]]
name = "gTrail"
type = "int[8]"

[[vars]]
name = "gPtr"
type = "*float"
`)
	if !ExportUnit(u) {
		t.Fatalf("export failed: %+v", u.Bag.Items())
	}
	if got := u.Exported[0].Type; got.Class != export.ClassConstantArray || got.Count != 8 {
		t.Fatalf("int[8] = class %s count %d", got.Class, got.Count)
	}
	if got := u.Exported[1].Type; got.Class != export.ClassPointer || got.Name != "*float" {
		t.Fatalf("*float = class %s name %q", got.Class, got.Name)
	}
}

func TestMultidimArrayDiagnostic(t *testing.T) {
	u := loadUnit(t, `
name = "bad"

[[vars]]
name = "gGrid"
type = "int[2][3]"
`)
	if ExportUnit(u) {
		t.Fatalf("multidimensional array must fail export")
	}
	hasCode(t, u, diag.ExpMultidimArray)
}

func TestPointerInStructDiagnosticHasPosition(t *testing.T) {
	u := loadUnit(t, `
name = "bad"

[[types]]
name = "Bad"
fields = [{ name = "p", type = "*int" }]

[[vars]]
name = "gBad"
type = "Bad"
`)
	if ExportUnit(u) {
		t.Fatalf("struct with pointer field must fail export")
	}
	hasCode(t, u, diag.ExpPointerInStruct)

	var found bool
	for _, d := range u.Bag.Items() {
		if d.Code != diag.ExpPointerInStruct {
			continue
		}
		pos, ok := u.Files.PositionFor(d.Primary)
		if !ok || pos.Line <= 1 {
			t.Fatalf("diagnostic must point into the manifest, got %+v", pos)
		}
		found = true
	}
	if !found {
		t.Fatalf("missing positioned diagnostic")
	}
}

func TestForwardRecordRejected(t *testing.T) {
	u := loadUnit(t, `
name = "fwd"

[[types]]
name = "Opaque"
forward = true

[[vars]]
name = "gOpaque"
type = "Opaque"
`)
	if ExportUnit(u) {
		t.Fatalf("forward-declared record must fail export")
	}
	hasCode(t, u, diag.ExpStructNotDefined)
}

func TestUnknownVarType(t *testing.T) {
	u := loadUnit(t, `
name = "missing"

[[vars]]
name = "gX"
type = "Nowhere"
`)
	if ExportUnit(u) {
		t.Fatalf("unknown type must fail export")
	}
	hasCode(t, u, diag.RegUnknownType)
}

func TestManifestValidation(t *testing.T) {
	cases := []string{
		// duplicate type name
		"[[types]]\nname = \"A\"\n\n[[types]]\nname = \"A\"\n",
		// alias without target
		"[[types]]\nkind = \"alias\"\nname = \"B\"\n",
		// unknown target triple
		"target = \"riscv64-unknown-none\"\n",
		// var without type
		"[[vars]]\nname = \"gX\"\n",
	}
	for _, c := range cases {
		if _, err := LoadUnit(writeManifest(t, c)); err == nil {
			t.Fatalf("manifest must be rejected:\n%s", c)
		}
	}
}

func TestWriteArtifacts(t *testing.T) {
	u := loadUnit(t, particlesManifest)
	if !ExportUnit(u) {
		t.Fatalf("export failed: %+v", u.Bag.Items())
	}

	out := t.TempDir()
	if err := WriteArtifacts(u, out); err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}

	blob, err := os.ReadFile(filepath.Join(out, "Particle.tspec"))
	if err != nil {
		t.Fatalf("read descriptor: %v", err)
	}
	s, err := typespec.Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Class != export.ClassRecord || s.Name != "Particle" || len(s.Fields) != 2 {
		t.Fatalf("decoded descriptor = %+v", s)
	}

	pragmas, err := os.ReadFile(filepath.Join(out, "particles.pragmas"))
	if err != nil {
		t.Fatalf("read pragmas: %v", err)
	}
	if string(pragmas) != "version: 1\nrt_fp_relaxed\n" {
		t.Fatalf("pragmas = %q", pragmas)
	}
}

func TestExportUnitsParallel(t *testing.T) {
	units := []*Unit{
		loadUnit(t, particlesManifest),
		loadUnit(t, "name = \"a\"\n\n[[vars]]\nname = \"gA\"\ntype = \"float4\"\n"),
		loadUnit(t, "name = \"b\"\n\n[[vars]]\nname = \"gB\"\ntype = \"double\"\n"),
	}
	if err := ExportUnits(context.Background(), units, 2, nil); err != nil {
		t.Fatalf("ExportUnits: %v", err)
	}
	for _, u := range units {
		if len(u.Exported) == 0 {
			t.Fatalf("unit %s exported nothing", u.Name)
		}
	}
}
