package driver

import (
	"fmt"
	"strconv"
	"strings"

	"ferry/internal/hosttype"
	"ferry/internal/layout"
)

// Manifest is the TOML shape of a compilation unit: an already-elaborated
// declaration graph expressed as data. Field and variable types are written
// as compact type expressions ("float4", "*int", "Particle[8]").
type Manifest struct {
	Name    string     `toml:"name"`
	Target  string     `toml:"target"`
	Pragmas []string   `toml:"pragmas"`
	Types   []TypeDecl `toml:"types"`
	Vars    []VarDecl  `toml:"vars"`
}

// TypeDecl declares a record or a typedef-like alias.
type TypeDecl struct {
	Kind    string      `toml:"kind"` // "record" (default) or "alias"
	Name    string      `toml:"name"`
	Target  string      `toml:"target"` // alias only
	Union   bool        `toml:"union"`
	Packed  bool        `toml:"packed"`
	Forward bool        `toml:"forward"` // declared but not defined here
	FlexArr bool        `toml:"flexible_array"`
	Fields  []FieldDecl `toml:"fields"`
}

// FieldDecl is one record member.
type FieldDecl struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
	Bits uint32 `toml:"bits"` // 0 means "not a bit-field"
}

// VarDecl is one top-level exported declaration.
type VarDecl struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

func targetByName(name string) (layout.Target, error) {
	switch name {
	case "", layout.X86_64LinuxGNU().Triple:
		return layout.X86_64LinuxGNU(), nil
	case layout.Armv7LinuxGNUEABI().Triple:
		return layout.Armv7LinuxGNUEABI(), nil
	default:
		return layout.Target{}, fmt.Errorf("driver: unknown target %q", name)
	}
}

func (m *Manifest) validate() error {
	seen := make(map[string]struct{}, len(m.Types))
	for i := range m.Types {
		td := &m.Types[i]
		if td.Name == "" {
			return fmt.Errorf("driver: type %d has no name", i)
		}
		if _, dup := seen[td.Name]; dup {
			return fmt.Errorf("driver: type %q declared twice", td.Name)
		}
		seen[td.Name] = struct{}{}

		switch td.Kind {
		case "", "record":
			if td.Target != "" {
				return fmt.Errorf("driver: record %q must not have a target", td.Name)
			}
		case "alias":
			if td.Target == "" {
				return fmt.Errorf("driver: alias %q has no target", td.Name)
			}
			if len(td.Fields) > 0 {
				return fmt.Errorf("driver: alias %q must not have fields", td.Name)
			}
		default:
			return fmt.Errorf("driver: type %q has unknown kind %q", td.Name, td.Kind)
		}
	}
	for i := range m.Vars {
		if m.Vars[i].Name == "" || m.Vars[i].Type == "" {
			return fmt.Errorf("driver: var %d needs both a name and a type", i)
		}
	}
	return nil
}

// resolve turns a type expression into an interned host type. Named types
// must already be registered; the loader registers every record before any
// expression is resolved.
func (u *Unit) resolve(expr string) (hosttype.TypeID, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return hosttype.NoTypeID, fmt.Errorf("driver: empty type expression in unit %s", u.Name)
	}

	if s[0] == '*' {
		elem, err := u.resolve(s[1:])
		if err != nil {
			return hosttype.NoTypeID, err
		}
		return u.Host.Pointer(elem), nil
	}

	if i := strings.LastIndexByte(s, '['); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return hosttype.NoTypeID, fmt.Errorf("driver: malformed array type %q in unit %s", expr, u.Name)
		}
		n, err := strconv.ParseUint(strings.TrimSpace(s[i+1:len(s)-1]), 10, 32)
		if err != nil || n == 0 {
			return hosttype.NoTypeID, fmt.Errorf("driver: bad array length in %q in unit %s", expr, u.Name)
		}
		elem, err2 := u.resolve(s[:i])
		if err2 != nil {
			return hosttype.NoTypeID, err2
		}
		return u.Host.Array(elem, uint32(n)), nil
	}

	if bk, ok := hosttype.BuiltinByMnemonic(s); ok {
		return u.Host.Intern(hosttype.MakeBuiltin(bk)), nil
	}

	// A single trailing digit on a builtin mnemonic is a vector width.
	if n := len(s); n >= 2 && s[n-1] >= '2' && s[n-1] <= '4' {
		if bk, ok := hosttype.BuiltinByMnemonic(s[:n-1]); ok {
			elem := u.Host.Intern(hosttype.MakeBuiltin(bk))
			return u.Host.Vector(elem, uint32(s[n-1]-'0')), nil
		}
	}

	if id, ok := u.named[s]; ok {
		return id, nil
	}
	return hosttype.NoTypeID, fmt.Errorf("driver: unknown type %q in unit %s", s, u.Name)
}
