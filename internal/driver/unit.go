package driver

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"ferry/internal/diag"
	"ferry/internal/export"
	"ferry/internal/hosttype"
	"ferry/internal/layout"
	"ferry/internal/pragma"
	"ferry/internal/source"
)

const diagCap = 64

// Unit is one compilation unit's worth of state: its own host type graph,
// export registry and diagnostic bag. Units share nothing, which is what
// makes them safe to export concurrently.
type Unit struct {
	Name     string
	Path     string
	Target   layout.Target
	Files    *source.FileSet
	Host     *hosttype.Interner
	Registry *export.Registry
	Bag      *diag.Bag
	Pragmas  *pragma.Recorder

	// Exported is filled by ExportUnit in declaration order.
	Exported []ExportedVar

	file  source.FileID
	named map[string]hosttype.TypeID
	vars  []VarDecl
}

// ExportedVar is one successfully exported top-level declaration.
type ExportedVar struct {
	Name string
	Type *export.Type
}

// LoadUnit reads a manifest and elaborates its declaration graph into a
// fresh interner. Malformed manifests fail here; exportability violations
// are diagnostics and surface later, from ExportUnit.
func LoadUnit(path string) (*Unit, error) {
	files := source.NewFileSet()
	fid, err := files.Load(path)
	if err != nil {
		return nil, fmt.Errorf("driver: read unit manifest: %w", err)
	}
	f, _ := files.Get(fid)

	var m Manifest
	if err := toml.Unmarshal(f.Content, &m); err != nil {
		return nil, fmt.Errorf("driver: parse %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w (in %s)", err, path)
	}

	target, err := targetByName(m.Target)
	if err != nil {
		return nil, fmt.Errorf("%w (in %s)", err, path)
	}

	name := m.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	host := hosttype.NewInterner(source.NewInterner())
	bag := diag.NewBag(diagCap)
	u := &Unit{
		Name:     name,
		Path:     path,
		Target:   target,
		Files:    files,
		Host:     host,
		Registry: export.NewRegistry(host, layout.New(target, host), diag.BagReporter{Bag: bag}),
		Bag:      bag,
		Pragmas:  pragma.NewRecorder(),
		file:     fid,
		named:    make(map[string]hosttype.TypeID, len(m.Types)),
		vars:     m.Vars,
	}

	for _, raw := range m.Pragmas {
		p, err := pragma.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w (in %s)", err, path)
		}
		u.Pragmas.Record(p.Name, p.Value)
	}
	if err := u.elaborate(&m); err != nil {
		return nil, err
	}
	return u, nil
}

// elaborate registers every declared type. Records go in first so aliases
// and field expressions can reference them regardless of declaration order;
// field resolution runs last, against the complete name table.
func (u *Unit) elaborate(m *Manifest) error {
	for i := range m.Types {
		td := &m.Types[i]
		if td.Kind == "alias" {
			continue
		}
		id := u.Host.RegisterRecord(u.Host.Strings().Intern(td.Name), u.spanOf(td.Name))
		info, _ := u.Host.RecordInfo(id)
		info.Union = td.Union
		info.Packed = td.Packed
		info.FlexibleArray = td.FlexArr
		u.named[td.Name] = id
	}

	for i := range m.Types {
		td := &m.Types[i]
		if td.Kind != "alias" {
			continue
		}
		target, err := u.resolve(td.Target)
		if err != nil {
			return fmt.Errorf("%w (alias %s)", err, td.Name)
		}
		id := u.Host.RegisterAlias(u.Host.Strings().Intern(td.Name), u.spanOf(td.Name), target)
		if rec := u.Host.Canonical(target); u.Host.KindOf(rec) == hosttype.KindRecord {
			u.Host.AddRedecl(rec, u.Host.Strings().Intern(td.Name))
		}
		u.named[td.Name] = id
	}

	for i := range m.Types {
		td := &m.Types[i]
		if td.Kind == "alias" || td.Forward {
			continue
		}
		fields := make([]hosttype.Field, 0, len(td.Fields))
		for _, fd := range td.Fields {
			ft, err := u.resolve(fd.Type)
			if err != nil {
				return fmt.Errorf("%w (field %s.%s)", err, td.Name, fd.Name)
			}
			fields = append(fields, hosttype.Field{
				Name:     u.Host.Strings().Intern(fd.Name),
				Type:     ft,
				BitWidth: fd.Bits,
			})
		}
		u.Host.SetRecordFields(u.named[td.Name], fields)
	}
	return nil
}

// spanOf locates the first quoted occurrence of name in the manifest so
// diagnostics can point at a real line. A miss degrades to the file start.
func (u *Unit) spanOf(name string) source.Span {
	f, ok := u.Files.Get(u.file)
	if !ok || name == "" {
		return source.Span{File: u.file}
	}
	idx := bytes.Index(f.Content, []byte(`"`+name+`"`))
	if idx < 0 {
		return source.Span{File: u.file}
	}
	start := uint32(idx) + 1
	return source.Span{File: u.file, Start: start, End: start + uint32(len(name))}
}
