package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ferry/internal/export"
	"ferry/internal/typespec"
)

// WriteArtifacts serializes every kept, canonically named type into
// <out>/<name>.tspec and the unit's pragmas into <out>/<unit>.pragmas.
// Sentinel-named arrays are skipped; they only exist inline inside the types
// that reach them.
func WriteArtifacts(u *Unit, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("driver: create output dir: %w", err)
	}

	for _, t := range u.Registry.KeptTypes() {
		if t.Name == export.ConstantArrayName {
			continue
		}
		blob, err := typespec.Encode(t)
		if err != nil {
			return fmt.Errorf("driver: unit %s: %w", u.Name, err)
		}
		if err := atomicWrite(filepath.Join(outDir, t.Name+".tspec"), blob); err != nil {
			return fmt.Errorf("driver: unit %s: %w", u.Name, err)
		}
	}

	if u.Pragmas.Len() > 0 {
		var sb strings.Builder
		for _, p := range u.Pragmas.List() {
			if p.Value == "" {
				fmt.Fprintf(&sb, "%s\n", p.Name)
			} else {
				fmt.Fprintf(&sb, "%s: %s\n", p.Name, p.Value)
			}
		}
		if err := atomicWrite(filepath.Join(outDir, u.Name+".pragmas"), []byte(sb.String())); err != nil {
			return fmt.Errorf("driver: unit %s: %w", u.Name, err)
		}
	}
	return nil
}

// atomicWrite lands data under path via a temp file in the same directory
// plus a rename, so readers never observe a half-written artifact.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ferry-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
