// Package llvm lowers export shapes to textual LLVM types, the way the rest
// of the toolchain emits IR as strings.
package llvm

import (
	"fmt"
	"sort"
	"strings"

	"ferry/internal/backend"
)

type litType string

func (t litType) String() string { return string(t) }

// namedType is a module-level named struct. Until Define runs it renders as
// an opaque reference.
type namedType struct {
	b       *Builder
	name    string
	defined bool
}

func (t *namedType) String() string { return "%struct." + t.name }

func (t *namedType) Define(fields []backend.Type, packed bool) {
	if t.defined {
		panic(fmt.Sprintf("llvm: struct %q defined twice", t.name))
	}
	t.defined = true
	t.b.defs[t.name] = structBody(fields, packed)
}

// Builder produces textual LLVM types and records named struct definitions.
type Builder struct {
	defs   map[string]string
	handle backend.Type
}

func NewBuilder() *Builder {
	return &Builder{defs: make(map[string]string)}
}

func (b *Builder) Int(bits int) backend.Type {
	return litType(fmt.Sprintf("i%d", bits))
}

func (b *Builder) Float(bits int) backend.Type {
	switch bits {
	case 32:
		return litType("float")
	case 64:
		return litType("double")
	default:
		panic(fmt.Sprintf("llvm: unsupported float width %d", bits))
	}
}

func (b *Builder) Bool() backend.Type {
	return litType("i1")
}

func (b *Builder) Pointer(elem backend.Type) backend.Type {
	return litType(elem.String() + "*")
}

func (b *Builder) Vector(elem backend.Type, count int) backend.Type {
	return litType(fmt.Sprintf("<%d x %s>", count, elem))
}

func (b *Builder) Array(elem backend.Type, count uint32) backend.Type {
	return litType(fmt.Sprintf("[%d x %s]", count, elem))
}

func (b *Builder) Struct(fields []backend.Type, packed bool) backend.Type {
	return litType(structBody(fields, packed))
}

func (b *Builder) DeclareOpaque(name string) backend.OpaqueType {
	t := &namedType{b: b, name: name}
	b.defs[name] = "opaque"
	return t
}

// Handle lowers every runtime handle to the same packed single-slot struct.
func (b *Builder) Handle() backend.Type {
	if b.handle == nil {
		b.handle = litType("<{ [1 x i32] }>")
	}
	return b.handle
}

// Defs renders the named struct definitions in deterministic order.
func (b *Builder) Defs() string {
	names := make([]string, 0, len(b.defs))
	for n := range b.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, n := range names {
		fmt.Fprintf(&sb, "%%struct.%s = type %s\n", n, b.defs[n])
	}
	return sb.String()
}

func structBody(fields []backend.Type, packed bool) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.String()
	}
	body := "{ " + strings.Join(parts, ", ") + " }"
	if len(fields) == 0 {
		body = "{}"
	}
	if packed {
		return "<" + body + ">"
	}
	return body
}
