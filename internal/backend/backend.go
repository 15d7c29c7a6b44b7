// Package backend defines the conversion target the export core lowers
// types into. The core only ever requests the shapes below; anything richer
// stays on the backend's side of the boundary.
package backend

// Type is an opaque backend type handle.
type Type interface {
	String() string
}

// OpaqueType is a named type declared before its body is known. It exists so
// self-referential records can be lowered with a two-phase
// declare-then-define protocol.
type OpaqueType interface {
	Type
	// Define fills in the body. Calling it twice is an internal error.
	Define(fields []Type, packed bool)
}

// Builder constructs backend types on demand.
type Builder interface {
	Int(bits int) Type
	Float(bits int) Type
	Bool() Type
	Pointer(elem Type) Type
	Vector(elem Type, count int) Type
	Array(elem Type, count uint32) Type
	Struct(fields []Type, packed bool) Type
	DeclareOpaque(name string) OpaqueType
	// Handle is the shared lowering of every opaque runtime handle:
	// a packed struct wrapping one pointer-sized slot.
	Handle() Type
}
