package layout

import (
	"fmt"

	"ferry/internal/hosttype"
)

type ErrorKind uint8

const (
	ErrUnknownType ErrorKind = iota
	ErrUndefinedRecord
	ErrRecursiveUnsized
)

// Error describes why a layout could not be computed.
type Error struct {
	Kind  ErrorKind
	Type  hosttype.TypeID
	Cycle []hosttype.TypeID
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrUndefinedRecord:
		return fmt.Sprintf("layout: record type %d has no definition", e.Type)
	case ErrRecursiveUnsized:
		return fmt.Sprintf("layout: type %d is recursively sized (cycle of %d types)", e.Type, len(e.Cycle))
	default:
		return fmt.Sprintf("layout: unknown type %d", e.Type)
	}
}
