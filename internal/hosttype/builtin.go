package hosttype

import "fmt"

// BuiltinKind enumerates the scalar builtins the host language knows about.
// Not all of them are exportable; the checker owns that whitelist.
type BuiltinKind uint8

const (
	BuiltinNone BuiltinKind = iota
	BuiltinBool
	BuiltinChar
	BuiltinUChar
	BuiltinShort
	BuiltinUShort
	BuiltinInt
	BuiltinUInt
	BuiltinLong
	BuiltinULong
	BuiltinFloat
	BuiltinDouble
	// Platform-width-dependent kinds. They exist in the host language but
	// never cross the export boundary.
	BuiltinWChar
	BuiltinLongDouble
)

// Mnemonic returns the canonical spelling used in export-type names.
func (bk BuiltinKind) Mnemonic() string {
	switch bk {
	case BuiltinBool:
		return "bool"
	case BuiltinChar:
		return "char"
	case BuiltinUChar:
		return "uchar"
	case BuiltinShort:
		return "short"
	case BuiltinUShort:
		return "ushort"
	case BuiltinInt:
		return "int"
	case BuiltinUInt:
		return "uint"
	case BuiltinLong:
		return "long"
	case BuiltinULong:
		return "ulong"
	case BuiltinFloat:
		return "float"
	case BuiltinDouble:
		return "double"
	case BuiltinWChar:
		return "wchar"
	case BuiltinLongDouble:
		return "long double"
	default:
		return ""
	}
}

func (bk BuiltinKind) String() string {
	if m := bk.Mnemonic(); m != "" {
		return m
	}
	return fmt.Sprintf("BuiltinKind(%d)", bk)
}

// BuiltinByMnemonic resolves a canonical spelling back to its kind.
func BuiltinByMnemonic(name string) (BuiltinKind, bool) {
	for bk := BuiltinBool; bk <= BuiltinLongDouble; bk++ {
		if bk.Mnemonic() == name {
			return bk, true
		}
	}
	return BuiltinNone, false
}
