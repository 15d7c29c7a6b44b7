package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Exportability checks (structural legality of a host type).
	ExpInfo                 Code = 1000
	ExpUnsupportedBuiltin   Code = 1001
	ExpUnion                Code = 1002
	ExpStructNotDefined     Code = 1003
	ExpAnonymousStruct      Code = 1004
	ExpAnonymousType        Code = 1005
	ExpPointerInStruct      Code = 1006
	ExpPointerToArray       Code = 1007
	ExpMultidimArray        Code = 1008
	ExpVectorNonPrimitive   Code = 1009
	ExpVectorSize           Code = 1010
	ExpArrayOfVec3          Code = 1011
	ExpBitField             Code = 1012
	ExpFlexibleArrayMember  Code = 1013
	ExpEmbeddedHandle       Code = 1014
	ExpUnsupportedTypeClass Code = 1015

	// Export-type construction (registry and per-class constructors).
	RegInfo                 Code = 2000
	RegUnknownType          Code = 2001
	RegBuiltinNotExportable Code = 2002
	RegFieldNotExportable   Code = 2003
	RegMatrixNoFields       Code = 2004
	RegMatrixFieldNotArray  Code = 2005
	RegMatrixFieldNotFloat  Code = 2006
	RegMatrixWrongSize      Code = 2007
	RegMatrixExtraFields    Code = 2008
	RegRecordBitField       Code = 2009
	RegRecordNotDefined     Code = 2010
)

func (c Code) String() string {
	switch {
	case c == UnknownCode:
		return "FER0000"
	case c >= 1000 && c < 2000:
		return fmt.Sprintf("EXP%04d", uint16(c))
	case c >= 2000 && c < 3000:
		return fmt.Sprintf("REG%04d", uint16(c))
	default:
		return fmt.Sprintf("FER%04d", uint16(c))
	}
}
