package semantic

import (
	"strconv"
	"strings"

	"github.com/zinc-lang/zinc/lang/types"
)

// resolvePrimitive recognizes the fixed set of primitive type keywords:
// "bool", "field", "str", "ETH_ADDRESS", and "iN"/"uN" for bitlength N in
// [MinBitLength, MaxBitLength]. It returns (nil, false) for anything else,
// leaving nominal-path resolution to the caller.
func resolvePrimitive(name string) (types.Type, bool) {
	switch name {
	case "bool":
		return types.BoolType{}, true
	case "field":
		return types.FieldType{}, true
	case "str":
		return types.StringType{}, true
	case "ETH_ADDRESS":
		return types.IntUnsignedType{Bits: types.ETHAddressBits}, true
	}

	if len(name) < 2 {
		return nil, false
	}
	sign := name[0]
	if sign != 'i' && sign != 'u' {
		return nil, false
	}
	if !strings.ContainsFunc(name[1:], func(r rune) bool { return r < '0' || r > '9' }) {
		bits, err := strconv.Atoi(name[1:])
		if err != nil || bits < types.MinBitLength || bits > types.MaxBitLength {
			return nil, false
		}
		if sign == 'i' {
			return types.IntSignedType{Bits: bits}, true
		}
		return types.IntUnsignedType{Bits: bits}, true
	}
	return nil, false
}
