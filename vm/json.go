package vm

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zinc-lang/zinc/lang/bytecode"
	"github.com/zinc-lang/zinc/vm/gadgets"
)

// valuesFromJSON flattens a decoded JSON value into the scalar sequence t's
// runtime representation occupies — the same flat layout Load/Store address
// arithmetic assumes. Integers travel as decimal strings (a JSON number
// cannot losslessly hold a u64/field element) unless the JSON already gave a
// float64, accepted for small test fixtures.
func valuesFromJSON(t bytecode.Type, v any) ([]fr.Element, error) {
	switch t.Tag {
	case bytecode.TagUnit:
		return nil, nil

	case bytecode.TagBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("vm: expected bool, got %T", v)
		}
		return []fr.Element{gadgets.FromBool(b)}, nil

	case bytecode.TagInt, bytecode.TagField:
		iv, err := bigIntFromJSON(v)
		if err != nil {
			return nil, err
		}
		return []fr.Element{gadgets.FromBigInt(iv)}, nil

	case bytecode.TagArray:
		arr, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("vm: expected array, got %T", v)
		}
		out := make([]fr.Element, 0, len(arr))
		for _, e := range arr {
			vs, err := valuesFromJSON(*t.Element, e)
			if err != nil {
				return nil, err
			}
			out = append(out, vs...)
		}
		return out, nil

	case bytecode.TagTuple:
		if len(t.Elements) == 0 {
			return nil, nil
		}
		arr, ok := v.([]any)
		if !ok || len(arr) != len(t.Elements) {
			return nil, fmt.Errorf("vm: expected %d-tuple, got %T", len(t.Elements), v)
		}
		var out []fr.Element
		for i, et := range t.Elements {
			vs, err := valuesFromJSON(et, arr[i])
			if err != nil {
				return nil, err
			}
			out = append(out, vs...)
		}
		return out, nil

	case bytecode.TagStruct, bytecode.TagContract:
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("vm: expected object, got %T", v)
		}
		var out []fr.Element
		for _, f := range t.Fields {
			vs, err := valuesFromJSON(f.Type, obj[f.Name])
			if err != nil {
				return nil, err
			}
			out = append(out, vs...)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("vm: unsupported witness type tag %v", t.Tag)
	}
}

func bigIntFromJSON(v any) (*big.Int, error) {
	switch n := v.(type) {
	case string:
		iv, ok := new(big.Int).SetString(n, 10)
		if !ok {
			return nil, fmt.Errorf("vm: invalid integer literal %q", n)
		}
		return iv, nil
	case float64:
		return big.NewInt(int64(n)), nil
	default:
		return nil, fmt.Errorf("vm: expected integer, got %T", v)
	}
}

// valuesToJSON is valuesFromJSON's inverse, consuming scalars in the same
// flattened order and reconstructing t's JSON shape for the public result.
func valuesToJSON(t bytecode.Type, vals []fr.Element) (any, int, error) {
	switch t.Tag {
	case bytecode.TagUnit:
		return nil, 0, nil

	case bytecode.TagBool:
		if len(vals) < 1 {
			return nil, 0, fmt.Errorf("vm: not enough scalars for bool")
		}
		var one fr.Element
		one.SetOne()
		return vals[0].Equal(&one), 1, nil

	case bytecode.TagInt, bytecode.TagField:
		if len(vals) < 1 {
			return nil, 0, fmt.Errorf("vm: not enough scalars for %s", t)
		}
		iv := new(big.Int)
		vals[0].BigInt(iv)
		return iv.String(), 1, nil

	case bytecode.TagArray:
		out := make([]any, t.Size)
		n := 0
		for i := 0; i < t.Size; i++ {
			v, consumed, err := valuesToJSON(*t.Element, vals[n:])
			if err != nil {
				return nil, 0, err
			}
			out[i] = v
			n += consumed
		}
		return out, n, nil

	case bytecode.TagTuple:
		out := make([]any, len(t.Elements))
		n := 0
		for i, et := range t.Elements {
			v, consumed, err := valuesToJSON(et, vals[n:])
			if err != nil {
				return nil, 0, err
			}
			out[i] = v
			n += consumed
		}
		return out, n, nil

	case bytecode.TagStruct, bytecode.TagContract:
		out := make(map[string]any, len(t.Fields))
		n := 0
		for _, f := range t.Fields {
			v, consumed, err := valuesToJSON(f.Type, vals[n:])
			if err != nil {
				return nil, 0, err
			}
			out[f.Name] = v
			n += consumed
		}
		return out, n, nil

	default:
		return nil, 0, fmt.Errorf("vm: unsupported result type tag %v", t.Tag)
	}
}

// typedScalars pairs a flattened fr.Element witness sequence back up with
// the leaf scalar type at each position, so every input Scalar carries the
// type its arithmetic/range gadgets need rather than one type borrowed from
// the top of a composite input.
func typedScalars(t bytecode.Type, vals []fr.Element) ([]gadgets.Scalar, int) {
	switch t.Tag {
	case bytecode.TagUnit:
		return nil, 0
	case bytecode.TagBool, bytecode.TagInt, bytecode.TagField:
		return []gadgets.Scalar{gadgets.NewConstant(t, vals[0])}, 1
	case bytecode.TagArray:
		out := make([]gadgets.Scalar, 0, t.Size)
		n := 0
		for i := 0; i < t.Size; i++ {
			s, consumed := typedScalars(*t.Element, vals[n:])
			out = append(out, s...)
			n += consumed
		}
		return out, n
	case bytecode.TagTuple:
		var out []gadgets.Scalar
		n := 0
		for _, et := range t.Elements {
			s, consumed := typedScalars(et, vals[n:])
			out = append(out, s...)
			n += consumed
		}
		return out, n
	case bytecode.TagStruct, bytecode.TagContract:
		var out []gadgets.Scalar
		n := 0
		for _, f := range t.Fields {
			s, consumed := typedScalars(f.Type, vals[n:])
			out = append(out, s...)
			n += consumed
		}
		return out, n
	default:
		return nil, 0
	}
}
