package semantic

import (
	"fmt"
	"math/big"

	"github.com/zinc-lang/zinc/lang/ast"
	"github.com/zinc-lang/zinc/lang/token"
	"github.com/zinc-lang/zinc/lang/types"
)

// constValue is the compile-time representation a folded expression reduces
// to: an integer/field magnitude, or a boolean. Exactly one of the two
// fields is meaningful, selected by Type.Kind().
type constValue struct {
	Type types.Type
	Int  *big.Int
	Bool bool
}

// evalConst folds expr under the "Constant" typing rule (§4.4: "a subset of
// expressions can fold at compile time"). Any non-constant subterm fails
// with ExpressionNonConstantElement.
func (a *Analyzer) evalConst(scope *types.Scope, expr ast.Expr) (constValue, error) {
	switch e := expr.(type) {
	case *ast.IntLiteralExpr:
		return constValue{Type: inferLiteralType(e.Value), Int: new(big.Int).Set(e.Value)}, nil

	case *ast.BoolLiteralExpr:
		return constValue{Type: types.BoolType{}, Bool: e.Value}, nil

	case *ast.IdentExpr:
		item, found := scope.Lookup(e.Name)
		if !found {
			return constValue{}, fmt.Errorf("undeclared constant %q", e.Name)
		}
		c, ok := item.(*types.Constant)
		if !ok {
			return constValue{}, fmt.Errorf("%q is not a constant", e.Name)
		}
		cv, ok := c.Value.(constValue)
		if !ok {
			return constValue{}, fmt.Errorf("%q has no constant value", e.Name)
		}
		return cv, nil

	case *ast.UnaryExpr:
		v, err := a.evalConst(scope, e.Operand)
		if err != nil {
			return constValue{}, err
		}
		switch e.Op {
		case token.MINUS:
			if v.Int == nil {
				return constValue{}, fmt.Errorf("unary - requires an integer or field constant")
			}
			return constValue{Type: v.Type, Int: new(big.Int).Neg(v.Int)}, nil
		case token.NOT:
			return constValue{Type: types.BoolType{}, Bool: !v.Bool}, nil
		}
		return constValue{}, fmt.Errorf("non-constant unary operator")

	case *ast.BinaryExpr:
		l, err := a.evalConst(scope, e.Left)
		if err != nil {
			return constValue{}, err
		}
		r, err := a.evalConst(scope, e.Right)
		if err != nil {
			return constValue{}, err
		}
		return evalConstBinary(e.Op, l, r)

	case *ast.CastExpr:
		v, err := a.evalConst(scope, e.Operand)
		if err != nil {
			return constValue{}, err
		}
		target := a.resolveType(scope, e.Type)
		if v.Int == nil {
			return constValue{}, fmt.Errorf("only integer/field constants can be cast")
		}
		return constValue{Type: target, Int: v.Int}, nil

	case *ast.PathExpr:
		if len(e.Segments) == 2 {
			if item, found := scope.Lookup(e.Segments[0]); found {
				if ti, ok := item.(*types.TypeItem); ok {
					if et, ok := ti.Inner.(*types.EnumerationType); ok {
						for _, v := range et.Variants {
							if v.Name == e.Segments[1] {
								return constValue{Type: et, Int: big.NewInt(v.Value)}, nil
							}
						}
					}
				}
			}
		}
		return constValue{}, fmt.Errorf("unresolved constant path %v", e.Segments)

	default:
		loc, _ := expr.Span()
		_ = loc
		return constValue{}, fmt.Errorf("not a constant expression")
	}
}

// evalConstInt is a convenience wrapper for contexts that require an integer
// constant (array sizes, range bounds).
func (a *Analyzer) evalConstInt(scope *types.Scope, expr ast.Expr) (*big.Int, error) {
	v, err := a.evalConst(scope, expr)
	if err != nil {
		return nil, err
	}
	if v.Int == nil {
		return nil, fmt.Errorf("expected an integer constant")
	}
	return v.Int, nil
}

func evalConstBinary(op token.Token, l, r constValue) (constValue, error) {
	if l.Int != nil && r.Int != nil {
		result := new(big.Int)
		switch op {
		case token.PLUS:
			result.Add(l.Int, r.Int)
		case token.MINUS:
			result.Sub(l.Int, r.Int)
		case token.STAR:
			result.Mul(l.Int, r.Int)
		case token.SLASH:
			if r.Int.Sign() == 0 {
				return constValue{}, fmt.Errorf("division by zero")
			}
			result.Quo(l.Int, r.Int)
		case token.PERCENT:
			if r.Int.Sign() == 0 {
				return constValue{}, fmt.Errorf("division by zero")
			}
			// Euclidean remainder: result takes the sign of the divisor
			// (§9 open-question decision).
			result.Mod(l.Int, r.Int)
			if result.Sign() != 0 && r.Int.Sign() < 0 {
				result.Add(result, r.Int)
			}
		case token.EQEQ:
			return constValue{Type: types.BoolType{}, Bool: l.Int.Cmp(r.Int) == 0}, nil
		case token.NEQ:
			return constValue{Type: types.BoolType{}, Bool: l.Int.Cmp(r.Int) != 0}, nil
		case token.LT:
			return constValue{Type: types.BoolType{}, Bool: l.Int.Cmp(r.Int) < 0}, nil
		case token.LE:
			return constValue{Type: types.BoolType{}, Bool: l.Int.Cmp(r.Int) <= 0}, nil
		case token.GT:
			return constValue{Type: types.BoolType{}, Bool: l.Int.Cmp(r.Int) > 0}, nil
		case token.GE:
			return constValue{Type: types.BoolType{}, Bool: l.Int.Cmp(r.Int) >= 0}, nil
		default:
			return constValue{}, fmt.Errorf("operator %s is not valid on integer constants", op.GoString())
		}
		return constValue{Type: l.Type, Int: result}, nil
	}

	switch op {
	case token.ANDAND:
		return constValue{Type: types.BoolType{}, Bool: l.Bool && r.Bool}, nil
	case token.OROR:
		return constValue{Type: types.BoolType{}, Bool: l.Bool || r.Bool}, nil
	case token.CARETCARET:
		return constValue{Type: types.BoolType{}, Bool: l.Bool != r.Bool}, nil
	case token.EQEQ:
		return constValue{Type: types.BoolType{}, Bool: l.Bool == r.Bool}, nil
	case token.NEQ:
		return constValue{Type: types.BoolType{}, Bool: l.Bool != r.Bool}, nil
	default:
		return constValue{}, fmt.Errorf("operator %s is not valid on boolean constants", op.GoString())
	}
}

// inferLiteralType implements the literal bitlength rule (§4.4): the
// minimum multiple of 8 bits that fits the absolute value. The result is
// always unsigned: nothing re-infers a negated literal, evalConst keeps the
// operand's type for unary minus, and checkUnary rejects - on an unsigned
// operand.
func inferLiteralType(v *big.Int) types.Type {
	mag := new(big.Int).Abs(v)
	bits := mag.BitLen()
	size := 8
	for size < bits && size < types.MaxBitLength {
		size += 8
	}
	if size > types.MaxBitLength {
		size = types.MaxBitLength
	}
	return types.IntUnsignedType{Bits: size}
}
