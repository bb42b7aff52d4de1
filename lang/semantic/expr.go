package semantic

import (
	"github.com/zinc-lang/zinc/lang/ast"
	"github.com/zinc-lang/zinc/lang/token"
	"github.com/zinc-lang/zinc/lang/types"
)

// checkExpr implements the "Value" typing rule (§4.4): analyze expr and
// return the type of the runtime value it produces.
func (a *Analyzer) checkExpr(scope *types.Scope, expr ast.Expr) types.Type {
	switch e := expr.(type) {
	case *ast.IntLiteralExpr:
		if e.Value.BitLen() > types.MaxBitLength {
			a.errs.add(LiteralTooLarge, e.Loc, "integer literal %s exceeds %d bits", e.Raw, types.MaxBitLength)
		}
		return inferLiteralType(e.Value)

	case *ast.BoolLiteralExpr:
		return types.BoolType{}

	case *ast.StringLiteralExpr:
		return types.StringType{}

	case *ast.IdentExpr:
		return a.checkIdent(scope, e)

	case *ast.PathExpr:
		return a.checkPath(scope, e)

	case *ast.TupleExpr:
		elems := make([]types.Type, len(e.Elems))
		for i, el := range e.Elems {
			elems[i] = a.checkExpr(scope, el)
		}
		return types.TupleType{Elements: elems}

	case *ast.ArrayExpr:
		if len(e.Elems) == 0 {
			return types.ArrayType{Element: types.UnitType{}, Size: 0}
		}
		elem := a.checkExpr(scope, e.Elems[0])
		for _, el := range e.Elems[1:] {
			t := a.checkExpr(scope, el)
			if !t.Equal(elem) {
				loc, _ := el.Span()
				a.errs.add(TypeMismatch, loc, "array element type %s does not match %s", t, elem)
			}
		}
		return types.ArrayType{Element: elem, Size: len(e.Elems)}

	case *ast.ArrayRepeatExpr:
		elem := a.checkExpr(scope, e.Value)
		count, err := a.evalConstInt(scope, e.Count)
		if err != nil {
			a.errs.add(LoopBoundsExpectedConstantRangeExpression, e.Start, "array repeat count must be constant: %v", err)
			return types.ArrayType{Element: elem, Size: 0}
		}
		return types.ArrayType{Element: elem, Size: int(count.Int64())}

	case *ast.StructExpr:
		return a.checkStructExpr(scope, e)

	case *ast.BlockExpr:
		return a.checkBlock(scope, e.Block)

	case *ast.IfExpr:
		return a.checkIf(scope, e)

	case *ast.MatchExpr:
		return a.checkMatch(scope, e)

	case *ast.BinaryExpr:
		return a.checkBinary(scope, e)

	case *ast.UnaryExpr:
		return a.checkUnary(scope, e)

	case *ast.CastExpr:
		return a.checkCast(scope, e)

	case *ast.RangeExpr:
		lt := a.checkExpr(scope, e.Start)
		rt := a.checkExpr(scope, e.End)
		if !lt.Equal(rt) || !types.IsInteger(lt.Kind()) {
			loc, _ := e.Span()
			a.errs.add(TypeMismatch, loc, "range bounds must be two integer constants of equal type")
		}
		return lt

	case *ast.CallExpr:
		return a.checkCall(scope, e)

	case *ast.IndexExpr:
		return a.checkIndex(scope, e)

	case *ast.FieldExpr:
		return a.checkField(scope, e)

	case *ast.TupleIndexExpr:
		return a.checkTupleIndex(scope, e)

	case *ast.AssignExpr:
		return a.checkAssign(scope, e)

	case *ast.BadExpr:
		return types.UnitType{}

	default:
		loc, _ := expr.Span()
		a.errs.add(TypeMismatch, loc, "unsupported expression %T", expr)
		return types.UnitType{}
	}
}

func (a *Analyzer) checkIdent(scope *types.Scope, e *ast.IdentExpr) types.Type {
	item, found := scope.Lookup(e.Name)
	if !found {
		a.errs.add(UndeclaredItem, e.Loc, "undeclared identifier %q", e.Name)
		return types.UnitType{}
	}
	switch it := item.(type) {
	case *types.Variable:
		return it.Type
	case *types.Constant:
		return it.Type
	case *types.FieldItem:
		return it.Type
	default:
		a.errs.add(UndeclaredItem, e.Loc, "%q does not name a value", e.Name)
		return types.UnitType{}
	}
}

func (a *Analyzer) checkPath(scope *types.Scope, e *ast.PathExpr) types.Type {
	if len(e.Segments) == 2 {
		item, found := scope.Lookup(e.Segments[0])
		if found {
			if ti, ok := item.(*types.TypeItem); ok {
				if et, ok := ti.Inner.(*types.EnumerationType); ok {
					for _, v := range et.Variants {
						if v.Name == e.Segments[1] {
							return et
						}
					}
					a.errs.add(UndeclaredItem, e.Locs[1], "%s has no variant %q", et.Name, e.Segments[1])
					return et
				}
			}
		}
	}
	loc := e.Locs[0]
	a.errs.add(UndeclaredItem, loc, "unresolved path %v", e.Segments)
	return types.UnitType{}
}

// resolveStructPath resolves the type name a structure literal names: a bare
// "Point { .. }" looks up a nominal structure directly, while checkPath still
// handles the Enum::Variant shape for match patterns.
func (a *Analyzer) resolveStructPath(scope *types.Scope, path *ast.PathExpr) types.Type {
	if len(path.Segments) == 1 {
		if path.Segments[0] == "Self" && a.selfType != nil {
			return a.selfType
		}
		item, found := scope.Lookup(path.Segments[0])
		if found {
			if ti, ok := item.(*types.TypeItem); ok {
				return ti.Inner
			}
		}
		a.errs.add(UndeclaredItem, path.Locs[0], "undeclared type %q", path.Segments[0])
		return types.UnitType{}
	}
	return a.checkPath(scope, path)
}

func (a *Analyzer) checkStructExpr(scope *types.Scope, e *ast.StructExpr) types.Type {
	base := a.resolveStructPath(scope, e.Path)
	st, ok := base.(*types.StructureType)
	if !ok {
		loc, _ := e.Span()
		a.errs.add(TypeMismatch, loc, "%s is not a structure type", base)
		for _, fi := range e.Fields {
			a.checkExpr(scope, fi.Value)
		}
		return base
	}
	seen := map[string]bool{}
	for _, fi := range e.Fields {
		if seen[fi.Name] {
			a.errs.add(TypeDuplicateField, fi.Loc, "duplicate field %q in structure literal", fi.Name)
		}
		seen[fi.Name] = true
		vt := a.checkExpr(scope, fi.Value)
		decl, ok := st.FieldByName(fi.Name)
		if !ok {
			a.errs.add(TypeMismatch, fi.Loc, "%s has no field %q", st.Name, fi.Name)
			continue
		}
		if !vt.Equal(decl.Type) {
			if _, isLit := fi.Value.(*ast.IntLiteralExpr); !isLit {
				a.errs.add(TypeMismatch, fi.Loc, "field %q: expected %s, found %s", fi.Name, decl.Type, vt)
			} else if _, ok := coerceLiteral(vt, decl.Type); !ok {
				a.errs.add(TypeMismatch, fi.Loc, "field %q: expected %s, found %s", fi.Name, decl.Type, vt)
			}
		}
	}
	for _, f := range st.Fields {
		if !seen[f.Name] {
			loc, _ := e.Span()
			a.errs.add(TypeMismatch, loc, "missing field %q in structure literal for %s", f.Name, st.Name)
		}
	}
	return st
}

func (a *Analyzer) checkIf(scope *types.Scope, e *ast.IfExpr) types.Type {
	condT := a.checkExpr(scope, e.Cond)
	if _, ok := condT.(types.BoolType); !ok {
		loc, _ := e.Cond.Span()
		a.errs.add(TypeMismatch, loc, "if condition must be bool, found %s", condT)
	}
	thenT := a.checkBlock(scope, e.Then.Block)
	if e.Else == nil {
		if _, ok := thenT.(types.UnitType); !ok {
			a.errs.add(ConditionalBranchTypesMismatch, e.Start, "if without else must produce (), found %s", thenT)
		}
		return types.UnitType{}
	}
	elseT := a.checkExpr(scope, e.Else)
	if !thenT.Equal(elseT) {
		a.errs.add(ConditionalBranchTypesMismatch, e.Start, "if/else branches have different types: %s vs %s", thenT, elseT)
	}
	return thenT
}

func (a *Analyzer) checkBinary(scope *types.Scope, e *ast.BinaryExpr) types.Type {
	lt := a.checkExpr(scope, e.Left)
	rt := a.checkExpr(scope, e.Right)
	lt, rt = a.coerceOperands(e.Left, lt, e.Right, rt)

	switch e.Op {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH:
		if lt.Equal(rt) && (types.IsInteger(lt.Kind()) || lt.Kind() == types.Field) {
			return lt
		}
		a.errs.add(TypeMismatch, e.OpLoc, "%s requires two integers of equal type or two fields, found %s and %s", e.Op.GoString(), lt, rt)
		return lt

	case token.PERCENT:
		if lt.Equal(rt) && types.IsInteger(lt.Kind()) {
			return lt
		}
		a.errs.add(IntegerTypeMismatch, e.OpLoc, "%% requires two integers of equal type, found %s and %s", lt, rt)
		return lt

	case token.EQEQ, token.NEQ:
		if lt.Equal(rt) {
			return types.BoolType{}
		}
		a.errs.add(TypeMismatch, e.OpLoc, "%s requires operands of equal type, found %s and %s", e.Op.GoString(), lt, rt)
		return types.BoolType{}

	case token.LT, token.LE, token.GT, token.GE:
		if lt.Equal(rt) && types.IsInteger(lt.Kind()) {
			return types.BoolType{}
		}
		a.errs.add(TypeMismatch, e.OpLoc, "%s requires two integers of equal type, found %s and %s", e.Op.GoString(), lt, rt)
		return types.BoolType{}

	case token.ANDAND, token.OROR, token.CARETCARET:
		_, lok := lt.(types.BoolType)
		_, rok := rt.(types.BoolType)
		if lok && rok {
			return types.BoolType{}
		}
		a.errs.add(TypeMismatch, e.OpLoc, "%s requires two booleans, found %s and %s", e.Op.GoString(), lt, rt)
		return types.BoolType{}

	default:
		a.errs.add(TypeMismatch, e.OpLoc, "unsupported binary operator %s", e.Op.GoString())
		return lt
	}
}

// coerceOperands applies the same literal-widening rule as a let/const
// declaration (§4.4) to a binary operator's two operands: an untyped integer
// literal takes on the other side's declared width when it fits, so e.g.
// `total + 1` type-checks against a u32 `total` without an explicit cast.
func (a *Analyzer) coerceOperands(left ast.Expr, lt types.Type, right ast.Expr, rt types.Type) (types.Type, types.Type) {
	if lt.Equal(rt) {
		return lt, rt
	}
	_, leftLit := left.(*ast.IntLiteralExpr)
	_, rightLit := right.(*ast.IntLiteralExpr)
	if rightLit && !leftLit {
		if coerced, ok := coerceLiteral(rt, lt); ok {
			return lt, coerced
		}
	}
	if leftLit && !rightLit {
		if coerced, ok := coerceLiteral(lt, rt); ok {
			return coerced, rt
		}
	}
	return lt, rt
}

func (a *Analyzer) checkUnary(scope *types.Scope, e *ast.UnaryExpr) types.Type {
	t := a.checkExpr(scope, e.Operand)
	switch e.Op {
	case token.NOT:
		if _, ok := t.(types.BoolType); !ok {
			a.errs.add(TypeMismatch, e.OpLoc, "! requires bool, found %s", t)
		}
		return types.BoolType{}
	case token.MINUS:
		if t.Kind() == types.IntSigned || t.Kind() == types.Field {
			return t
		}
		a.errs.add(TypeMismatch, e.OpLoc, "unary - requires a signed integer or field, found %s", t)
		return t
	default:
		a.errs.add(TypeMismatch, e.OpLoc, "unsupported unary operator %s", e.Op.GoString())
		return t
	}
}

// castableKinds lists the kinds a non-identity cast may start from (§4.4
// "Casting"); it holds source kinds only, not (source, target) pairs.
// Identity casts (same kind on bool/struct/array/tuple) are accepted
// separately in checkCast.
var castableKinds = map[types.Kind]bool{
	types.IntSigned:   true,
	types.IntUnsigned:  true,
	types.Field:        true,
	types.Enumeration:  true,
}

func (a *Analyzer) checkCast(scope *types.Scope, e *ast.CastExpr) types.Type {
	src := a.checkExpr(scope, e.Operand)
	dst := a.resolveType(scope, e.Type)

	if castableKinds[src.Kind()] && (types.IsInteger(dst.Kind()) || dst.Kind() == types.Field) {
		return dst
	}
	if src.Equal(dst) {
		switch src.Kind() {
		case types.Bool, types.Structure, types.Array, types.Tuple:
			return dst
		}
	}
	a.errs.add(CastingInvalid, e.EndLoc, "cannot cast %s to %s", src, dst)
	return dst
}

func (a *Analyzer) checkCall(scope *types.Scope, e *ast.CallExpr) types.Type {
	if e.Bang {
		return a.checkIntrinsicCall(scope, e)
	}

	ident, ok := e.Callee.(*ast.IdentExpr)
	if !ok {
		loc, _ := e.Callee.Span()
		a.errs.add(UndeclaredItem, loc, "call target must be a function name")
		for _, arg := range e.Args {
			a.checkExpr(scope, arg)
		}
		return types.UnitType{}
	}
	item, found := scope.Lookup(ident.Name)
	if !found {
		a.errs.add(UndeclaredItem, ident.Loc, "undeclared function %q", ident.Name)
		return types.UnitType{}
	}
	c, ok := item.(*types.Constant)
	if !ok {
		a.errs.add(UndeclaredItem, ident.Loc, "%q is not callable", ident.Name)
		return types.UnitType{}
	}
	fn, ok := c.Type.(*types.FunctionType)
	if !ok {
		a.errs.add(UndeclaredItem, ident.Loc, "%q is not callable", ident.Name)
		return types.UnitType{}
	}
	if len(e.Args) != len(fn.Args) {
		a.errs.add(FunctionArgumentCount, e.EndLoc, "%s expects %d arguments, found %d", fn.Name, len(fn.Args), len(e.Args))
	}
	n := len(e.Args)
	if len(fn.Args) < n {
		n = len(fn.Args)
	}
	for i := 0; i < n; i++ {
		at := a.checkExpr(scope, e.Args[i])
		if !at.Equal(fn.Args[i]) {
			loc, _ := e.Args[i].Span()
			a.errs.add(FunctionArgumentType, loc, "argument %d: expected %s, found %s", i, fn.Args[i], at)
		}
	}
	for i := n; i < len(e.Args); i++ {
		a.checkExpr(scope, e.Args[i])
	}
	return fn.Return
}

// intrinsicNames is the set of bang-call intrinsic names (§4.4 "Intrinsic
// calls"), dbg and require. It holds names only; checkIntrinsicCall checks
// each call's arguments.
var intrinsicNames = map[string]bool{
	"dbg":     true,
	"require": true,
}

func (a *Analyzer) checkIntrinsicCall(scope *types.Scope, e *ast.CallExpr) types.Type {
	ident, ok := e.Callee.(*ast.IdentExpr)
	if !ok || !intrinsicNames[ident.Name] {
		loc, _ := e.Callee.Span()
		a.errs.add(UndeclaredItem, loc, "unknown intrinsic")
		return types.UnitType{}
	}
	switch ident.Name {
	case "require":
		if len(e.Args) != 1 {
			a.errs.add(FunctionArgumentCount, e.EndLoc, "require! expects exactly 1 argument, found %d", len(e.Args))
		}
		for _, arg := range e.Args {
			t := a.checkExpr(scope, arg)
			if _, ok := t.(types.BoolType); !ok {
				loc, _ := arg.Span()
				a.errs.add(FunctionArgumentType, loc, "require! argument must be bool, found %s", t)
			}
		}
		return types.UnitType{}
	case "dbg":
		if len(e.Args) < 1 {
			a.errs.add(FunctionArgumentCount, e.EndLoc, "dbg! expects a format string argument")
			return types.UnitType{}
		}
		fmtArg, ok := e.Args[0].(*ast.StringLiteralExpr)
		if !ok {
			loc, _ := e.Args[0].Span()
			a.errs.add(FunctionArgumentType, loc, "dbg! first argument must be a string literal")
			return types.UnitType{}
		}
		placeholders := countPlaceholders(fmtArg.Value)
		if placeholders != len(e.Args)-1 {
			a.errs.add(FunctionArgumentCount, e.EndLoc, "dbg! format string has %d placeholders but %d arguments were given", placeholders, len(e.Args)-1)
		}
		for _, arg := range e.Args[1:] {
			a.checkExpr(scope, arg)
		}
		return types.UnitType{}
	}
	return types.UnitType{}
}

func countPlaceholders(s string) int {
	n := 0
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '{' && s[i+1] == '}' {
			n++
			i++
		}
	}
	return n
}

func (a *Analyzer) checkIndex(scope *types.Scope, e *ast.IndexExpr) types.Type {
	bt := a.checkExpr(scope, e.Base)
	it := a.checkExpr(scope, e.Index)
	if !types.IsInteger(it.Kind()) {
		loc, _ := e.Index.Span()
		a.errs.add(TypeMismatch, loc, "array index must be an integer, found %s", it)
	}
	at, ok := bt.(types.ArrayType)
	if !ok {
		a.errs.add(TypeMismatch, e.EndLoc, "cannot index non-array type %s", bt)
		return types.UnitType{}
	}
	return at.Element
}

func (a *Analyzer) checkField(scope *types.Scope, e *ast.FieldExpr) types.Type {
	bt := a.checkExpr(scope, e.Base)
	switch st := bt.(type) {
	case *types.StructureType:
		if f, ok := st.FieldByName(e.Field); ok {
			return f.Type
		}
		a.errs.add(UndeclaredItem, e.EndLoc, "%s has no field %q", st.Name, e.Field)
	case *types.ContractType:
		for _, f := range st.Storage {
			if f.Name == e.Field {
				return f.Type
			}
		}
		a.errs.add(UndeclaredItem, e.EndLoc, "%s has no storage field %q", st.Name, e.Field)
	default:
		a.errs.add(TypeMismatch, e.EndLoc, "%s has no fields", bt)
	}
	return types.UnitType{}
}

func (a *Analyzer) checkTupleIndex(scope *types.Scope, e *ast.TupleIndexExpr) types.Type {
	bt := a.checkExpr(scope, e.Base)
	tt, ok := bt.(types.TupleType)
	if !ok {
		a.errs.add(TypeMismatch, e.EndLoc, "%s is not a tuple", bt)
		return types.UnitType{}
	}
	if e.Index < 0 || e.Index >= len(tt.Elements) {
		a.errs.add(BindingExpectedTuple, e.EndLoc, "tuple index %d out of range for %s", e.Index, bt)
		return types.UnitType{}
	}
	return tt.Elements[e.Index]
}

func (a *Analyzer) checkAssign(scope *types.Scope, e *ast.AssignExpr) types.Type {
	if !isPlaceExpr(e.Target) {
		loc, _ := e.Target.Span()
		a.errs.add(TypeMismatch, loc, "left side of assignment must be a mutable place expression")
	} else if id, ok := rootIdent(e.Target); ok {
		if item, found := scope.Lookup(id.Name); found {
			if v, ok := item.(*types.Variable); ok && !v.IsMutable {
				a.errs.add(TypeMismatch, id.Loc, "cannot assign to immutable binding %q", id.Name)
			}
		}
	}
	tt := a.checkExpr(scope, e.Target)
	vt := a.checkExpr(scope, e.Value)
	if !tt.Equal(vt) {
		if _, isLit := e.Value.(*ast.IntLiteralExpr); isLit {
			if coerced, ok := coerceLiteral(vt, tt); ok {
				vt = coerced
			}
		}
	}
	if !tt.Equal(vt) {
		loc, _ := e.Value.Span()
		a.errs.add(TypeMismatch, loc, "cannot assign %s to place of type %s", vt, tt)
	}
	return types.UnitType{}
}

func isPlaceExpr(e ast.Expr) bool {
	switch e.(type) {
	case *ast.IdentExpr, *ast.FieldExpr, *ast.IndexExpr, *ast.TupleIndexExpr:
		return true
	default:
		return false
	}
}

func rootIdent(e ast.Expr) (*ast.IdentExpr, bool) {
	switch n := e.(type) {
	case *ast.IdentExpr:
		return n, true
	case *ast.FieldExpr:
		return rootIdent(n.Base)
	case *ast.IndexExpr:
		return rootIdent(n.Base)
	case *ast.TupleIndexExpr:
		return rootIdent(n.Base)
	default:
		return nil, false
	}
}
