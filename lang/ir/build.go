package ir

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/ast"
	"github.com/zinc-lang/zinc/lang/token"
	"github.com/zinc-lang/zinc/lang/types"
)

// Build lowers a semantically analyzed module into its IR form. root is the
// scope semantic.Analyze returned: every top-level name is already bound and
// every nominal type is Defined, so Build re-derives expression types using
// the same rules lang/semantic validated with, rather than consuming an
// attributed tree — lang/types carries no per-expression annotations, so
// this is the simplest point to recompute them from the (already validated)
// syntax once more, mirroring how original_source/zinc-compiler's generator
// stage walks a fully-resolved semantic element tree.
func Build(mod *ast.Module, root *types.Scope) (*Module, error) {
	b := &builder{root: root}
	m := &Module{}
	for _, item := range mod.Items {
		stmts, err := b.lowerItem(root, item)
		if err != nil {
			return nil, err
		}
		m.Items = append(m.Items, stmts...)
	}
	return m, nil
}

type builder struct {
	root     *types.Scope
	selfType types.Type
}

// frame allocates sequential frame-relative addresses for a function's
// parameters and locals, grounded on the teacher's Funcode.Locals layout
// (compiler/compiled.go: parameters first, then locals, addressed by
// position) generalized from single-slot locals to multi-slot (arrays,
// tuples, structures) via a running scalar-slot offset.
type frame struct {
	next int
}

func (f *frame) alloc(t types.Type) int {
	addr := f.next
	f.next += Size(t)
	return addr
}

func (b *builder) lowerItem(scope *types.Scope, item ast.Item) ([]Stmt, error) {
	switch it := item.(type) {
	case *ast.StructDecl:
		return b.lowerTypeItem(scope, it.Name, it.Start)
	case *ast.EnumDecl:
		return b.lowerTypeItem(scope, it.Name, it.Start)
	case *ast.TypeDecl:
		return b.lowerTypeItem(scope, it.Name, it.Start)
	case *ast.FnDecl:
		fn, err := b.lowerTopLevelFunc(scope, it)
		if err != nil {
			return nil, err
		}
		return []Stmt{fn}, nil
	case *ast.ConstStmt:
		// Constants have no runtime representation of their own; every use
		// site is folded to its value during expression lowering.
		return nil, nil
	case *ast.ContractDecl:
		return b.lowerContract(scope, it)
	case *ast.ImplDecl:
		return b.lowerImpl(scope, it)
	case *ast.UseDecl, *ast.ModDecl:
		return nil, nil
	default:
		return nil, fmt.Errorf("ir: unsupported top-level item %T", item)
	}
}

func (b *builder) lowerTypeItem(scope *types.Scope, name string, loc fileset.Location) ([]Stmt, error) {
	item, found := scope.LookupLocal(name)
	if !found {
		return nil, fmt.Errorf("ir: undeclared type %q", name)
	}
	ti, ok := item.(*types.TypeItem)
	if !ok {
		return nil, fmt.Errorf("ir: %q is not a type", name)
	}
	return []Stmt{&TypeStmt{Loc: loc, Name: name, Type: ti.Inner}}, nil
}

func (b *builder) lowerTopLevelFunc(scope *types.Scope, fn *ast.FnDecl) (*Function, error) {
	item, found := scope.LookupLocal(fn.Name)
	if !found {
		return nil, fmt.Errorf("ir: undeclared function %q", fn.Name)
	}
	c, ok := item.(*types.Constant)
	if !ok {
		return nil, fmt.Errorf("ir: %q is not a function", fn.Name)
	}
	sig, ok := c.Type.(*types.FunctionType)
	if !ok {
		return nil, fmt.Errorf("ir: %q has no resolved signature", fn.Name)
	}
	return b.lowerFuncBody(scope, fn, sig)
}

func (b *builder) lowerFuncBody(scope *types.Scope, fn *ast.FnDecl, sig *types.FunctionType) (*Function, error) {
	fr := &frame{}
	fnScope := types.NewScope(types.FunctionScope, scope)

	var args []Argument
	for i, p := range fn.Params {
		if i >= len(sig.Args) {
			break
		}
		addr := fr.alloc(sig.Args[i])
		fnScope.Declare(p.Name, types.NewVariable(sig.Args[i], false, types.MemoryStack, addr))
		args = append(args, Argument{Name: p.Name, Address: addr, Type: sig.Args[i]})
	}

	body, trailing, err := b.lowerBlock(fnScope, fr, fn.Body)
	if err != nil {
		return nil, err
	}
	if trailing != nil && !trailing.Type.Equal(sig.Return) {
		if coerced, ok := coerceLiteral(trailing.Type, sig.Return); ok {
			trailing = retype(trailing, coerced)
		}
	}

	var ut *UnitTest
	if fn.HasAttr("test") {
		ut = &UnitTest{ShouldPanic: fn.HasAttr("should_panic"), Ignore: fn.HasAttr("ignore")}
	}

	return &Function{
		Loc:        fn.Start,
		Name:       fn.Name,
		Arguments:  args,
		ReturnType: sig.Return,
		Body:       body,
		Trailing:   trailing,
		UnitTest:   ut,
		FrameSize:  fr.next,
	}, nil
}

// lowerBlock lowers a block's statements and, if present, its trailing
// expression, returning both separately so callers (function bodies,
// Conditional branches) can place the trailing value wherever their shape
// requires.
func (b *builder) lowerBlock(parent *types.Scope, fr *frame, blk *ast.Block) ([]Stmt, *Expr, error) {
	scope := types.NewScope(types.BlockScope, parent)
	var stmts []Stmt
	for _, s := range blk.Stmts {
		lowered, err := b.lowerStmt(scope, fr, s)
		if err != nil {
			return nil, nil, err
		}
		stmts = append(stmts, lowered...)
	}
	if blk.Tail == nil {
		return stmts, nil, nil
	}
	tail, err := b.lowerExpr(scope, fr, blk.Tail)
	if err != nil {
		return nil, nil, err
	}
	return stmts, tail, nil
}

func (b *builder) lowerStmt(scope *types.Scope, fr *frame, stmt ast.Stmt) ([]Stmt, error) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		return b.lowerLet(scope, fr, s)
	case *ast.ConstStmt:
		return b.lowerLocalConst(scope, s)
	case *ast.ExprStmt:
		e, err := b.lowerExpr(scope, fr, s.X)
		if err != nil {
			return nil, err
		}
		return []Stmt{&ExprStmt{Loc: e.Loc, Expr: e}}, nil
	case *ast.ForStmt:
		loop, err := b.lowerFor(scope, fr, s)
		if err != nil {
			return nil, err
		}
		return []Stmt{loop}, nil
	case *ast.BadStmt, *ast.EmptyStmt:
		return nil, nil
	default:
		return nil, fmt.Errorf("ir: unsupported statement %T", stmt)
	}
}

func (b *builder) lowerLet(scope *types.Scope, fr *frame, s *ast.LetStmt) ([]Stmt, error) {
	valExpr, err := b.lowerExpr(scope, fr, s.Value)
	if err != nil {
		return nil, err
	}
	t := valExpr.Type
	if s.Type != nil {
		declared := b.resolveType(scope, s.Type)
		if coerced, ok := coerceLiteral(t, declared); ok {
			t = coerced
		} else {
			t = declared
		}
	}
	addr := fr.alloc(t)
	scope.Declare(s.Name, types.NewVariable(t, s.Mut, types.MemoryStack, addr))
	return []Stmt{&Declaration{
		Loc:       s.Start,
		Bindings:  []string{s.Name},
		Addresses: []int{addr},
		Type:      t,
		Expr:      valExpr,
	}}, nil
}

// coerceLiteral mirrors lang/semantic/stmt.go's literal-widening rule.
func coerceLiteral(inferred, declared types.Type) (types.Type, bool) {
	if !types.IsInteger(inferred.Kind()) {
		return nil, false
	}
	if declared.Kind() == types.Field && inferred.Kind() == types.IntUnsigned {
		return declared, true
	}
	if inferred.Kind() != declared.Kind() {
		return nil, false
	}
	if types.BitLength(inferred) <= types.BitLength(declared) {
		return declared, true
	}
	return nil, false
}

func (b *builder) lowerLocalConst(scope *types.Scope, s *ast.ConstStmt) ([]Stmt, error) {
	declared := b.resolveType(scope, s.Type)
	cv, err := b.evalConst(scope, s.Value)
	if err != nil {
		return nil, err
	}
	var value interface{}
	if cv.Int != nil {
		value = cv.Int
	} else {
		value = cv.Bool
	}
	scope.Declare(s.Name, types.NewConstant(value, declared))
	return nil, nil
}

func (b *builder) lowerFor(scope *types.Scope, fr *frame, s *ast.ForStmt) (*Loop, error) {
	start, err := b.evalConstInt(scope, s.Bound.Start)
	if err != nil {
		return nil, err
	}
	end, err := b.evalConstInt(scope, s.Bound.End)
	if err != nil {
		return nil, err
	}
	indexType := inferLiteralType(start)

	loopScope := types.NewScope(types.LoopScope, scope)
	addr := fr.alloc(indexType)
	loopScope.Declare(s.Index, types.NewVariable(indexType, false, types.MemoryStack, addr))

	var whileCond *Expr
	if s.WhileCond != nil {
		whileCond, err = b.lowerExpr(loopScope, fr, s.WhileCond)
		if err != nil {
			return nil, err
		}
	}

	body, trailing, err := b.lowerBlock(loopScope, fr, s.Body)
	if err != nil {
		return nil, err
	}
	if trailing != nil {
		body = append(body, &ExprStmt{Loc: trailing.Loc, Expr: trailing})
	}

	return &Loop{
		Loc:            s.Start,
		Index:          s.Index,
		IndexAddress:   addr,
		IndexType:      indexType,
		BoundsStart:    start,
		BoundsEnd:      end,
		Inclusive:      s.Bound.Inclusive,
		WhileCondition: whileCond,
		Body:           body,
	}, nil
}

// --- expression lowering ---

func (b *builder) lowerExpr(scope *types.Scope, fr *frame, expr ast.Expr) (*Expr, error) {
	loc, _ := expr.Span()
	switch e := expr.(type) {
	case *ast.IntLiteralExpr:
		t := inferLiteralType(e.Value)
		return b.leaf(loc, t, Constant{Type: t, Int: new(big.Int).Set(e.Value)}), nil

	case *ast.BoolLiteralExpr:
		return b.leaf(loc, types.BoolType{}, Constant{Type: types.BoolType{}, Bool: e.Value}), nil

	case *ast.IdentExpr:
		return b.lowerIdent(scope, e)

	case *ast.PathExpr:
		return b.lowerPath(scope, e)

	case *ast.BinaryExpr:
		return b.lowerBinary(scope, fr, e)

	case *ast.UnaryExpr:
		return b.lowerUnary(scope, fr, e)

	case *ast.CastExpr:
		return b.lowerCast(scope, fr, e)

	case *ast.IfExpr:
		return b.lowerIf(scope, fr, e)

	case *ast.MatchExpr:
		return b.lowerMatch(scope, fr, e)

	case *ast.BlockExpr:
		body, trailing, err := b.lowerBlock(scope, fr, e.Block)
		if err != nil {
			return nil, err
		}
		t := types.Type(types.UnitType{})
		if trailing != nil {
			t = trailing.Type
		}
		return b.leaf(loc, t, &Block{Stmts: body, Trailing: trailing}), nil

	case *ast.CallExpr:
		return b.lowerCall(scope, fr, e)

	case *ast.StructExpr:
		return b.lowerStruct(scope, fr, e)

	case *ast.TupleExpr:
		elems := make([]*Expr, len(e.Elems))
		elemTypes := make([]types.Type, len(e.Elems))
		for i, el := range e.Elems {
			ee, err := b.lowerExpr(scope, fr, el)
			if err != nil {
				return nil, err
			}
			elems[i] = ee
			elemTypes[i] = ee.Type
		}
		return b.leaf(loc, types.TupleType{Elements: elemTypes}, &Tuple{Elements: elems}), nil

	case *ast.ArrayExpr:
		if len(e.Elems) == 0 {
			return b.leaf(loc, types.ArrayType{Element: types.UnitType{}, Size: 0}, &Array{ElemType: types.UnitType{}}), nil
		}
		elems := make([]*Expr, len(e.Elems))
		for i, el := range e.Elems {
			ee, err := b.lowerExpr(scope, fr, el)
			if err != nil {
				return nil, err
			}
			elems[i] = ee
		}
		at := types.ArrayType{Element: elems[0].Type, Size: len(elems)}
		return b.leaf(loc, at, &Array{Elements: elems, ElemType: elems[0].Type}), nil

	case *ast.ArrayRepeatExpr:
		val, err := b.lowerExpr(scope, fr, e.Value)
		if err != nil {
			return nil, err
		}
		count, err := b.evalConstInt(scope, e.Count)
		if err != nil {
			return nil, err
		}
		at := types.ArrayType{Element: val.Type, Size: int(count.Int64())}
		return b.leaf(loc, at, &Array{Repeat: val, Count: int(count.Int64()), ElemType: val.Type}), nil

	case *ast.IndexExpr:
		return b.lowerIndex(scope, fr, e)

	case *ast.FieldExpr:
		return b.lowerField(scope, fr, e)

	case *ast.TupleIndexExpr:
		return b.lowerTupleIndex(scope, fr, e)

	case *ast.AssignExpr:
		return b.lowerAssign(scope, fr, e)

	case *ast.RangeExpr:
		return b.lowerExpr(scope, fr, e.Start)

	default:
		return nil, fmt.Errorf("ir: unsupported expression %T", expr)
	}
}

// leaf wraps a single Operand into a one-element Expr; the common case for
// anything that isn't a binary/unary operator chain.
func (b *builder) leaf(loc fileset.Location, t types.Type, op Operand) *Expr {
	return &Expr{Loc: loc, Type: t, Elements: []Element{Push{Operand: op}}}
}

func (b *builder) lowerIdent(scope *types.Scope, e *ast.IdentExpr) (*Expr, error) {
	item, found := scope.Lookup(e.Name)
	if !found {
		return nil, fmt.Errorf("ir: undeclared identifier %q", e.Name)
	}
	switch it := item.(type) {
	case *types.Variable:
		return b.leaf(e.Loc, it.Type, Place{Name: e.Name, Address: it.Address, Size: Size(it.Type), Type: it.Type}), nil
	case *types.Constant:
		cv, err := foldConstantValue(it)
		if err != nil {
			return nil, err
		}
		if cv.Int != nil {
			return b.leaf(e.Loc, it.Type, Constant{Type: it.Type, Int: cv.Int}), nil
		}
		return b.leaf(e.Loc, it.Type, Constant{Type: it.Type, Bool: cv.Bool}), nil
	case *types.FieldItem:
		return b.leaf(e.Loc, it.Type, StoragePlace{FieldIndex: it.Index, Size: Size(it.Type), Type: it.Type}), nil
	default:
		return nil, fmt.Errorf("ir: %q does not name a value", e.Name)
	}
}

func (b *builder) lowerPath(scope *types.Scope, e *ast.PathExpr) (*Expr, error) {
	loc := e.Locs[0]
	if len(e.Segments) == 2 {
		item, found := scope.Lookup(e.Segments[0])
		if found {
			if ti, ok := item.(*types.TypeItem); ok {
				if et, ok := ti.Inner.(*types.EnumerationType); ok {
					for _, v := range et.Variants {
						if v.Name == e.Segments[1] {
							return b.leaf(loc, et, Constant{Type: et, Int: big.NewInt(v.Value)}), nil
						}
					}
				}
			}
		}
	}
	return nil, fmt.Errorf("ir: unresolved path %v", e.Segments)
}


func (b *builder) lowerContract(scope *types.Scope, d *ast.ContractDecl) ([]Stmt, error) {
	item, found := scope.LookupLocal(d.Name)
	if !found {
		return nil, fmt.Errorf("ir: undeclared contract %q", d.Name)
	}
	ti, ok := item.(*types.TypeItem)
	if !ok {
		return nil, fmt.Errorf("ir: %q is not a type", d.Name)
	}
	ct, ok := ti.Inner.(*types.ContractType)
	if !ok {
		return nil, fmt.Errorf("ir: %q is not a contract", d.Name)
	}

	stmts := []Stmt{}
	var fields []ContractField
	for _, f := range ct.Storage {
		fields = append(fields, ContractField{Name: f.Name, Type: f.Type})
	}
	stmts = append(stmts, &Contract{Loc: d.Start, Project: d.Name, Fields: fields})

	prevSelf := b.selfType
	b.selfType = ct
	defer func() { b.selfType = prevSelf }()

	for _, item := range d.Items {
		fn, ok := item.(*ast.FnDecl)
		if !ok {
			continue
		}
		sig := b.findMethodSignature(ct, fn.Name)
		if sig == nil {
			continue
		}
		lowered, err := b.lowerFuncBody(scope, fn, sig)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, lowered)
	}
	return stmts, nil
}

func (b *builder) findMethodSignature(ct *types.ContractType, name string) *types.FunctionType {
	for _, m := range ct.Methods {
		if m.Name == name {
			return &types.FunctionType{Name: name, Args: m.Args, Return: m.Return}
		}
	}
	return nil
}

func (b *builder) lowerImpl(scope *types.Scope, d *ast.ImplDecl) ([]Stmt, error) {
	item, found := scope.Lookup(d.Name)
	if !found {
		return nil, fmt.Errorf("ir: undeclared impl target %q", d.Name)
	}
	ti, ok := item.(*types.TypeItem)
	if !ok {
		return nil, fmt.Errorf("ir: %q is not a type", d.Name)
	}

	prevSelf := b.selfType
	b.selfType = ti.Inner
	defer func() { b.selfType = prevSelf }()

	var stmts []Stmt
	for _, item := range d.Items {
		fn, ok := item.(*ast.FnDecl)
		if !ok {
			continue
		}
		sig := b.fnSignature(scope, fn)
		lowered, err := b.lowerFuncBody(scope, fn, sig)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, lowered)
	}
	return []Stmt{&Implementation{Loc: d.Start, Items: stmts}}, nil
}

// fnSignature re-derives a function's signature the same way
// lang/semantic.(*Analyzer).fnSignature does: impl/contract method bodies
// don't persist their resolved FunctionType anywhere reachable from the
// root scope, so it's recomputed here from the syntax plus the currently
// active Self type.
func (b *builder) fnSignature(scope *types.Scope, fn *ast.FnDecl) *types.FunctionType {
	ret := types.Type(types.UnitType{})
	if fn.Ret != nil {
		ret = b.resolveType(scope, fn.Ret)
	}
	var args []types.Type
	for _, p := range fn.Params {
		if p.Type == nil {
			if b.selfType != nil {
				args = append(args, b.selfType)
			}
			continue
		}
		args = append(args, b.resolveType(scope, p.Type))
	}
	return &types.FunctionType{Name: fn.Name, Args: args, Return: ret}
}

func (b *builder) resolveType(scope *types.Scope, node ast.TypeNode) types.Type {
	switch n := node.(type) {
	case *ast.NamedTypeNode:
		if len(n.Path) == 1 {
			if prim, ok := resolvePrimitive(n.Path[0]); ok {
				return prim
			}
			if n.Path[0] == "Self" && b.selfType != nil {
				return b.selfType
			}
			if n.Path[0] == "MTreeMap" && len(n.Args) == 2 {
				return types.TupleType{Elements: []types.Type{
					b.resolveType(scope, n.Args[0]),
					b.resolveType(scope, n.Args[1]),
				}}
			}
		}
		item, found := scope.Lookup(n.Path[0])
		if !found {
			return types.UnitType{}
		}
		if ti, ok := item.(*types.TypeItem); ok {
			return ti.Inner
		}
		return types.UnitType{}
	case *ast.ArrayTypeNode:
		elem := b.resolveType(scope, n.Elem)
		size, err := b.evalConstInt(scope, n.Size)
		if err != nil {
			return types.ArrayType{Element: elem, Size: 0}
		}
		return types.ArrayType{Element: elem, Size: int(size.Int64())}
	case *ast.TupleTypeNode:
		if len(n.Elems) == 0 {
			return types.UnitType{}
		}
		elems := make([]types.Type, len(n.Elems))
		for i, e := range n.Elems {
			elems[i] = b.resolveType(scope, e)
		}
		return types.TupleType{Elements: elems}
	default:
		return types.UnitType{}
	}
}

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
	if len(name) < 2 || (name[0] != 'i' && name[0] != 'u') {
		return nil, false
	}
	bits, err := strconv.Atoi(name[1:])
	if err != nil || bits < types.MinBitLength || bits > types.MaxBitLength {
		return nil, false
	}
	if name[0] == 'i' {
		return types.IntSignedType{Bits: bits}, true
	}
	return types.IntUnsignedType{Bits: bits}, true
}

// --- constant folding (mirrors lang/semantic/const.go) ---

type constVal struct {
	Type types.Type
	Int  *big.Int
	Bool bool
}

func (b *builder) evalConst(scope *types.Scope, expr ast.Expr) (constVal, error) {
	switch e := expr.(type) {
	case *ast.IntLiteralExpr:
		return constVal{Type: inferLiteralType(e.Value), Int: new(big.Int).Set(e.Value)}, nil
	case *ast.BoolLiteralExpr:
		return constVal{Type: types.BoolType{}, Bool: e.Value}, nil
	case *ast.IdentExpr:
		item, found := scope.Lookup(e.Name)
		if !found {
			return constVal{}, fmt.Errorf("undeclared constant %q", e.Name)
		}
		c, ok := item.(*types.Constant)
		if !ok {
			return constVal{}, fmt.Errorf("%q is not a constant", e.Name)
		}
		return foldConstantValue(c)
	case *ast.UnaryExpr:
		v, err := b.evalConst(scope, e.Operand)
		if err != nil {
			return constVal{}, err
		}
		if e.Op == token.MINUS && v.Int != nil {
			return constVal{Type: v.Type, Int: new(big.Int).Neg(v.Int)}, nil
		}
		if e.Op == token.NOT {
			return constVal{Type: types.BoolType{}, Bool: !v.Bool}, nil
		}
		return constVal{}, fmt.Errorf("non-constant unary operator")
	case *ast.BinaryExpr:
		l, err := b.evalConst(scope, e.Left)
		if err != nil {
			return constVal{}, err
		}
		r, err := b.evalConst(scope, e.Right)
		if err != nil {
			return constVal{}, err
		}
		return evalConstBinary(e.Op, l, r)
	case *ast.CastExpr:
		v, err := b.evalConst(scope, e.Operand)
		if err != nil {
			return constVal{}, err
		}
		return constVal{Type: b.resolveType(scope, e.Type), Int: v.Int, Bool: v.Bool}, nil
	case *ast.PathExpr:
		pe, err := b.lowerPath(scope, e)
		if err != nil {
			return constVal{}, err
		}
		if push, ok := pe.Elements[0].(Push); ok {
			if c, ok := push.Operand.(Constant); ok {
				return constVal{Type: c.Type, Int: c.Int}, nil
			}
		}
		return constVal{}, fmt.Errorf("ir: path %v is not a constant", e.Segments)
	default:
		return constVal{}, fmt.Errorf("not a constant expression")
	}
}

// foldConstantValue recovers the folded value a semantic.Constant carries.
// lang/semantic stores its own unexported constValue type there; rather than
// reach into semantic internals, top-level consts are re-folded from their
// declared value through the Constant's exported Value field when it is
// itself a *big.Int/bool (local consts inside a function body are folded
// directly by evalConst at their use site, since lowerBlock re-walks the
// body with its own fresh scope).
func foldConstantValue(c *types.Constant) (constVal, error) {
	switch v := c.Value.(type) {
	case *big.Int:
		return constVal{Type: c.Type, Int: v}, nil
	case bool:
		return constVal{Type: c.Type, Bool: v}, nil
	default:
		return constVal{}, fmt.Errorf("constant has no foldable value")
	}
}

func (b *builder) evalConstInt(scope *types.Scope, expr ast.Expr) (*big.Int, error) {
	v, err := b.evalConst(scope, expr)
	if err != nil {
		return nil, err
	}
	if v.Int == nil {
		return nil, fmt.Errorf("expected an integer constant")
	}
	return v.Int, nil
}

func evalConstBinary(op token.Token, l, r constVal) (constVal, error) {
	if l.Int != nil && r.Int != nil {
		switch op {
		case token.EQEQ:
			return constVal{Type: types.BoolType{}, Bool: l.Int.Cmp(r.Int) == 0}, nil
		case token.NEQ:
			return constVal{Type: types.BoolType{}, Bool: l.Int.Cmp(r.Int) != 0}, nil
		case token.LT:
			return constVal{Type: types.BoolType{}, Bool: l.Int.Cmp(r.Int) < 0}, nil
		case token.LE:
			return constVal{Type: types.BoolType{}, Bool: l.Int.Cmp(r.Int) <= 0}, nil
		case token.GT:
			return constVal{Type: types.BoolType{}, Bool: l.Int.Cmp(r.Int) > 0}, nil
		case token.GE:
			return constVal{Type: types.BoolType{}, Bool: l.Int.Cmp(r.Int) >= 0}, nil
		}

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
				return constVal{}, fmt.Errorf("division by zero")
			}
			result.Quo(l.Int, r.Int)
		case token.PERCENT:
			if r.Int.Sign() == 0 {
				return constVal{}, fmt.Errorf("division by zero")
			}
			result.Mod(l.Int, r.Int)
			if result.Sign() != 0 && r.Int.Sign() < 0 {
				result.Add(result, r.Int)
			}
		default:
			return constVal{}, fmt.Errorf("operator %s is not valid on integer constants", op.GoString())
		}
		return constVal{Type: l.Type, Int: result}, nil
	}

	switch op {
	case token.EQEQ:
		return constVal{Type: types.BoolType{}, Bool: l.Bool == r.Bool}, nil
	case token.NEQ, token.CARETCARET:
		return constVal{Type: types.BoolType{}, Bool: l.Bool != r.Bool}, nil
	case token.ANDAND:
		return constVal{Type: types.BoolType{}, Bool: l.Bool && r.Bool}, nil
	case token.OROR:
		return constVal{Type: types.BoolType{}, Bool: l.Bool || r.Bool}, nil
	default:
		return constVal{}, fmt.Errorf("operator %s is not valid on boolean constants", op.GoString())
	}
}

// --- remaining expression lowering ---

// retype overwrites e's result type, and — when e is a bare literal leaf —
// the Constant operand's own Type too, so a widened literal's Push
// instruction later emits the widened width rather than its inferred one.
func retype(e *Expr, t types.Type) *Expr {
	e.Type = t
	if len(e.Elements) == 1 {
		if push, ok := e.Elements[0].(Push); ok {
			if c, ok := push.Operand.(Constant); ok {
				c.Type = t
				e.Elements[0] = Push{Operand: c}
			}
		}
	}
	return e
}

// basePlace extracts the Place a leaf Expr pushes, when that Expr is nothing
// more than a bare variable/argument/loop-index/field reference — the only
// shape that is addressable for an indexed load or an assignment target.
func basePlace(e *Expr) (Place, bool) {
	if len(e.Elements) != 1 {
		return Place{}, false
	}
	push, ok := e.Elements[0].(Push)
	if !ok {
		return Place{}, false
	}
	p, ok := push.Operand.(Place)
	return p, ok
}

// baseStoragePlace is basePlace's counterpart for a contract storage field
// (`self.balance = ...`), the only other shape an assignment target can
// take.
func baseStoragePlace(e *Expr) (StoragePlace, bool) {
	if len(e.Elements) != 1 {
		return StoragePlace{}, false
	}
	push, ok := e.Elements[0].(Push)
	if !ok {
		return StoragePlace{}, false
	}
	sp, ok := push.Operand.(StoragePlace)
	return sp, ok
}

// binaryOpAndType mirrors lang/semantic/expr.go's checkBinary result-type
// table (§4.4 Table A), given operands already coerced to a common type.
func binaryOpAndType(tok token.Token, lt, rt types.Type) (Operator, types.Type, error) {
	switch tok {
	case token.PLUS:
		return OpAdd, lt, nil
	case token.MINUS:
		return OpSub, lt, nil
	case token.STAR:
		return OpMul, lt, nil
	case token.SLASH:
		return OpDiv, lt, nil
	case token.PERCENT:
		return OpRem, lt, nil
	case token.EQEQ:
		return OpEq, types.BoolType{}, nil
	case token.NEQ:
		return OpNe, types.BoolType{}, nil
	case token.LT:
		return OpLt, types.BoolType{}, nil
	case token.LE:
		return OpLe, types.BoolType{}, nil
	case token.GT:
		return OpGt, types.BoolType{}, nil
	case token.GE:
		return OpGe, types.BoolType{}, nil
	case token.ANDAND:
		return OpAnd, types.BoolType{}, nil
	case token.OROR:
		return OpOr, types.BoolType{}, nil
	case token.CARETCARET:
		return OpXor, types.BoolType{}, nil
	default:
		return 0, nil, fmt.Errorf("ir: unsupported binary operator %s", tok.GoString())
	}
}

func (b *builder) lowerBinary(scope *types.Scope, fr *frame, e *ast.BinaryExpr) (*Expr, error) {
	left, err := b.lowerExpr(scope, fr, e.Left)
	if err != nil {
		return nil, err
	}
	right, err := b.lowerExpr(scope, fr, e.Right)
	if err != nil {
		return nil, err
	}
	lt, rt := left.Type, right.Type
	if !lt.Equal(rt) {
		if coerced, ok := coerceLiteral(rt, lt); ok {
			right = retype(right, coerced)
			rt = coerced
		} else if coerced, ok := coerceLiteral(lt, rt); ok {
			left = retype(left, coerced)
			lt = coerced
		}
	}

	op, resultType, err := binaryOpAndType(e.Op, lt, rt)
	if err != nil {
		return nil, err
	}
	loc, _ := e.Span()
	elements := append(append([]Element{}, left.Elements...), right.Elements...)
	elements = append(elements, Apply{Op: op, Type: resultType, Loc: e.OpLoc})
	return &Expr{Loc: loc, Type: resultType, Elements: elements}, nil
}

func (b *builder) lowerUnary(scope *types.Scope, fr *frame, e *ast.UnaryExpr) (*Expr, error) {
	operand, err := b.lowerExpr(scope, fr, e.Operand)
	if err != nil {
		return nil, err
	}
	loc, _ := e.Span()
	var op Operator
	resultType := operand.Type
	switch e.Op {
	case token.MINUS:
		op = OpNeg
	case token.NOT:
		op = OpNot
		resultType = types.BoolType{}
	default:
		return nil, fmt.Errorf("ir: unsupported unary operator %s", e.Op.GoString())
	}
	elements := append(append([]Element{}, operand.Elements...), Apply{Op: op, Type: resultType, Loc: e.OpLoc})
	return &Expr{Loc: loc, Type: resultType, Elements: elements}, nil
}

func (b *builder) lowerCast(scope *types.Scope, fr *frame, e *ast.CastExpr) (*Expr, error) {
	operand, err := b.lowerExpr(scope, fr, e.Operand)
	if err != nil {
		return nil, err
	}
	target := b.resolveType(scope, e.Type)
	elements := append(append([]Element{}, operand.Elements...), Apply{Op: OpCast, Type: target, Loc: e.EndLoc})
	return &Expr{Loc: e.EndLoc, Type: target, Elements: elements}, nil
}

func (b *builder) lowerIf(scope *types.Scope, fr *frame, e *ast.IfExpr) (*Expr, error) {
	loc, _ := e.Span()
	cond, err := b.lowerExpr(scope, fr, e.Cond)
	if err != nil {
		return nil, err
	}
	mainStmts, mainTrailing, err := b.lowerBlock(scope, fr, e.Then.Block)
	if err != nil {
		return nil, err
	}
	main := &Block{Stmts: mainStmts, Trailing: mainTrailing}

	resultType := types.Type(types.UnitType{})
	if mainTrailing != nil {
		resultType = mainTrailing.Type
	}

	var elseBlock *Block
	if e.Else != nil {
		switch els := e.Else.(type) {
		case *ast.BlockExpr:
			elseStmts, elseTrailing, err := b.lowerBlock(scope, fr, els.Block)
			if err != nil {
				return nil, err
			}
			elseBlock = &Block{Stmts: elseStmts, Trailing: elseTrailing}
			if elseTrailing != nil {
				resultType = elseTrailing.Type
			}
		default:
			// An `else if ...` chain: the nested IfExpr lowers to its own
			// Conditional operand, carried as this else-branch's trailing
			// value so the cascade still reads as one Block per arm.
			elseExpr, err := b.lowerExpr(scope, fr, e.Else)
			if err != nil {
				return nil, err
			}
			elseBlock = &Block{Trailing: elseExpr}
			resultType = elseExpr.Type
		}
	}

	return b.leaf(loc, resultType, &Conditional{Condition: cond, Main: main, Else: elseBlock, Type: resultType}), nil
}

func (b *builder) lowerMatch(scope *types.Scope, fr *frame, e *ast.MatchExpr) (*Expr, error) {
	loc, _ := e.Span()
	scrutinee, err := b.lowerExpr(scope, fr, e.Scrutinee)
	if err != nil {
		return nil, err
	}

	var branches []MatchBranch
	var resultType types.Type
	for _, arm := range e.Arms {
		var pat *Constant
		if arm.Pattern != nil {
			cv, err := b.evalConst(scope, arm.Pattern)
			if err != nil {
				return nil, err
			}
			pat = &Constant{Type: cv.Type, Int: cv.Int, Bool: cv.Bool}
		}
		body, err := b.lowerExpr(scope, fr, arm.Body)
		if err != nil {
			return nil, err
		}
		if resultType == nil {
			resultType = body.Type
		}
		branches = append(branches, MatchBranch{Pattern: pat, Body: body})
	}
	if resultType == nil {
		resultType = types.UnitType{}
	}
	return b.leaf(loc, resultType, &Match{Scrutinee: scrutinee, Branches: branches, Type: resultType}), nil
}

func (b *builder) lowerCall(scope *types.Scope, fr *frame, e *ast.CallExpr) (*Expr, error) {
	loc, _ := e.Span()

	if e.Bang {
		ident, ok := e.Callee.(*ast.IdentExpr)
		if !ok {
			return nil, fmt.Errorf("ir: intrinsic call target must be a name")
		}
		// dbg!'s first argument is a format string literal, never a runtime
		// value (§6 "Dbg{format,arg_types}"): it carries no Expr of its own
		// and is recovered separately rather than lowered like the rest.
		format := ""
		callArgs := e.Args
		if ident.Name == "dbg" && len(e.Args) > 0 {
			if lit, ok := e.Args[0].(*ast.StringLiteralExpr); ok {
				format = lit.Value
				callArgs = e.Args[1:]
			}
		}
		var args []*Expr
		for _, a := range callArgs {
			ae, err := b.lowerExpr(scope, fr, a)
			if err != nil {
				return nil, err
			}
			args = append(args, ae)
		}
		return b.leaf(loc, types.UnitType{}, &Call{Intrinsic: ident.Name, Format: format, Args: args, ResultType: types.UnitType{}}), nil
	}

	ident, ok := e.Callee.(*ast.IdentExpr)
	if !ok {
		return nil, fmt.Errorf("ir: call target must be a function name")
	}
	item, found := scope.Lookup(ident.Name)
	if !found {
		return nil, fmt.Errorf("ir: undeclared function %q", ident.Name)
	}
	c, ok := item.(*types.Constant)
	if !ok {
		return nil, fmt.Errorf("ir: %q is not callable", ident.Name)
	}
	sig, ok := c.Type.(*types.FunctionType)
	if !ok {
		return nil, fmt.Errorf("ir: %q is not callable", ident.Name)
	}
	var args []*Expr
	for _, a := range e.Args {
		ae, err := b.lowerExpr(scope, fr, a)
		if err != nil {
			return nil, err
		}
		args = append(args, ae)
	}
	return b.leaf(loc, sig.Return, &Call{Callee: ident.Name, Args: args, ResultType: sig.Return}), nil
}

// resolveStructType mirrors lang/semantic/expr.go's resolveStructPath: a bare
// one-segment path names a nominal structure directly (including `Self`).
func (b *builder) resolveStructType(scope *types.Scope, path *ast.PathExpr) (*types.StructureType, error) {
	if len(path.Segments) == 1 {
		if path.Segments[0] == "Self" && b.selfType != nil {
			if st, ok := b.selfType.(*types.StructureType); ok {
				return st, nil
			}
		}
		item, found := scope.Lookup(path.Segments[0])
		if found {
			if ti, ok := item.(*types.TypeItem); ok {
				if st, ok := ti.Inner.(*types.StructureType); ok {
					return st, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("ir: unresolved structure type %v", path.Segments)
}

func (b *builder) lowerStruct(scope *types.Scope, fr *frame, e *ast.StructExpr) (*Expr, error) {
	loc, _ := e.Span()
	st, err := b.resolveStructType(scope, e.Path)
	if err != nil {
		return nil, err
	}
	values := make(map[string]*Expr, len(e.Fields))
	for _, fi := range e.Fields {
		ve, err := b.lowerExpr(scope, fr, fi.Value)
		if err != nil {
			return nil, err
		}
		values[fi.Name] = ve
	}
	fields := make([]StructureFieldInit, len(st.Fields))
	for i, decl := range st.Fields {
		v, ok := values[decl.Name]
		if !ok {
			return nil, fmt.Errorf("ir: missing field %q in structure literal for %s", decl.Name, st.Name)
		}
		if !v.Type.Equal(decl.Type) {
			if coerced, ok := coerceLiteral(v.Type, decl.Type); ok {
				v = retype(v, coerced)
			}
		}
		fields[i] = StructureFieldInit{Name: decl.Name, Value: v}
	}
	return b.leaf(loc, st, &Structure{Type: st, Fields: fields}), nil
}

func (b *builder) lowerIndex(scope *types.Scope, fr *frame, e *ast.IndexExpr) (*Expr, error) {
	base, err := b.lowerExpr(scope, fr, e.Base)
	if err != nil {
		return nil, err
	}
	at, ok := base.Type.(types.ArrayType)
	if !ok {
		return nil, fmt.Errorf("ir: cannot index non-array type %s", base.Type)
	}
	place, ok := basePlace(base)
	if !ok {
		return nil, fmt.Errorf("ir: array index base must be an addressable place")
	}
	idx, err := b.lowerExpr(scope, fr, e.Index)
	if err != nil {
		return nil, err
	}
	loc, _ := e.Span()
	return b.leaf(loc, at.Element, IndexedLoad{
		Base:       place,
		Index:      idx,
		ElemSize:   Size(at.Element),
		TotalSize:  Size(at),
		ResultType: at.Element,
	}), nil
}

func (b *builder) lowerField(scope *types.Scope, fr *frame, e *ast.FieldExpr) (*Expr, error) {
	base, err := b.lowerExpr(scope, fr, e.Base)
	if err != nil {
		return nil, err
	}
	loc, _ := e.Span()
	switch bt := base.Type.(type) {
	case *types.StructureType:
		place, ok := basePlace(base)
		if !ok {
			return nil, fmt.Errorf("ir: struct field access base must be an addressable place")
		}
		offset := 0
		for _, f := range bt.Fields {
			if f.Name == e.Field {
				return b.leaf(loc, f.Type, Place{
					Name:    place.Name + "." + e.Field,
					Address: place.Address + offset,
					Size:    Size(f.Type),
					Type:    f.Type,
				}), nil
			}
			offset += Size(f.Type)
		}
		return nil, fmt.Errorf("ir: %s has no field %q", bt.Name, e.Field)
	case *types.ContractType:
		for i, f := range bt.Storage {
			if f.Name == e.Field {
				return b.leaf(loc, f.Type, StoragePlace{FieldIndex: i, Size: Size(f.Type), Type: f.Type}), nil
			}
		}
		return nil, fmt.Errorf("ir: %s has no storage field %q", bt.Name, e.Field)
	default:
		return nil, fmt.Errorf("ir: %s has no fields", base.Type)
	}
}

func (b *builder) lowerTupleIndex(scope *types.Scope, fr *frame, e *ast.TupleIndexExpr) (*Expr, error) {
	base, err := b.lowerExpr(scope, fr, e.Base)
	if err != nil {
		return nil, err
	}
	tt, ok := base.Type.(types.TupleType)
	if !ok {
		return nil, fmt.Errorf("ir: %s is not a tuple", base.Type)
	}
	if e.Index < 0 || e.Index >= len(tt.Elements) {
		return nil, fmt.Errorf("ir: tuple index %d out of range for %s", e.Index, base.Type)
	}
	place, ok := basePlace(base)
	if !ok {
		return nil, fmt.Errorf("ir: tuple index base must be an addressable place")
	}
	offset := 0
	for i := 0; i < e.Index; i++ {
		offset += Size(tt.Elements[i])
	}
	elemType := tt.Elements[e.Index]
	loc, _ := e.Span()
	return b.leaf(loc, elemType, Place{
		Name:    place.Name,
		Address: place.Address + offset,
		Size:    Size(elemType),
		Type:    elemType,
	}), nil
}

func (b *builder) lowerAssign(scope *types.Scope, fr *frame, e *ast.AssignExpr) (*Expr, error) {
	loc, _ := e.Span()
	value, err := b.lowerExpr(scope, fr, e.Value)
	if err != nil {
		return nil, err
	}

	if idx, ok := e.Target.(*ast.IndexExpr); ok {
		baseExpr, err := b.lowerExpr(scope, fr, idx.Base)
		if err != nil {
			return nil, err
		}
		at, ok := baseExpr.Type.(types.ArrayType)
		if !ok {
			return nil, fmt.Errorf("ir: cannot index non-array type %s", baseExpr.Type)
		}
		place, ok := basePlace(baseExpr)
		if !ok {
			return nil, fmt.Errorf("ir: array index base must be an addressable place")
		}
		index, err := b.lowerExpr(scope, fr, idx.Index)
		if err != nil {
			return nil, err
		}
		if coerced, ok := coerceLiteral(value.Type, at.Element); ok {
			value = retype(value, coerced)
		}
		return b.leaf(loc, types.UnitType{}, &Assign{
			Target:   place,
			Index:    index,
			ElemSize: Size(at.Element),
			Value:    value,
		}), nil
	}

	target, err := b.lowerExpr(scope, fr, e.Target)
	if err != nil {
		return nil, err
	}
	if sp, ok := baseStoragePlace(target); ok {
		if coerced, ok := coerceLiteral(value.Type, sp.Type); ok {
			value = retype(value, coerced)
		}
		return b.leaf(loc, types.UnitType{}, &Assign{
			IsStorage:    true,
			StorageIndex: sp.FieldIndex,
			StorageSize:  sp.Size,
			Value:        value,
		}), nil
	}
	place, ok := basePlace(target)
	if !ok {
		return nil, fmt.Errorf("ir: assignment target must be an addressable place")
	}
	if coerced, ok := coerceLiteral(value.Type, place.Type); ok {
		value = retype(value, coerced)
	}
	return b.leaf(loc, types.UnitType{}, &Assign{Target: place, Value: value}), nil
}

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
