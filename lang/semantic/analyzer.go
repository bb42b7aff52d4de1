package semantic

import (
	"math/big"

	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/ast"
	"github.com/zinc-lang/zinc/lang/types"
)

// Analyzer runs the two-pass declare/define walk over a single module's
// top-level items (§4.4). Declarations are placed into the root scope in a
// Declared state during Declare, then filled in and checked during Define;
// cyclic type references are caught as a Declared item still being Declared
// when its definition is reached a second time.
type Analyzer struct {
	errs errorList

	root *types.Scope

	// selfType is the enclosing impl's nominal type while checking methods
	// and associated constants; nil at module scope.
	selfType types.Type

	// defining tracks items currently mid-definition, for cycle detection.
	defining map[string]bool
}

// Result is the outcome of a successful (or partially successful, if Err is
// non-nil) analysis.
type Result struct {
	Scope *types.Scope
	Entry EntryKind
}

// Analyze runs declare-then-define over mod's top-level items and returns
// the populated root scope plus the module's entry-point classification. The
// returned error, if non-nil, unwraps to the individual *Error diagnostics.
func Analyze(mod *ast.Module) (*Result, error) {
	a := &Analyzer{
		root:     types.NewScope(types.EntryScope, nil),
		defining: map[string]bool{},
	}

	a.declarePass(a.root, mod.Items)
	a.definePass(a.root, mod.Items)

	entry, entryErr := classifyEntry(mod)
	if entryErr != nil {
		a.errs.add(EntryPointAmbiguous, entryErr.loc, "%s", entryErr.msg)
	}

	return &Result{Scope: a.root, Entry: entry}, a.errs.err()
}

// declarePass reserves every item's name in scope, ahead of resolving any
// bodies, so forward references (mutual struct/enum/function references)
// resolve correctly in definePass.
func (a *Analyzer) declarePass(scope *types.Scope, items []ast.Item) {
	for _, item := range items {
		switch it := item.(type) {
		case *ast.StructDecl:
			a.declareName(scope, it.Name, it.NameLoc, types.NewTypeItem())
		case *ast.EnumDecl:
			a.declareName(scope, it.Name, it.NameLoc, types.NewTypeItem())
		case *ast.ContractDecl:
			a.declareName(scope, it.Name, it.NameLoc, types.NewTypeItem())
		case *ast.TypeDecl:
			a.declareName(scope, it.Name, it.NameLoc, types.NewTypeItem())
		case *ast.FnDecl:
			a.declareName(scope, it.Name, it.NameLoc, types.NewConstant(nil, nil))
		case *ast.ConstStmt:
			a.declareName(scope, it.Name, it.NameLoc, types.NewConstant(nil, nil))
		case *ast.ModDecl:
			a.declareName(scope, it.Name, it.NameLoc, types.NewModuleItem())
		case *ast.UseDecl, *ast.ImplDecl:
			// use has no binding of its own; impl attaches to an existing
			// type and is processed in definePass once that type exists.
		}
	}
}

func (a *Analyzer) declareName(scope *types.Scope, name string, loc fileset.Location, item types.Item) {
	if !scope.Declare(name, item) {
		a.errs.add(RedeclaredItem, loc, "%q already declared in this scope", name)
	}
}

func (a *Analyzer) definePass(scope *types.Scope, items []ast.Item) {
	for _, item := range items {
		switch it := item.(type) {
		case *ast.StructDecl:
			a.defineStruct(scope, it)
		case *ast.EnumDecl:
			a.defineEnum(scope, it)
		case *ast.TypeDecl:
			a.defineTypeAlias(scope, it)
		}
	}
	// Contracts, functions and impls may reference structs/enums declared
	// anywhere in the file, so they're resolved only after every nominal
	// type has a Defined TypeItem.
	for _, item := range items {
		switch it := item.(type) {
		case *ast.ContractDecl:
			a.defineContract(scope, it)
		case *ast.FnDecl:
			a.defineFunc(scope, it)
		case *ast.ConstStmt:
			a.defineTopLevelConst(scope, it)
		case *ast.ImplDecl:
			a.defineImpl(scope, it)
		case *ast.UseDecl:
			a.checkUse(scope, it)
		}
	}
}

func (a *Analyzer) checkUse(scope *types.Scope, u *ast.UseDecl) {
	if u.Path == nil || len(u.Path.Segments) == 0 {
		a.errs.add(UseStatementExpectedPath, u.Start, "use statement expects a path")
	}
}

func (a *Analyzer) defineStruct(scope *types.Scope, d *ast.StructDecl) {
	item, _ := scope.LookupLocal(d.Name)
	ti := item.(*types.TypeItem)
	if a.defining[d.Name] {
		a.errs.add(TypeMismatch, d.Start, "cyclic type definition involving %q", d.Name)
		return
	}
	a.defining[d.Name] = true
	defer delete(a.defining, d.Name)

	st := &types.StructureType{Name: d.Name, UniqueID: types.NextUniqueID()}
	seen := map[string]bool{}
	for _, f := range d.Fields {
		if seen[f.Name] {
			a.errs.add(TypeDuplicateField, f.Loc, "duplicate field %q in struct %s", f.Name, d.Name)
			continue
		}
		seen[f.Name] = true
		st.Fields = append(st.Fields, types.StructField{Name: f.Name, Type: a.resolveType(scope, f.Type)})
	}
	ti.Inner = st
	ti.State = types.Defined
}

func (a *Analyzer) defineEnum(scope *types.Scope, d *ast.EnumDecl) {
	item, _ := scope.LookupLocal(d.Name)
	ti := item.(*types.TypeItem)

	et := &types.EnumerationType{Name: d.Name, UniqueID: types.NextUniqueID()}
	next := big.NewInt(0)
	seenNames := map[string]bool{}
	seenValues := map[string]bool{}
	for _, v := range d.Variants {
		if seenNames[v.Name] {
			a.errs.add(RedeclaredItem, v.Loc, "duplicate variant %q in enum %s", v.Name, d.Name)
			continue
		}
		seenNames[v.Name] = true
		val := next
		if v.Value != nil {
			val = v.Value
		}
		if seenValues[val.String()] {
			a.errs.add(TypeMismatch, v.Loc, "duplicate enum value %s in %s", val, d.Name)
		}
		seenValues[val.String()] = true
		et.Variants = append(et.Variants, types.EnumVariant{Name: v.Name, Value: val.Int64()})
		next = new(big.Int).Add(val, big.NewInt(1))
	}
	ti.Inner = et
	ti.State = types.Defined
}

func (a *Analyzer) defineTypeAlias(scope *types.Scope, d *ast.TypeDecl) {
	item, _ := scope.LookupLocal(d.Name)
	ti := item.(*types.TypeItem)
	ti.Inner = a.resolveType(scope, d.Type)
	ti.State = types.Defined
}

func (a *Analyzer) defineContract(scope *types.Scope, d *ast.ContractDecl) {
	item, _ := scope.LookupLocal(d.Name)
	ti := item.(*types.TypeItem)

	ct := &types.ContractType{Name: d.Name, UniqueID: types.NextUniqueID()}
	ti.Inner = ct
	ti.State = types.Defined

	prevSelf := a.selfType
	a.selfType = ct
	defer func() { a.selfType = prevSelf }()

	index := 0
	for _, item := range d.Items {
		if fd, ok := item.(*ast.FieldDecl); ok {
			ct.Storage = append(ct.Storage, types.StructField{Name: fd.Name, Type: a.resolveType(scope, fd.Type)})
			index++
		}
	}
	for _, item := range d.Items {
		if fn, ok := item.(*ast.FnDecl); ok {
			sig := a.fnSignature(scope, fn)
			ct.Methods = append(ct.Methods, types.ContractMethod{
				Name: fn.Name, Args: sig.Args, Return: sig.Return, IsMutable: hasSelfParam(fn),
			})
			a.checkFnBody(scope, fn, sig)
		}
	}
}

func (a *Analyzer) defineImpl(scope *types.Scope, d *ast.ImplDecl) {
	item, found := scope.Lookup(d.Name)
	if !found {
		a.errs.add(ImplStatementExpectedStructureOrEnumeration, d.NameLoc, "undeclared type %q in impl", d.Name)
		return
	}
	ti, ok := item.(*types.TypeItem)
	if !ok {
		a.errs.add(ImplStatementExpectedStructureOrEnumeration, d.NameLoc, "%q is not a type", d.Name)
		return
	}
	switch ti.Inner.(type) {
	case *types.StructureType, *types.EnumerationType:
	default:
		a.errs.add(ImplStatementExpectedStructureOrEnumeration, d.NameLoc, "impl target must be a structure or enumeration")
		return
	}

	prevSelf := a.selfType
	a.selfType = ti.Inner
	defer func() { a.selfType = prevSelf }()

	implScope := types.NewScope(types.FunctionScope, scope)
	a.declarePass(implScope, d.Items)
	for _, item := range d.Items {
		switch it := item.(type) {
		case *ast.FnDecl:
			a.defineFunc(implScope, it)
		case *ast.ConstStmt:
			a.defineTopLevelConst(implScope, it)
		}
	}
}

func hasSelfParam(fn *ast.FnDecl) bool {
	return len(fn.Params) > 0 && fn.Params[0].Type == nil
}

func (a *Analyzer) fnSignature(scope *types.Scope, fn *ast.FnDecl) *types.FunctionType {
	ret := types.Type(types.UnitType{})
	if fn.Ret != nil {
		ret = a.resolveType(scope, fn.Ret)
	}
	var args []types.Type
	for _, p := range fn.Params {
		if p.Type == nil {
			if a.selfType != nil {
				args = append(args, a.selfType)
			}
			continue
		}
		args = append(args, a.resolveType(scope, p.Type))
	}
	return &types.FunctionType{Name: fn.Name, Args: args, Return: ret}
}

func (a *Analyzer) defineFunc(scope *types.Scope, fn *ast.FnDecl) {
	sig := a.fnSignature(scope, fn)
	item, found := scope.LookupLocal(fn.Name)
	if found {
		if c, ok := item.(*types.Constant); ok {
			c.Type = sig
		}
	}
	a.checkFnBody(scope, fn, sig)
}

// defineTopLevelConst fills in the Constant placeholder declarePass already
// bound for a module- or impl-scope "const" item, rather than re-declaring
// it (which would spuriously fail as a RedeclaredItem).
func (a *Analyzer) defineTopLevelConst(scope *types.Scope, s *ast.ConstStmt) {
	declared := a.resolveType(scope, s.Type)
	cv, err := a.evalConst(scope, s.Value)
	if err != nil {
		a.errs.add(ConstantExpectedConstant, s.NameLoc, "const %s: %v", s.Name, err)
	} else if !cv.Type.Equal(declared) {
		if _, ok := coerceLiteral(cv.Type, declared); !ok {
			a.errs.add(TypeMismatch, s.NameLoc, "const %s: expected %s, found %s", s.Name, declared, cv.Type)
		}
	}
	item, found := scope.LookupLocal(s.Name)
	if !found {
		return
	}
	if c, ok := item.(*types.Constant); ok {
		c.Value = cv
		c.Type = declared
	}
}

func (a *Analyzer) checkFnBody(scope *types.Scope, fn *ast.FnDecl, sig *types.FunctionType) {
	fnScope := types.NewScope(types.FunctionScope, scope)
	for i, p := range fn.Params {
		if i >= len(sig.Args) {
			break
		}
		// "self" (p.Type == nil) is bound too: fnSignature already folded
		// its type (the enclosing impl/contract's Self) into sig.Args at the
		// same index.
		fnScope.Declare(p.Name, types.NewVariable(sig.Args[i], false, types.MemoryStack, i))
	}
	bodyT := a.checkBlock(fnScope, fn.Body)
	if !bodyT.Equal(sig.Return) {
		if !trailingIsLiteral(fn.Body) {
			loc, _ := fn.Body.Span()
			a.errs.add(TypeMismatch, loc, "function %s returns %s, body produces %s", fn.Name, sig.Return, bodyT)
		} else if _, ok := coerceLiteral(bodyT, sig.Return); !ok {
			loc, _ := fn.Body.Span()
			a.errs.add(TypeMismatch, loc, "function %s returns %s, body produces %s", fn.Name, sig.Return, bodyT)
		}
	}
}

// trailingIsLiteral reports whether body's tail expression is (or directly
// branches to) an untyped integer literal, so its width can still widen to
// the declared return type the same way a let binding's literal does.
func trailingIsLiteral(body *ast.Block) bool {
	if body.Tail == nil {
		return false
	}
	return exprIsLiteral(body.Tail)
}

func exprIsLiteral(e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.IntLiteralExpr:
		return true
	case *ast.IfExpr:
		if x.Else == nil {
			return false
		}
		return exprIsLiteral(lastExpr(x.Then.Block)) && exprIsLiteral(x.Else)
	case *ast.BlockExpr:
		return exprIsLiteral(lastExpr(x.Block))
	case *ast.MatchExpr:
		for _, arm := range x.Arms {
			if !exprIsLiteral(arm.Body) {
				return false
			}
		}
		return len(x.Arms) > 0
	default:
		return false
	}
}

func lastExpr(b *ast.Block) ast.Expr {
	if b.Tail == nil {
		return nil
	}
	return b.Tail
}
