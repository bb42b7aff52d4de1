package semantic

import (
	"github.com/zinc-lang/zinc/lang/ast"
	"github.com/zinc-lang/zinc/lang/types"
)

// checkBlock opens a child Block scope, checks every statement, and returns
// the type of the trailing expression (or Unit if there is none).
func (a *Analyzer) checkBlock(parent *types.Scope, b *ast.Block) types.Type {
	scope := types.NewScope(types.BlockScope, parent)
	for _, s := range b.Stmts {
		a.checkStmt(scope, s)
	}
	if b.Tail != nil {
		return a.checkExpr(scope, b.Tail)
	}
	return types.UnitType{}
}

func (a *Analyzer) checkStmt(scope *types.Scope, stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		a.checkLet(scope, s)
	case *ast.ConstStmt:
		a.checkLocalConst(scope, s)
	case *ast.ExprStmt:
		a.checkExpr(scope, s.X)
	case *ast.ForStmt:
		a.checkFor(scope, s)
	case *ast.BadStmt, *ast.EmptyStmt:
		// nothing to check
	default:
		loc, _ := stmt.Span()
		a.errs.add(TypeMismatch, loc, "unsupported statement %T", stmt)
	}
}

func (a *Analyzer) checkLet(scope *types.Scope, s *ast.LetStmt) {
	vt := a.checkExpr(scope, s.Value)
	if s.Type != nil {
		declared := a.resolveType(scope, s.Type)
		if !vt.Equal(declared) {
			if coerced, ok := coerceLiteral(vt, declared); ok {
				vt = coerced
			} else {
				a.errs.add(IntegerTypeMismatch, s.NameLoc, "let %s: expected %s, found %s", s.Name, declared, vt)
			}
		}
	}
	v := types.NewVariable(vt, s.Mut, types.MemoryStack, 0)
	if !scope.Declare(s.Name, v) {
		a.errs.add(RedeclaredItem, s.NameLoc, "%q already declared in this scope", s.Name)
	}
}

// coerceLiteral implements the literal-coercion half of §4.4's integer
// inference rule: an inferred-width integer constant silently widens to a
// same-signedness sized target it fits inside.
func coerceLiteral(inferred, declared types.Type) (types.Type, bool) {
	if !types.IsInteger(inferred.Kind()) {
		return nil, false
	}
	// An unsigned literal also folds into a field element: field is wider
	// than any integer type, so every literal that type-checked as an
	// integer fits.
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

func (a *Analyzer) checkLocalConst(scope *types.Scope, s *ast.ConstStmt) {
	declared := a.resolveType(scope, s.Type)
	cv, err := a.evalConst(scope, s.Value)
	if err != nil {
		a.errs.add(ConstantExpectedConstant, s.NameLoc, "const %s: %v", s.Name, err)
	} else if !cv.Type.Equal(declared) {
		if _, ok := coerceLiteral(cv.Type, declared); !ok {
			a.errs.add(TypeMismatch, s.NameLoc, "const %s: expected %s, found %s", s.Name, declared, cv.Type)
		}
	}
	c := types.NewConstant(cv, declared)
	if !scope.Declare(s.Name, c) {
		a.errs.add(RedeclaredItem, s.NameLoc, "%q already declared in this scope", s.Name)
	}
}

func (a *Analyzer) checkFor(parent *types.Scope, s *ast.ForStmt) {
	startT := a.checkExpr(parent, s.Bound.Start)
	endT := a.checkExpr(parent, s.Bound.End)
	if !startT.Equal(endT) || !types.IsInteger(startT.Kind()) {
		a.errs.add(TypeMismatch, s.Start, "for loop bounds must be two integers of equal type")
	}
	if _, err := a.evalConstInt(parent, s.Bound.Start); err != nil {
		a.errs.add(LoopBoundsExpectedConstantRangeExpression, s.Start, "for loop bounds must be constant: %v", err)
	}
	if _, err := a.evalConstInt(parent, s.Bound.End); err != nil {
		a.errs.add(LoopBoundsExpectedConstantRangeExpression, s.Start, "for loop bounds must be constant: %v", err)
	}

	scope := types.NewScope(types.LoopScope, parent)
	scope.Declare(s.Index, types.NewVariable(startT, false, types.MemoryStack, 0))

	if s.WhileCond != nil {
		ct := a.checkExpr(scope, s.WhileCond)
		if _, ok := ct.(types.BoolType); !ok {
			loc, _ := s.WhileCond.Span()
			a.errs.add(LoopWhileExpectedBooleanCondition, loc, "while guard must be bool, found %s", ct)
		}
	}
	for _, st := range s.Body.Stmts {
		a.checkStmt(scope, st)
	}
	if s.Body.Tail != nil {
		a.checkExpr(scope, s.Body.Tail)
	}
}
