package semantic

import (
	"strconv"

	"github.com/zinc-lang/zinc/internal/fileset"
	"github.com/zinc-lang/zinc/lang/ast"
	"github.com/zinc-lang/zinc/lang/types"
)

// checkMatch implements match exhaustiveness checking (§4.4): the analyzer
// tracks, per match, a set of covered values against the scrutinee's
// enumerating type (bool, an enumeration, or unbounded integer requiring a
// wildcard).
func (a *Analyzer) checkMatch(scope *types.Scope, e *ast.MatchExpr) types.Type {
	scrutT := a.checkExpr(scope, e.Scrutinee)

	covered := map[string]bool{}
	hasWildcard := false
	var resultT types.Type
	first := true

	for _, arm := range e.Arms {
		if arm.Pattern == nil {
			if hasWildcard {
				a.errs.add(MatchBranchDuplicate, armLoc(arm), "duplicate wildcard arm")
			}
			hasWildcard = true
		} else {
			v, err := a.evalConst(scope, arm.Pattern)
			if err != nil {
				a.errs.add(ExpressionNonConstantElement, armLoc(arm), "match pattern must be constant: %v", err)
			} else {
				key := patternKey(v)
				if covered[key] {
					a.errs.add(MatchBranchDuplicate, armLoc(arm), "unreachable arm: value already covered")
				}
				covered[key] = true
			}
		}

		bodyT := a.checkExpr(scope, arm.Body)
		if first {
			resultT = bodyT
			first = false
		} else if !bodyT.Equal(resultT) {
			a.errs.add(ConditionalBranchTypesMismatch, armLoc(arm), "match arms have different types: %s vs %s", resultT, bodyT)
		}
	}

	switch t := scrutT.(type) {
	case types.BoolType:
		if !hasWildcard && !(covered["0"] && covered["1"]) {
			a.errs.add(MatchNotExhausted, e.Start, "match on bool must cover both true and false, or include a wildcard")
		}
	case *types.EnumerationType:
		if !hasWildcard {
			for _, v := range t.Variants {
				if !covered[variantKey(v.Value)] {
					a.errs.add(MatchNotExhausted, e.Start, "match on %s does not cover variant %q", t.Name, v.Name)
				}
			}
		}
	default:
		if types.IsInteger(scrutT.Kind()) && !hasWildcard {
			a.errs.add(MatchNotExhausted, e.Start, "match on an integer type requires a wildcard arm")
		}
	}

	if resultT == nil {
		return types.UnitType{}
	}
	return resultT
}

func armLoc(arm ast.MatchArm) fileset.Location {
	if arm.Pattern != nil {
		loc, _ := arm.Pattern.Span()
		return loc
	}
	loc, _ := arm.Body.Span()
	return loc
}

func patternKey(v constValue) string {
	if v.Int != nil {
		return v.Int.String()
	}
	if v.Bool {
		return "1"
	}
	return "0"
}

func variantKey(v int64) string {
	return strconv.FormatInt(v, 10)
}
