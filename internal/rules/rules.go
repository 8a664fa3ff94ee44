// Package rules compiles and evaluates an IdeaCard's boolean rule trees
// (spec §6, consumed by component C9) against a runtime snapshot view.
// cross_above/cross_below need the previous bar's comparison, so
// evaluation reads each FeatureRef at its declared offset and at that
// offset plus one.
package rules

import (
	"github.com/cryptorun/btcore/internal/corerr"
	"github.com/cryptorun/btcore/internal/ideacard"
	"github.com/cryptorun/btcore/internal/snapshot"
)

func toSnapshotRef(r ideacard.FeatureRef) snapshot.FeatureRef {
	return snapshot.FeatureRef{Key: r.Key, Role: r.Role, Offset: r.Offset}
}

// Eval evaluates a RuleExpr tree against view at the current bar. A nil
// expr evaluates to false (an IdeaCard with no entry_short, for
// instance, never fires the short side).
func Eval(expr *ideacard.RuleExpr, view *snapshot.View) (bool, error) {
	if expr == nil {
		return false, nil
	}
	switch expr.Kind {
	case ideacard.RuleAnd:
		for _, child := range expr.Children {
			ok, err := Eval(child, view)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case ideacard.RuleOr:
		for _, child := range expr.Children {
			ok, err := Eval(child, view)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case ideacard.RuleNot:
		if len(expr.Children) != 1 {
			return false, corerr.New(corerr.RuleCompileError, "not-node requires exactly one child")
		}
		ok, err := Eval(expr.Children[0], view)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case ideacard.RuleLeaf:
		if expr.Cond == nil {
			return false, corerr.New(corerr.RuleCompileError, "cond-node missing condition")
		}
		return evalCondition(expr.Cond, view)
	default:
		return false, corerr.Newf(corerr.RuleCompileError, "unknown rule expr kind %q", expr.Kind)
	}
}

func evalCondition(c *ideacard.Condition, view *snapshot.View) (bool, error) {
	if c.Op == ideacard.OpCrossAbove || c.Op == ideacard.OpCrossBelow {
		return evalCross(c, view)
	}

	left, err := view.Get(toSnapshotRef(c.Left))
	if err != nil {
		return false, err
	}
	right, err := rightValue(c, view, 0)
	if err != nil {
		return false, err
	}
	return compare(c.Op, left, right)
}

// evalCross compares left-minus-right at offset 0 against offset 1 to
// detect a sign change: cross_above requires prev<=0 and curr>0;
// cross_below requires prev>=0 and curr<0.
func evalCross(c *ideacard.Condition, view *snapshot.View) (bool, error) {
	leftNow, err := view.Get(offsetRef(c.Left, 0))
	if err != nil {
		return false, err
	}
	leftPrev, err := view.Get(offsetRef(c.Left, 1))
	if err != nil {
		return false, err
	}
	rightNow, err := rightValue(c, view, 0)
	if err != nil {
		return false, err
	}
	rightPrev, err := rightValue(c, view, 1)
	if err != nil {
		return false, err
	}

	diffNow := leftNow - rightNow
	diffPrev := leftPrev - rightPrev

	if c.Op == ideacard.OpCrossAbove {
		return diffPrev <= 0 && diffNow > 0, nil
	}
	return diffPrev >= 0 && diffNow < 0, nil
}

func offsetRef(ref ideacard.FeatureRef, extra int) snapshot.FeatureRef {
	return snapshot.FeatureRef{Key: ref.Key, Role: ref.Role, Offset: ref.Offset + extra}
}

func rightValue(c *ideacard.Condition, view *snapshot.View, extraOffset int) (float64, error) {
	if c.RightConst != nil {
		return *c.RightConst, nil
	}
	if c.RightFeature != nil {
		return view.Get(offsetRef(*c.RightFeature, extraOffset))
	}
	return 0, corerr.New(corerr.RuleCompileError, "condition has neither right_const nor right_feature")
}

func compare(op ideacard.Operator, left, right float64) (bool, error) {
	switch op {
	case ideacard.OpGT:
		return left > right, nil
	case ideacard.OpLT:
		return left < right, nil
	case ideacard.OpGE:
		return left >= right, nil
	case ideacard.OpLE:
		return left <= right, nil
	case ideacard.OpEQ:
		return left == right, nil
	default:
		return false, corerr.Newf(corerr.RuleCompileError, "unsupported scalar operator %q", op)
	}
}
