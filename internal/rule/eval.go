package rule

import (
	"github.com/quantforge/ruleback/internal/indicator"
	"github.com/quantforge/ruleback/internal/types"
)

// Evaluate resolves the compiled rule at a single bar index. The contract
// is pure boolean: a comparison whose operands include an undefined value
// is false, never undefined, so an indicator still inside its warm-up
// window can never trigger a transition. Evaluation is side-effect free and
// reads bar indices <= i only.
func Evaluate(r *Rule, bars []types.Bar, table *indicator.Table, i int) bool {
	if r == nil || r.Root == nil {
		return false
	}

	return evalNode(r.Root, bars, table, i)
}

func evalNode(n *Node, bars []types.Bar, table *indicator.Table, i int) bool {
	if i < 0 || i >= len(bars) {
		return false
	}

	switch n.Kind {
	case NodeAbove:
		a, aok := n.Left.Value(bars, table, i)
		b, bok := n.Right.Value(bars, table, i)

		return aok && bok && a > b
	case NodeBelow:
		a, aok := n.Left.Value(bars, table, i)
		b, bok := n.Right.Value(bars, table, i)

		return aok && bok && a < b
	case NodeEquals:
		// Exact equality; strategy authors needing tolerance use BETWEEN.
		a, aok := n.Left.Value(bars, table, i)
		b, bok := n.Right.Value(bars, table, i)

		return aok && bok && a == b
	case NodeBetween:
		v, ok := n.Left.Value(bars, table, i)

		return ok && n.Lo <= v && v <= n.Hi
	case NodeCrossAbove:
		return evalCross(n, bars, table, i, true)
	case NodeCrossBelow:
		return evalCross(n, bars, table, i, false)
	case NodeAnd:
		for _, child := range n.Children {
			if !evalNode(child, bars, table, i) {
				return false
			}
		}

		return true
	case NodeOr:
		for _, child := range n.Children {
			if evalNode(child, bars, table, i) {
				return true
			}
		}

		return false
	case NodeNot:
		return !evalNode(n.Children[0], bars, table, i)
	case NodeConsecutive:
		// Child must hold at every one of the trailing Window indices
		// ending at i; false when the series is too short.
		if i-n.Window+1 < 0 {
			return false
		}

		for j := i - n.Window + 1; j <= i; j++ {
			if !evalNode(n.Children[0], bars, table, j) {
				return false
			}
		}

		return true
	case NodeAnyOf:
		start := i - n.Window + 1
		if start < 0 {
			start = 0
		}

		for j := start; j <= i; j++ {
			if evalNode(n.Children[0], bars, table, j) {
				return true
			}
		}

		return false
	default:
		return false
	}
}

// evalCross implements CROSS_ABOVE/CROSS_BELOW: false at index 0 or when
// either side is undefined at i or i-1. A cross above requires
// a(i-1) <= b(i-1) and a(i) > b(i); cross below mirrors it.
func evalCross(n *Node, bars []types.Bar, table *indicator.Table, i int, above bool) bool {
	if i == 0 {
		return false
	}

	aPrev, ok1 := n.Left.Value(bars, table, i-1)
	bPrev, ok2 := n.Right.Value(bars, table, i-1)
	aCur, ok3 := n.Left.Value(bars, table, i)
	bCur, ok4 := n.Right.Value(bars, table, i)

	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}

	if above {
		return aPrev <= bPrev && aCur > bCur
	}

	return aPrev >= bPrev && aCur < bCur
}
