// Package rule implements the condition-tree language for trading
// strategies: a call-style textual grammar compiled once per strategy into
// an immutable tree, and an evaluator over precomputed indicator series.
package rule

import (
	"github.com/quantforge/ruleback/internal/indicator"
	"github.com/quantforge/ruleback/internal/types"
)

// NodeKind enumerates the condition-tree node variants. The tree is a
// tagged variant carrying kind-specific fields, not a class hierarchy.
type NodeKind int

const (
	NodeAbove NodeKind = iota
	NodeBelow
	NodeEquals
	NodeBetween
	NodeCrossAbove
	NodeCrossBelow
	NodeAnd
	NodeOr
	NodeNot
	NodeConsecutive
	NodeAnyOf
)

// Node is one immutable condition-tree node. Leaf kinds use Left/Right
// (plus Lo/Hi for BETWEEN); combinator kinds use Children and Window.
type Node struct {
	Kind NodeKind

	// Leaf comparisons
	Left  Operand
	Right Operand
	// BETWEEN bounds, inclusive
	Lo float64
	Hi float64

	// Combinators
	Children []*Node
	// Window is the trailing bar count for CONSECUTIVE and ANY_OF.
	Window int
}

// OperandKind enumerates what a comparison side can reference.
type OperandKind int

const (
	OperandField OperandKind = iota
	OperandNumber
	OperandIndicator
)

// Operand is a raw bar field, a numeric literal, or a reference to one
// output line of an indicator series.
type Operand struct {
	Kind   OperandKind
	Field  types.BarField
	Number float64
	// Key identifies the indicator series; Line selects the output column
	// (e.g. the signal line of a MACD series).
	Key  indicator.Key
	Line int
}

// Value resolves the operand at bar index i. A reference to an undefined
// indicator slot, a missing series, or an out-of-range index resolves to
// undefined (ok=false).
func (o Operand) Value(bars []types.Bar, table *indicator.Table, i int) (float64, bool) {
	if i < 0 || i >= len(bars) {
		return 0, false
	}

	switch o.Kind {
	case OperandNumber:
		return o.Number, true
	case OperandField:
		return bars[i].FieldValue(o.Field), true
	case OperandIndicator:
		series, ok := table.Get(o.Key)
		if !ok {
			return 0, false
		}

		return series.Value(o.Line, i)
	default:
		return 0, false
	}
}

// Rule is a compiled strategy condition: the immutable tree plus the set of
// indicator signatures the tree references, so callers can precompute
// exactly the series one evaluation pass needs.
type Rule struct {
	Text string
	Root *Node
	Keys []indicator.Key
}
