package indicator

import (
	"github.com/quantforge/ruleback/internal/types"
)

// Line indices for multi-output kinds. Single-output kinds use line 0.
const (
	LineMACD       = 0
	LineMACDSignal = 1

	LineBollingerUpper  = 0
	LineBollingerMiddle = 1
	LineBollingerLower  = 2

	LineStochasticK = 0
	LineStochasticD = 1
)

// ValueLine is one output column of a series: a value per bar index plus a
// per-index defined flag. Slots before the warm-up window stay undefined.
type ValueLine struct {
	values  []float64
	defined []bool
}

// NewValueLine allocates an all-undefined line of the given length.
func NewValueLine(n int) ValueLine {
	return ValueLine{
		values:  make([]float64, n),
		defined: make([]bool, n),
	}
}

// Set marks index i defined with the given value.
func (l *ValueLine) Set(i int, v float64) {
	l.values[i] = v
	l.defined[i] = true
}

// Value returns (value, true) when index i is defined, (0, false) otherwise.
// Out-of-range indices are undefined.
func (l *ValueLine) Value(i int) (float64, bool) {
	if i < 0 || i >= len(l.values) {
		return 0, false
	}

	if !l.defined[i] {
		return 0, false
	}

	return l.values[i], true
}

// Len returns the number of slots in the line.
func (l *ValueLine) Len() int {
	return len(l.values)
}

// Series is the computed output of one indicator signature over one bar
// series, aligned 1:1 with its source bars.
type Series struct {
	Key   Key
	Lines []ValueLine
}

// NewSeries allocates a series with the given number of output lines, each
// sized to n all-undefined slots.
func NewSeries(key Key, lines, n int) *Series {
	s := &Series{
		Key:   key,
		Lines: make([]ValueLine, lines),
	}
	for i := range s.Lines {
		s.Lines[i] = NewValueLine(n)
	}

	return s
}

// Value returns the value of the given line at bar index i.
func (s *Series) Value(line, i int) (float64, bool) {
	if line < 0 || line >= len(s.Lines) {
		return 0, false
	}

	return s.Lines[line].Value(i)
}

// Len returns the series length (equal to the source bar count).
func (s *Series) Len() int {
	if len(s.Lines) == 0 {
		return 0
	}

	return s.Lines[0].Len()
}

// Table owns the computed series for one instrument during one run, keyed
// by signature. Each run builds its own table; nothing is shared or cached
// across runs.
type Table struct {
	series map[string]*Series
}

// NewTable creates an empty indicator table.
func NewTable() *Table {
	return &Table{
		series: make(map[string]*Series),
	}
}

// Get retrieves a computed series by signature.
func (t *Table) Get(key Key) (*Series, bool) {
	s, ok := t.series[key.String()]

	return s, ok
}

// Put stores a computed series under its signature.
func (t *Table) Put(s *Series) {
	t.series[s.Key.String()] = s
}

// Ensure returns the series for key, computing and storing it on first use.
func (t *Table) Ensure(key Key, bars []types.Bar, registry *Registry) (*Series, error) {
	if s, ok := t.Get(key); ok {
		return s, nil
	}

	s, err := Compute(key, bars, registry)
	if err != nil {
		return nil, err
	}

	t.Put(s)

	return s, nil
}

// Len returns the number of distinct series in the table.
func (t *Table) Len() int {
	return len(t.series)
}
