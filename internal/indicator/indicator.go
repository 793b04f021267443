// Package indicator computes derived numeric series from raw bar series.
// Every computation is a pure function of its inputs: one output slot per
// bar index, with indices before the warm-up window holding an explicit
// undefined marker rather than a fabricated number.
package indicator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quantforge/ruleback/internal/types"
	"github.com/quantforge/ruleback/pkg/errors"
)

// Kind identifies an indicator family.
type Kind string

const (
	KindSMA        Kind = "sma"
	KindEMA        Kind = "ema"
	KindRSI        Kind = "rsi"
	KindMACD       Kind = "macd"
	KindBollinger  Kind = "bollinger"
	KindStochastic Kind = "stochastic"
	KindPivot      Kind = "pivot"
)

// Key is the composite signature of a computed series: kind plus parameters.
// Two rules referencing the same signature share one series per instrument.
type Key struct {
	Kind   Kind
	Params []float64
}

// String renders the signature in the canonical "kind(p1,p2)" form used as
// the table lookup key.
func (k Key) String() string {
	if len(k.Params) == 0 {
		return string(k.Kind)
	}

	parts := make([]string, len(k.Params))
	for i, p := range k.Params {
		parts[i] = strconv.FormatFloat(p, 'g', -1, 64)
	}

	return fmt.Sprintf("%s(%s)", k.Kind, strings.Join(parts, ","))
}

// intParam reads params[i] as a positive integer period.
func intParam(k Key, i int) (int, error) {
	if i >= len(k.Params) {
		return 0, errors.Newf(errors.ErrCodeInvalidArity, "indicator %s: missing parameter %d", k.Kind, i)
	}

	period := int(k.Params[i])
	if period <= 0 || float64(period) != k.Params[i] {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "indicator %s: parameter %d must be a positive integer, got %g", k.Kind, i, k.Params[i])
	}

	return period, nil
}

// Compute calculates the series identified by key over the given bars.
// Enumerated kinds dispatch to their builtin implementations; anything else
// falls back to the registry's generic kind+period dispatch. Unknown kinds
// are a caller error.
func Compute(key Key, bars []types.Bar, registry *Registry) (*Series, error) {
	switch key.Kind {
	case KindSMA:
		return computeSMA(key, bars)
	case KindEMA:
		return computeEMA(key, bars)
	case KindRSI:
		return computeRSI(key, bars)
	case KindMACD:
		return computeMACD(key, bars)
	case KindBollinger:
		return computeBollinger(key, bars)
	case KindStochastic:
		return computeStochastic(key, bars)
	case KindPivot:
		return computePivot(key, bars)
	}

	if registry != nil {
		if fn, ok := registry.Lookup(key.Kind); ok {
			period, err := intParam(key, 0)
			if err != nil {
				return nil, err
			}

			return fn(key, period, bars)
		}
	}

	return nil, errors.Newf(errors.ErrCodeUnknownIndicator, "unknown indicator kind %q", key.Kind)
}

// closes extracts the close column from a bar series.
func closes(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}

	return out
}
