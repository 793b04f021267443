package indicator

import (
	"github.com/quantforge/ruleback/internal/types"
)

// computeMACD calculates the MACD line (fast EMA minus slow EMA) and its
// signal line (EMA of the MACD line). The MACD line is defined once the
// slow EMA seed is available; the signal line needs a further signal-period
// worth of MACD values on top of that.
func computeMACD(key Key, bars []types.Bar) (*Series, error) {
	fast, err := intParam(key, 0)
	if err != nil {
		return nil, err
	}

	slow, err := intParam(key, 1)
	if err != nil {
		return nil, err
	}

	signal, err := intParam(key, 2)
	if err != nil {
		return nil, err
	}

	s := NewSeries(key, 2, len(bars))
	cs := closes(bars)

	fastLine := NewValueLine(len(cs))
	slowLine := NewValueLine(len(cs))
	emaLine(&fastLine, cs, fast)
	emaLine(&slowLine, cs, slow)

	for i := range cs {
		fv, fok := fastLine.Value(i)
		sv, sok := slowLine.Value(i)

		if fok && sok {
			s.Lines[LineMACD].Set(i, fv-sv)
		}
	}

	// The signal line is an EMA over the defined stretch of the MACD line,
	// re-anchored at the MACD line's first defined index.
	start := slow - 1
	if start >= len(cs) {
		return s, nil
	}

	macdValues := make([]float64, 0, len(cs)-start)
	for i := start; i < len(cs); i++ {
		v, ok := s.Lines[LineMACD].Value(i)
		if !ok {
			break
		}

		macdValues = append(macdValues, v)
	}

	signalLine := NewValueLine(len(macdValues))
	emaLine(&signalLine, macdValues, signal)

	for j := range macdValues {
		if v, ok := signalLine.Value(j); ok {
			s.Lines[LineMACDSignal].Set(start+j, v)
		}
	}

	return s, nil
}
