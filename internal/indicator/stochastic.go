package indicator

import (
	"github.com/quantforge/ruleback/internal/types"
)

// computeStochastic calculates the stochastic oscillator: %K from the
// trailing high/low range over period bars, %D as an SMA(smoothing) of %K.
// A zero high/low range leaves %K undefined at that index rather than
// dividing by zero; a %D window touching an undefined %K stays undefined.
func computeStochastic(key Key, bars []types.Bar) (*Series, error) {
	period, err := intParam(key, 0)
	if err != nil {
		return nil, err
	}

	smoothing, err := intParam(key, 1)
	if err != nil {
		return nil, err
	}

	s := NewSeries(key, 2, len(bars))

	for i := period - 1; i < len(bars); i++ {
		highest := bars[i].High
		lowest := bars[i].Low

		for j := i - period + 1; j <= i; j++ {
			if bars[j].High > highest {
				highest = bars[j].High
			}

			if bars[j].Low < lowest {
				lowest = bars[j].Low
			}
		}

		if highest == lowest {
			continue
		}

		s.Lines[LineStochasticK].Set(i, (bars[i].Close-lowest)/(highest-lowest)*100)
	}

	for i := period + smoothing - 2; i < len(bars); i++ {
		var sum float64

		ok := true

		for j := i - smoothing + 1; j <= i; j++ {
			v, defined := s.Lines[LineStochasticK].Value(j)
			if !defined {
				ok = false

				break
			}

			sum += v
		}

		if ok {
			s.Lines[LineStochasticD].Set(i, sum/float64(smoothing))
		}
	}

	return s, nil
}
