package indicator

import (
	"github.com/quantforge/ruleback/internal/types"
)

// computeSMA calculates the simple moving average of closes. Undefined for
// indices before period-1.
func computeSMA(key Key, bars []types.Bar) (*Series, error) {
	period, err := intParam(key, 0)
	if err != nil {
		return nil, err
	}

	s := NewSeries(key, 1, len(bars))
	cs := closes(bars)

	var sum float64

	for i := range cs {
		sum += cs[i]
		if i >= period {
			sum -= cs[i-period]
		}

		if i >= period-1 {
			s.Lines[0].Set(i, sum/float64(period))
		}
	}

	return s, nil
}

// smaAt computes the arithmetic mean of values[i-period+1..i]. The caller
// guarantees i >= period-1.
func smaAt(values []float64, i, period int) float64 {
	var sum float64
	for j := i - period + 1; j <= i; j++ {
		sum += values[j]
	}

	return sum / float64(period)
}
