package indicator

import (
	"math"

	"github.com/quantforge/ruleback/internal/types"
)

// computeBollinger calculates Bollinger bands: SMA(period) plus/minus
// multiplier times the trailing population standard deviation of closes.
// All three lines are defined from index period-1.
func computeBollinger(key Key, bars []types.Bar) (*Series, error) {
	period, err := intParam(key, 0)
	if err != nil {
		return nil, err
	}

	multiplier := 2.0
	if len(key.Params) > 1 {
		multiplier = key.Params[1]
	}

	s := NewSeries(key, 3, len(bars))
	cs := closes(bars)

	for i := period - 1; i < len(cs); i++ {
		mean := smaAt(cs, i, period)

		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := cs[j] - mean
			variance += d * d
		}

		// population standard deviation over the window
		sd := math.Sqrt(variance / float64(period))

		s.Lines[LineBollingerUpper].Set(i, mean+multiplier*sd)
		s.Lines[LineBollingerMiddle].Set(i, mean)
		s.Lines[LineBollingerLower].Set(i, mean-multiplier*sd)
	}

	return s, nil
}
