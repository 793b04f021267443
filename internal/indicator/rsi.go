package indicator

import (
	"github.com/quantforge/ruleback/internal/types"
)

// computeRSI calculates Wilder's relative strength index over closes.
// The first defined value is at index period: that is the first index with
// period deltas behind it. Values lie in [0, 100].
func computeRSI(key Key, bars []types.Bar) (*Series, error) {
	period, err := intParam(key, 0)
	if err != nil {
		return nil, err
	}

	s := NewSeries(key, 1, len(bars))
	cs := closes(bars)

	if len(cs) <= period {
		return s, nil
	}

	var avgGain, avgLoss float64

	for i := 1; i <= period; i++ {
		delta := cs[i] - cs[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)
	s.Lines[0].Set(period, rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(cs); i++ {
		delta := cs[i] - cs[i-1]

		var gain, loss float64
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}

		// Wilder's smoothing
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		s.Lines[0].Set(i, rsiValue(avgGain, avgLoss))
	}

	return s, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss

	return 100 - 100/(1+rs)
}
