package indicator

import (
	"github.com/quantforge/ruleback/internal/types"
)

// computeEMA calculates the exponential moving average of closes, seeded by
// the first SMA(period) value. Undefined before the seed index period-1.
func computeEMA(key Key, bars []types.Bar) (*Series, error) {
	period, err := intParam(key, 0)
	if err != nil {
		return nil, err
	}

	s := NewSeries(key, 1, len(bars))
	emaLine(&s.Lines[0], closes(bars), period)

	return s, nil
}

// emaLine fills line with the EMA of values: seeded with SMA(period) at
// index period-1, then smoothed with k = 2/(period+1).
func emaLine(line *ValueLine, values []float64, period int) {
	if len(values) < period {
		return
	}

	k := 2.0 / float64(period+1)
	ema := smaAt(values, period-1, period)
	line.Set(period-1, ema)

	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*k + ema
		line.Set(i, ema)
	}
}
