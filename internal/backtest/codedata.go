package backtest

import (
	"time"

	"github.com/quantforge/ruleback/internal/indicator"
	"github.com/quantforge/ruleback/internal/types"
	"github.com/quantforge/ruleback/pkg/errors"
)

// CodeData is the per-instrument bundle for one run: the bar series, the
// computed indicator table, and a date-to-index lookup for O(1) per-date
// access. All of it is scoped to the run and released as a unit.
type CodeData struct {
	Code       string
	Exchange   string
	Bars       []types.Bar
	Indicators *indicator.Table

	dateIndex map[time.Time]int
}

// NewCodeData builds the bundle and its date index. Bars must be ordered
// ascending by date with no duplicate dates.
func NewCodeData(code, exchange string, bars []types.Bar) (*CodeData, error) {
	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoData, "no bars for %s", code)
	}

	index := make(map[time.Time]int, len(bars))

	var prev time.Time

	for i, bar := range bars {
		day := types.Day(bar.Date)
		if i > 0 && !day.After(prev) {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
				"%s: bars out of order or duplicated at %s", code, day.Format("2006-01-02"))
		}

		index[day] = i
		prev = day
	}

	return &CodeData{
		Code:       code,
		Exchange:   exchange,
		Bars:       bars,
		Indicators: indicator.NewTable(),
		dateIndex:  index,
	}, nil
}

// BarIndexOn returns the bar index for a timeline date, if the instrument
// traded that day.
func (c *CodeData) BarIndexOn(date time.Time) (int, bool) {
	i, ok := c.dateIndex[types.Day(date)]

	return i, ok
}

// ComputeIndicators fills the indicator table with the series for every
// given signature. Series already present are kept.
func (c *CodeData) ComputeIndicators(keys []indicator.Key, registry *indicator.Registry) error {
	for _, key := range keys {
		if _, err := c.Indicators.Ensure(key, c.Bars, registry); err != nil {
			return errors.Wrapf(errors.ErrCodeIndicatorCalculation, err,
				"failed to compute %s for %s", key.String(), c.Code)
		}
	}

	return nil
}
