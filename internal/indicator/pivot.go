package indicator

import (
	"github.com/quantforge/ruleback/internal/types"
	"github.com/quantforge/ruleback/pkg/errors"
)

// computePivot calculates the classic pivot point from the single prior
// bar's high, low and close. Undefined on the first bar; takes no
// parameters.
func computePivot(key Key, bars []types.Bar) (*Series, error) {
	if len(key.Params) != 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidArity, "pivot takes no parameters, got %d", len(key.Params))
	}

	s := NewSeries(key, 1, len(bars))

	for i := 1; i < len(bars); i++ {
		prev := bars[i-1]
		s.Lines[0].Set(i, (prev.High+prev.Low+prev.Close)/3)
	}

	return s, nil
}
