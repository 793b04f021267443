package datasource

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quantforge/ruleback/internal/logger"
	"github.com/quantforge/ruleback/internal/types"
	"github.com/quantforge/ruleback/pkg/errors"
)

// UniverseEntry is one validated instrument and its loaded history.
type UniverseEntry struct {
	Code     string
	Exchange string
	Bars     []types.Bar
}

// LoadUniverse fetches and validates history for a candidate code list.
// Instruments with no data or fewer than minBars bars are reported and
// excluded; a fetch failure likewise excludes only that instrument. The
// load fails outright only when no instrument survives. Order of the
// returned entries follows the candidate order, which keeps downstream
// simulation deterministic.
func LoadUniverse(ctx context.Context, source BarSource, exchange string, codes []string, start, end time.Time, minBars int, log *logger.Logger) ([]UniverseEntry, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if len(codes) == 0 {
		return nil, errors.New(errors.ErrCodeNullInput, "no candidate codes")
	}

	var universe []UniverseEntry

	for _, code := range codes {
		bars, err := source.FetchBars(ctx, code, exchange, start, end)
		if err != nil {
			log.Warn("instrument excluded: fetch failed",
				zap.String("code", code),
				zap.Error(err),
			)

			continue
		}

		if len(bars) == 0 {
			log.Warn("instrument excluded: no data", zap.String("code", code))

			continue
		}

		if len(bars) < minBars {
			log.Warn("instrument excluded: insufficient history",
				zap.String("code", code),
				zap.Error(errors.NewInsufficientDataError(minBars, len(bars), code, "below minimum bar count")),
			)

			continue
		}

		universe = append(universe, UniverseEntry{
			Code:     code,
			Exchange: exchange,
			Bars:     bars,
		})
	}

	if len(universe) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyUniverse, "no instruments passed universe validation")
	}

	return universe, nil
}
