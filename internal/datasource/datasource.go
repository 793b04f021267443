// Package datasource supplies bar history to the simulation kernel. The
// kernel only depends on the BarSource interface; the DuckDB, CSV and
// in-memory implementations here are interchangeable collaborators.
package datasource

import (
	"context"
	"time"

	"github.com/quantforge/ruleback/internal/types"
)

// BarSource fetches daily bar history for instruments. An empty result is
// "no data", not an error; implementations return errors only for
// connection or query failures.
type BarSource interface {
	// FetchBars returns the bars for one instrument ordered ascending by
	// date, bounded inclusively by start and end (zero times mean
	// unbounded).
	FetchBars(ctx context.Context, code, exchange string, start, end time.Time) ([]types.Bar, error)
	// ListSymbols returns the distinct codes available for an exchange.
	ListSymbols(ctx context.Context, exchange string) ([]string, error)
	// Close releases any resources held by the source.
	Close() error
}
