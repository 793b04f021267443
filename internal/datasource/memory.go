package datasource

import (
	"context"
	"sort"
	"time"

	"github.com/quantforge/ruleback/internal/types"
)

// MemorySource is an in-memory BarSource, used in tests and for callers
// that already hold their history.
type MemorySource struct {
	bars map[string][]types.Bar
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		bars: make(map[string][]types.Bar),
	}
}

// Add stores bars for one instrument, replacing any previous series. Bars
// are kept sorted ascending by date.
func (m *MemorySource) Add(code string, bars []types.Bar) {
	sorted := make([]types.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	m.bars[code] = sorted
}

// FetchBars implements BarSource.
func (m *MemorySource) FetchBars(_ context.Context, code, _ string, start, end time.Time) ([]types.Bar, error) {
	var out []types.Bar

	for _, bar := range m.bars[code] {
		if !start.IsZero() && bar.Date.Before(start) {
			continue
		}

		if !end.IsZero() && bar.Date.After(end) {
			continue
		}

		out = append(out, bar)
	}

	return out, nil
}

// ListSymbols implements BarSource.
func (m *MemorySource) ListSymbols(_ context.Context, _ string) ([]string, error) {
	codes := make([]string, 0, len(m.bars))
	for code := range m.bars {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	return codes, nil
}

// Close implements BarSource.
func (m *MemorySource) Close() error {
	return nil
}
