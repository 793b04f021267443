package datasource

import (
	"os"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/quantforge/ruleback/internal/types"
	"github.com/quantforge/ruleback/pkg/errors"
)

// csvDate parses the date column in "2006-01-02" form.
type csvDate struct {
	time.Time
}

// UnmarshalCSV implements gocsv field unmarshaling.
func (d *csvDate) UnmarshalCSV(value string) error {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return err
	}

	d.Time = t

	return nil
}

// MarshalCSV implements gocsv field marshaling.
func (d csvDate) MarshalCSV() (string, error) {
	return d.Format("2006-01-02"), nil
}

type csvBar struct {
	Code     string  `csv:"code"`
	Exchange string  `csv:"exchange"`
	Date     csvDate `csv:"date"`
	Open     float64 `csv:"open"`
	High     float64 `csv:"high"`
	Low      float64 `csv:"low"`
	Close    float64 `csv:"close"`
	Volume   int64   `csv:"volume"`
}

// LoadBarsCSV reads one instrument's bars from a CSV file with columns
// code,exchange,date,open,high,low,close,volume. Rows come back sorted
// ascending by date.
func LoadBarsCSV(path string) ([]types.Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeSourceUnavailable, err, "failed to open %s", path)
	}
	defer file.Close()

	var records []*csvBar
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to parse %s", path)
	}

	bars := make([]types.Bar, len(records))
	for i, r := range records {
		bars[i] = types.Bar{
			Code:     r.Code,
			Exchange: r.Exchange,
			Date:     r.Date.Time,
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			Volume:   r.Volume,
		}
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	return bars, nil
}
