package types

import "time"

// Bar is one instrument's OHLCV record for a single trading day.
// Bars are immutable once loaded.
type Bar struct {
	Code     string    `csv:"code" yaml:"code"`
	Exchange string    `csv:"exchange" yaml:"exchange"`
	Date     time.Time `csv:"date" yaml:"date"`
	Open     float64   `csv:"open" yaml:"open"`
	High     float64   `csv:"high" yaml:"high"`
	Low      float64   `csv:"low" yaml:"low"`
	Close    float64   `csv:"close" yaml:"close"`
	Volume   int64     `csv:"volume" yaml:"volume"`
}

// BarField identifies a raw field of a Bar that a rule operand can reference.
type BarField string

const (
	BarFieldOpen   BarField = "open"
	BarFieldHigh   BarField = "high"
	BarFieldLow    BarField = "low"
	BarFieldClose  BarField = "close"
	BarFieldVolume BarField = "volume"
)

// FieldValue returns the value of the given raw field.
func (b Bar) FieldValue(field BarField) float64 {
	switch field {
	case BarFieldOpen:
		return b.Open
	case BarFieldHigh:
		return b.High
	case BarFieldLow:
		return b.Low
	case BarFieldClose:
		return b.Close
	case BarFieldVolume:
		return float64(b.Volume)
	default:
		return 0
	}
}

// Day truncates a timestamp to day granularity in UTC. All timeline
// bookkeeping uses day-truncated times so bars from different feeds with
// different intraday timestamps land on the same timeline date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PriceMap maps an instrument code to its price on a given timeline date.
type PriceMap map[string]float64
