package types

import "time"

// Side is the direction of a position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Position is one open holding. Quantity is signed: positive for long,
// negative for short. Positions are owned exclusively by the Portfolio;
// they are created on entry and converted to a ClosedTrade on exit.
type Position struct {
	Code       string    `yaml:"code"`
	Exchange   string    `yaml:"exchange"`
	Side       Side      `yaml:"side"`
	Quantity   float64   `yaml:"quantity"`
	EntryPrice float64   `yaml:"entry_price"`
	EntryDate  time.Time `yaml:"entry_date"`
	// StopLevel and TakeLevel are derived from the fill price at entry;
	// zero means the corresponding trigger is disabled.
	StopLevel float64 `yaml:"stop_level"`
	TakeLevel float64 `yaml:"take_level"`
	// EntryCommission is carried until exit so the closing trade's realized
	// P&L is net of both legs' costs.
	EntryCommission float64 `yaml:"entry_commission"`
}

// MarketValue returns the signed mark-to-market value at the given price.
func (p *Position) MarketValue(price float64) float64 {
	return p.Quantity * price
}

// ClosedTrade is the immutable record of a completed round trip.
type ClosedTrade struct {
	Code       string    `csv:"code" yaml:"code"`
	Exchange   string    `csv:"exchange" yaml:"exchange"`
	Side       Side      `csv:"side" yaml:"side"`
	Quantity   float64   `csv:"quantity" yaml:"quantity"`
	EntryPrice float64   `csv:"entry_price" yaml:"entry_price"`
	ExitPrice  float64   `csv:"exit_price" yaml:"exit_price"`
	EntryDate  time.Time `csv:"entry_date" yaml:"entry_date"`
	ExitDate   time.Time `csv:"exit_date" yaml:"exit_date"`
	// PnL is realized profit net of entry and exit commissions.
	PnL float64 `csv:"pnl" yaml:"pnl"`
}

// HoldingDays returns the trade duration in calendar days.
func (t *ClosedTrade) HoldingDays() float64 {
	return t.ExitDate.Sub(t.EntryDate).Hours() / 24
}

// EquityPoint is a (date, total equity) snapshot, one per timeline date.
type EquityPoint struct {
	Date   time.Time `csv:"date" yaml:"date"`
	Equity float64   `csv:"equity" yaml:"equity"`
}
