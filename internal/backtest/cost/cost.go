// Package cost models transaction costs applied to simulated fills: a flat
// commission per order, a percentage commission on notional, and a
// fractional slippage that always adjusts the execution price unfavorably.
package cost

import (
	"github.com/shopspring/decimal"
)

// Schedule is one set of cost parameters, applied identically to every
// fill in a run.
type Schedule struct {
	CommissionFlat float64 `yaml:"commission_flat" json:"commission_flat" validate:"gte=0"`
	CommissionPct  float64 `yaml:"commission_pct" json:"commission_pct" validate:"gte=0"`
	SlippagePct    float64 `yaml:"slippage_pct" json:"slippage_pct" validate:"gte=0"`
}

// Zero returns a frictionless schedule.
func Zero() Schedule {
	return Schedule{}
}

// FillPrice adjusts a signal price unfavorably by the slippage fraction.
// A buying fill (opening a long or covering a short) pays more; a selling
// fill (closing a long or opening a short) receives less.
func (s Schedule) FillPrice(price float64, buying bool) float64 {
	slip := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(s.SlippagePct))

	var fill decimal.Decimal
	if buying {
		fill = decimal.NewFromFloat(price).Add(slip)
	} else {
		fill = decimal.NewFromFloat(price).Sub(slip)
	}

	out, _ := fill.Float64()

	return out
}

// Commission returns the total commission for a fill of the given absolute
// notional value.
func (s Schedule) Commission(notional float64) float64 {
	if notional < 0 {
		notional = -notional
	}

	fee := decimal.NewFromFloat(s.CommissionFlat).
		Add(decimal.NewFromFloat(s.CommissionPct).Mul(decimal.NewFromFloat(notional)))

	out, _ := fee.Float64()

	return out
}
