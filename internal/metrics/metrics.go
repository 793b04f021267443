// Package metrics computes return, risk and trade-quality statistics from a
// finished run's closed trades and equity curve. Everything here is a pure
// function of its inputs; an empty trade list yields well-defined neutral
// values, never a crash.
package metrics

import (
	"math"

	"github.com/quantforge/ruleback/internal/types"
)

// tradingDaysPerYear is the convention used to annualize daily returns.
const tradingDaysPerYear = 252

// Compute derives the aggregate metrics from closed trades and the equity
// curve. riskFreeRate is annual; it is scaled to daily inside the Sharpe
// and Sortino calculations.
func Compute(trades []types.ClosedTrade, equity []types.EquityPoint, riskFreeRate float64) types.Metrics {
	m := tradeMetrics(trades)

	if len(equity) < 2 {
		return m
	}

	start := equity[0].Equity
	end := equity[len(equity)-1].Equity

	if start > 0 {
		m.TotalReturn = end/start - 1
	}

	days := equity[len(equity)-1].Date.Sub(equity[0].Date).Hours() / 24
	if days > 0 && 1+m.TotalReturn > 0 {
		m.AnnualizedReturn = math.Pow(1+m.TotalReturn, 365/days) - 1
	}

	daily := dailyReturns(equity)
	m.SharpeRatio = sharpe(daily, riskFreeRate)
	m.SortinoRatio = sortino(daily, riskFreeRate)
	m.MaxDrawdown, m.MaxDrawdownDuration = drawdown(equity)

	return m
}

// PerCode restricts the trade-derived formulas to each code's trades. The
// equity-curve statistics stay zero per code: no per-instrument equity
// series exists in a shared-cash portfolio.
func PerCode(trades []types.ClosedTrade, codes []string, riskFreeRate float64) []types.CodeMetrics {
	out := make([]types.CodeMetrics, 0, len(codes))

	for _, code := range codes {
		var matched []types.ClosedTrade

		for _, trade := range trades {
			if trade.Code == code {
				matched = append(matched, trade)
			}
		}

		out = append(out, types.CodeMetrics{
			Code:    code,
			Metrics: tradeMetrics(matched),
		})
	}

	return out
}

// tradeMetrics reduces a closed-trade list to its quality statistics.
func tradeMetrics(trades []types.ClosedTrade) types.Metrics {
	var m types.Metrics

	m.TotalTrades = len(trades)
	if len(trades) == 0 {
		return m
	}

	var (
		grossProfit float64
		grossLoss   float64
		holdingDays float64
	)

	for _, trade := range trades {
		m.TotalPnL += trade.PnL
		holdingDays += trade.HoldingDays()

		switch {
		case trade.PnL > 0:
			m.WinningTrades++
			grossProfit += trade.PnL

			if trade.PnL > m.LargestWin {
				m.LargestWin = trade.PnL
			}
		case trade.PnL < 0:
			m.LosingTrades++
			grossLoss += -trade.PnL

			if -trade.PnL > -m.LargestLoss {
				m.LargestLoss = trade.PnL
			}
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	m.AverageHoldingDays = holdingDays / float64(m.TotalTrades)

	if m.WinningTrades > 0 {
		m.AverageWin = grossProfit / float64(m.WinningTrades)
	}

	if m.LosingTrades > 0 {
		m.AverageLoss = -grossLoss / float64(m.LosingTrades)
		m.ProfitFactor = grossProfit / grossLoss
	} else if m.WinningTrades > 0 {
		// Profit factor is undefined with no losses; report zero and flag
		// the run instead of emitting infinity.
		m.AllWins = true
	}

	return m
}

// dailyReturns converts the equity curve to percentage deltas.
func dailyReturns(equity []types.EquityPoint) []float64 {
	returns := make([]float64, 0, len(equity)-1)

	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			returns = append(returns, 0)

			continue
		}

		returns = append(returns, equity[i].Equity/prev-1)
	}

	return returns
}

// sharpe annualizes mean daily excess return over its sample standard
// deviation.
func sharpe(daily []float64, riskFreeRate float64) float64 {
	if len(daily) < 2 {
		return 0
	}

	target := riskFreeRate / tradingDaysPerYear
	sd := stddev(daily)

	if sd == 0 {
		return 0
	}

	return (mean(daily) - target) / sd * math.Sqrt(tradingDaysPerYear)
}

// sortino replaces the denominator with downside-only deviation.
func sortino(daily []float64, riskFreeRate float64) float64 {
	if len(daily) < 2 {
		return 0
	}

	target := riskFreeRate / tradingDaysPerYear

	var downside float64

	for _, r := range daily {
		if r < target {
			d := r - target
			downside += d * d
		}
	}

	downside = math.Sqrt(downside / float64(len(daily)))
	if downside == 0 {
		return 0
	}

	return (mean(daily) - target) / downside * math.Sqrt(tradingDaysPerYear)
}

// drawdown returns the maximum fractional decline from a running peak and
// the longest peak-to-recovery span in days. A drawdown still open at the
// end of the curve counts to the final date.
func drawdown(equity []types.EquityPoint) (float64, int) {
	var (
		maxDD       float64
		maxDuration int
	)

	peak := equity[0].Equity
	peakDate := equity[0].Date

	for _, point := range equity {
		if point.Equity > peak {
			peak = point.Equity
			peakDate = point.Date

			continue
		}

		if peak > 0 {
			dd := (peak - point.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}

		duration := int(point.Date.Sub(peakDate).Hours() / 24)
		if duration > maxDuration {
			maxDuration = duration
		}
	}

	return maxDD, maxDuration
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// stddev is the sample standard deviation.
func stddev(values []float64) float64 {
	m := mean(values)

	var variance float64

	for _, v := range values {
		d := v - m
		variance += d * d
	}

	return math.Sqrt(variance / float64(len(values)-1))
}
