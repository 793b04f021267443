package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Metrics holds the performance statistics computed over a finished run.
type Metrics struct {
	// TotalReturn is equity_end / equity_start - 1.
	TotalReturn float64 `yaml:"total_return"`
	// AnnualizedReturn compounds TotalReturn over the elapsed calendar span
	// to a 365-day year.
	AnnualizedReturn float64 `yaml:"annualized_return"`
	// SharpeRatio is the annualized excess daily return over its standard
	// deviation.
	SharpeRatio float64 `yaml:"sharpe_ratio"`
	// SortinoRatio uses downside-only deviation in the denominator.
	SortinoRatio float64 `yaml:"sortino_ratio"`
	// MaxDrawdown is the largest fractional decline from a running equity peak.
	MaxDrawdown float64 `yaml:"max_drawdown"`
	// MaxDrawdownDuration is the longest span in days spent below a running
	// equity peak.
	MaxDrawdownDuration int `yaml:"max_drawdown_duration_days"`

	TotalTrades   int     `yaml:"total_trades"`
	WinningTrades int     `yaml:"winning_trades"`
	LosingTrades  int     `yaml:"losing_trades"`
	WinRate       float64 `yaml:"win_rate"`
	// ProfitFactor is gross profit over absolute gross loss. Zero when there
	// are no trades; reported as 0 with AllWins set when there are no losses.
	ProfitFactor float64 `yaml:"profit_factor"`
	// AllWins marks a run whose profit factor is undefined because every
	// closed trade was profitable.
	AllWins bool `yaml:"all_wins,omitempty"`

	TotalPnL    float64 `yaml:"total_pnl"`
	AverageWin  float64 `yaml:"average_win"`
	AverageLoss float64 `yaml:"average_loss"`
	LargestWin  float64 `yaml:"largest_win"`
	LargestLoss float64 `yaml:"largest_loss"`
	// AverageHoldingDays is the mean trade duration in calendar days.
	AverageHoldingDays float64 `yaml:"average_holding_days"`
}

// CodeMetrics restricts the aggregate formulas to trades of one instrument.
type CodeMetrics struct {
	Code    string  `yaml:"code"`
	Metrics Metrics `yaml:"metrics"`
}

// BacktestResult is the serializable bundle handed to the report sink.
type BacktestResult struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id"`
	// Timestamp is when this backtest run was executed.
	Timestamp time.Time `yaml:"timestamp"`
	// StrategyName tags the result with the strategy that produced it.
	StrategyName string `yaml:"strategy_name"`
	// StartDate and EndDate bound the master timeline actually replayed.
	StartDate time.Time `yaml:"start_date"`
	EndDate   time.Time `yaml:"end_date"`
	// Codes lists the validated universe included in the run.
	Codes []string `yaml:"codes"`

	Aggregate Metrics       `yaml:"aggregate"`
	PerCode   []CodeMetrics `yaml:"per_code"`

	Trades      []ClosedTrade `yaml:"trades"`
	EquityCurve []EquityPoint `yaml:"equity_curve"`
}

// WriteResult writes the result bundle to a YAML file.
func WriteResult(path string, result BacktestResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest result to file: %w", err)
	}

	return nil
}
