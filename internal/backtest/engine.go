package backtest

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/quantforge/ruleback/internal/indicator"
	"github.com/quantforge/ruleback/internal/logger"
	"github.com/quantforge/ruleback/internal/metrics"
	"github.com/quantforge/ruleback/internal/rule"
	"github.com/quantforge/ruleback/internal/types"
	"github.com/quantforge/ruleback/pkg/errors"
)

// OnDateCallback reports per-date progress to the caller.
type OnDateCallback func(current, total int)

// Engine replays a master timeline bar-by-bar through a compiled strategy.
// The run is single-threaded and synchronous: a strict sequential scan with
// no suspension points. Engines share nothing; concurrent backtests run
// independent instances.
type Engine struct {
	config   Config
	logger   *logger.Logger
	registry *indicator.Registry
}

// NewEngine creates an engine with the given config. A nil logger logs
// nowhere; a nil registry means only builtin indicator kinds resolve.
func NewEngine(config Config, log *logger.Logger, registry *indicator.Registry) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Engine{
		config:   config,
		logger:   log,
		registry: registry,
	}, nil
}

// Run replays the full timeline for one strategy over one validated
// universe and returns the serializable result bundle. The per-date order
// is fixed: price snapshot, trigger checks, per-instrument exit/entry
// evaluation in universe order, equity snapshot. Rule evaluation at bar
// index i reads data at indices <= i only.
func (e *Engine) Run(spec types.Strategy, universe []*CodeData, onDate optional.Option[OnDateCallback]) (types.BacktestResult, error) {
	if len(universe) == 0 {
		return types.BacktestResult{}, errors.New(errors.ErrCodeEmptyUniverse, "no instruments in universe")
	}

	strategy, err := CompileStrategy(spec, e.registry)
	if err != nil {
		return types.BacktestResult{}, err
	}

	for _, code := range universe {
		if err := code.ComputeIndicators(strategy.Keys, e.registry); err != nil {
			return types.BacktestResult{}, err
		}
	}

	timeline := e.buildTimeline(universe)
	if len(timeline) == 0 {
		return types.BacktestResult{}, errors.New(errors.ErrCodeNoData, "empty timeline after applying time bounds")
	}

	e.logger.Debug("starting run",
		zap.String("strategy", spec.Name),
		zap.Int("instruments", len(universe)),
		zap.Int("timeline_dates", len(timeline)),
	)

	portfolio := NewPortfolio(e.config.InitialCapital, e.logger)

	for i, date := range timeline {
		e.step(strategy, universe, portfolio, date)

		if onDate.IsSome() {
			onDate.Unwrap()(i+1, len(timeline))
		}
	}

	return e.buildResult(strategy, universe, portfolio, timeline), nil
}

// step processes one timeline date.
func (e *Engine) step(strategy *CompiledStrategy, universe []*CodeData, portfolio *Portfolio, date time.Time) {
	// 1. Close-price snapshot of every instrument trading today.
	prices := make(types.PriceMap)

	for _, code := range universe {
		if i, ok := code.BarIndexOn(date); ok {
			prices[code.Code] = code.Bars[i].Close
		}
	}

	// 2. Risk exits resolve fully before any rule-driven transition.
	portfolio.CheckTriggers(prices, date, e.config.Costs)

	// 3. Rule-driven exits and entries, in universe order.
	for _, code := range universe {
		barIndex, ok := code.BarIndexOn(date)
		if !ok {
			// no bar today: instrument skipped, not an error
			continue
		}

		if pos, open := portfolio.Position(code.Code); open {
			exitRule := strategy.ExitLong
			if pos.Side == types.SideShort {
				exitRule = strategy.ExitShort
			}

			if rule.Evaluate(exitRule, code.Bars, code.Indicators, barIndex) {
				_ = portfolio.ExitPosition(code.Code, code.Bars[barIndex].Close, date, e.config.Costs)
			}

			continue
		}

		params := EntryParams{
			Code:          code.Code,
			Exchange:      code.Exchange,
			Price:         code.Bars[barIndex].Close,
			Date:          date,
			PositionSize:  strategy.Spec.PositionSize,
			StopLossPct:   strategy.Spec.StopLossPct,
			TakeProfitPct: strategy.Spec.TakeProfitPct,
			MaxPositions:  strategy.Spec.MaxPositions,
			Costs:         e.config.Costs,
		}

		if rule.Evaluate(strategy.EntryLong, code.Bars, code.Indicators, barIndex) {
			e.tryEnter(portfolio.EnterLong, params)

			continue
		}

		if strategy.Spec.ShortingEnabled() &&
			rule.Evaluate(strategy.EntryShort, code.Bars, code.Indicators, barIndex) {
			e.tryEnter(portfolio.EnterShort, params)
		}
	}

	// 4. Equity snapshot for the date.
	portfolio.RecordEquity(date, portfolio.TotalEquity(prices))
}

// tryEnter performs an entry, treating cap and already-open rejections as
// routine skips.
func (e *Engine) tryEnter(enter func(EntryParams) error, params EntryParams) {
	if err := enter(params); err != nil {
		if errors.HasCode(err, errors.ErrCodeMaxPositions) ||
			errors.HasCode(err, errors.ErrCodePositionOpen) ||
			errors.HasCode(err, errors.ErrCodeInvalidSizing) {
			return
		}

		e.logger.Warn("entry rejected", zap.String("code", params.Code), zap.Error(err))
	}
}

// buildTimeline merges per-instrument dates into one strictly increasing
// master timeline, bounded by the configured window.
func (e *Engine) buildTimeline(universe []*CodeData) []time.Time {
	seen := make(map[time.Time]bool)

	var dates []time.Time

	for _, code := range universe {
		for _, bar := range code.Bars {
			day := types.Day(bar.Date)
			if !seen[day] {
				seen[day] = true
				dates = append(dates, day)
			}
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	filtered := dates[:0]

	for _, date := range dates {
		if e.config.StartTime.IsSome() && date.Before(types.Day(e.config.StartTime.Unwrap())) {
			continue
		}

		if e.config.EndTime.IsSome() && date.After(types.Day(e.config.EndTime.Unwrap())) {
			continue
		}

		filtered = append(filtered, date)
	}

	return filtered
}

func (e *Engine) buildResult(strategy *CompiledStrategy, universe []*CodeData, portfolio *Portfolio, timeline []time.Time) types.BacktestResult {
	codes := make([]string, len(universe))
	for i, code := range universe {
		codes[i] = code.Code
	}

	trades := portfolio.Trades()
	equity := portfolio.EquityCurve()

	result := types.BacktestResult{
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		StrategyName: strategy.Spec.Name,
		StartDate:    timeline[0],
		EndDate:      timeline[len(timeline)-1],
		Codes:        codes,
		Aggregate:    metrics.Compute(trades, equity, e.config.RiskFreeRate),
		PerCode:      metrics.PerCode(trades, codes, e.config.RiskFreeRate),
		Trades:       trades,
		EquityCurve:  equity,
	}

	e.logger.Info("run finished",
		zap.String("strategy", strategy.Spec.Name),
		zap.Int("trades", len(trades)),
		zap.Float64("total_return", result.Aggregate.TotalReturn),
	)

	return result
}
