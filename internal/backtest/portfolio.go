// Package backtest contains the simulation kernel: the portfolio state
// machine and the timeline orchestrator that replays daily bars through a
// compiled strategy.
package backtest

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantforge/ruleback/internal/backtest/cost"
	"github.com/quantforge/ruleback/internal/logger"
	"github.com/quantforge/ruleback/internal/types"
	"github.com/quantforge/ruleback/pkg/errors"
)

// Portfolio owns cash, open positions, closed-trade history and the equity
// curve for one backtest run. It is the only mutable aggregate in the core;
// every mutation happens through the operations below. Per code the state
// machine is Flat -> Open -> Flat, with the closing transition emitting a
// ClosedTrade.
//
// Position sizing uses a fraction of current cash, not total equity, so an
// entry can never commit unrealized marks.
type Portfolio struct {
	cash      float64
	positions map[string]*types.Position
	trades    []types.ClosedTrade
	equity    []types.EquityPoint
	// lastMark remembers the most recent price seen per open code, so
	// equity marking survives dates where an instrument has no bar.
	lastMark map[string]float64
	logger   *logger.Logger
}

// NewPortfolio creates a portfolio with the given starting cash.
func NewPortfolio(initialCash float64, log *logger.Logger) *Portfolio {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Portfolio{
		cash:      initialCash,
		positions: make(map[string]*types.Position),
		trades:    nil,
		equity:    nil,
		lastMark:  make(map[string]float64),
		logger:    log,
	}
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 {
	return p.cash
}

// Position returns the open position for a code, if any.
func (p *Portfolio) Position(code string) (*types.Position, bool) {
	pos, ok := p.positions[code]

	return pos, ok
}

// OpenPositionCount returns the number of simultaneously open positions.
func (p *Portfolio) OpenPositionCount() int {
	return len(p.positions)
}

// OpenCodes returns the codes with open positions in sorted order.
func (p *Portfolio) OpenCodes() []string {
	codes := make([]string, 0, len(p.positions))
	for code := range p.positions {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	return codes
}

// Trades returns the closed-trade history in close order.
func (p *Portfolio) Trades() []types.ClosedTrade {
	return p.trades
}

// EquityCurve returns the recorded equity points in timeline order.
func (p *Portfolio) EquityCurve() []types.EquityPoint {
	return p.equity
}

// EntryParams bundles the sizing and risk inputs of an entry operation.
type EntryParams struct {
	Code          string
	Exchange      string
	Price         float64
	Date          time.Time
	PositionSize  float64
	StopLossPct   float64
	TakeProfitPct float64
	MaxPositions  int
	Costs         cost.Schedule
}

// EnterLong opens a long position. It is a rejected no-op when a position
// for the code is already open or the global position cap is reached; the
// returned error carries the rejection code so callers can treat it as a
// routine skip.
func (p *Portfolio) EnterLong(params EntryParams) error {
	return p.enter(params, types.SideLong)
}

// EnterShort opens a short position, mirroring EnterLong.
func (p *Portfolio) EnterShort(params EntryParams) error {
	return p.enter(params, types.SideShort)
}

func (p *Portfolio) enter(params EntryParams, side types.Side) error {
	if params.Code == "" {
		return errors.New(errors.ErrCodeNullInput, "enter: empty code")
	}

	if params.Price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidSizing, "enter %s: non-positive price %g", params.Code, params.Price)
	}

	if _, open := p.positions[params.Code]; open {
		return errors.Newf(errors.ErrCodePositionOpen, "position already open for %s", params.Code)
	}

	if len(p.positions) >= params.MaxPositions {
		return errors.Newf(errors.ErrCodeMaxPositions, "max positions reached (%d)", params.MaxPositions)
	}

	// Slippage direction: buying to open a long pays up, selling to open a
	// short receives less.
	buying := side == types.SideLong
	fill := params.Costs.FillPrice(params.Price, buying)

	budget := decimal.NewFromFloat(p.cash).Mul(decimal.NewFromFloat(params.PositionSize))
	if budget.LessThanOrEqual(decimal.Zero) {
		return errors.Newf(errors.ErrCodeInvalidSizing, "enter %s: no cash to size position", params.Code)
	}

	qty, _ := budget.Div(decimal.NewFromFloat(fill)).Float64()
	if qty <= 0 {
		return errors.Newf(errors.ErrCodeInvalidSizing, "enter %s: sized quantity is zero", params.Code)
	}

	notional := qty * fill
	commission := params.Costs.Commission(notional)

	signedQty := qty

	var stop, take float64

	if side == types.SideLong {
		if params.StopLossPct > 0 {
			stop = fill * (1 - params.StopLossPct)
		}

		if params.TakeProfitPct > 0 {
			take = fill * (1 + params.TakeProfitPct)
		}
	} else {
		signedQty = -qty

		if params.StopLossPct > 0 {
			stop = fill * (1 + params.StopLossPct)
		}

		if params.TakeProfitPct > 0 {
			take = fill * (1 - params.TakeProfitPct)
		}
	}

	// Unified cash effect: longs pay the notional, shorts receive it.
	// Commission is always deducted.
	cash := decimal.NewFromFloat(p.cash).
		Sub(decimal.NewFromFloat(signedQty).Mul(decimal.NewFromFloat(fill))).
		Sub(decimal.NewFromFloat(commission))
	p.cash, _ = cash.Float64()

	p.positions[params.Code] = &types.Position{
		Code:            params.Code,
		Exchange:        params.Exchange,
		Side:            side,
		Quantity:        signedQty,
		EntryPrice:      fill,
		EntryDate:       params.Date,
		StopLevel:       stop,
		TakeLevel:       take,
		EntryCommission: commission,
	}
	p.lastMark[params.Code] = params.Price

	p.logger.Debug("position opened",
		zap.String("code", params.Code),
		zap.String("side", string(side)),
		zap.Float64("fill", fill),
		zap.Float64("quantity", signedQty),
	)

	return nil
}

// ExitPosition closes the open position for a code at the given signal
// price. It is a rejected no-op when no position is open. Realized P&L is
// net of entry and exit commissions and of slippage in the closing
// direction.
func (p *Portfolio) ExitPosition(code string, price float64, date time.Time, costs cost.Schedule) error {
	pos, open := p.positions[code]
	if !open {
		return errors.Newf(errors.ErrCodePositionNotFound, "no open position for %s", code)
	}

	// Closing a long sells, closing a short buys back.
	buying := pos.Side == types.SideShort
	fill := costs.FillPrice(price, buying)
	notional := pos.Quantity * fill

	if notional < 0 {
		notional = -notional
	}

	exitCommission := costs.Commission(notional)

	qtyDec := decimal.NewFromFloat(pos.Quantity)
	pnl := decimal.NewFromFloat(fill).Sub(decimal.NewFromFloat(pos.EntryPrice)).Mul(qtyDec).
		Sub(decimal.NewFromFloat(pos.EntryCommission)).
		Sub(decimal.NewFromFloat(exitCommission))

	cash := decimal.NewFromFloat(p.cash).
		Add(qtyDec.Mul(decimal.NewFromFloat(fill))).
		Sub(decimal.NewFromFloat(exitCommission))
	p.cash, _ = cash.Float64()

	pnlValue, _ := pnl.Float64()
	trade := types.ClosedTrade{
		Code:       pos.Code,
		Exchange:   pos.Exchange,
		Side:       pos.Side,
		Quantity:   pos.Quantity,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  fill,
		EntryDate:  pos.EntryDate,
		ExitDate:   date,
		PnL:        pnlValue,
	}

	delete(p.positions, code)
	delete(p.lastMark, code)
	p.trades = append(p.trades, trade)

	p.logger.Debug("position closed",
		zap.String("code", code),
		zap.Float64("fill", fill),
		zap.Float64("pnl", pnlValue),
	)

	return nil
}

// CheckTriggers exits every open position whose current price has crossed
// its stop or take level. Positions without a price in the map are left
// alone. Stop-loss takes precedence when one bar breaches both levels.
// The caller must fully resolve triggers before considering new entries on
// the same date.
func (p *Portfolio) CheckTriggers(prices types.PriceMap, date time.Time, costs cost.Schedule) {
	for _, code := range p.OpenCodes() {
		price, ok := prices[code]
		if !ok {
			continue
		}

		pos := p.positions[code]
		if p.triggered(pos, price) {
			// rejection is impossible here, the position is known open
			_ = p.ExitPosition(code, price, date, costs)
		}
	}
}

func (p *Portfolio) triggered(pos *types.Position, price float64) bool {
	if pos.Side == types.SideLong {
		if pos.StopLevel > 0 && price <= pos.StopLevel {
			return true
		}

		return pos.TakeLevel > 0 && price >= pos.TakeLevel
	}

	if pos.StopLevel > 0 && price >= pos.StopLevel {
		return true
	}

	return pos.TakeLevel > 0 && price <= pos.TakeLevel
}

// TotalEquity returns cash plus the mark-to-market value of all open
// positions. A code missing from the price map contributes its last-known
// mark, never zero.
func (p *Portfolio) TotalEquity(prices types.PriceMap) float64 {
	total := decimal.NewFromFloat(p.cash)

	for code, pos := range p.positions {
		price, ok := prices[code]
		if ok {
			p.lastMark[code] = price
		} else {
			price = p.lastMark[code]
		}

		total = total.Add(decimal.NewFromFloat(pos.Quantity).Mul(decimal.NewFromFloat(price)))
	}

	out, _ := total.Float64()

	return out
}

// RecordEquity appends one equity snapshot. Append-only.
func (p *Portfolio) RecordEquity(date time.Time, value float64) {
	p.equity = append(p.equity, types.EquityPoint{Date: date, Equity: value})
}
