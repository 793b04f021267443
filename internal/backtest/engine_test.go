package backtest

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/quantforge/ruleback/internal/backtest/cost"
	"github.com/quantforge/ruleback/internal/types"
	"github.com/quantforge/ruleback/pkg/errors"
)

type EngineTestSuite struct {
	suite.Suite

	start time.Time
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *EngineTestSuite) codeData(code string, closes []float64) *CodeData {
	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = types.Bar{
			Code:     code,
			Exchange: "XTST",
			Date:     suite.start.AddDate(0, 0, i),
			Open:     c,
			High:     c + 1,
			Low:      c - 1,
			Close:    c,
			Volume:   1000,
		}
	}

	data, err := NewCodeData(code, "XTST", bars)
	suite.Require().NoError(err)

	return data
}

// zigzag produces n closes oscillating between base and base+2*legLength,
// enough turns for moving-average crossovers in both directions.
func zigzag(n int, base float64, legLength int) []float64 {
	closes := make([]float64, n)
	price := base
	direction := 2.0

	for i := 0; i < n; i++ {
		closes[i] = price
		price += direction

		if (i+1)%legLength == 0 {
			direction = -direction
		}
	}

	return closes
}

func (suite *EngineTestSuite) strategy() types.Strategy {
	return types.Strategy{
		Name:         "sma-crossover",
		EntryLong:    "CROSS_ABOVE(SMA(3), SMA(5))",
		ExitLong:     "CROSS_BELOW(SMA(3), SMA(5))",
		PositionSize: 0.5,
		MaxPositions: 3,
	}
}

func (suite *EngineTestSuite) engine(config Config) *Engine {
	engine, err := NewEngine(config, nil, nil)
	suite.Require().NoError(err)

	return engine
}

func (suite *EngineTestSuite) TestCrossoverProducesTrades() {
	engine := suite.engine(DefaultConfig())
	universe := []*CodeData{suite.codeData("AAA", zigzag(50, 100, 10))}

	result, err := engine.Run(suite.strategy(), universe, optional.None[OnDateCallback]())
	suite.Require().NoError(err)

	suite.NotEmpty(result.Trades)
	suite.Len(result.EquityCurve, 50)
	suite.Equal("sma-crossover", result.StrategyName)
	suite.Equal([]string{"AAA"}, result.Codes)

	for _, trade := range result.Trades {
		suite.Equal(types.SideLong, trade.Side)
		suite.True(trade.ExitDate.After(trade.EntryDate))
	}
}

func (suite *EngineTestSuite) TestStopAndTakeScenario() {
	// Rise 100 -> 114, then fall to 75. An always-on entry with a 10% take
	// and 5% stop books at least one win and one loss.
	closes := []float64{100, 102, 104, 106, 108, 110, 112, 114}
	for price := 110.0; price >= 75; price -= 5 {
		closes = append(closes, price)
	}

	spec := types.Strategy{
		Name:          "ride-and-bail",
		EntryLong:     "ABOVE(CLOSE, 0)",
		ExitLong:      "BELOW(CLOSE, 0)",
		PositionSize:  0.5,
		StopLossPct:   0.05,
		TakeProfitPct: 0.10,
		MaxPositions:  1,
	}

	engine := suite.engine(DefaultConfig())
	universe := []*CodeData{suite.codeData("AAA", closes)}

	result, err := engine.Run(spec, universe, optional.None[OnDateCallback]())
	suite.Require().NoError(err)

	suite.Positive(result.Aggregate.WinningTrades)
	suite.Positive(result.Aggregate.LosingTrades)
}

func (suite *EngineTestSuite) TestTimelineIsDateUnion() {
	aaa := suite.codeData("AAA", zigzag(10, 100, 5))

	// BBB trades on a shifted window: 5 overlapping dates, 5 new ones.
	bbbBars := make([]types.Bar, 10)
	for i := range bbbBars {
		bbbBars[i] = types.Bar{
			Code:     "BBB",
			Exchange: "XTST",
			Date:     suite.start.AddDate(0, 0, i+5),
			Open:     50,
			High:     51,
			Low:      49,
			Close:    50,
			Volume:   100,
		}
	}

	bbb, err := NewCodeData("BBB", "XTST", bbbBars)
	suite.Require().NoError(err)

	engine := suite.engine(DefaultConfig())

	result, err := engine.Run(suite.strategy(), []*CodeData{aaa, bbb}, optional.None[OnDateCallback]())
	suite.Require().NoError(err)

	// 10 AAA dates plus 5 BBB-only dates.
	suite.Len(result.EquityCurve, 15)
	suite.Equal(suite.start, result.StartDate)
	suite.Equal(suite.start.AddDate(0, 0, 14), result.EndDate)
}

func (suite *EngineTestSuite) TestDeterminism() {
	run := func() types.BacktestResult {
		engine := suite.engine(DefaultConfig())
		universe := []*CodeData{
			suite.codeData("AAA", zigzag(50, 100, 10)),
			suite.codeData("BBB", zigzag(50, 60, 8)),
		}

		result, err := engine.Run(suite.strategy(), universe, optional.None[OnDateCallback]())
		suite.Require().NoError(err)

		return result
	}

	first := run()
	second := run()

	suite.Equal(first.Trades, second.Trades)
	suite.Equal(first.EquityCurve, second.EquityCurve)
	suite.Equal(first.Aggregate, second.Aggregate)
}

func (suite *EngineTestSuite) TestCostsReduceReturns() {
	universe := func() []*CodeData {
		return []*CodeData{suite.codeData("AAA", zigzag(50, 100, 10))}
	}

	free := suite.engine(DefaultConfig())
	frictionless, err := free.Run(suite.strategy(), universe(), optional.None[OnDateCallback]())
	suite.Require().NoError(err)

	config := DefaultConfig()
	config.Costs = cost.Schedule{CommissionFlat: 5, CommissionPct: 0.001, SlippagePct: 0.002}

	taxed := suite.engine(config)
	costly, err := taxed.Run(suite.strategy(), universe(), optional.None[OnDateCallback]())
	suite.Require().NoError(err)

	suite.Require().NotEmpty(frictionless.Trades)
	suite.Less(costly.Aggregate.TotalPnL, frictionless.Aggregate.TotalPnL)
}

func (suite *EngineTestSuite) TestTimeBounds() {
	config := DefaultConfig()
	config.StartTime = optional.Some(suite.start.AddDate(0, 0, 10))
	config.EndTime = optional.Some(suite.start.AddDate(0, 0, 39))

	engine := suite.engine(config)
	universe := []*CodeData{suite.codeData("AAA", zigzag(50, 100, 10))}

	result, err := engine.Run(suite.strategy(), universe, optional.None[OnDateCallback]())
	suite.Require().NoError(err)

	suite.Len(result.EquityCurve, 30)
	suite.Equal(suite.start.AddDate(0, 0, 10), result.StartDate)
}

func (suite *EngineTestSuite) TestShortSide() {
	spec := types.Strategy{
		Name:         "both-sides",
		EntryLong:    "CROSS_ABOVE(SMA(3), SMA(5))",
		ExitLong:     "CROSS_BELOW(SMA(3), SMA(5))",
		EntryShort:   "CROSS_BELOW(SMA(3), SMA(5))",
		ExitShort:    "CROSS_ABOVE(SMA(3), SMA(5))",
		PositionSize: 0.3,
		MaxPositions: 2,
	}

	engine := suite.engine(DefaultConfig())
	universe := []*CodeData{suite.codeData("AAA", zigzag(60, 100, 10))}

	result, err := engine.Run(spec, universe, optional.None[OnDateCallback]())
	suite.Require().NoError(err)

	var shorts int

	for _, trade := range result.Trades {
		if trade.Side == types.SideShort {
			shorts++
		}
	}

	suite.Positive(shorts)
}

func (suite *EngineTestSuite) TestProgressCallback() {
	engine := suite.engine(DefaultConfig())
	universe := []*CodeData{suite.codeData("AAA", zigzag(20, 100, 5))}

	var calls, lastTotal int

	onDate := optional.Some[OnDateCallback](func(current, total int) {
		calls++
		lastTotal = total
		suite.Equal(calls, current)
	})

	_, err := engine.Run(suite.strategy(), universe, onDate)
	suite.Require().NoError(err)
	suite.Equal(20, calls)
	suite.Equal(20, lastTotal)
}

func (suite *EngineTestSuite) TestEmptyUniverse() {
	engine := suite.engine(DefaultConfig())

	_, err := engine.Run(suite.strategy(), nil, optional.None[OnDateCallback]())
	suite.True(errors.HasCode(err, errors.ErrCodeEmptyUniverse))
}

func (suite *EngineTestSuite) TestInvalidStrategyAborts() {
	engine := suite.engine(DefaultConfig())
	universe := []*CodeData{suite.codeData("AAA", zigzag(20, 100, 5))}

	spec := suite.strategy()
	spec.EntryLong = "ABOVE(CLOSE, NOPE(3))"

	_, err := engine.Run(spec, universe, optional.None[OnDateCallback]())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidStrategy))
}

func (suite *EngineTestSuite) TestInvalidConfigRejected() {
	config := DefaultConfig()
	config.InitialCapital = 0

	_, err := NewEngine(config, nil, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *EngineTestSuite) TestPerCodeMetricsCoverUniverse() {
	engine := suite.engine(DefaultConfig())
	universe := []*CodeData{
		suite.codeData("AAA", zigzag(50, 100, 10)),
		suite.codeData("BBB", zigzag(50, 60, 8)),
	}

	result, err := engine.Run(suite.strategy(), universe, optional.None[OnDateCallback]())
	suite.Require().NoError(err)

	suite.Require().Len(result.PerCode, 2)

	total := 0
	for _, pc := range result.PerCode {
		total += pc.Metrics.TotalTrades
	}

	suite.Equal(result.Aggregate.TotalTrades, total)
}
