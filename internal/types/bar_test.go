package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BarTestSuite struct {
	suite.Suite
}

func TestBarSuite(t *testing.T) {
	suite.Run(t, new(BarTestSuite))
}

func (suite *BarTestSuite) TestFieldValue() {
	bar := Bar{Open: 1, High: 2, Low: 3, Close: 4, Volume: 500}

	suite.InDelta(1.0, bar.FieldValue(BarFieldOpen), 1e-9)
	suite.InDelta(2.0, bar.FieldValue(BarFieldHigh), 1e-9)
	suite.InDelta(3.0, bar.FieldValue(BarFieldLow), 1e-9)
	suite.InDelta(4.0, bar.FieldValue(BarFieldClose), 1e-9)
	suite.InDelta(500.0, bar.FieldValue(BarFieldVolume), 1e-9)
	suite.InDelta(0.0, bar.FieldValue(BarField("nope")), 1e-9)
}

func (suite *BarTestSuite) TestDay() {
	est := time.FixedZone("EST", -5*3600)
	t := time.Date(2024, 6, 3, 22, 30, 0, 0, est)

	// 22:30 EST is 03:30 UTC the next day.
	suite.Equal(time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), Day(t))

	midnight := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	suite.Equal(midnight, Day(midnight))
}

func (suite *BarTestSuite) TestWriteResult() {
	path := filepath.Join(suite.T().TempDir(), "result.yaml")

	result := BacktestResult{
		ID:           "test-run",
		StrategyName: "s",
		Codes:        []string{"AAA"},
		Trades: []ClosedTrade{{
			Code: "AAA",
			Side: SideLong,
			PnL:  12.5,
		}},
	}

	suite.Require().NoError(WriteResult(path, result))

	data, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Contains(string(data), "strategy_name: s")
	suite.Contains(string(data), "pnl: 12.5")
}
