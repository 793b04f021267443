package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/quantforge/ruleback/internal/types"
)

type DuckDBSourceTestSuite struct {
	suite.Suite

	source *DuckDBSource
	start  time.Time
}

func TestDuckDBSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBSourceTestSuite))
}

func (suite *DuckDBSourceTestSuite) SetupTest() {
	source, err := NewDuckDBSource(":memory:", nil)
	suite.Require().NoError(err)
	suite.source = source
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *DuckDBSourceTestSuite) TearDownTest() {
	suite.Require().NoError(suite.source.Close())
}

func (suite *DuckDBSourceTestSuite) seed(code string, n int) {
	bars := make([]types.Bar, n)
	for i := range bars {
		bars[i] = types.Bar{
			Code:     code,
			Exchange: "XTST",
			Date:     suite.start.AddDate(0, 0, i),
			Open:     100,
			High:     101,
			Low:      99,
			Close:    float64(100 + i),
			Volume:   int64(1000 + i),
		}
	}

	suite.Require().NoError(suite.source.InsertBars(context.Background(), bars))
}

func (suite *DuckDBSourceTestSuite) TestRoundTrip() {
	suite.seed("AAA", 5)

	bars, err := suite.source.FetchBars(context.Background(), "AAA", "XTST", time.Time{}, time.Time{})
	suite.Require().NoError(err)
	suite.Require().Len(bars, 5)

	suite.Equal("AAA", bars[0].Code)
	suite.Equal("XTST", bars[0].Exchange)
	suite.InDelta(100.0, bars[0].Close, 1e-9)
	suite.Equal(int64(1004), bars[4].Volume)

	// Ascending by date.
	for i := 1; i < len(bars); i++ {
		suite.True(bars[i-1].Date.Before(bars[i].Date))
	}
}

func (suite *DuckDBSourceTestSuite) TestFetchBounded() {
	suite.seed("AAA", 10)

	bars, err := suite.source.FetchBars(context.Background(), "AAA", "XTST",
		suite.start.AddDate(0, 0, 3), suite.start.AddDate(0, 0, 6))
	suite.Require().NoError(err)
	suite.Len(bars, 4)
}

func (suite *DuckDBSourceTestSuite) TestFetchUnknownCode() {
	suite.seed("AAA", 3)

	bars, err := suite.source.FetchBars(context.Background(), "NOPE", "XTST", time.Time{}, time.Time{})
	suite.Require().NoError(err)
	suite.Empty(bars)
}

func (suite *DuckDBSourceTestSuite) TestExchangeIsolation() {
	suite.seed("AAA", 3)

	bars, err := suite.source.FetchBars(context.Background(), "AAA", "OTHER", time.Time{}, time.Time{})
	suite.Require().NoError(err)
	suite.Empty(bars)
}

func (suite *DuckDBSourceTestSuite) TestListSymbols() {
	suite.seed("ZZZ", 1)
	suite.seed("AAA", 1)

	codes, err := suite.source.ListSymbols(context.Background(), "XTST")
	suite.Require().NoError(err)
	suite.Equal([]string{"AAA", "ZZZ"}, codes)

	codes, err = suite.source.ListSymbols(context.Background(), "OTHER")
	suite.Require().NoError(err)
	suite.Empty(codes)
}

func (suite *DuckDBSourceTestSuite) TestDuplicateInsertFails() {
	suite.seed("AAA", 1)

	err := suite.source.InsertBars(context.Background(), []types.Bar{{
		Code:     "AAA",
		Exchange: "XTST",
		Date:     suite.start,
	}})
	suite.Error(err)
}
