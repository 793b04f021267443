package backtest

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/quantforge/ruleback/internal/types"
	"github.com/quantforge/ruleback/pkg/errors"
)

type StrategyTestSuite struct {
	suite.Suite
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func (suite *StrategyTestSuite) spec() types.Strategy {
	return types.Strategy{
		Name:         "momentum",
		EntryLong:    "AND(ABOVE(CLOSE, SMA(20)), ABOVE(RSI(14), 50))",
		ExitLong:     "BELOW(CLOSE, SMA(20))",
		PositionSize: 0.25,
		MaxPositions: 4,
	}
}

func (suite *StrategyTestSuite) TestCompile() {
	compiled, err := CompileStrategy(suite.spec(), nil)
	suite.Require().NoError(err)

	suite.NotNil(compiled.EntryLong)
	suite.NotNil(compiled.ExitLong)
	suite.Nil(compiled.EntryShort)
	suite.Nil(compiled.ExitShort)

	// SMA(20) is shared between entry and exit; RSI(14) appears once.
	suite.Len(compiled.Keys, 2)
}

func (suite *StrategyTestSuite) TestCompileShortSide() {
	spec := suite.spec()
	spec.EntryShort = "BELOW(RSI(14), 30)"
	spec.ExitShort = "ABOVE(RSI(14), 50)"

	compiled, err := CompileStrategy(spec, nil)
	suite.Require().NoError(err)
	suite.NotNil(compiled.EntryShort)
	suite.NotNil(compiled.ExitShort)
	suite.True(compiled.Spec.ShortingEnabled())
}

func (suite *StrategyTestSuite) TestCompileAllOrNothing() {
	spec := suite.spec()
	spec.ExitLong = "BELOW(CLOSE, SMA(20)" // missing paren

	compiled, err := CompileStrategy(spec, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidStrategy))
	suite.Nil(compiled)
}

func (suite *StrategyTestSuite) TestCompileRejectsInvalidRecord() {
	spec := suite.spec()
	spec.PositionSize = 1.5

	_, err := CompileStrategy(spec, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidStrategy))

	spec = suite.spec()
	spec.Name = ""

	_, err = CompileStrategy(spec, nil)
	suite.Error(err)
}
