package types

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/quantforge/ruleback/pkg/errors"
)

type StrategyTestSuite struct {
	suite.Suite
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func (suite *StrategyTestSuite) valid() Strategy {
	return Strategy{
		Name:         "breakout",
		EntryLong:    "ABOVE(CLOSE, BB_UPPER(20, 2))",
		ExitLong:     "BELOW(CLOSE, BB_MIDDLE(20, 2))",
		PositionSize: 0.2,
		MaxPositions: 5,
	}
}

func (suite *StrategyTestSuite) TestValidate() {
	s := suite.valid()
	suite.NoError(s.Validate())
}

func (suite *StrategyTestSuite) TestValidateRejections() {
	cases := []struct {
		name   string
		mutate func(*Strategy)
	}{
		{"missing name", func(s *Strategy) { s.Name = "" }},
		{"missing entry", func(s *Strategy) { s.EntryLong = "" }},
		{"missing exit", func(s *Strategy) { s.ExitLong = "" }},
		{"zero size", func(s *Strategy) { s.PositionSize = 0 }},
		{"oversized", func(s *Strategy) { s.PositionSize = 1.2 }},
		{"negative stop", func(s *Strategy) { s.StopLossPct = -0.1 }},
		{"zero cap", func(s *Strategy) { s.MaxPositions = 0 }},
	}

	for _, tc := range cases {
		s := suite.valid()
		tc.mutate(&s)

		err := s.Validate()
		suite.Require().Error(err, tc.name)
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidStrategy), tc.name)
	}
}

func (suite *StrategyTestSuite) TestShortingEnabled() {
	s := suite.valid()
	suite.False(s.ShortingEnabled())

	// Both short rules are needed for the short side to exist.
	s.EntryShort = "BELOW(CLOSE, 10)"
	suite.False(s.ShortingEnabled())

	s.ExitShort = "ABOVE(CLOSE, 20)"
	suite.True(s.ShortingEnabled())
}

func (suite *StrategyTestSuite) TestParseStrategy() {
	doc := `
name: mean-reversion
description: Buy oversold, sell the bounce
entry_long: BELOW(RSI(14), 30)
exit_long: ABOVE(RSI(14), 55)
position_size: 0.25
stop_loss_pct: 0.07
take_profit_pct: 0.15
max_positions: 3
`

	s, err := ParseStrategy([]byte(doc))
	suite.Require().NoError(err)
	suite.Equal("mean-reversion", s.Name)
	suite.InDelta(0.25, s.PositionSize, 1e-9)
	suite.InDelta(0.07, s.StopLossPct, 1e-9)
	suite.Equal(3, s.MaxPositions)
}

func (suite *StrategyTestSuite) TestParseStrategyInvalid() {
	_, err := ParseStrategy([]byte("name: [broken"))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidStrategy))

	_, err = ParseStrategy([]byte("name: incomplete"))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidStrategy))
}

func (suite *StrategyTestSuite) TestLoadStrategyFile() {
	path := filepath.Join(suite.T().TempDir(), "strategy.yaml")
	doc := []byte("name: t\nentry_long: ABOVE(CLOSE, 1)\nexit_long: BELOW(CLOSE, 1)\nposition_size: 0.5\nmax_positions: 1\n")
	suite.Require().NoError(os.WriteFile(path, doc, 0644))

	s, err := LoadStrategyFile(path)
	suite.Require().NoError(err)
	suite.Equal("t", s.Name)

	_, err = LoadStrategyFile(filepath.Join(suite.T().TempDir(), "missing.yaml"))
	suite.Error(err)
}
