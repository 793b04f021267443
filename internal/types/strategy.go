package types

import (
	"github.com/go-playground/validator/v10"

	"github.com/quantforge/ruleback/pkg/errors"
)

// Strategy is the declarative description of a rule-based trading strategy.
// The rule fields hold uncompiled condition expressions; the rule engine
// compiles them once at load time. EntryLong and ExitLong are mandatory,
// the short-side rules are optional.
type Strategy struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`

	EntryLong  string `yaml:"entry_long" validate:"required"`
	ExitLong   string `yaml:"exit_long" validate:"required"`
	EntryShort string `yaml:"entry_short"`
	ExitShort  string `yaml:"exit_short"`

	// PositionSize is the fraction of available cash committed per new
	// position, in (0, 1].
	PositionSize float64 `yaml:"position_size" validate:"gt=0,lte=1"`
	// StopLossPct and TakeProfitPct are fractional distances from the fill
	// price; zero disables the corresponding trigger.
	StopLossPct   float64 `yaml:"stop_loss_pct" validate:"gte=0"`
	TakeProfitPct float64 `yaml:"take_profit_pct" validate:"gte=0"`
	// MaxPositions caps simultaneously open positions across all codes.
	MaxPositions int `yaml:"max_positions" validate:"gte=1"`
}

// ShortingEnabled reports whether the strategy defines a short side.
func (s *Strategy) ShortingEnabled() bool {
	return s.EntryShort != "" && s.ExitShort != ""
}

// Validate checks the strategy record against its declared constraints.
func (s *Strategy) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidStrategy, "invalid strategy", err)
	}

	return nil
}
