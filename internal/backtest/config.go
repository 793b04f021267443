package backtest

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/quantforge/ruleback/internal/backtest/cost"
	"github.com/quantforge/ruleback/pkg/errors"
)

// Config carries the run-level parameters of a backtest: starting capital,
// the cost schedule applied to every fill, the risk-free rate for the
// metrics pass, and optional timeline bounds.
type Config struct {
	InitialCapital float64       `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting cash for the run,minimum=0" validate:"gt=0"`
	RiskFreeRate   float64       `yaml:"risk_free_rate" json:"risk_free_rate" jsonschema:"title=Risk Free Rate,description=Annual risk-free rate used by Sharpe and Sortino" validate:"gte=0"`
	Costs          cost.Schedule `yaml:"costs" json:"costs"`
	// MinBars is the minimum bar count an instrument needs to enter the
	// universe.
	MinBars   int                        `yaml:"min_bars" json:"min_bars" validate:"gte=0"`
	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the backtest period"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the backtest period"`
}

// DefaultConfig returns a config with sane defaults and zero costs.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 100000,
		RiskFreeRate:   0,
		Costs:          cost.Zero(),
		MinBars:        30,
		StartTime:      optional.None[time.Time](),
		EndTime:        optional.None[time.Time](),
	}
}

// UnmarshalYAML implements custom unmarshaling so optional times can be
// given as plain timestamps or omitted.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type plain struct {
		InitialCapital float64       `yaml:"initial_capital"`
		RiskFreeRate   float64       `yaml:"risk_free_rate"`
		Costs          cost.Schedule `yaml:"costs"`
		MinBars        int           `yaml:"min_bars"`
		StartTime      *time.Time    `yaml:"start_time"`
		EndTime        *time.Time    `yaml:"end_time"`
	}

	// Seed with the current values so a partial document keeps defaults.
	raw := plain{
		InitialCapital: c.InitialCapital,
		RiskFreeRate:   c.RiskFreeRate,
		Costs:          c.Costs,
		MinBars:        c.MinBars,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.InitialCapital = raw.InitialCapital
	c.RiskFreeRate = raw.RiskFreeRate
	c.Costs = raw.Costs
	c.MinBars = raw.MinBars
	c.StartTime = optional.None[time.Time]()
	c.EndTime = optional.None[time.Time]()

	if raw.StartTime != nil {
		c.StartTime = optional.Some(*raw.StartTime)
	}

	if raw.EndTime != nil {
		c.EndTime = optional.Some(*raw.EndTime)
	}

	return nil
}

// ParseConfig unmarshals and validates a YAML config document.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks the config against its declared constraints.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	return nil
}

// GenerateSchema generates a JSON schema for the Config.
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-config"
	schema.Description = "Configuration schema for a backtest run"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates a JSON schema string for the Config.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
