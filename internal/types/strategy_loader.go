package types

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quantforge/ruleback/pkg/errors"
)

// ParseStrategy decodes a strategy definition from YAML and validates it.
func ParseStrategy(data []byte) (*Strategy, error) {
	var strategy Strategy
	if err := yaml.Unmarshal(data, &strategy); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidStrategy, "failed to parse strategy yaml", err)
	}

	if err := strategy.Validate(); err != nil {
		return nil, err
	}

	return &strategy, nil
}

// LoadStrategyFile reads and parses a strategy definition from disk.
func LoadStrategyFile(path string) (*Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidStrategy, err, "failed to read strategy file %s", path)
	}

	return ParseStrategy(data)
}
