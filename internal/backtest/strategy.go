package backtest

import (
	"github.com/quantforge/ruleback/internal/indicator"
	"github.com/quantforge/ruleback/internal/rule"
	"github.com/quantforge/ruleback/internal/types"
	"github.com/quantforge/ruleback/pkg/errors"
)

// CompiledStrategy is a strategy record whose rule texts have been compiled
// into immutable trees. Compilation is all-or-nothing: any rule failing to
// parse aborts the load and no partial strategy is returned.
type CompiledStrategy struct {
	Spec types.Strategy

	EntryLong  *rule.Rule
	ExitLong   *rule.Rule
	EntryShort *rule.Rule
	ExitShort  *rule.Rule

	// Keys is the union of indicator signatures across all four rules.
	Keys []indicator.Key
}

// CompileStrategy validates the record and compiles its rule texts.
func CompileStrategy(spec types.Strategy, registry *indicator.Registry) (*CompiledStrategy, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	compiled := &CompiledStrategy{Spec: spec}

	var err error

	compiled.EntryLong, err = rule.Compile(spec.EntryLong, registry)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidStrategy, err, "strategy %s: entry_long", spec.Name)
	}

	compiled.ExitLong, err = rule.Compile(spec.ExitLong, registry)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidStrategy, err, "strategy %s: exit_long", spec.Name)
	}

	if spec.EntryShort != "" {
		compiled.EntryShort, err = rule.Compile(spec.EntryShort, registry)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidStrategy, err, "strategy %s: entry_short", spec.Name)
		}
	}

	if spec.ExitShort != "" {
		compiled.ExitShort, err = rule.Compile(spec.ExitShort, registry)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidStrategy, err, "strategy %s: exit_short", spec.Name)
		}
	}

	compiled.Keys = mergeKeys(compiled.EntryLong, compiled.ExitLong, compiled.EntryShort, compiled.ExitShort)

	return compiled, nil
}

func mergeKeys(rules ...*rule.Rule) []indicator.Key {
	var keys []indicator.Key

	seen := make(map[string]bool)

	for _, r := range rules {
		if r == nil {
			continue
		}

		for _, key := range r.Keys {
			if !seen[key.String()] {
				seen[key.String()] = true
				keys = append(keys, key)
			}
		}
	}

	return keys
}
