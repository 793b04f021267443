package indicator

import (
	"sync"

	"github.com/quantforge/ruleback/internal/types"
	"github.com/quantforge/ruleback/pkg/errors"
)

// ComputeFunc computes a single-output series for a generic kind+period
// indicator. Implementations must honor the warm-up contract: slots the
// indicator cannot yet produce stay undefined.
type ComputeFunc func(key Key, period int, bars []types.Bar) (*Series, error)

// Registry holds the generic kind+period dispatch table for indicator kinds
// that are not builtin. Each backtest run may carry its own registry; the
// zero registry simply knows nothing.
type Registry struct {
	funcs map[Kind]ComputeFunc
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[Kind]ComputeFunc),
	}
}

// Register adds a compute function for a kind.
func (r *Registry) Register(kind Kind, fn ComputeFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[kind]; exists {
		return errors.Newf(errors.ErrCodeInvalidRule, "indicator kind %q already registered", kind)
	}

	r.funcs[kind] = fn

	return nil
}

// Lookup retrieves the compute function for a kind.
func (r *Registry) Lookup(kind Kind) (ComputeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.funcs[kind]

	return fn, ok
}

// Kinds returns all registered generic kinds.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.funcs))
	for kind := range r.funcs {
		kinds = append(kinds, kind)
	}

	return kinds
}
