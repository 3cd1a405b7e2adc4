// Package compute exposes the tdigest aggregate as a named function and
// runs it over partitioned input.
package compute

import (
	"slices"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/xtxerr/quantile/internal/aggregate"
	"github.com/xtxerr/quantile/internal/constants"
	"github.com/xtxerr/quantile/internal/errors"
)

// InitFunc creates the per-partition state of an aggregate function.
type InitFunc func(dt arrow.DataType, opts *aggregate.Options) (aggregate.Aggregator, error)

// Function describes a registered aggregate function.
type Function struct {
	Name           string
	Doc            string
	DefaultOptions func() *aggregate.Options
	Init           InitFunc
}

// NewState creates a partition state. Nil options mean the function's
// defaults.
func (f *Function) NewState(dt arrow.DataType, opts *aggregate.Options) (aggregate.Aggregator, error) {
	if opts == nil && f.DefaultOptions != nil {
		opts = f.DefaultOptions()
	}
	return f.Init(dt, opts)
}

// Registry maps function names to functions. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*Function
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Function)}
}

// Register adds fn. A name that is already taken yields ErrAlreadyExists.
func (r *Registry) Register(fn *Function) error {
	if fn == nil || fn.Name == "" {
		return errors.NewMissingField("function name")
	}
	if fn.Init == nil {
		return errors.NewMissingField("function init")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[fn.Name]; exists {
		return errors.NewAlreadyExists("function", fn.Name)
	}
	r.funcs[fn.Name] = fn
	return nil
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (*Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.funcs[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrFunctionNotFound, "function '%s'", name)
	}
	return fn, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// TDigest returns the description of the tdigest function.
func TDigest() *Function {
	return &Function{
		Name: constants.FunctionTDigest,
		Doc: "Approximate quantiles with a t-digest. Nulls are skipped unless " +
			"skip_nulls is false, in which case any null makes the result null. " +
			"The result is null when fewer than min_count values were seen.",
		DefaultOptions: aggregate.DefaultOptions,
		Init:           aggregate.New,
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry holding tdigest.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		if err := defaultRegistry.Register(TDigest()); err != nil {
			panic(err)
		}
	})
	return defaultRegistry
}
