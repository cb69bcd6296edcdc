package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrNotCallable is returned by Inject for targets without a function.
var ErrNotCallable = errors.New("target is not callable")

// ValueCache stores resolved values of components that implement Keyer.
// A *cache.Cache[string, any] satisfies this interface.
type ValueCache interface {
	Get(key string) (any, bool)
	Add(key string, value any) bool
}

// Call is a target function with all of its parameters bound.
type Call func(ctx context.Context) (any, error)

// config holds configuration options for an Injector.
type config struct {
	ambient    Ambient
	components []Component
	cache      ValueCache
	observers  []Observer
	logger     *slog.Logger
}

// Option configures an Injector.
type Option func(*config)

// WithAmbient sets the static context table. A nil value is ignored.
func WithAmbient(a Ambient) Option {
	return func(c *config) {
		if a != nil {
			c.ambient = a
		}
	}
}

// WithComponents appends components to the registry. The registration order
// is significant: when several components can handle a parameter, the one
// registered first wins.
func WithComponents(components ...Component) Option {
	return func(c *config) {
		c.components = append(c.components, components...)
	}
}

// WithValueCache enables reuse of values produced by Keyer components.
func WithValueCache(cache ValueCache) Option {
	return func(c *config) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithObserver adds an observer. It may be given multiple times.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithLogger sets the logger of the injector. If not set, slog.Default() is
// used. A nil value will be ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Injector compiles targets into plans, caches those plans per target ID, and
// executes them against runtime values.
//
// An Injector is safe for concurrent use. Changing the registered components
// or the ambient table drops all cached plans.
type Injector struct {
	cache  ValueCache
	obs    Observer
	logger *slog.Logger

	mu       sync.RWMutex
	resolver *resolver
	plans    map[string]*Plan
	gen      uint64
	group    singleflight.Group
}

// New creates an Injector with the given options.
func New(opts ...Option) *Injector {
	cfg := config{
		ambient: make(Ambient),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Injector{
		cache:    cfg.cache,
		obs:      Observers(cfg.observers...),
		logger:   cfg.logger,
		resolver: newResolver(cfg.ambient, cfg.components),
		plans:    make(map[string]*Plan),
	}
}

// Resolve returns the plan of t, compiling it on first use. A target without
// an ID is cached under the signature derived from its name and parameters,
// as NewTarget would assign it.
//
// Concurrent first calls for the same target share one compilation. A
// failed compilation is not cached, so a later call will try again.
func (in *Injector) Resolve(t Target) (*Plan, error) {
	if t.ID == "" {
		t.ID = signature(t.Name, t.Params)
	}

	in.mu.RLock()
	plan, ok := in.plans[t.ID]
	r, gen := in.resolver, in.gen
	in.mu.RUnlock()

	if ok {
		in.obs.PlanHit(t)
		return plan, nil
	}

	key := strconv.FormatUint(gen, 10) + "|" + t.ID
	v, err, _ := in.group.Do(key, func() (any, error) {
		start := time.Now()
		plan, err := r.compile(t)
		elapsed := time.Since(start)
		in.obs.Compiled(t, plan, err, elapsed)
		if err != nil {
			in.logger.Warn(
				"Plan compilation failed",
				"target", t.Name,
				"error", err,
			)
			return nil, err
		}

		in.mu.Lock()
		if in.gen == gen {
			in.plans[t.ID] = plan
		}
		in.mu.Unlock()

		in.logger.Debug(
			"Plan compiled",
			"target", t.Name,
			"steps", len(plan.Steps),
			"elapsed", elapsed,
		)
		return plan, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Plan), nil
}

// ResolveParameter returns the plan for producing a single value for p.
func (in *Injector) ResolveParameter(p Parameter) (*Plan, error) {
	return in.Resolve(parameterTarget(p))
}

// Kwargs resolves the plan of t and executes it against values.
func (in *Injector) Kwargs(ctx context.Context, t Target, values Values) (Kwargs, error) {
	plan, err := in.Resolve(t)
	if err != nil {
		return nil, err
	}
	return plan.run(ctx, values, in.cache, in.obs)
}

// Inject resolves and executes the plan of t and returns its function bound
// to the computed values. Calling the result performs no further
// resolution.
func (in *Injector) Inject(ctx context.Context, t Target, values Values) (Call, error) {
	if t.Fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotCallable, t.Name)
	}
	kwargs, err := in.Kwargs(ctx, t, values)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (any, error) {
		return t.Fn(ctx, kwargs)
	}, nil
}

// Value produces a single value for p.
func (in *Injector) Value(ctx context.Context, p Parameter, values Values) (any, error) {
	kwargs, err := in.Kwargs(ctx, parameterTarget(p), values)
	if err != nil {
		return nil, err
	}
	return kwargs[p.Name], nil
}

// Warm compiles the plans of all given targets up front, so that
// configuration errors surface at startup rather than on first use. All
// failures are reported together.
func (in *Injector) Warm(targets ...Target) error {
	var errs []error
	for _, t := range targets {
		if _, err := in.Resolve(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Register appends components to the registry and drops all cached plans.
func (in *Injector) Register(components ...Component) {
	in.mu.Lock()
	defer in.mu.Unlock()
	r := in.resolver
	in.reset(newResolver(r.ambient, append(slices.Clone(r.components), components...)))
}

// SetComponents replaces the registry and drops all cached plans.
func (in *Injector) SetComponents(components ...Component) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.reset(newResolver(in.resolver.ambient, components))
}

// SetAmbient replaces the static context table and drops all cached plans.
func (in *Injector) SetAmbient(a Ambient) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.reset(newResolver(a, in.resolver.components))
}

// Components returns a copy of the registry in registration order.
func (in *Injector) Components() []Component {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return slices.Clone(in.resolver.components)
}

// Drop discards all cached plans.
func (in *Injector) Drop() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.reset(in.resolver)
}

// Len returns the number of cached plans.
func (in *Injector) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.plans)
}

// reset must be called with the write lock held. Bumping the generation
// keeps compilations that are still in flight from storing stale plans.
func (in *Injector) reset(r *resolver) {
	n := len(in.plans)
	in.resolver = r
	in.plans = make(map[string]*Plan)
	in.gen++
	if n > 0 {
		in.logger.Info("Cached plans dropped", "count", n)
	}
}

func parameterTarget(p Parameter) Target {
	return Target{
		ID:     "param:" + p.Name + " " + typeID(p.Type),
		Name:   p.Name,
		Params: []Parameter{p},
	}
}
