package di

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// Component is a registered provider of typed values.
//
// Instead of inspecting live function signatures, a component declares as
// data which type it produces and which parameters it needs. The injector
// resolves those dependencies exactly like the parameters of a target and
// hands them to Resolve.
type Component interface {
	// Provides returns the type of the values created by Resolve. By default
	// a component handles every parameter declared with exactly this type.
	Provides() reflect.Type
	// Dependencies lists the parameters that Resolve expects in its Args.
	Dependencies() []Parameter
	// Resolve produces the value. An error returned here propagates to the
	// caller of the injector unchanged.
	Resolve(ctx context.Context, args Args) (any, error)
}

// Matcher can be implemented by a Component to replace the default, purely
// type-based dispatch, for example to serve parameters by name.
type Matcher interface {
	CanHandleParameter(p Parameter) bool
}

// Identifier can be implemented by a Component to control the identity under
// which its resolution is deduplicated and stored within a plan.
type Identifier interface {
	Identity(p Parameter) string
}

// CallerAware can be implemented by a Component whose Resolve inspects the
// parameter it is resolved for (e.g., to look up a header by name). The
// resolver then places that parameter into the Args as a constant slot, and
// the default identity becomes specific to the parameter name.
type CallerAware interface {
	UsesCaller() bool
}

// Keyer can be implemented by a Component whose results may be reused across
// calls. CacheKey derives a key from the resolved inputs; returning false
// skips the value cache for this particular call.
type Keyer interface {
	CacheKey(args Args) (string, bool)
}

// CanHandle reports whether c is able to produce a value for p.
func CanHandle(c Component, p Parameter) bool {
	if m, ok := c.(Matcher); ok {
		return m.CanHandleParameter(p)
	}
	return p.Type != nil && p.Type == c.Provides()
}

// parameterType is the type of dependencies that request the calling
// parameter explicitly.
var parameterType = reflect.TypeFor[Parameter]()

// UsesCaller reports whether c requests the calling parameter, either by
// being CallerAware or by declaring a dependency of type Parameter.
func UsesCaller(c Component) bool {
	if a, ok := c.(CallerAware); ok && a.UsesCaller() {
		return true
	}
	for _, d := range c.Dependencies() {
		if d.Type == parameterType {
			return true
		}
	}
	return false
}

// Identity computes the identity of resolving p with c. The default is
// derived from the identity and name of the parameter's type and the name of
// c, so that distinct components serving the same type never share a step.
// It is extended by the parameter name if c is CallerAware or dispatches by
// a custom Matcher. Otherwise two call sites with different names would end
// up sharing a single resolution.
func Identity(c Component, p Parameter) string {
	if i, ok := c.(Identifier); ok {
		return i.Identity(p)
	}
	id := typeID(p.Type) + ":" + shortName(p.Type) + "@" + Name(c)
	if UsesCaller(c) || matches(c) {
		id += ":" + strings.ToLower(p.Name)
	}
	return id
}

// matches reports whether c replaces the type-based dispatch.
func matches(c Component) bool {
	if p, ok := c.(*Provider); ok {
		return p.match != nil
	}
	_, ok := c.(Matcher)
	return ok
}

// Name returns a human-readable name for c, used in errors and logs.
func Name(c Component) string {
	if c == nil {
		return "<nil>"
	}
	if s, ok := c.(fmt.Stringer); ok {
		return s.String()
	}
	t := reflect.TypeOf(c)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Args carries the resolved inputs of a single component invocation.
type Args struct {
	values map[string]any
	caller *Parameter
}

// NewArgs creates Args from the given values. It is mainly useful for
// testing components in isolation.
func NewArgs(values map[string]any, caller *Parameter) Args {
	return Args{values: values, caller: caller}
}

// Lookup returns the input stored under name.
func (a Args) Lookup(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

// Get returns the input stored under name, or nil if absent.
func (a Args) Get(name string) any { return a.values[name] }

// Len returns the number of inputs.
func (a Args) Len() int { return len(a.values) }

// Caller returns the parameter the component is being resolved for. It is
// only available to CallerAware components.
func (a Args) Caller() (Parameter, bool) {
	if a.caller == nil {
		return Parameter{}, false
	}
	return *a.caller, true
}

// Arg returns the input stored under name as T. It returns the zero value of
// T if the input is absent or of a different type.
func Arg[T any](a Args, name string) T {
	v, _ := a.values[name].(T)
	return v
}

// Provider is a Component backed by a plain function. Use Provide to create
// one.
type Provider struct {
	name   string
	typ    reflect.Type
	deps   []Parameter
	caller bool
	match  func(Parameter) bool
	key    func(Args) (string, bool)
	fn     func(ctx context.Context, args Args) (any, error)
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// Needs declares the dependencies of the provider, in order.
func Needs(deps ...Parameter) ProviderOption {
	return func(p *Provider) {
		p.deps = append(p.deps, deps...)
	}
}

// WithCaller makes the provider CallerAware.
func WithCaller() ProviderOption {
	return func(p *Provider) {
		p.caller = true
	}
}

// Matching replaces the type-based dispatch with fn. A nil value is ignored.
func Matching(fn func(Parameter) bool) ProviderOption {
	return func(p *Provider) {
		if fn != nil {
			p.match = fn
		}
	}
}

// Cached opts the provider into the value cache using the given key
// function. A nil value is ignored.
func Cached(key func(Args) (string, bool)) ProviderOption {
	return func(p *Provider) {
		if key != nil {
			p.key = key
		}
	}
}

// Provide creates a Provider that produces values of type T by calling fn.
func Provide[T any](
	name string,
	fn func(ctx context.Context, args Args) (T, error),
	opts ...ProviderOption,
) *Provider {
	p := &Provider{
		name: name,
		typ:  reflect.TypeFor[T](),
		fn: func(ctx context.Context, args Args) (any, error) {
			return fn(ctx, args)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provides implements the Component interface.
func (p *Provider) Provides() reflect.Type { return p.typ }

// Dependencies implements the Component interface.
func (p *Provider) Dependencies() []Parameter { return p.deps }

// Resolve implements the Component interface.
func (p *Provider) Resolve(ctx context.Context, args Args) (any, error) {
	return p.fn(ctx, args)
}

// UsesCaller implements the CallerAware interface.
func (p *Provider) UsesCaller() bool { return p.caller }

// CanHandleParameter implements the Matcher interface.
func (p *Provider) CanHandleParameter(param Parameter) bool {
	if p.match != nil {
		return p.match(param)
	}
	return param.Type == p.typ
}

// CacheKey implements the Keyer interface.
func (p *Provider) CacheKey(args Args) (string, bool) {
	if p.key == nil {
		return "", false
	}
	return p.key(args)
}

// String returns the name of the provider.
func (p *Provider) String() string {
	if p.name != "" {
		return p.name
	}
	return "Provider[" + typeName(p.typ) + "]"
}

var (
	_ Component   = (*Provider)(nil)
	_ Matcher     = (*Provider)(nil)
	_ CallerAware = (*Provider)(nil)
	_ Keyer       = (*Provider)(nil)
)
