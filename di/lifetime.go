package di

import (
	"context"
	"reflect"
	"sync"
)

// singleton wraps a component so that it is resolved at most once per
// process. It keeps the dispatch and identity of the wrapped component.
type singleton struct {
	Component

	mu    sync.Mutex
	done  bool
	value any
	// wait is closed once the resolution in flight returns. It is nil while
	// no resolution is in flight.
	wait chan struct{}
}

// Singleton returns a component that resolves c once and reuses the value
// for every later call, across plans and requests. Inputs that change after
// the first successful resolution are ignored. A failed resolution is not
// remembered and will be retried by the next call.
func Singleton(c Component) Component {
	return &singleton{Component: c}
}

// Resolve implements the Component interface. Only one caller resolves the
// wrapped component at a time; the others wait for its outcome until their
// own context is done.
func (s *singleton) Resolve(ctx context.Context, args Args) (any, error) {
	for {
		s.mu.Lock()
		if s.done {
			v := s.value
			s.mu.Unlock()
			return v, nil
		}
		if s.wait == nil {
			s.wait = make(chan struct{})
			s.mu.Unlock()
			return s.lead(ctx, args)
		}
		wait := s.wait
		s.mu.Unlock()

		select {
		case <-wait:
			// Either done, or failed and up for another attempt.
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// lead performs the resolution and wakes up all waiting callers, even if
// the wrapped component panics.
func (s *singleton) lead(ctx context.Context, args Args) (v any, err error) {
	ok := false
	defer func() {
		s.mu.Lock()
		if ok {
			s.value, s.done = v, true
		}
		close(s.wait)
		s.wait = nil
		s.mu.Unlock()
	}()
	v, err = s.Component.Resolve(ctx, args)
	ok = err == nil
	return v, err
}

// CanHandleParameter implements the Matcher interface.
func (s *singleton) CanHandleParameter(p Parameter) bool {
	return CanHandle(s.Component, p)
}

// Identity implements the Identifier interface.
func (s *singleton) Identity(p Parameter) string {
	return Identity(s.Component, p)
}

// UsesCaller implements the CallerAware interface.
func (s *singleton) UsesCaller() bool {
	return UsesCaller(s.Component)
}

func (s *singleton) String() string {
	return "Singleton[" + Name(s.Component) + "]"
}

// constant is a component that always yields the same value.
type constant struct {
	typ   reflect.Type
	value any
}

// Constant returns a component that handles parameters of type T by handing
// out v. It is the simplest way to make long-lived services like database
// handles or loggers injectable.
func Constant[T any](v T) Component {
	return &constant{typ: reflect.TypeFor[T](), value: v}
}

// Provides implements the Component interface.
func (c *constant) Provides() reflect.Type { return c.typ }

// Dependencies implements the Component interface.
func (c *constant) Dependencies() []Parameter { return nil }

// Resolve implements the Component interface.
func (c *constant) Resolve(context.Context, Args) (any, error) {
	return c.value, nil
}

func (c *constant) String() string {
	return "Constant[" + typeName(c.typ) + "]"
}

var (
	_ Matcher     = (*singleton)(nil)
	_ Identifier  = (*singleton)(nil)
	_ CallerAware = (*singleton)(nil)
)
