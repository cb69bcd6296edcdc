package di

import (
	"context"
	"time"
)

// Observer receives notifications about the injector's work. Implementations
// must be safe for concurrent use.
type Observer interface {
	// Compiled is called after every plan compilation, successful or not.
	// It is not called when a plan is served from the cache.
	Compiled(t Target, plan *Plan, err error, elapsed time.Duration)
	// PlanHit is called whenever a cached plan is reused.
	PlanHit(t Target)
	// StepStarted is called before a component is invoked. The returned
	// function is called with the outcome once the component returns.
	StepStarted(ctx context.Context, s *Step) (context.Context, func(error))
}

// NopObserver implements Observer by doing nothing. Embed it to implement
// only some of the hooks.
type NopObserver struct{}

// Compiled implements Observer.
func (NopObserver) Compiled(Target, *Plan, error, time.Duration) {}

// PlanHit implements Observer.
func (NopObserver) PlanHit(Target) {}

// StepStarted implements Observer.
func (NopObserver) StepStarted(ctx context.Context, _ *Step) (context.Context, func(error)) {
	return ctx, func(error) {}
}

type nopObserver = NopObserver

type multiObserver []Observer

// Observers combines several observers into one. Hooks are invoked in the
// given order; StepStarted finishers run in reverse order.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return NopObserver{}
	case 1:
		return m[0]
	default:
		return m
	}
}

func (m multiObserver) Compiled(t Target, plan *Plan, err error, elapsed time.Duration) {
	for _, o := range m {
		o.Compiled(t, plan, err, elapsed)
	}
}

func (m multiObserver) PlanHit(t Target) {
	for _, o := range m {
		o.PlanHit(t)
	}
}

func (m multiObserver) StepStarted(ctx context.Context, s *Step) (context.Context, func(error)) {
	done := make([]func(error), len(m))
	for i, o := range m {
		ctx, done[i] = o.StepStarted(ctx, s)
	}
	return ctx, func(err error) {
		for i := len(done) - 1; i >= 0; i-- {
			done[i](err)
		}
	}
}
