// Package tracing records the work of a di.Injector as OpenTelemetry spans:
// one span per plan compilation and one per component invocation. Step
// spans are children of the span found in the context passed to the
// injector, so they nest below the span of the surrounding request.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/deep-rent/wiring/di"
)

// ScopeName is the instrumentation scope of the created tracer.
const ScopeName = "github.com/deep-rent/wiring/di"

// Attribute keys set on the recorded spans.
const (
	KeyTarget    = attribute.Key("di.target")
	KeyStep      = attribute.Key("di.step")
	KeyComponent = attribute.Key("di.component")
	KeyCaller    = attribute.Key("di.caller")
	KeySteps     = attribute.Key("di.steps")
)

type config struct {
	provider trace.TracerProvider
}

// Option configures an Observer.
type Option func(*config)

// WithTracerProvider sets the provider from which the tracer is obtained.
// If not set, the global provider is used. A nil value will be ignored.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.provider = tp
		}
	}
}

// Observer implements di.Observer by creating spans.
type Observer struct {
	di.NopObserver
	tracer trace.Tracer
}

// New creates a new Observer.
func New(opts ...Option) *Observer {
	cfg := config{provider: otel.GetTracerProvider()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Observer{tracer: cfg.provider.Tracer(ScopeName)}
}

// Compiled implements di.Observer. The span is backdated to cover the
// compilation.
func (o *Observer) Compiled(t di.Target, plan *di.Plan, err error, elapsed time.Duration) {
	end := time.Now()
	_, span := o.tracer.Start(
		context.Background(),
		"di.compile",
		trace.WithTimestamp(end.Add(-elapsed)),
		trace.WithAttributes(KeyTarget.String(t.Name)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(KeySteps.Int(len(plan.Steps)))
	}
	span.End(trace.WithTimestamp(end))
}

// StepStarted implements di.Observer.
func (o *Observer) StepStarted(ctx context.Context, s *di.Step) (context.Context, func(error)) {
	attrs := []attribute.KeyValue{
		KeyStep.String(s.ID),
		KeyComponent.String(di.Name(s.Component)),
	}
	if s.Caller != nil {
		attrs = append(attrs, KeyCaller.String(s.Caller.Name))
	}
	ctx, span := o.tracer.Start(
		ctx,
		"di.resolve "+di.Name(s.Component),
		trace.WithAttributes(attrs...),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

var _ di.Observer = (*Observer)(nil)
