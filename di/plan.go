package di

import (
	"context"
	"fmt"
	"slices"
)

// Source tells where the value of an Input comes from at execution time.
type Source uint8

const (
	// SourceAmbient reads the runtime value registered under an ambient name.
	SourceAmbient Source = iota
	// SourceStep reads the result of an earlier Step.
	SourceStep
	// SourceValue reads an externally supplied value by parameter name; this
	// is the fallback for builtin types no component handles.
	SourceValue
	// SourceCaller is the constant slot holding the calling parameter.
	SourceCaller
)

// String returns the lower-case name of the source.
func (s Source) String() string {
	switch s {
	case SourceAmbient:
		return "ambient"
	case SourceStep:
		return "step"
	case SourceValue:
		return "value"
	case SourceCaller:
		return "caller"
	default:
		return fmt.Sprintf("source(%d)", uint8(s))
	}
}

// Input wires one parameter to the place its value is read from.
type Input struct {
	Param  Parameter
	Source Source
	// Key is the ambient name, the step ID, or the parameter name, depending
	// on Source.
	Key string
}

// Step is a single component invocation within a plan.
type Step struct {
	ID        string
	Component Component
	Inputs    []Input
	// Caller is the parameter the component was resolved for. It is only
	// set for CallerAware components.
	Caller *Parameter
}

// Root is the terminal node of a plan; it represents the target itself.
type Root struct {
	Inputs []Input
}

// Plan is the compiled recipe for filling the parameters of a target.
//
// Steps are sorted topologically by construction: every input of a step is
// either read from the runtime context or produced by a step that appears
// earlier in the list. Plans are immutable once built and safe for
// concurrent execution.
type Plan struct {
	TargetID   string
	TargetName string
	Steps      []Step
	Root       Root
}

// Required lists the names the plan reads from the runtime context, in
// order of first use and without duplicates.
func (p *Plan) Required() []string {
	var names []string
	add := func(in Input) {
		if in.Source != SourceAmbient && in.Source != SourceValue {
			return
		}
		if !slices.Contains(names, in.Key) {
			names = append(names, in.Key)
		}
	}
	for _, s := range p.Steps {
		for _, in := range s.Inputs {
			add(in)
		}
	}
	for _, in := range p.Root.Inputs {
		add(in)
	}
	return names
}

// Execute runs the plan against the given runtime values and returns the
// kwargs of the target. It does not use any value cache or observer; see
// Injector.Kwargs for the fully configured variant.
func (p *Plan) Execute(ctx context.Context, values Values) (Kwargs, error) {
	return p.run(ctx, values, nil, nopObserver{})
}

// run executes the steps strictly in plan order.
func (p *Plan) run(
	ctx context.Context,
	values Values,
	cache ValueCache,
	obs Observer,
) (Kwargs, error) {
	results := make(map[string]any, len(p.Steps))
	for i := range p.Steps {
		s := &p.Steps[i]
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		args, err := gather(s.Inputs, s.Caller, values, results)
		if err != nil {
			return nil, err
		}
		v, err := s.invoke(ctx, args, cache, obs)
		if err != nil {
			return nil, err
		}
		results[s.ID] = v
	}
	kwargs, err := gather(p.Root.Inputs, nil, values, results)
	if err != nil {
		return nil, err
	}
	return Kwargs(kwargs), nil
}

func (s *Step) invoke(
	ctx context.Context,
	args map[string]any,
	cache ValueCache,
	obs Observer,
) (v any, err error) {
	a := Args{values: args, caller: s.Caller}

	var key string
	if cache != nil {
		if k, ok := s.Component.(Keyer); ok {
			if ck, ok := k.CacheKey(a); ok {
				key = s.ID + "#" + ck
				if v, ok := cache.Get(key); ok {
					return v, nil
				}
			}
		}
	}

	ctx, done := obs.StepStarted(ctx, s)
	defer func() { done(err) }()

	v, err = s.resolve(ctx, a)
	if err != nil {
		return nil, err
	}
	if key != "" {
		cache.Add(key, v)
	}
	return v, nil
}

// resolve calls the component, converting a panic into a *PanicError.
func (s *Step) resolve(ctx context.Context, a Args) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v, err = nil, &PanicError{ID: s.ID, Value: rec}
		}
	}()
	return s.Component.Resolve(ctx, a)
}

func gather(
	inputs []Input,
	caller *Parameter,
	values Values,
	results map[string]any,
) (map[string]any, error) {
	out := make(map[string]any, len(inputs))
	for _, in := range inputs {
		switch in.Source {
		case SourceStep:
			v, ok := results[in.Key]
			if !ok {
				// Unreachable for plans built by the resolver.
				return nil, fmt.Errorf("step %q has not been executed", in.Key)
			}
			out[in.Param.Name] = v
		case SourceCaller:
			if caller != nil {
				out[in.Param.Name] = *caller
			}
		default:
			v, ok := values[in.Key]
			if !ok {
				if !in.Param.HasDefault() {
					return nil, &MissingValueError{Name: in.Key}
				}
				v = in.Param.Default
			}
			out[in.Param.Name] = v
		}
	}
	return out, nil
}

// Description is a serializable summary of a plan, meant for debugging.
type Description struct {
	Target   string             `json:"target"`
	Required []string           `json:"required,omitempty"`
	Steps    []StepDescription  `json:"steps"`
	Root     []InputDescription `json:"root"`
}

// StepDescription summarizes a Step.
type StepDescription struct {
	ID        string             `json:"id"`
	Component string             `json:"component"`
	Caller    string             `json:"caller,omitempty"`
	Inputs    []InputDescription `json:"inputs,omitempty"`
}

// InputDescription summarizes an Input.
type InputDescription struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Source string `json:"source"`
	Key    string `json:"key"`
}

// Describe returns a serializable summary of p.
func (p *Plan) Describe() Description {
	d := Description{
		Target:   p.TargetName,
		Required: p.Required(),
		Steps:    make([]StepDescription, len(p.Steps)),
		Root:     describe(p.Root.Inputs),
	}
	for i, s := range p.Steps {
		sd := StepDescription{
			ID:        s.ID,
			Component: Name(s.Component),
			Inputs:    describe(s.Inputs),
		}
		if s.Caller != nil {
			sd.Caller = s.Caller.Name
		}
		d.Steps[i] = sd
	}
	return d
}

func describe(inputs []Input) []InputDescription {
	out := make([]InputDescription, len(inputs))
	for i, in := range inputs {
		out[i] = InputDescription{
			Name:   in.Param.Name,
			Type:   typeName(in.Param.Type),
			Source: in.Source.String(),
			Key:    in.Key,
		}
	}
	return out
}
