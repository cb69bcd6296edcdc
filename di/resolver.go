package di

import (
	"errors"
	"slices"
)

// resolver compiles targets into plans. It is immutable; the injector swaps
// it out whenever the configured components or ambient types change.
type resolver struct {
	ambient    Ambient
	components []Component
}

func newResolver(ambient Ambient, components []Component) *resolver {
	return &resolver{
		ambient:    ambient.Clone(),
		components: slices.Clone(components),
	}
}

// build is the state of a single compilation.
type build struct {
	r *resolver
	// seen holds the identities that already have a step, seeded with the
	// ambient names so that no step can ever shadow them.
	seen map[string]bool
	// active is the chain of identities currently being walked.
	active []string
	steps  []Step
}

// compile walks the parameters of t depth-first and returns its plan.
func (r *resolver) compile(t Target) (*Plan, error) {
	b := &build{
		r:    r,
		seen: make(map[string]bool, len(r.ambient)),
	}
	for _, name := range r.ambient {
		b.seen[name] = true
	}

	inputs := make([]Input, 0, len(t.Params))
	for _, p := range t.Params {
		in, err := b.param(p, nil)
		if err != nil {
			return nil, enrichTarget(err, t)
		}
		inputs = append(inputs, in)
	}

	return &Plan{
		TargetID:   t.ID,
		TargetName: t.Name,
		Steps:      b.steps,
		Root:       Root{Inputs: inputs},
	}, nil
}

// find returns the first registered component able to handle p.
func (r *resolver) find(p Parameter) Component {
	for _, c := range r.components {
		if CanHandle(c, p) {
			return c
		}
	}
	return nil
}

// param decides where the value of p comes from. The caller is the
// parameter of the enclosing component, or nil at the top level.
func (b *build) param(p Parameter, caller *Parameter) (Input, error) {
	if name, ok := b.r.ambient[p.Type]; ok {
		return Input{Param: p, Source: SourceAmbient, Key: name}, nil
	}
	if p.Type == parameterType {
		if caller == nil {
			// Targets have no enclosing parameter to hand out.
			return Input{}, &ComponentNotFoundError{Parameter: p}
		}
		return Input{Param: p, Source: SourceCaller, Key: caller.Name}, nil
	}

	c := b.r.find(p)
	if c == nil {
		if builtin(p.Type) {
			return Input{Param: p, Source: SourceValue, Key: p.Name}, nil
		}
		return Input{}, &ComponentNotFoundError{Parameter: p}
	}

	id := Identity(c, p)
	if slices.Contains(b.active, id) {
		i := slices.Index(b.active, id)
		path := append(slices.Clone(b.active[i:]), id)
		return Input{}, &CycleError{Path: path}
	}
	if !b.seen[id] {
		if err := b.component(c, id, p); err != nil {
			return Input{}, err
		}
		b.seen[id] = true
	}
	return Input{Param: p, Source: SourceStep, Key: id}, nil
}

// component appends the steps needed to resolve c for p, dependencies first.
func (b *build) component(c Component, id string, p Parameter) error {
	b.active = append(b.active, id)
	defer func() { b.active = b.active[:len(b.active)-1] }()

	step := Step{ID: id, Component: c}
	if UsesCaller(c) {
		caller := p
		step.Caller = &caller
	}

	deps := c.Dependencies()
	step.Inputs = make([]Input, 0, len(deps))
	for _, d := range deps {
		in, err := b.param(d, &p)
		if err != nil {
			return enrichComponent(err, c)
		}
		step.Inputs = append(step.Inputs, in)
	}

	b.steps = append(b.steps, step)
	return nil
}

func enrichComponent(err error, c Component) error {
	var nf *ComponentNotFoundError
	if errors.As(err, &nf) && nf.Component == nil {
		nf.Component = c
	}
	return err
}

func enrichTarget(err error, t Target) error {
	var nf *ComponentNotFoundError
	if errors.As(err, &nf) && nf.Target == "" {
		nf.Target = t.Name
	}
	var ce *CycleError
	if errors.As(err, &ce) && ce.Target == "" {
		ce.Target = t.Name
	}
	return err
}
