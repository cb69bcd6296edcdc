// Copyright (c) 2025-present deep.rent GmbH (https://deep.rent)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package di_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deep-rent/wiring/cache"
	"github.com/deep-rent/wiring/di"
)

type Foo struct{ X int }

type Baz struct{ N int64 }

type Bar struct{ Baz Baz }

type Qux struct{}

type Header string

// counter tracks how often the compiler ran and how often a plan was reused.
type counter struct {
	di.NopObserver
	compiled atomic.Int64
	hits     atomic.Int64
}

func (c *counter) Compiled(di.Target, *di.Plan, error, time.Duration) {
	c.compiled.Add(1)
}

func (c *counter) PlanHit(di.Target) {
	c.hits.Add(1)
}

func fooComponent(calls *atomic.Int64) *di.Provider {
	return di.Provide("Foo", func(_ context.Context, a di.Args) (Foo, error) {
		if calls != nil {
			calls.Add(1)
		}
		return Foo{X: di.Arg[int](a, "x")}, nil
	}, di.Needs(di.Param[int]("x")))
}

func headerComponent() *di.Provider {
	return di.Provide("Header", func(_ context.Context, a di.Args) (Header, error) {
		p, _ := a.Caller()
		return Header("value of " + p.Name), nil
	}, di.WithCaller())
}

func TestScenarioA(t *testing.T) {
	in := di.New(di.WithComponents(fooComponent(nil)))

	var got Foo
	target := di.NewTarget("f", di.Param[Foo]("foo")).Bind(
		func(_ context.Context, kw di.Kwargs) (any, error) {
			got = kw["foo"].(Foo)
			return "ok", nil
		},
	)

	call, err := in.Inject(t.Context(), target, di.Values{"x": 5})
	require.NoError(t, err)

	res, err := call(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, Foo{X: 5}, got)
}

func TestScenarioB(t *testing.T) {
	var n atomic.Int64
	baz := di.Provide("Baz", func(context.Context, di.Args) (Baz, error) {
		return Baz{N: n.Add(1)}, nil
	})
	bar := di.Provide("Bar", func(_ context.Context, a di.Args) (Bar, error) {
		return Bar{Baz: di.Arg[Baz](a, "baz")}, nil
	}, di.Needs(di.Param[Baz]("baz")))

	in := di.New(di.WithComponents(bar, baz))
	target := di.NewTarget("g", di.Param[Bar]("bar"))

	kw, err := in.Kwargs(t.Context(), target, nil)
	require.NoError(t, err)
	assert.Equal(t, Bar{Baz: Baz{N: 1}}, kw["bar"])

	kw, err = in.Kwargs(t.Context(), target, di.Values{})
	require.NoError(t, err)
	assert.Equal(t, Bar{Baz: Baz{N: 2}}, kw["bar"], "baz must be resolved afresh")
}

func TestInjector_Resolve(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		c := &counter{}
		in := di.New(di.WithComponents(fooComponent(nil)), di.WithObserver(c))
		target := di.NewTarget("f", di.Param[Foo]("foo"))

		p1, err := in.Resolve(target)
		require.NoError(t, err)
		p2, err := in.Resolve(target)
		require.NoError(t, err)

		assert.Same(t, p1, p2)
		assert.Equal(t, int64(1), c.compiled.Load())
		assert.Equal(t, int64(1), c.hits.Load())
		assert.Equal(t, 1, in.Len())

		in.Drop()
		p3, err := in.Resolve(target)
		require.NoError(t, err)
		assert.NotSame(t, p1, p3)
		assert.Equal(t, p1, p3)
		assert.Equal(t, int64(2), c.compiled.Load())
	})

	t.Run("first match wins", func(t *testing.T) {
		first := di.Provide("first", func(context.Context, di.Args) (Foo, error) {
			return Foo{X: 1}, nil
		})
		second := di.Provide("second", func(context.Context, di.Args) (Foo, error) {
			return Foo{X: 2}, nil
		})
		p := di.Param[Foo]("foo")

		in := di.New(di.WithComponents(first, second))
		for range 3 {
			v, err := in.Value(t.Context(), p, nil)
			require.NoError(t, err)
			assert.Equal(t, Foo{X: 1}, v)
		}

		in.SetComponents(second, first)
		v, err := in.Value(t.Context(), p, nil)
		require.NoError(t, err)
		assert.Equal(t, Foo{X: 2}, v)
	})

	t.Run("deduplicates identities", func(t *testing.T) {
		var calls atomic.Int64
		shared := di.Provide("Shared", func(context.Context, di.Args) (*Foo, error) {
			calls.Add(1)
			return &Foo{X: 7}, nil
		})
		wrapper := di.Provide("Wrapper", func(_ context.Context, a di.Args) (*Bar, error) {
			return &Bar{Baz: Baz{N: int64(di.Arg[*Foo](a, "shared").X)}}, nil
		}, di.Needs(di.Param[*Foo]("shared")))

		in := di.New(di.WithComponents(shared, wrapper))
		target := di.NewTarget("h",
			di.Param[*Foo]("a"),
			di.Param[*Bar]("w"),
			di.Param[*Foo]("b"),
		)

		plan, err := in.Resolve(target)
		require.NoError(t, err)
		require.Len(t, plan.Steps, 2)
		assert.Equal(t, "Shared", di.Name(plan.Steps[0].Component))
		assert.Equal(t, "Wrapper", di.Name(plan.Steps[1].Component))

		kw, err := in.Kwargs(t.Context(), target, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), calls.Load())
		assert.Same(t, kw["a"], kw["b"])
	})

	t.Run("identity includes caller name", func(t *testing.T) {
		in := di.New(di.WithComponents(headerComponent()))
		target := di.NewTarget("h",
			di.Param[Header]("accept"),
			di.Param[Header]("authorization"),
		)

		plan, err := in.Resolve(target)
		require.NoError(t, err)
		require.Len(t, plan.Steps, 2)
		assert.NotEqual(t, plan.Steps[0].ID, plan.Steps[1].ID)

		kw, err := in.Kwargs(t.Context(), target, nil)
		require.NoError(t, err)
		assert.Equal(t, Header("value of accept"), kw["accept"])
		assert.Equal(t, Header("value of authorization"), kw["authorization"])
	})

	t.Run("caller as dependency", func(t *testing.T) {
		named := di.Provide("Named", func(_ context.Context, a di.Args) (Header, error) {
			p := di.Arg[di.Parameter](a, "param")
			return Header(p.Name), nil
		}, di.Needs(di.Param[di.Parameter]("param")))

		in := di.New(di.WithComponents(named))
		target := di.NewTarget("h", di.Param[Header]("x_token"), di.Param[Header]("y"))

		kw, err := in.Kwargs(t.Context(), target, nil)
		require.NoError(t, err)
		assert.Equal(t, Header("x_token"), kw["x_token"])
		assert.Equal(t, Header("y"), kw["y"])
	})

	t.Run("caller unavailable to targets", func(t *testing.T) {
		in := di.New()
		_, err := in.Resolve(di.NewTarget("h", di.Param[di.Parameter]("p")))
		assert.ErrorIs(t, err, di.ErrComponentNotFound)
	})

	t.Run("ambient precedes components", func(t *testing.T) {
		shadow := di.Provide("Shadow", func(context.Context, di.Args) (*Qux, error) {
			return nil, errors.New("must not be called")
		})
		a := di.Set[*Qux](di.Ambient{}, "qux")
		in := di.New(di.WithAmbient(a), di.WithComponents(shadow))

		q := &Qux{}
		kw, err := in.Kwargs(t.Context(), di.NewTarget("h", di.Param[*Qux]("q")), di.Values{"qux": q})
		require.NoError(t, err)
		assert.Same(t, q, kw["q"])
	})

	t.Run("builtin fallback", func(t *testing.T) {
		in := di.New()
		target := di.NewTarget("h",
			di.Param[string]("name"),
			di.Param[int]("limit").WithDefault(10),
		)

		kw, err := in.Kwargs(t.Context(), target, di.Values{"name": "bob"})
		require.NoError(t, err)
		assert.Equal(t, di.Kwargs{"name": "bob", "limit": 10}, kw)

		_, err = in.Kwargs(t.Context(), target, nil)
		var mv *di.MissingValueError
		require.ErrorAs(t, err, &mv)
		assert.Equal(t, "name", mv.Name)
		assert.ErrorIs(t, err, di.ErrMissingValue)
	})

	t.Run("nil default", func(t *testing.T) {
		in := di.New()
		target := di.NewTarget("h", di.Param[string]("name").WithDefault(nil))

		kw, err := in.Kwargs(t.Context(), target, nil)
		require.NoError(t, err)
		v, ok := kw.Lookup("name")
		assert.True(t, ok)
		assert.Nil(t, v)
	})
}

func TestInjector_ComponentNotFound(t *testing.T) {
	t.Run("nested", func(t *testing.T) {
		bar := di.Provide("Bar", func(context.Context, di.Args) (Bar, error) {
			return Bar{}, nil
		}, di.Needs(di.Param[Qux]("qux")))
		c := &counter{}
		in := di.New(di.WithComponents(bar), di.WithObserver(c))

		_, err := in.Resolve(di.NewTarget("handler", di.Param[Bar]("bar")))
		require.ErrorIs(t, err, di.ErrComponentNotFound)

		var nf *di.ComponentNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "qux", nf.Parameter.Name)
		assert.Equal(t, "Bar", di.Name(nf.Component))
		assert.Equal(t, "handler", nf.Target)

		msg := err.Error()
		assert.Contains(t, msg, `parameter "qux"`)
		assert.Contains(t, msg, `component "Bar"`)
		assert.Contains(t, msg, `target "handler"`)
		assert.Equal(t, 0, in.Len(), "failed plans must not be cached")
		assert.Equal(t, int64(1), c.compiled.Load())
	})

	t.Run("top level", func(t *testing.T) {
		in := di.New()
		_, err := in.Resolve(di.NewTarget("handler", di.Param[Qux]("qux")))

		var nf *di.ComponentNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Nil(t, nf.Component)
		assert.NotContains(t, err.Error(), "in component")
		assert.Contains(t, err.Error(), `for target "handler"`)
	})

	t.Run("recovers after registration", func(t *testing.T) {
		in := di.New()
		target := di.NewTarget("f", di.Param[Foo]("foo"))

		_, err := in.Resolve(target)
		require.Error(t, err)

		in.Register(fooComponent(nil))
		_, err = in.Resolve(target)
		assert.NoError(t, err)
	})
}

func TestInjector_Cycle(t *testing.T) {
	a := di.Provide("A", func(context.Context, di.Args) (Foo, error) {
		return Foo{}, nil
	}, di.Needs(di.Param[Baz]("baz")))
	b := di.Provide("B", func(context.Context, di.Args) (Baz, error) {
		return Baz{}, nil
	}, di.Needs(di.Param[Foo]("foo")))

	in := di.New(di.WithComponents(a, b))
	_, err := in.Resolve(di.NewTarget("loop", di.Param[Foo]("foo")))
	require.ErrorIs(t, err, di.ErrCircularDependency)

	var ce *di.CycleError
	require.ErrorAs(t, err, &ce)
	assert.Len(t, ce.Path, 3)
	assert.Equal(t, ce.Path[0], ce.Path[2])
	assert.Equal(t, "loop", ce.Target)
}

func TestInjector_Execution(t *testing.T) {
	t.Run("errors propagate unchanged", func(t *testing.T) {
		boom := errors.New("boom")
		failing := di.Provide("Failing", func(context.Context, di.Args) (Foo, error) {
			return Foo{}, boom
		})
		in := di.New(di.WithComponents(failing))

		kw, err := in.Kwargs(t.Context(), di.NewTarget("f", di.Param[Foo]("foo")), nil)
		assert.Equal(t, boom, err)
		assert.Nil(t, kw)
	})

	t.Run("panics become errors", func(t *testing.T) {
		panicking := di.Provide("Panicking", func(context.Context, di.Args) (Foo, error) {
			panic("oops")
		})
		in := di.New(di.WithComponents(panicking))

		_, err := in.Kwargs(t.Context(), di.NewTarget("f", di.Param[Foo]("foo")), nil)
		var pe *di.PanicError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "oops", pe.Value)
	})

	t.Run("cancellation stops the plan", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		var later atomic.Int64
		first := di.Provide("First", func(context.Context, di.Args) (Baz, error) {
			cancel()
			return Baz{}, nil
		})
		second := di.Provide("Second", func(context.Context, di.Args) (Foo, error) {
			later.Add(1)
			return Foo{}, nil
		})
		in := di.New(di.WithComponents(first, second))
		target := di.NewTarget("f", di.Param[Baz]("baz"), di.Param[Foo]("foo"))

		_, err := in.Kwargs(ctx, target, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, later.Load())
	})

	t.Run("not callable", func(t *testing.T) {
		in := di.New()
		_, err := in.Inject(t.Context(), di.NewTarget("f"), nil)
		assert.ErrorIs(t, err, di.ErrNotCallable)
	})

	t.Run("value cache", func(t *testing.T) {
		var calls atomic.Int64
		keyed := di.Provide("Keyed", func(_ context.Context, a di.Args) (Foo, error) {
			calls.Add(1)
			return Foo{X: di.Arg[int](a, "x")}, nil
		},
			di.Needs(di.Param[int]("x")),
			di.Cached(func(a di.Args) (string, bool) {
				return fmt.Sprint(a.Get("x")), true
			}),
		)
		vc := cache.New[string, any]()
		in := di.New(di.WithComponents(keyed), di.WithValueCache(vc))
		target := di.NewTarget("f", di.Param[Foo]("foo"))

		for range 3 {
			kw, err := in.Kwargs(t.Context(), target, di.Values{"x": 1})
			require.NoError(t, err)
			assert.Equal(t, Foo{X: 1}, kw["foo"])
		}
		assert.Equal(t, int64(1), calls.Load())

		kw, err := in.Kwargs(t.Context(), target, di.Values{"x": 2})
		require.NoError(t, err)
		assert.Equal(t, Foo{X: 2}, kw["foo"])
		assert.Equal(t, int64(2), calls.Load())
		assert.Equal(t, 2, vc.Len())
	})
}

func TestInjector_Concurrent(t *testing.T) {
	var calls atomic.Int64
	in := di.New(di.WithComponents(fooComponent(&calls)))
	target := di.NewTarget("f", di.Param[Foo]("foo"))

	const n = 64
	plans := make([]*di.Plan, n)
	results := make([]any, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			p, err := in.Resolve(target)
			assert.NoError(t, err)
			plans[i] = p
			kw, err := in.Kwargs(t.Context(), target, di.Values{"x": i})
			assert.NoError(t, err)
			results[i] = kw["foo"]
		})
	}
	wg.Wait()

	for i := range n {
		require.NotNil(t, plans[i])
		assert.Equal(t, plans[0], plans[i])
		assert.Equal(t, Foo{X: i}, results[i])
	}
	assert.Equal(t, int64(n), calls.Load())
	assert.Equal(t, 1, in.Len())
}

func TestInjector_Mutation(t *testing.T) {
	in := di.New(di.WithComponents(fooComponent(nil)))
	target := di.NewTarget("f", di.Param[Foo]("foo"))

	_, err := in.Resolve(target)
	require.NoError(t, err)
	assert.Equal(t, 1, in.Len())

	in.Register(headerComponent())
	assert.Equal(t, 0, in.Len())
	assert.Len(t, in.Components(), 2)

	_, err = in.Resolve(target)
	require.NoError(t, err)
	in.SetAmbient(di.Set[Foo](di.Ambient{}, "foo"))
	assert.Equal(t, 0, in.Len())

	plan, err := in.Resolve(target)
	require.NoError(t, err)
	assert.Empty(t, plan.Steps)
	assert.Equal(t, di.SourceAmbient, plan.Root.Inputs[0].Source)
}

func TestInjector_Warm(t *testing.T) {
	in := di.New(di.WithComponents(fooComponent(nil)))

	err := in.Warm(
		di.NewTarget("good", di.Param[Foo]("foo")),
		di.NewTarget("bad1", di.Param[Qux]("qux")),
		di.NewTarget("bad2", di.Param[Bar]("bar")),
	)
	require.ErrorIs(t, err, di.ErrComponentNotFound)
	assert.Contains(t, err.Error(), "bad1")
	assert.Contains(t, err.Error(), "bad2")
	assert.Equal(t, 1, in.Len())

	assert.NoError(t, in.Warm())
}

func TestInjector_ResolveParameter(t *testing.T) {
	in := di.New(di.WithComponents(fooComponent(nil)))

	plan, err := in.ResolveParameter(di.Param[Foo]("foo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, plan.Required())

	v, err := in.Value(t.Context(), di.Param[Foo]("foo"), di.Values{"x": 3})
	require.NoError(t, err)
	assert.Equal(t, Foo{X: 3}, v)
}

func TestInjector_MatchingByName(t *testing.T) {
	named := func(name string, v int) *di.Provider {
		return di.Provide(name, func(context.Context, di.Args) (int, error) {
			return v, nil
		}, di.Matching(func(p di.Parameter) bool { return p.Name == strings.ToLower(name) }))
	}
	in := di.New(di.WithComponents(named("Page", 1), named("Size", 50)))
	target := di.NewTarget("h", di.Param[int]("page"), di.Param[int]("size"))

	plan, err := in.Resolve(target)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)
	assert.NotEqual(t, plan.Steps[0].ID, plan.Steps[1].ID)

	kw, err := in.Kwargs(t.Context(), target, nil)
	require.NoError(t, err)
	assert.Equal(t, di.Kwargs{"page": 1, "size": 50}, kw)
}

func TestInjector_TargetWithoutID(t *testing.T) {
	in := di.New(di.WithComponents(fooComponent(nil)))

	a := di.Target{Name: "a", Params: []di.Parameter{di.Param[Foo]("foo")}}
	b := di.Target{Name: "b", Params: []di.Parameter{di.Param[int]("n")}}

	pa, err := in.Resolve(a)
	require.NoError(t, err)
	pb, err := in.Resolve(b)
	require.NoError(t, err)

	assert.NotSame(t, pa, pb)
	assert.Equal(t, []string{"n"}, pb.Required())
	assert.Equal(t, di.NewTarget("b", di.Param[int]("n")).ID, pb.TargetID)
	assert.Equal(t, 2, in.Len())
}
