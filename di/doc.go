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

// Package di implements type-directed dependency resolution.
//
// A Target declares named, typed parameters. The Injector walks those
// parameters once, asking an ordered registry of Components which of them
// can produce a value, and records the outcome as a Plan: a flat,
// topologically sorted list of Steps ending in a Root. Plans are cached per
// target, so the walk happens only on first use. Each call then merely
// executes the cached plan against fresh runtime Values.
//
// A parameter is satisfied, in order of precedence, by
//
//   - the Ambient table, which maps well-known types (such as the current
//     request) to names in the runtime Values;
//   - the first registered Component able to handle it;
//   - the runtime Values by parameter name, if its type is one of Go's
//     predeclared basic types.
//
// Otherwise compilation fails with a *ComponentNotFoundError that names
// the parameter, the component that needed it, and the target.
//
// # Usage
//
// Components are registered as data rather than being introspected:
//
//	users := di.Provide("users", func(ctx context.Context, a di.Args) (*User, error) {
//		return store.Find(ctx, di.Arg[string](a, "id"))
//	}, di.Needs(di.Param[string]("id")))
//
//	in := di.New(di.WithComponents(users))
//
// Parameter structs describe targets declaratively:
//
//	type Params struct {
//		di.In
//		User  *User
//		Limit int `inject:"limit,default:20"`
//	}
//
//	p, err := di.Fill[Params](ctx, in, di.Values{"id": "42"})
//
// Within one plan, a component is resolved at most once per identity.
// Components that inspect the parameter they are resolved for get an
// identity that includes the parameter name, so a header component can
// serve both "accept" and "authorization" within the same call.
package di
