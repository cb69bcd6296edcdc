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

// Package web provides the built-in components that expose parts of an HTTP
// request as typed route parameters.
//
// Every component depends on the *http.Request found in the runtime values
// of a route (see router.Ambient), so the injector must be configured with
// the router's ambient table:
//
//	in := di.New(
//		di.WithAmbient(router.Ambient()),
//		di.WithComponents(web.Components(web.WithSecret(secret))...),
//	)
//
// Route parameter structs then simply declare what they need:
//
//	type params struct {
//		di.In
//		Method web.Method
//		Page   web.QueryParam
//		Agent  web.Header `inject:"user_agent"`
//	}
package web

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/deep-rent/wiring/di"
	"github.com/deep-rent/wiring/router"
)

// Typed views of a request. Each of them is produced by the component of the
// same name.
type (
	// Method is the request method, e.g. "GET".
	Method string
	// Scheme is the URL scheme the request was received with.
	Scheme string
	// Host is the host name the request was sent to, without the port.
	Host string
	// Path is the request path.
	Path string
	// QueryParam is the value of the query parameter named like the route
	// parameter, or empty if absent.
	QueryParam string
	// Header is the value of the header named like the route parameter,
	// with underscores mapped to dashes, or empty if absent.
	Header string
	// PathParam is the value of the path placeholder named like the route
	// parameter.
	PathParam string
	// Body holds the raw request body.
	Body []byte
	// BearerToken holds the credentials of a "Bearer" Authorization header,
	// or is empty if there are none.
	BearerToken string
	// RequestID identifies the current request.
	RequestID string
)

// DefaultMaxBody is the default limit for request bodies read by the Body
// component.
const DefaultMaxBody int64 = 1 << 20

// request is the dependency through which components receive the request.
var request = di.Param[*http.Request]("request")

type config struct {
	secret   []byte
	maxBody  int64
	validate *validator.Validate
}

// Option configures the built-in components.
type Option func(*config)

// WithSecret sets the HMAC secret used to verify bearer tokens. Without a
// secret, the Claims component is not included in Components.
func WithSecret(secret []byte) Option {
	return func(c *config) {
		c.secret = secret
	}
}

// WithMaxBody limits the number of bytes read by the Body component. Non
// positive values are ignored.
func WithMaxBody(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithValidator sets the validator used by JSON components. A nil value
// disables validation.
func WithValidator(v *validator.Validate) Option {
	return func(c *config) {
		c.validate = v
	}
}

func newConfig(opts []Option) config {
	c := config{
		maxBody:  DefaultMaxBody,
		validate: NewValidator(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Components returns the built-in components in their registration order.
// Register them before custom components that provide the same types only
// if the built-ins are meant to take precedence.
func Components(opts ...Option) []di.Component {
	c := newConfig(opts)
	components := []di.Component{
		MethodComponent(),
		URLComponent(),
		SchemeComponent(),
		HostComponent(),
		PathComponent(),
		QueryComponent(),
		QueryParamComponent(),
		HeadersComponent(),
		HeaderComponent(),
		PathParamComponent(),
		BodyComponent(c.maxBody),
		BearerTokenComponent(),
	}
	if len(c.secret) > 0 {
		components = append(components, ClaimsComponent(c.secret))
	}
	return append(components, RequestIDComponent())
}

func errorf(status int, reason, format string, args ...any) *router.Error {
	return &router.Error{
		Status:      status,
		Reason:      reason,
		Description: fmt.Sprintf(format, args...),
	}
}
