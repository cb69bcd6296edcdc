package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/deep-rent/wiring/di"
	"github.com/deep-rent/wiring/header"
	"github.com/deep-rent/wiring/middleware"
)

// ReasonTooLarge indicates that the request body exceeded the size limit.
const ReasonTooLarge = "too_large"

// fromRequest creates a component that derives a value from the request.
func fromRequest[T any](name string, fn func(r *http.Request) T) *di.Provider {
	return di.Provide(name, func(_ context.Context, a di.Args) (T, error) {
		return fn(di.Arg[*http.Request](a, request.Name)), nil
	}, di.Needs(request))
}

// MethodComponent provides the Method of the request.
func MethodComponent() di.Component {
	return fromRequest("Method", func(r *http.Request) Method {
		return Method(r.Method)
	})
}

// URLComponent provides the *url.URL of the request.
func URLComponent() di.Component {
	return fromRequest("URL", func(r *http.Request) *url.URL {
		return r.URL
	})
}

// SchemeComponent provides the Scheme of the request. Requests received
// over TLS report "https", all others "http".
func SchemeComponent() di.Component {
	return fromRequest("Scheme", func(r *http.Request) Scheme {
		if r.URL.Scheme != "" {
			return Scheme(r.URL.Scheme)
		}
		if r.TLS != nil {
			return "https"
		}
		return "http"
	})
}

// HostComponent provides the Host of the request.
func HostComponent() di.Component {
	return fromRequest("Host", func(r *http.Request) Host {
		host, _, err := net.SplitHostPort(r.Host)
		if err != nil {
			return Host(r.Host)
		}
		return Host(host)
	})
}

// PathComponent provides the Path of the request.
func PathComponent() di.Component {
	return fromRequest("Path", func(r *http.Request) Path {
		return Path(r.URL.Path)
	})
}

// QueryComponent provides the parsed query string as url.Values.
func QueryComponent() di.Component {
	return fromRequest("Query", func(r *http.Request) url.Values {
		return r.URL.Query()
	})
}

// HeadersComponent provides the request headers as http.Header.
func HeadersComponent() di.Component {
	return fromRequest("Headers", func(r *http.Request) http.Header {
		return r.Header
	})
}

// QueryParamComponent provides a QueryParam looked up by the name of the
// parameter it is resolved for. An absent query parameter yields the
// parameter's default if it has one, or an empty value.
func QueryParamComponent() di.Component {
	return di.Provide("QueryParam", func(_ context.Context, a di.Args) (QueryParam, error) {
		p, _ := a.Caller()
		query := di.Arg[url.Values](a, "query")
		if v, ok := query[p.Name]; ok && len(v) > 0 {
			return QueryParam(v[0]), nil
		}
		return QueryParam(fallback(p)), nil
	},
		di.Needs(di.Param[url.Values]("query")),
		di.WithCaller(),
	)
}

// HeaderComponent provides a Header looked up by the name of the parameter
// it is resolved for, so that a parameter named "content_type" receives the
// Content-Type header. An absent header yields the parameter's default if
// it has one, or an empty value.
func HeaderComponent() di.Component {
	return di.Provide("Header", func(_ context.Context, a di.Args) (Header, error) {
		p, _ := a.Caller()
		h := di.Arg[http.Header](a, "headers")
		if v := h.Values(header.Name(p.Name)); len(v) > 0 {
			return Header(v[0]), nil
		}
		return Header(fallback(p)), nil
	},
		di.Needs(di.Param[http.Header]("headers")),
		di.WithCaller(),
	)
}

// PathParamComponent provides a PathParam looked up by the name of the
// parameter it is resolved for. Placeholders are matched as declared in the
// route pattern, e.g. a parameter named "id" for "/users/{id}".
func PathParamComponent() di.Component {
	return di.Provide("PathParam", func(_ context.Context, a di.Args) (PathParam, error) {
		p, _ := a.Caller()
		r := di.Arg[*http.Request](a, request.Name)
		if v := chi.URLParam(r, p.Name); v != "" {
			return PathParam(v), nil
		}
		return PathParam(fallback(p)), nil
	},
		di.Needs(request),
		di.WithCaller(),
	)
}

// BodyComponent provides the raw Body of the request, reading at most limit
// bytes. Reading stops as soon as ctx is done.
func BodyComponent(limit int64) di.Component {
	return di.Provide("Body", func(ctx context.Context, a di.Args) (Body, error) {
		r := di.Arg[*http.Request](a, request.Name)
		if r.Body == nil {
			return Body{}, nil
		}
		rd := io.LimitReader(&ctxReader{ctx: ctx, r: r.Body}, limit+1)
		b, err := io.ReadAll(rd)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		if int64(len(b)) > limit {
			return nil, errorf(
				http.StatusRequestEntityTooLarge,
				ReasonTooLarge,
				"request body exceeds %d bytes",
				limit,
			)
		}
		return Body(b), nil
	}, di.Needs(request))
}

// BearerTokenComponent provides the BearerToken of the request.
func BearerTokenComponent() di.Component {
	return di.Provide("BearerToken", func(_ context.Context, a di.Args) (BearerToken, error) {
		h := di.Arg[http.Header](a, "headers")
		return BearerToken(header.Credentials(h, "Bearer")), nil
	}, di.Needs(di.Param[http.Header]("headers")))
}

// RequestIDComponent provides the RequestID assigned by the request ID
// middleware. Without that middleware in place, the ID sent by the client is
// used, or a new one is generated.
func RequestIDComponent() di.Component {
	return fromRequest("RequestID", func(r *http.Request) RequestID {
		if id := middleware.GetRequestID(r.Context()); id != "" {
			return RequestID(id)
		}
		if id := r.Header.Get(middleware.HeaderRequestID); id != "" {
			return RequestID(id)
		}
		return RequestID(middleware.NewRequestID())
	})
}

// fallback returns the textual form of p's default, if any.
func fallback(p di.Parameter) string {
	if !p.HasDefault() || p.Default == nil {
		return ""
	}
	return fmt.Sprint(p.Default)
}

// ctxReader aborts reading once its context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
