package router

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/deep-rent/wiring/di"
	"github.com/deep-rent/wiring/middleware"
)

// Names under which the request-scoped values are found in the runtime
// context of every route.
const (
	AmbientRequest  = "request"
	AmbientWriter   = "writer"
	AmbientExchange = "exchange"
)

// Ambient returns the static context table for routes: it maps
// *http.Request, http.ResponseWriter and *Exchange to their ambient names.
// Injectors used with a Router must be configured with it.
func Ambient() di.Ambient {
	return di.Ambient{
		reflect.TypeFor[*http.Request]():       AmbientRequest,
		reflect.TypeFor[http.ResponseWriter](): AmbientWriter,
		reflect.TypeFor[*Exchange]():           AmbientExchange,
	}
}

// Handler defines the function signature for HTTP request handlers.
type Handler func(e *Exchange) error

// Route is a registered route whose parameters are resolved by the
// injector.
type Route struct {
	Pattern string
	Target  di.Target
}

// Option defines a configuration option for the Router.
type Option func(*Router)

// WithLogger sets a custom logger for the Router. If not set, the Router
// defaults to slog.Default(). A nil value will be ignored.
func WithLogger(log *slog.Logger) Option {
	return func(r *Router) {
		if log != nil {
			r.logger = log
		}
	}
}

// WithMiddleware adds global middleware pipes that will be applied to all
// routes registered on the Router.
func WithMiddleware(pipes ...middleware.Pipe) Option {
	return func(r *Router) {
		r.mws = append(r.mws, pipes...)
	}
}

// WithInjector sets the injector that fills the parameters of routes
// registered through Handle. If not set, an injector without components is
// created, whose ambient table is Ambient(). A nil value will be ignored.
func WithInjector(in *di.Injector) Option {
	return func(r *Router) {
		if in != nil {
			r.in = in
		}
	}
}

// Router dispatches requests through chi and resolves handler parameters
// with a di.Injector.
type Router struct {
	mux    chi.Router
	in     *di.Injector
	mws    []middleware.Pipe
	logger *slog.Logger

	mu     sync.Mutex
	routes []Route
}

// New creates a new Router instance with the provided options.
func New(opts ...Option) *Router {
	r := &Router{
		mux:    chi.NewRouter(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.in == nil {
		r.in = di.New(di.WithAmbient(Ambient()), di.WithLogger(r.logger))
	}
	return r
}

// ServeHTTP implements the http.Handler interface.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Injector returns the injector used by the router.
func (r *Router) Injector() *di.Injector { return r.in }

// HandleFunc registers handler for pattern. The pattern has the form
// "[METHOD ]/path", where the path follows the chi syntax (e.g.,
// "GET /users/{id}"). Without a method, all methods are matched.
//
// The handler is wrapped with the Router's global middleware and any local
// middleware provided for this specific route.
func (r *Router) HandleFunc(
	pattern string,
	handler Handler,
	mws ...middleware.Pipe,
) {
	h := http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		e := &Exchange{R: req, W: res}
		if err := handler(e); err != nil {
			r.handle(e, err)
		}
	})

	local := append(append([]middleware.Pipe(nil), r.mws...), mws...)
	method, path := split(pattern)
	if method == "" {
		r.mux.Handle(path, middleware.Chain(h, local...))
	} else {
		r.mux.Method(method, path, middleware.Chain(h, local...))
	}
}

// Mount attaches a plain http.Handler under the given prefix. The handler
// sees the full request path.
func (r *Router) Mount(prefix string, h http.Handler) {
	r.mux.Mount(prefix, middleware.Chain(h, r.mws...))
}

// Handle registers fn for pattern. On every request, the injector resolves
// the fields of the parameter struct P (see di.Struct) and passes the
// populated struct to fn. The plan for P is compiled on the first request,
// or up front by Compile.
func Handle[P any](
	r *Router,
	pattern string,
	fn func(e *Exchange, p P) error,
	mws ...middleware.Pipe,
) {
	t := di.Struct[P]()
	t.ID = "route:" + pattern + ":" + t.ID
	t.Name = pattern

	r.mu.Lock()
	r.routes = append(r.routes, Route{Pattern: pattern, Target: t})
	r.mu.Unlock()

	r.HandleFunc(pattern, func(e *Exchange) error {
		kwargs, err := r.in.Kwargs(e.Context(), t, e.Values())
		if err != nil {
			return err
		}
		p, err := di.Decode[P](kwargs)
		if err != nil {
			return err
		}
		return fn(e, p)
	}, mws...)
}

// Routes returns the routes registered through Handle, in registration
// order.
func (r *Router) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Route(nil), r.routes...)
}

// Compile builds the plans of all routes registered through Handle, so that
// unresolvable parameters are reported before the first request arrives.
func (r *Router) Compile() error {
	routes := r.Routes()
	targets := make([]di.Target, len(routes))
	for i, rt := range routes {
		targets[i] = rt.Target
	}
	if err := r.in.Warm(targets...); err != nil {
		return err
	}
	r.logger.Info("Routes compiled", slog.Int("count", len(routes)))
	return nil
}

// handle processes an error returned by a handler and sends an appropriate
// response to the client.
func (r *Router) handle(e *Exchange, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		id := middleware.GetRequestID(e.Context())
		r.logger.Error(
			"An internal server error occurred",
			slog.String("id", id),
			slog.String("path", e.Path()),
			slog.Any("error", err),
		)
		ae = &Error{
			Status:      http.StatusInternalServerError,
			Reason:      ReasonServerError,
			Description: "internal server error",
			ID:          id,
			Cause:       err,
		}
	}

	// If the handler already wrote partial bytes, this may fail.
	_ = e.JSON(ae.Status, ae)
}

func split(pattern string) (method, path string) {
	pattern = strings.TrimSpace(pattern)
	if m, p, ok := strings.Cut(pattern, " "); ok {
		return strings.ToUpper(m), strings.TrimSpace(p)
	}
	return "", pattern
}
