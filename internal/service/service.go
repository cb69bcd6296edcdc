// Package service assembles the puppy API served by the wiring command. It
// demonstrates how routes declare their inputs as parameter structs that
// the injector fills from the built-in web components and the components
// registered here.
package service

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/deep-rent/wiring/di"
	"github.com/deep-rent/wiring/router"
	"github.com/deep-rent/wiring/web"
)

// ReasonNotFound indicates that the requested resource does not exist.
const ReasonNotFound = "not_found"

// Owner describes the authenticated caller.
type Owner struct {
	Subject string   `json:"subject"`
	Scopes  []string `json:"scopes,omitempty"`
}

// Options holds the settings of the service.
type Options struct {
	// Secret enables the authenticated routes if not empty.
	Secret []byte
	// Logger is handed out to handlers that ask for a *slog.Logger.
	Logger *slog.Logger
}

// Components returns every component required by the routes of the service,
// led by the built-in web components.
func Components(o Options) []di.Component {
	var opts []web.Option
	if len(o.Secret) > 0 {
		opts = append(opts, web.WithSecret(o.Secret))
	}
	components := web.Components(opts...)
	components = append(components,
		web.JSON[Puppy](),
		di.Singleton(di.Provide("Store", func(context.Context, di.Args) (*Store, error) {
			return NewStore(), nil
		})),
		di.Constant(logger(o.Logger)),
	)
	if len(o.Secret) > 0 {
		components = append(components, OwnerComponent())
	}
	return components
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// OwnerComponent derives the Owner from the verified token claims. Results
// are cached per subject.
func OwnerComponent() di.Component {
	return di.Provide("Owner", func(_ context.Context, a di.Args) (*Owner, error) {
		claims := di.Arg[web.Claims](a, "claims")
		o := &Owner{Subject: claims.Subject()}
		if raw, ok := claims["scope"].(string); ok && raw != "" {
			o.Scopes = strings.Fields(raw)
		}
		return o, nil
	},
		di.Needs(di.Param[web.Claims]("claims")),
		di.Cached(func(a di.Args) (string, bool) {
			sub := di.Arg[web.Claims](a, "claims").Subject()
			return sub, sub != ""
		}),
	)
}

type listParams struct {
	di.In
	Store *Store
	Limit web.QueryParam `inject:"limit,default:0"`
}

type getParams struct {
	di.In
	Store *Store
	ID    web.PathParam
}

type createParams struct {
	di.In
	Store     *Store
	Puppy     Puppy
	RequestID web.RequestID
	Logger    *slog.Logger
}

type whoamiParams struct {
	di.In
	Owner *Owner
}

// Routes registers the routes of the service on r. The authenticated routes
// are only registered if auth is true.
func Routes(r *router.Router, auth bool) {
	r.HandleFunc("GET /healthz", func(e *router.Exchange) error {
		return e.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle(r, "GET /puppies", listPuppies)
	router.Handle(r, "GET /puppies/{id}", getPuppy)
	router.Handle(r, "POST /puppies", createPuppy)
	if auth {
		router.Handle(r, "GET /whoami", whoami)
	}
}

func listPuppies(e *router.Exchange, p listParams) error {
	limit, err := strconv.Atoi(string(p.Limit))
	if err != nil || limit < 0 {
		return &router.Error{
			Status:      http.StatusBadRequest,
			Reason:      router.ReasonInvalid,
			Description: "limit must be a non-negative integer",
			Cause:       err,
		}
	}
	return e.JSON(http.StatusOK, p.Store.List(limit))
}

func getPuppy(e *router.Exchange, p getParams) error {
	puppy, ok := p.Store.Get(string(p.ID))
	if !ok {
		return &router.Error{
			Status:      http.StatusNotFound,
			Reason:      ReasonNotFound,
			Description: "puppy not found",
		}
	}
	return e.JSON(http.StatusOK, puppy)
}

func createPuppy(e *router.Exchange, p createParams) error {
	puppy := p.Store.Add(p.Puppy)
	p.Logger.Info(
		"Puppy created",
		slog.String("id", puppy.ID),
		slog.String("requestId", string(p.RequestID)),
	)
	e.SetHeader("Location", "/puppies/"+puppy.ID)
	return e.JSON(http.StatusCreated, puppy)
}

func whoami(e *router.Exchange, p whoamiParams) error {
	return e.JSON(http.StatusOK, p.Owner)
}
