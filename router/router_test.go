package router_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deep-rent/wiring/di"
	"github.com/deep-rent/wiring/log"
	"github.com/deep-rent/wiring/middleware"
	"github.com/deep-rent/wiring/router"
)

func TestExchange_BindJSON(t *testing.T) {
	tests := []struct {
		name       string
		ctype      string
		body       string
		useNilBody bool
		wantErr    bool
		wantReason string
		wantStatus int
	}{
		{
			name:    "success",
			ctype:   "application/json",
			body:    `{"name":"test"}`,
			wantErr: false,
		},
		{
			name:       "failure_wrong_content_type",
			ctype:      "text/plain",
			body:       `{}`,
			wantErr:    true,
			wantReason: router.ReasonWrongType,
			wantStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:       "failure_empty_body",
			ctype:      "application/json",
			useNilBody: true,
			wantErr:    true,
			wantReason: router.ReasonEmptyBody,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "failure_malformed_json",
			ctype:      "application/json",
			body:       `{"name":`,
			wantErr:    true,
			wantReason: router.ReasonParseJSON,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r *http.Request
			if tt.useNilBody {
				r = httptest.NewRequest(http.MethodPost, "/", nil)
			} else {
				r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			}
			if tt.ctype != "" {
				r.Header.Set("Content-Type", tt.ctype)
			}

			e := &router.Exchange{R: r}
			var v map[string]any

			err := e.BindJSON(&v)

			if tt.wantErr {
				require.NotNil(t, err)
				assert.Equal(t, tt.wantReason, err.Reason)
				assert.Equal(t, tt.wantStatus, err.Status)
			} else {
				assert.Nil(t, err)
				assert.Equal(t, "test", v["name"])
			}
		})
	}
}

func TestExchange_JSON(t *testing.T) {
	rec := httptest.NewRecorder()
	e := &router.Exchange{W: rec}

	err := e.JSON(http.StatusCreated, map[string]string{"foo": "bar"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.JSONEq(t, `{"foo":"bar"}`, rec.Body.String())
}

func TestExchange_Redirect(t *testing.T) {
	rec := httptest.NewRecorder()
	e := &router.Exchange{R: httptest.NewRequest(http.MethodGet, "/old", nil), W: rec}

	require.NoError(t, e.Redirect("/new", http.StatusFound))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/new", rec.Header().Get("Location"))
}

func TestExchange_Helpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/users/123?q=search", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "123")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	e := &router.Exchange{R: req, W: rec}

	assert.Equal(t, http.MethodGet, e.Method())
	assert.Equal(t, "/users/123", e.Path())
	assert.NotNil(t, e.URL())
	assert.NotNil(t, e.Context())
	assert.Equal(t, "123", e.Param("id"))
	assert.Equal(t, "search", e.Query().Get("q"))

	req.Header.Set("X-In", "foo")
	assert.Equal(t, "foo", e.GetHeader("X-In"))

	e.SetHeader("X-Out", "bar")
	assert.Equal(t, "bar", rec.Header().Get("X-Out"))

	v := e.Values()
	assert.Same(t, req, v[router.AmbientRequest])
	assert.Same(t, e, v[router.AmbientExchange])

	e.Status(http.StatusNoContent)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_HandleFunc(t *testing.T) {
	r := router.New(router.WithLogger(log.Discard()))

	r.HandleFunc("GET /func", func(e *router.Exchange) error {
		return e.JSON(http.StatusOK, map[string]string{"type": "func"})
	})
	r.HandleFunc("/any", func(e *router.Exchange) error {
		e.Status(http.StatusAccepted)
		return nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/func")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Post(srv.URL+"/any", "text/plain", nil)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp2.StatusCode)

	resp3, err := http.Post(srv.URL+"/func", "text/plain", nil)
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp3.StatusCode)
}

func TestRouter_ErrorHandling(t *testing.T) {
	r := router.New(
		router.WithLogger(log.Discard()),
		router.WithMiddleware(middleware.RequestID()),
	)

	r.HandleFunc("GET /typed", func(e *router.Exchange) error {
		return &router.Error{
			Status: http.StatusTeapot,
			Reason: "tea_time",
		}
	})
	r.HandleFunc("GET /std", func(e *router.Exchange) error {
		return errors.New("db crash")
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp1, err := http.Get(srv.URL + "/typed")
	require.NoError(t, err)
	defer resp1.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp1.StatusCode)

	resp2, err := http.Get(srv.URL + "/std")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp2.StatusCode)

	var body router.Error
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&body))
	assert.Equal(t, router.ReasonServerError, body.Reason)
	assert.Equal(t, resp2.Header.Get(middleware.HeaderRequestID), body.ID)
}

func TestRouter_Mount(t *testing.T) {
	r := router.New()

	sub := http.NewServeMux()
	sub.HandleFunc("/mnt/check", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r.Mount("/mnt", sub)

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/mnt/check")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestRouter_Middleware(t *testing.T) {
	global := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Global", "true")
			next.ServeHTTP(w, r)
		})
	}
	local := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Local", "true")
			next.ServeHTTP(w, r)
		})
	}

	r := router.New(router.WithMiddleware(global))
	r.HandleFunc("GET /", func(e *router.Exchange) error {
		e.Status(http.StatusOK)
		return nil
	}, local)
	r.HandleFunc("GET /plain", func(e *router.Exchange) error {
		e.Status(http.StatusOK)
		return nil
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "true", resp.Header.Get("X-Global"))
	assert.Equal(t, "true", resp.Header.Get("X-Local"))

	resp2, err := http.Get(srv.URL + "/plain")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "true", resp2.Header.Get("X-Global"))
	assert.Empty(t, resp2.Header.Get("X-Local"))
}

type item struct {
	ID string `json:"id"`
}

type itemParams struct {
	di.In
	Item    *item
	Verbose bool `inject:"verbose,default:false"`
}

func itemComponent() di.Component {
	return di.Provide("Item", func(_ context.Context, a di.Args) (*item, error) {
		req := di.Arg[*http.Request](a, "req")
		id := chi.URLParam(req, "id")
		if id == "0" {
			return nil, &router.Error{
				Status:      http.StatusNotFound,
				Reason:      "not_found",
				Description: "no such item",
			}
		}
		return &item{ID: id}, nil
	}, di.Needs(di.Param[*http.Request]("req")))
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandle(t *testing.T) {
	in := di.New(
		di.WithAmbient(router.Ambient()),
		di.WithComponents(itemComponent()),
		di.WithLogger(log.Discard()),
	)
	r := router.New(router.WithInjector(in), router.WithLogger(log.Discard()))

	router.Handle(r, "GET /items/{id}", func(e *router.Exchange, p itemParams) error {
		return e.JSON(http.StatusOK, p.Item)
	})

	require.NoError(t, r.Compile())
	assert.Equal(t, 1, in.Len())

	rec := get(t, r, "/items/42")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"42"}`, rec.Body.String())

	rec = get(t, r, "/items/0")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":404,"reason":"not_found","description":"no such item"}`, rec.Body.String())

	routes := r.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, "GET /items/{id}", routes[0].Pattern)
	assert.Same(t, in, r.Injector())
}

func TestHandle_Unresolvable(t *testing.T) {
	r := router.New(router.WithLogger(log.Discard()))

	router.Handle(r, "GET /items/{id}", func(e *router.Exchange, p itemParams) error {
		return nil
	})

	err := r.Compile()
	require.ErrorIs(t, err, di.ErrComponentNotFound)
	assert.Contains(t, err.Error(), `"GET /items/{id}"`)

	rec := get(t, r, "/items/1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), router.ReasonServerError)
}

func TestHandle_Exchange(t *testing.T) {
	type params struct {
		Exchange *router.Exchange
		Writer   http.ResponseWriter
	}
	r := router.New()

	router.Handle(r, "GET /raw", func(e *router.Exchange, p params) error {
		assert.Same(t, e, p.Exchange)
		p.Writer.WriteHeader(http.StatusNoContent)
		return nil
	})

	rec := get(t, r, "/raw")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
