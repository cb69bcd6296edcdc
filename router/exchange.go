package router

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/deep-rent/wiring/di"
	"github.com/deep-rent/wiring/header"
)

const (
	// ReasonWrongType indicates that the request had an unsupported content type.
	ReasonWrongType = "wrong_type"
	// ReasonEmptyBody indicates that the request body was empty.
	ReasonEmptyBody = "empty_body"
	// ReasonParseJSON indicates that there was an error parsing the JSON body.
	ReasonParseJSON = "parse_json"
	// ReasonInvalid indicates that a request value failed validation.
	ReasonInvalid = "invalid"
	// ReasonUnauthorized indicates missing or invalid credentials.
	ReasonUnauthorized = "unauthorized"
	// ReasonServerError indicates that an unexpected internal error occurred.
	ReasonServerError = "server_error"
)

// Error describes the standard shape of API errors.
//
// Any error returned by a handler that does not wrap this type will be
// treated as an internal server error.
type Error struct {
	// Status is the HTTP status code.
	Status int `json:"status"`
	// Reason is a short string identifying the error type.
	Reason string `json:"reason"`
	// Description is a human-readable explanation of the error cause.
	Description string `json:"description"`
	// ID is a unique identifier of the specific occurrence for tracing purposes.
	ID string `json:"id,omitempty"`
	// Cause is the underlying error that triggered this error (if any).
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Description
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Exchange bundles the request and the response writer of a single call.
type Exchange struct {
	R *http.Request
	W http.ResponseWriter
}

// Values returns the runtime context for resolving route parameters.
func (e *Exchange) Values() di.Values {
	return di.Values{
		AmbientRequest:  e.R,
		AmbientWriter:   e.W,
		AmbientExchange: e,
	}
}

// Context returns the request's context.
func (e *Exchange) Context() context.Context { return e.R.Context() }

// Method returns the HTTP method of the request.
func (e *Exchange) Method() string { return e.R.Method }

// URL returns the full URL of the request.
func (e *Exchange) URL() *url.URL { return e.R.URL }

// Path returns the URL path of the request.
func (e *Exchange) Path() string { return e.R.URL.Path }

// Param retrieves a path parameter by name.
func (e *Exchange) Param(name string) string { return chi.URLParam(e.R, name) }

// Query parses the URL query parameters of the request. Malformed pairs will
// be silently discarded.
func (e *Exchange) Query() url.Values { return e.R.URL.Query() }

// Header returns the HTTP headers of the request.
func (e *Exchange) Header() http.Header { return e.R.Header }

// GetHeader retrieves a specific header value from the request.
func (e *Exchange) GetHeader(key string) string { return e.R.Header.Get(key) }

// SetHeader sets a specific header value in the response.
func (e *Exchange) SetHeader(key, value string) { e.W.Header().Set(key, value) }

// BindJSON decodes the request body into v.
//
// If the Content-Type is not application/json, or if the body is empty or
// malformed, an appropriate API error is returned.
func (e *Exchange) BindJSON(v any) *Error {
	ct := e.GetHeader(header.ContentType)
	if ct != "" && !strings.HasPrefix(ct, "application/json") {
		return &Error{
			Status:      http.StatusUnsupportedMediaType,
			Reason:      ReasonWrongType,
			Description: "wrong content type",
		}
	}
	if e.R.Body == nil || e.R.Body == http.NoBody {
		return &Error{
			Status:      http.StatusBadRequest,
			Reason:      ReasonEmptyBody,
			Description: "empty request body",
		}
	}
	if err := json.NewDecoder(e.R.Body).Decode(v); err != nil {
		return &Error{
			Status:      http.StatusBadRequest,
			Reason:      ReasonParseJSON,
			Description: "could not parse JSON body",
			Cause:       err,
		}
	}
	return nil
}

// JSON encodes v as JSON and writes it to the response with the given HTTP
// status code.
func (e *Exchange) JSON(status int, v any) error {
	e.SetHeader(header.ContentType, "application/json")
	e.SetHeader("X-Content-Type-Options", "nosniff")
	e.W.WriteHeader(status)
	return json.NewEncoder(e.W).Encode(v)
}

// Status writes a response without body.
func (e *Exchange) Status(code int) { e.W.WriteHeader(code) }

// Redirect replies with a redirect to url.
func (e *Exchange) Redirect(url string, code int) error {
	http.Redirect(e.W, e.R, url, code)
	return nil
}
