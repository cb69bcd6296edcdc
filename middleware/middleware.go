// Package middleware provides the HTTP middleware shared by all routes of
// the wiring server: panic recovery, request IDs, and request logging.
//
// Middleware is expressed as a Pipe and composed with Chain:
//
//	h = middleware.Chain(h,
//		middleware.Recover(logger),
//		middleware.RequestID(),
//		middleware.Log(logger),
//	)
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deep-rent/wiring/log"
)

// HeaderRequestID is the header that carries the request ID.
const HeaderRequestID = "X-Request-ID"

// Pipe wraps a handler with additional behavior.
type Pipe func(http.Handler) http.Handler

// Chain applies pipes to h such that the first pipe is the outermost one.
// Nil pipes are skipped.
func Chain(h http.Handler, pipes ...Pipe) http.Handler {
	for i := len(pipes) - 1; i >= 0; i-- {
		if pipes[i] != nil {
			h = pipes[i](h)
		}
	}
	return h
}

// Recover turns panics in downstream handlers into a 500 response and logs
// them together with the stack trace.
func Recover(logger *slog.Logger) Pipe {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error(
						"Panic caught by middleware",
						slog.Any("error", rec),
						slog.String("url", r.URL.String()),
						slog.String("stack", string(debug.Stack())),
					)
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type requestIDKey struct{}

// SetRequestID returns a copy of ctx carrying id.
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the request ID carried by ctx, or an empty string.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// NewRequestID generates a random 32 character hexadecimal ID.
func NewRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// RequestID assigns every request an ID. An ID sent by the client in the
// X-Request-ID header is kept; otherwise a new one is generated. The ID is
// echoed in the response header and stored in the request context.
func RequestID() Pipe {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" || len(id) > 128 {
				id = NewRequestID()
			}
			w.Header().Set(HeaderRequestID, id)
			next.ServeHTTP(w, r.WithContext(SetRequestID(r.Context(), id)))
		})
	}
}

// recorder captures the status code written by a handler.
type recorder struct {
	http.ResponseWriter
	status int
}

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *recorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Log records every handled request at debug level. It also places a logger
// annotated with the request ID into the request context, where handlers
// can retrieve it through log.From.
func Log(logger *slog.Logger) Pipe {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := GetRequestID(r.Context())
			ctx := log.Into(r.Context(), logger.With(slog.String("id", id)))

			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debug(
				"HTTP request handled",
				slog.String("id", id),
				slog.String("method", r.Method),
				slog.String("url", r.URL.RequestURI()),
				slog.String("remote", r.RemoteAddr),
				slog.String("agent", r.UserAgent()),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
