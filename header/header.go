// Package header provides helpers for reading HTTP request headers: mapping
// parameter names to header names, parsing quality-factor lists, and
// extracting credentials from the Authorization header.
package header

import (
	"iter"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

// Common header names.
const (
	Authorization = "Authorization"
	ContentType   = "Content-Type"
	Accept        = "Accept"
)

// Name converts a parameter name into the canonical form of the header it
// refers to. Underscores become dashes, so "x_request_id" maps to
// "X-Request-Id".
func Name(param string) string {
	return textproto.CanonicalMIMEHeaderKey(strings.ReplaceAll(param, "_", "-"))
}

// Credentials extracts the credentials from the Authorization header for the
// given scheme (e.g., "Bearer"). The scheme comparison ignores case. It
// returns an empty string if the header is absent, malformed, or uses a
// different scheme.
func Credentials(h http.Header, scheme string) string {
	auth := h.Get(Authorization)
	if auth == "" {
		return ""
	}
	prefix, credentials, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(prefix, scheme) {
		return ""
	}
	return strings.TrimSpace(credentials)
}

// Preferences iterates over the entries of a header value with quality
// factors (e.g., Accept), in header order. Entries without a valid q-factor
// are assigned a quality of 1.
func Preferences(value string) iter.Seq2[string, float64] {
	return func(yield func(string, float64) bool) {
		for part := range strings.SplitSeq(value, ",") {
			key, params, _ := strings.Cut(part, ";")
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			q := 1.0
			for p := range strings.SplitSeq(params, ";") {
				k, v, ok := strings.Cut(p, "=")
				if ok && strings.TrimSpace(k) == "q" {
					if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
						q = f
					}
					break
				}
			}
			if !yield(key, q) {
				return
			}
		}
	}
}

// Accepts reports whether key is listed in value with a quality above zero.
// A wildcard entry ("*" or "*/*") accepts every key not listed explicitly.
func Accepts(value, key string) bool {
	wildcard := false
	for k, q := range Preferences(value) {
		switch k {
		case key:
			return q > 0
		case "*", "*/*":
			wildcard = q > 0
		}
	}
	return wildcard
}
