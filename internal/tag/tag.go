// Package tag parses struct tags of the form `name,flag,key:value`.
//
// Option values may be wrapped in single or double quotes to protect
// embedded commas, as in `limit,default:'a,b'`.
package tag

import (
	"iter"
	"strings"
	"unicode"
)

// Tag is a parsed struct tag.
type Tag struct {
	Name string
	opts string
}

// Parse splits s into the leading name and the raw options.
func Parse(s string) Tag {
	name, opts, _ := strings.Cut(s, ",")
	return Tag{
		Name: strings.TrimSpace(name),
		opts: opts,
	}
}

// Lookup returns the value of the first option named key. Flags without a
// value are reported as present with an empty value.
func (t Tag) Lookup(key string) (string, bool) {
	for k, v := range t.Opts() {
		if k == key {
			return v, true
		}
	}
	return "", false
}

// Has reports whether the option key is present.
func (t Tag) Has(key string) bool {
	_, ok := t.Lookup(key)
	return ok
}

// Opts iterates over the options in declaration order.
func (t Tag) Opts() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		rest := t.opts
		for rest != "" {
			var part string
			part, rest = next(rest)
			part = strings.TrimLeftFunc(part, unicode.IsSpace)
			if part == "" {
				continue
			}
			k, v, found := strings.Cut(part, ":")
			if found {
				v = unquote(strings.TrimSpace(v))
			}
			if !yield(strings.TrimRightFunc(k, unicode.IsSpace), v) {
				return
			}
		}
	}
}

// next cuts s at the first comma outside of quotes.
func next(s string) (part, rest string) {
	var q rune
	for i, r := range s {
		switch {
		case q != 0:
			if r == q {
				q = 0
			}
		case r == '\'' || r == '"':
			q = r
		case r == ',':
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

func unquote(s string) string {
	if n := len(s); n >= 2 && (s[0] == '\'' || s[0] == '"') && s[n-1] == s[0] {
		return s[1 : n-1]
	}
	return s
}
