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

// Package snake derives snake_case parameter names from Go identifiers.
package snake

import (
	"strings"
	"unicode"
)

// Words splits a Go identifier into its words. A new word starts at every
// lower-to-upper transition and before the last capital of an acronym that
// is followed by a lowercase letter, so "userID" yields ["user", "ID"] and
// "HTTPRequest" yields ["HTTP", "Request"]. Underscores separate words and
// are dropped.
func Words(s string) []string {
	var words []string
	runes := []rune(s)
	start := 0
	flush := func(end int) {
		if end > start {
			words = append(words, string(runes[start:end]))
		}
		start = end
	}
	for i, r := range runes {
		if r == '_' {
			flush(i)
			start = i + 1
			continue
		}
		if i == start {
			continue
		}
		q := runes[i-1]
		switch {
		case unicode.IsLower(q) && unicode.IsUpper(r):
			flush(i)
		case unicode.IsUpper(q) && unicode.IsUpper(r) &&
			i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			flush(i)
		}
	}
	flush(len(runes))
	return words
}

// ToLower converts an identifier to lowercase snake_case.
func ToLower(s string) string {
	return strings.ToLower(strings.Join(Words(s), "_"))
}

// ToUpper converts an identifier to uppercase SNAKE_CASE.
func ToUpper(s string) string {
	return strings.ToUpper(strings.Join(Words(s), "_"))
}
