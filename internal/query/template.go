// Package query assembles data-provider queries: "{{name}}" placeholder
// substitution, the Top Platforms filter clause, and rendering of that clause
// into provider dialects.
package query

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrMissingValue = errors.New("no value for placeholder")
	ErrUnknownField = errors.New("unknown condition field")
	ErrSyntax       = errors.New("condition syntax error")
)

// Placeholder names used by the Top Platforms query templates.
const (
	KeyTimeFrom    = "{{timeFrom}}"
	KeyTimeTo      = "{{timeTo}}"
	KeyPer         = "{{per}}"
	KeyLimit       = "{{limit}}"
	KeyQueryString = "{{querystring}}"
	KeyAPI         = "{{api}}"
	KeyVersion     = "{{version}}"
)

var placeholderRegex = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Placeholder wraps name in the token syntax, e.g. "api" -> "{{api}}".
func Placeholder(name string) string {
	return "{{" + name + "}}"
}

// Substitute replaces placeholders with their values. Values may reference
// other placeholders; replacement repeats until nothing changes. Unknown
// placeholders are left as they are.
func Substitute(template string, values map[string]string) string {
	out := template
	for pass := 0; pass <= len(values); pass++ {
		next := placeholderRegex.ReplaceAllStringFunc(out, func(tok string) string {
			name := placeholderRegex.FindStringSubmatch(tok)[1]
			if v, ok := values[Placeholder(name)]; ok {
				return v
			}
			return tok
		})
		if next == out {
			break
		}
		out = next
	}
	return out
}

// EscapeLiteral makes s safe to embed between single quotes in a condition.
func EscapeLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
