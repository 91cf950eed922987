package core

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

// RequireText checks a free-text field: not empty, not only whitespace and,
// when max > 0, at most max characters long.
func RequireText(field, value string, max int) error {
	if value == "" {
		return Invalidf(field, "cannot be empty")
	}
	if strings.TrimSpace(value) == "" {
		return Invalidf(field, "cannot contain only whitespace")
	}
	if n := utf8.RuneCountInString(value); max > 0 && n > max {
		return Invalidf(field, "is %d characters long, the limit is %d", n, max)
	}
	return nil
}

// RequireOneOf checks that value belongs to the closed set allowed.
func RequireOneOf[T ~string](field string, value T, allowed []T) error {
	if !slices.Contains(allowed, value) {
		names := make([]string, len(allowed))
		for i, a := range allowed {
			names[i] = string(a)
		}
		return Invalidf(field, "%q is not one of %s", string(value), strings.Join(names, ", "))
	}
	return nil
}

// GlobFilter selects records whose text matches a doublestar pattern,
// ignoring case. An empty pattern selects everything.
func GlobFilter[R any](pattern string, text func(R) string) (Filter[R], error) {
	if pattern == "" {
		return nil, nil
	}
	pattern = strings.ToLower(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, Invalidf("match", "%q is not a valid pattern", pattern)
	}
	return func(r R) bool {
		ok, _ := doublestar.Match(pattern, strings.ToLower(text(r)))
		return ok
	}, nil
}
