// Package matcher builds the predicates used to test criterion names and
// values against a search pattern.
package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// PatternError reports a pattern that cannot be turned into a matcher.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Matcher reports whether a possibly absent string satisfies a pattern.
// Implementations are stateless and safe for concurrent use.
type Matcher interface {
	Match(value *string) bool
}

// Func adapts an ordinary function to the Matcher interface.
type Func func(value *string) bool

func (f Func) Match(value *string) bool {
	return f(value)
}

// New compiles a matcher. Regular expressions use search semantics: the
// pattern may match anywhere in the value. An empty pattern matches every
// present value.
func New(pattern string, useRegex bool, caseInsensitive bool) (Matcher, error) {
	if useRegex {
		expr := pattern
		if caseInsensitive {
			expr = "(?i)" + expr
		}
		compiled, err := regexp.Compile(expr)
		if err != nil {
			return nil, &PatternError{Pattern: pattern, Err: err}
		}
		return &regexMatcher{expr: compiled}, nil
	}

	if caseInsensitive {
		return &literalMatcher{needle: fold(pattern), fold: true}, nil
	}
	return &literalMatcher{needle: pattern}, nil
}

type literalMatcher struct {
	needle string
	fold   bool
}

func (m *literalMatcher) Match(value *string) bool {
	if value == nil {
		return false
	}
	haystack := *value
	if m.fold {
		haystack = fold(haystack)
	}
	return strings.Contains(haystack, m.needle)
}

type regexMatcher struct {
	expr *regexp.Regexp
}

func (m *regexMatcher) Match(value *string) bool {
	return value != nil && m.expr.MatchString(*value)
}

func fold(s string) string {
	return cases.Fold().String(s)
}
