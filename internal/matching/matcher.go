package matching

import (
	"fmt"
	"strings"

	"github.com/getmockd/pactstub/pkg/pact"
)

// Kind identifies the part of the request a mismatch was found in.
type Kind string

// Mismatch kinds.
const (
	KindMethod   Kind = "method"
	KindPath     Kind = "path"
	KindQuery    Kind = "query"
	KindHeader   Kind = "header"
	KindBody     Kind = "body"
	KindBodyType Kind = "body-type"
)

// Mismatch describes one difference between the expected and actual request.
type Mismatch struct {
	Kind        Kind   `json:"kind"`
	Path        string `json:"path,omitempty"`
	Expected    string `json:"expected,omitempty"`
	Actual      string `json:"actual,omitempty"`
	Description string `json:"description"`
}

// String returns the human-readable mismatch reason.
func (m Mismatch) String() string {
	return m.Description
}

// Result is the outcome of matching one request against one interaction.
type Result struct {
	Mismatches []Mismatch
}

// Matched reports whether the request satisfied every expectation.
func (r Result) Matched() bool {
	return len(r.Mismatches) == 0
}

// Reasons renders the mismatches as strings.
func (r Result) Reasons() []string {
	reasons := make([]string, len(r.Mismatches))
	for i, m := range r.Mismatches {
		reasons[i] = m.String()
	}
	return reasons
}

// Near reports whether a failed result is worth reporting: the method or the
// path matched.
func (r Result) Near() bool {
	var method, path bool
	for _, m := range r.Mismatches {
		switch m.Kind {
		case KindMethod:
			method = true
		case KindPath:
			path = true
		}
	}
	return !method || !path
}

// Has reports whether the result contains a mismatch of the given kind.
func (r Result) Has(kind Kind) bool {
	for _, m := range r.Mismatches {
		if m.Kind == kind {
			return true
		}
	}
	return false
}

// Matcher decides whether a request satisfies an interaction's expected request.
// Implementations must be safe for concurrent use.
type Matcher interface {
	Match(req *Request, expected *pact.Request) Result
}

// RequestMatcher is the pact request matcher.
type RequestMatcher struct {
	regexps *regexCache
	paths   *pathCache
}

// NewRequestMatcher creates a RequestMatcher.
func NewRequestMatcher() *RequestMatcher {
	return &RequestMatcher{
		regexps: newRegexCache(),
		paths:   newPathCache(),
	}
}

// Match compares every part of the request and collects all mismatches.
func (m *RequestMatcher) Match(req *Request, expected *pact.Request) Result {
	if req == nil || expected == nil {
		return Result{Mismatches: []Mismatch{{Kind: KindMethod, Description: "no request to compare"}}}
	}
	c := &comparison{m: m, rules: expected.Rules}
	c.method(expected.Method, req.Method)
	c.path(expected.Path, req.Path)
	c.query(expected.Query, req.Query)
	c.headers(expected.Headers, req.Headers)
	c.body(expected, req)
	return Result{Mismatches: c.mismatches}
}

var _ Matcher = (*RequestMatcher)(nil)

// comparison accumulates mismatches for a single Match call.
type comparison struct {
	m          *RequestMatcher
	rules      pact.MatchingRules
	mismatches []Mismatch
}

func (c *comparison) add(m Mismatch) {
	c.mismatches = append(c.mismatches, m)
}

// MatchMethod checks if the request method matches.
func MatchMethod(expected, actual string) bool {
	return strings.EqualFold(expected, actual)
}

func (c *comparison) method(expected, actual string) {
	if MatchMethod(expected, actual) {
		return
	}
	c.add(Mismatch{
		Kind:        KindMethod,
		Expected:    strings.ToUpper(expected),
		Actual:      strings.ToUpper(actual),
		Description: fmt.Sprintf("Expected method of '%s' but received '%s'", strings.ToUpper(expected), strings.ToUpper(actual)),
	})
}
