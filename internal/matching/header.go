package matching

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/getmockd/pactstub/pkg/pact"
)

// MatchHeaderValue compares two header values, ignoring whitespace around
// commas. Content-Type values are compared by media type and parameters.
func MatchHeaderValue(name, expected, actual string) bool {
	if strings.EqualFold(name, "Content-Type") {
		return matchContentType(expected, actual)
	}
	return normalizeHeader(expected) == normalizeHeader(actual)
}

func normalizeHeader(v string) string {
	parts := strings.Split(v, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, ",")
}

// matchContentType requires equal media types and every expected parameter.
// Extra parameters on the actual value are accepted.
func matchContentType(expected, actual string) bool {
	emt, eparams, err1 := mime.ParseMediaType(expected)
	amt, aparams, err2 := mime.ParseMediaType(actual)
	if err1 != nil || err2 != nil {
		return normalizeHeader(expected) == normalizeHeader(actual)
	}
	if !strings.EqualFold(emt, amt) {
		return false
	}
	for k, v := range eparams {
		if !strings.EqualFold(aparams[k], v) {
			return false
		}
	}
	return true
}

func (c *comparison) headers(expected, actual http.Header) {
	for _, name := range sortedKeys(expected) {
		want := strings.Join(expected[name], ", ")
		values := actual.Values(name)
		if len(values) == 0 {
			c.add(Mismatch{
				Kind:        KindHeader,
				Path:        name,
				Expected:    want,
				Description: fmt.Sprintf("Expected header '%s' but was missing", name),
			})
			continue
		}
		got := strings.Join(values, ", ")
		if rs, ok := c.rules.For(pact.CategoryHeader, http.CanonicalHeaderKey(name)); ok {
			if msg := c.checkRuleSet(rs, want, got); msg != "" {
				c.add(Mismatch{
					Kind:        KindHeader,
					Path:        name,
					Expected:    want,
					Actual:      got,
					Description: fmt.Sprintf("Mismatch with header '%s': %s", name, msg),
				})
			}
			continue
		}
		if !MatchHeaderValue(name, want, got) {
			c.add(Mismatch{
				Kind:        KindHeader,
				Path:        name,
				Expected:    want,
				Actual:      got,
				Description: fmt.Sprintf("Expected header '%s' to have value '%s' but was '%s'", name, want, got),
			})
		}
	}
}
