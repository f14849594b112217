package matching

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/getmockd/pactstub/pkg/pact"
)

func (c *comparison) query(expected, actual url.Values) {
	if expected == nil {
		return
	}
	c.values(KindQuery, "query parameter", pact.CategoryQuery, expected, actual)
}

// values compares parameter lists shared by the query string and form bodies.
// Every expected parameter must be present and unexpected parameters fail.
func (c *comparison) values(kind Kind, noun string, cat pact.Category, expected, actual url.Values) {
	for _, name := range sortedKeys(expected) {
		want := expected[name]
		got, ok := actual[name]
		if !ok {
			c.add(Mismatch{
				Kind:        kind,
				Path:        name,
				Expected:    strings.Join(want, ","),
				Description: fmt.Sprintf("Expected %s '%s' but was missing", noun, name),
			})
			continue
		}
		key := name
		if cat == pact.CategoryBody {
			key = "$." + name
		}
		if rs, ok := c.rules.For(cat, key); ok {
			c.ruleValues(kind, noun, name, rs, want, got)
			continue
		}
		if !equalStrings(want, got) {
			c.add(Mismatch{
				Kind:        kind,
				Path:        name,
				Expected:    strings.Join(want, ","),
				Actual:      strings.Join(got, ","),
				Description: fmt.Sprintf("Expected %s '%s' with value %q but received %q", noun, name, want, got),
			})
		}
	}
	for _, name := range sortedKeys(actual) {
		if _, ok := expected[name]; ok {
			continue
		}
		c.add(Mismatch{
			Kind:        kind,
			Path:        name,
			Actual:      strings.Join(actual[name], ","),
			Description: fmt.Sprintf("Unexpected %s '%s' received", noun, name),
		})
	}
}

// ruleValues checks every received value against the rule, using the first
// expected value as the template.
func (c *comparison) ruleValues(kind Kind, noun, name string, rs pact.RuleSet, want, got []string) {
	var template any
	if len(want) > 0 {
		template = want[0]
	}
	for _, v := range got {
		if msg := c.checkRuleSet(rs, template, v); msg != "" {
			c.add(Mismatch{
				Kind:        kind,
				Path:        name,
				Expected:    strings.Join(want, ","),
				Actual:      v,
				Description: fmt.Sprintf("Mismatch in %s '%s': %s", noun, name, msg),
			})
			return
		}
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
