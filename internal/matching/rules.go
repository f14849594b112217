package matching

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/ohler55/ojg/jp"

	"github.com/getmockd/pactstub/pkg/pact"
)

// regexCache compiles rule patterns once. Patterns are anchored so that a
// regex rule must match the whole value.
type regexCache struct {
	m sync.Map // pattern -> *regexp.Regexp or error
}

func newRegexCache() *regexCache {
	return &regexCache{}
}

func (c *regexCache) get(pattern string) (*regexp.Regexp, error) {
	if v, ok := c.m.Load(pattern); ok {
		if err, isErr := v.(error); isErr {
			return nil, err
		}
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		err = fmt.Errorf("invalid regex %q: %w", pattern, err)
		c.m.Store(pattern, err)
		return nil, err
	}
	c.m.Store(pattern, re)
	return re, nil
}

// pathCache holds parsed body rule paths.
type pathCache struct {
	m sync.Map // rule key -> jp.Expr (nil when unparseable)
}

func newPathCache() *pathCache {
	return &pathCache{}
}

func (c *pathCache) get(key string) jp.Expr {
	if v, ok := c.m.Load(key); ok {
		return v.(jp.Expr)
	}
	expr, err := jp.ParseString(key)
	if err != nil {
		expr = nil
	}
	c.m.Store(key, expr)
	return expr
}

// segment is one step of a concrete location inside a body: an object key or
// an array index.
type segment struct {
	key   string
	index int
}

func keySeg(k string) segment { return segment{key: k, index: -1} }
func indexSeg(i int) segment  { return segment{index: i} }

// renderPath formats a concrete location as a JSONPath, e.g. $.items[0].id.
func renderPath(segs []segment) string {
	var sb strings.Builder
	sb.WriteString("$")
	for _, s := range segs {
		switch {
		case s.index >= 0:
			sb.WriteString("[" + strconv.Itoa(s.index) + "]")
		case isPlainKey(s.key):
			sb.WriteString("." + s.key)
		default:
			sb.WriteString("['" + s.key + "']")
		}
	}
	return sb.String()
}

func isPlainKey(k string) bool {
	if k == "" {
		return false
	}
	for _, r := range k {
		if !(r == '_' || r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// pathWeight scores how well a rule path matches a concrete location. Zero
// means no match. Named steps weigh more than wildcards so the most specific
// rule wins.
func pathWeight(expr jp.Expr, segs []segment) int {
	frags := make([]jp.Frag, 0, len(expr))
	for _, f := range expr {
		switch f.(type) {
		case jp.Root, jp.Bracket:
			continue
		}
		frags = append(frags, f)
	}
	if len(frags) != len(segs) {
		return 0
	}
	weight := 1
	for i, f := range frags {
		s := segs[i]
		switch v := f.(type) {
		case jp.Child:
			if s.index >= 0 || string(v) != s.key {
				return 0
			}
			weight *= 2
		case jp.Nth:
			if s.index < 0 || int(v) != s.index {
				return 0
			}
			weight *= 2
		case jp.Wildcard:
			weight *= 1
		default:
			return 0
		}
	}
	return weight
}

// bodyRule returns the most specific body rule for a location.
func (c *comparison) bodyRule(segs []segment) (pact.RuleSet, bool) {
	var (
		best   pact.RuleSet
		weight int
	)
	for key, rs := range c.rules.Category(pact.CategoryBody) {
		expr := c.m.paths.get(key)
		if expr == nil {
			continue
		}
		if w := pathWeight(expr, segs); w > weight {
			best, weight = rs, w
		}
	}
	return best, weight > 0
}

// checkRuleSet applies a rule set to a single value and returns a description
// of the failure, or "" when the value passes.
func (c *comparison) checkRuleSet(rs pact.RuleSet, expected, actual any) string {
	var failures []string
	for _, r := range rs.Rules {
		msg := c.checkRule(r, expected, actual)
		if msg == "" {
			if rs.Combine == pact.CombineOR {
				return ""
			}
			continue
		}
		failures = append(failures, msg)
	}
	if len(failures) == 0 {
		return ""
	}
	if rs.Combine == pact.CombineOR && len(failures) < len(rs.Rules) {
		return ""
	}
	return strings.Join(failures, "; ")
}

func (c *comparison) checkRule(r pact.Rule, expected, actual any) string {
	switch r.Match {
	case pact.MatchRegex:
		s, ok := scalarString(actual)
		if !ok {
			return fmt.Sprintf("Expected %s to match regex '%s'", describe(actual), r.Regex)
		}
		re, err := c.m.regexps.get(r.Regex)
		if err != nil {
			return err.Error()
		}
		if !re.MatchString(s) {
			return fmt.Sprintf("Expected '%s' to match '%s'", s, r.Regex)
		}
	case pact.MatchType, pact.MatchDate, pact.MatchTime, pact.MatchTimestamp, pact.MatchValues:
		if !sameType(expected, actual) {
			return fmt.Sprintf("Expected %s to be the same type as %s", describe(actual), describe(expected))
		}
		if arr, ok := actual.([]any); ok {
			if r.HasMin() && len(arr) < r.Min {
				return fmt.Sprintf("Expected an array with at least %d elements but received %d", r.Min, len(arr))
			}
			if r.HasMax() && len(arr) > r.Max {
				return fmt.Sprintf("Expected an array with at most %d elements but received %d", r.Max, len(arr))
			}
		}
	case pact.MatchEquality:
		if !valuesEqual(expected, actual) {
			return fmt.Sprintf("Expected %s to equal %s", describe(actual), describe(expected))
		}
	case pact.MatchInclude:
		want, _ := scalarString(r.Value)
		if want == "" {
			want, _ = scalarString(expected)
		}
		s, ok := scalarString(actual)
		if !ok || !strings.Contains(s, want) {
			return fmt.Sprintf("Expected %s to include '%s'", describe(actual), want)
		}
	case pact.MatchInteger:
		if !isInteger(actual) {
			return fmt.Sprintf("Expected %s to be an integer", describe(actual))
		}
	case pact.MatchDecimal:
		if !isDecimal(actual) {
			return fmt.Sprintf("Expected %s to be a decimal number", describe(actual))
		}
	case pact.MatchNumber:
		if !isNumber(actual) {
			return fmt.Sprintf("Expected %s to be a number", describe(actual))
		}
	case pact.MatchBoolean:
		if !isBoolean(actual) {
			return fmt.Sprintf("Expected %s to be a boolean", describe(actual))
		}
	case pact.MatchNull:
		if actual != nil {
			return fmt.Sprintf("Expected %s to be null", describe(actual))
		}
	default:
		if !valuesEqual(expected, actual) {
			return fmt.Sprintf("Expected %s to equal %s", describe(actual), describe(expected))
		}
	}
	return ""
}

// cascades reports whether the rule set relaxes the comparison of child nodes
// to a type comparison.
func cascades(rs pact.RuleSet) bool {
	for _, r := range rs.Rules {
		if r.Match == pact.MatchType || r.Match == pact.MatchValues {
			return true
		}
	}
	return false
}

func hasMatch(rs pact.RuleSet, match string) bool {
	for _, r := range rs.Rules {
		if r.Match == match {
			return true
		}
	}
	return false
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	default:
		return "", false
	}
}

func sameType(expected, actual any) bool {
	switch expected.(type) {
	case nil:
		return actual == nil
	case string:
		_, ok := actual.(string)
		return ok
	case json.Number, float64, int:
		return isNumber(actual) && !isStringValue(actual)
	case bool:
		_, ok := actual.(bool)
		return ok
	case map[string]any:
		_, ok := actual.(map[string]any)
		return ok
	case []any:
		_, ok := actual.([]any)
		return ok
	}
	return reflect.TypeOf(expected) == reflect.TypeOf(actual)
}

func isStringValue(v any) bool {
	_, ok := v.(string)
	return ok
}

func isInteger(v any) bool {
	s, ok := scalarString(v)
	if !ok {
		return false
	}
	if _, isBool := v.(bool); isBool {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isDecimal(v any) bool {
	s, ok := scalarString(v)
	if !ok || !strings.Contains(s, ".") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isNumber(v any) bool {
	if _, isBool := v.(bool); isBool {
		return false
	}
	s, ok := scalarString(v)
	if !ok {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isBoolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return true
	case string:
		return t == "true" || t == "false"
	}
	return false
}

// valuesEqual compares decoded JSON values. Numbers compare by value so that
// 1 and 1.0 are equal.
func valuesEqual(expected, actual any) bool {
	if en, ok := expected.(json.Number); ok {
		an, ok := actual.(json.Number)
		if !ok {
			return false
		}
		if en == an {
			return true
		}
		ef, err1 := en.Float64()
		af, err2 := an.Float64()
		return err1 == nil && err2 == nil && ef == af
	}
	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for k, ev := range e {
			av, ok := a[k]
			if !ok || !valuesEqual(ev, av) {
				return false
			}
		}
		return true
	case []any:
		a, ok := actual.([]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for i := range e {
			if !valuesEqual(e[i], a[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(expected, actual)
}

// describe renders a decoded JSON value for mismatch messages.
func describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + t + "'"
	case map[string]any:
		return "a JSON object"
	case []any:
		return fmt.Sprintf("an array of %d elements", len(t))
	}
	s, _ := scalarString(v)
	return s
}
