package pact

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Category groups matching rules by the part of the request they apply to.
type Category string

// Matching rule categories.
const (
	CategoryBody   Category = "body"
	CategoryHeader Category = "header"
	CategoryQuery  Category = "query"
	CategoryPath   Category = "path"
)

// Matcher types understood by the request matcher.
const (
	MatchRegex     = "regex"
	MatchType      = "type"
	MatchEquality  = "equality"
	MatchInclude   = "include"
	MatchInteger   = "integer"
	MatchDecimal   = "decimal"
	MatchNumber    = "number"
	MatchBoolean   = "boolean"
	MatchNull      = "null"
	MatchDate      = "date"
	MatchTime      = "time"
	MatchTimestamp = "timestamp"
	MatchValues    = "values"
)

// Combine modes for rule sets with more than one matcher.
const (
	CombineAND = "AND"
	CombineOR  = "OR"
)

// Rule is a single matcher definition.
type Rule struct {
	Match  string
	Regex  string
	Min    int
	Max    int
	Value  any
	Format string
}

// HasMin reports whether the rule constrains the minimum array length.
func (r Rule) HasMin() bool { return r.Min >= 0 }

// HasMax reports whether the rule constrains the maximum array length.
func (r Rule) HasMax() bool { return r.Max >= 0 }

// RuleSet is the list of matchers attached to one path, header or parameter.
type RuleSet struct {
	Rules   []Rule
	Combine string
}

// MatchingRules holds the rules of a request or response keyed by category.
// Body rules are keyed by JSONPath ("$.items[*].id"), header rules by canonical
// header name, query rules by parameter name, and the path rule by "".
type MatchingRules map[Category]map[string]RuleSet

// For returns the rule set registered for key in category.
func (m MatchingRules) For(cat Category, key string) (RuleSet, bool) {
	if m == nil {
		return RuleSet{}, false
	}
	rs, ok := m[cat][key]
	return rs, ok
}

// Category returns all rule sets registered in cat.
func (m MatchingRules) Category(cat Category) map[string]RuleSet {
	if m == nil {
		return nil
	}
	return m[cat]
}

func (m MatchingRules) add(cat Category, key string, rs RuleSet) {
	if len(rs.Rules) == 0 {
		return
	}
	if m[cat] == nil {
		m[cat] = make(map[string]RuleSet)
	}
	m[cat][key] = rs
}

// parseMatchingRules accepts both the flat V2 layout ("$.body.name": {...}) and
// the categorized V3/V4 layout ("body": {"$.name": {"matchers": [...]}}).
func parseMatchingRules(raw json.RawMessage) (MatchingRules, error) {
	if isNull(raw) {
		return nil, nil
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("matchingRules: %w", err)
	}
	rules := make(MatchingRules)
	for key, value := range top {
		if strings.HasPrefix(key, "$") {
			if err := addFlatRule(rules, key, value); err != nil {
				return nil, err
			}
			continue
		}
		if err := addCategory(rules, key, value); err != nil {
			return nil, err
		}
	}
	if len(rules) == 0 {
		return nil, nil
	}
	return rules, nil
}

func addFlatRule(rules MatchingRules, key string, value json.RawMessage) error {
	rs, err := parseRuleSet(value)
	if err != nil {
		return fmt.Errorf("matchingRules %q: %w", key, err)
	}
	switch {
	case key == "$.path":
		rules.add(CategoryPath, "", rs)
	case key == "$.body" || strings.HasPrefix(key, "$.body.") || strings.HasPrefix(key, "$.body["):
		rules.add(CategoryBody, "$"+strings.TrimPrefix(key, "$.body"), rs)
	case strings.HasPrefix(key, "$.headers") || strings.HasPrefix(key, "$.header"):
		name := flatKeyName(strings.TrimPrefix(strings.TrimPrefix(key, "$.headers"), "$.header"))
		rules.add(CategoryHeader, http.CanonicalHeaderKey(name), rs)
	case strings.HasPrefix(key, "$.query"):
		rules.add(CategoryQuery, flatKeyName(strings.TrimPrefix(key, "$.query")), rs)
	}
	return nil
}

// flatKeyName extracts the name from ".name" or "['name']".
func flatKeyName(rest string) string {
	rest = strings.TrimPrefix(rest, ".")
	if strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]") {
		rest = strings.Trim(rest[1:len(rest)-1], `'"`)
	}
	return rest
}

func addCategory(rules MatchingRules, key string, value json.RawMessage) error {
	var cat Category
	switch key {
	case "body", "content":
		cat = CategoryBody
	case "header", "headers":
		cat = CategoryHeader
	case "query":
		cat = CategoryQuery
	case "path":
		rs, err := parseRuleSet(value)
		if err != nil {
			return fmt.Errorf("matchingRules.path: %w", err)
		}
		rules.add(CategoryPath, "", rs)
		return nil
	default:
		// metadata, status and other categories do not affect request matching
		return nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(value, &entries); err != nil {
		return fmt.Errorf("matchingRules.%s: %w", key, err)
	}
	for name, raw := range entries {
		rs, err := parseRuleSet(raw)
		if err != nil {
			return fmt.Errorf("matchingRules.%s %q: %w", key, name, err)
		}
		switch cat {
		case CategoryHeader:
			name = http.CanonicalHeaderKey(name)
		case CategoryBody:
			if !strings.HasPrefix(name, "$") {
				name = "$." + name
			}
		}
		rules.add(cat, name, rs)
	}
	return nil
}

func parseRuleSet(raw json.RawMessage) (RuleSet, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return RuleSet{}, err
	}
	rs := RuleSet{Combine: CombineAND}
	if c, ok := obj["combine"].(string); ok && strings.EqualFold(c, CombineOR) {
		rs.Combine = CombineOR
	}
	matchers, ok := obj["matchers"].([]any)
	if !ok {
		rs.Rules = append(rs.Rules, parseRule(obj))
		return rs, nil
	}
	for _, m := range matchers {
		if mm, ok := m.(map[string]any); ok {
			rs.Rules = append(rs.Rules, parseRule(mm))
		}
	}
	return rs, nil
}

func parseRule(obj map[string]any) Rule {
	r := Rule{Min: -1, Max: -1}
	r.Match, _ = obj["match"].(string)
	r.Regex, _ = obj["regex"].(string)
	r.Value = obj["value"]
	if n, ok := obj["min"].(float64); ok {
		r.Min = int(n)
	}
	if n, ok := obj["max"].(float64); ok {
		r.Max = int(n)
	}
	for _, k := range []string{"format", "date", "time", "timestamp"} {
		if s, ok := obj[k].(string); ok {
			r.Format = s
			break
		}
	}
	if r.Match == "min" || r.Match == "max" {
		r.Match = MatchType
	}
	if r.Match == "" {
		switch {
		case r.Regex != "":
			r.Match = MatchRegex
		case r.HasMin() || r.HasMax():
			r.Match = MatchType
		default:
			r.Match = MatchEquality
		}
	}
	return r
}
