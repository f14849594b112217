package matching

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/getmockd/pactstub/pkg/pact"
)

func (c *comparison) body(expected *pact.Request, req *Request) {
	if !expected.Body.Present {
		return
	}
	ct := expected.Body.ContentType
	if ct == "" {
		ct = expected.Headers.Get("Content-Type")
	}
	if ct == "" {
		ct = req.ContentType()
	}

	switch {
	case pact.IsJSONContentType(ct):
		c.jsonBody(expected.Body.Content, req.Body)
	case pact.IsXMLContentType(ct):
		c.xmlBody(expected.Body.Content, req.Body)
	case pact.IsFormContentType(ct):
		c.formBody(expected.Body.Content, req.Body)
	default:
		c.textBody(expected.Body.Content, req.Body)
	}
}

// decodeJSON decodes with UseNumber so numbers keep their textual form.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func (c *comparison) jsonBody(expectedRaw, actualRaw []byte) {
	if len(bytes.TrimSpace(expectedRaw)) == 0 {
		if len(bytes.TrimSpace(actualRaw)) != 0 {
			c.add(Mismatch{Kind: KindBody, Path: "$", Description: "Expected an empty body but received one"})
		}
		return
	}
	expected, err := decodeJSON(expectedRaw)
	if err != nil {
		c.textBody(expectedRaw, actualRaw)
		return
	}
	if len(bytes.TrimSpace(actualRaw)) == 0 {
		c.add(Mismatch{
			Kind:        KindBody,
			Path:        "$",
			Expected:    string(expectedRaw),
			Description: "Expected a JSON body but received an empty body",
		})
		return
	}
	actual, err := decodeJSON(actualRaw)
	if err != nil {
		c.add(Mismatch{
			Kind:        KindBodyType,
			Path:        "$",
			Description: fmt.Sprintf("Failed to parse the request body as JSON: %v", err),
		})
		return
	}
	c.compareJSON(expected, actual, nil, false)
}

// compareJSON walks the expected document. Once a type rule applies to a node,
// its descendants are compared by type only.
func (c *comparison) compareJSON(expected, actual any, segs []segment, byType bool) {
	rs, hasRule := c.bodyRule(segs)
	if hasRule {
		if msg := c.checkRuleSet(rs, expected, actual); msg != "" {
			c.bodyMismatch(segs, expected, actual, msg)
			return
		}
		if !cascades(rs) {
			return
		}
		byType = true
	}

	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			c.bodyMismatch(segs, expected, actual, fmt.Sprintf("Type mismatch: Expected %s but received %s", describe(expected), describe(actual)))
			return
		}
		if hasRule && hasMatch(rs, pact.MatchValues) {
			c.compareMapValues(e, a, segs)
			return
		}
		c.compareObject(e, a, segs, byType)
	case []any:
		a, ok := actual.([]any)
		if !ok {
			c.bodyMismatch(segs, expected, actual, fmt.Sprintf("Type mismatch: Expected %s but received %s", describe(expected), describe(actual)))
			return
		}
		c.compareArray(e, a, segs, byType)
	default:
		if byType {
			if !sameType(expected, actual) {
				c.bodyMismatch(segs, expected, actual, fmt.Sprintf("Expected %s to be the same type as %s", describe(actual), describe(expected)))
			}
			return
		}
		if !valuesEqual(expected, actual) {
			c.bodyMismatch(segs, expected, actual, fmt.Sprintf("Expected %s but received %s", describe(expected), describe(actual)))
		}
	}
}

func (c *comparison) compareObject(expected, actual map[string]any, segs []segment, byType bool) {
	for _, k := range sortedKeys(expected) {
		child := append(append([]segment(nil), segs...), keySeg(k))
		av, ok := actual[k]
		if !ok {
			c.add(Mismatch{
				Kind:        KindBody,
				Path:        renderPath(child),
				Expected:    describe(expected[k]),
				Description: fmt.Sprintf("Expected key '%s' at %s but was missing", k, renderPath(segs)),
			})
			continue
		}
		c.compareJSON(expected[k], av, child, byType)
	}
	for _, k := range sortedKeys(actual) {
		if _, ok := expected[k]; ok {
			continue
		}
		c.add(Mismatch{
			Kind:        KindBody,
			Path:        renderPath(append(append([]segment(nil), segs...), keySeg(k))),
			Actual:      describe(actual[k]),
			Description: fmt.Sprintf("Unexpected key '%s' at %s", k, renderPath(segs)),
		})
	}
}

// compareMapValues ignores keys and checks each value against the first
// expected value.
func (c *comparison) compareMapValues(expected, actual map[string]any, segs []segment) {
	keys := sortedKeys(expected)
	if len(keys) == 0 {
		return
	}
	template := expected[keys[0]]
	for _, k := range sortedKeys(actual) {
		c.compareJSON(template, actual[k], append(append([]segment(nil), segs...), keySeg(k)), true)
	}
}

func (c *comparison) compareArray(expected, actual []any, segs []segment, byType bool) {
	if byType {
		if len(expected) == 0 {
			return
		}
		for i, av := range actual {
			c.compareJSON(expected[0], av, append(append([]segment(nil), segs...), indexSeg(i)), true)
		}
		return
	}
	if len(expected) != len(actual) {
		c.bodyMismatch(segs, expected, actual, fmt.Sprintf("Expected an array of %d elements but received %d", len(expected), len(actual)))
	}
	n := min(len(expected), len(actual))
	for i := 0; i < n; i++ {
		c.compareJSON(expected[i], actual[i], append(append([]segment(nil), segs...), indexSeg(i)), false)
	}
}

func (c *comparison) bodyMismatch(segs []segment, expected, actual any, msg string) {
	path := renderPath(segs)
	c.add(Mismatch{
		Kind:        KindBody,
		Path:        path,
		Expected:    describe(expected),
		Actual:      describe(actual),
		Description: path + ": " + msg,
	})
}

func (c *comparison) formBody(expectedRaw, actualRaw []byte) {
	expected, err := url.ParseQuery(string(expectedRaw))
	if err != nil {
		c.textBody(expectedRaw, actualRaw)
		return
	}
	actual, err := url.ParseQuery(string(actualRaw))
	if err != nil {
		c.add(Mismatch{
			Kind:        KindBodyType,
			Path:        "$",
			Description: fmt.Sprintf("Failed to parse the request body as a form: %v", err),
		})
		return
	}
	c.values(KindBody, "form field", pact.CategoryBody, expected, actual)
}

// textBody compares byte for byte unless a rule is attached to the whole body.
func (c *comparison) textBody(expected, actual []byte) {
	if rs, ok := c.rules.For(pact.CategoryBody, "$"); ok {
		if msg := c.checkRuleSet(rs, string(expected), string(actual)); msg != "" {
			c.add(Mismatch{Kind: KindBody, Path: "$", Description: "$: " + msg})
		}
		return
	}
	if bytes.Equal(expected, actual) {
		return
	}
	c.add(Mismatch{
		Kind:        KindBody,
		Path:        "$",
		Expected:    truncate(string(expected)),
		Actual:      truncate(string(actual)),
		Description: fmt.Sprintf("Expected body '%s' but received '%s'", truncate(string(expected)), truncate(string(actual))),
	})
}

func truncate(s string) string {
	const limit = 100
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
