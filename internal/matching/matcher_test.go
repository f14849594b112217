package matching

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/pactstub/pkg/pact"
)

// expectedRequest parses a single-interaction pact and returns its request.
func expectedRequest(t *testing.T, request string) *pact.Request {
	t.Helper()
	doc := `{"consumer": {"name": "c"}, "provider": {"name": "p"}, "interactions": [
		{"description": "d", "request": ` + request + `, "response": {"status": 200}}
	], "metadata": {"pactSpecification": {"version": "3.0.0"}}}`
	p, err := pact.Parse("test.json", []byte(doc))
	require.NoError(t, err)
	require.Len(t, p.Interactions, 1)
	return &p.Interactions[0].Request
}

func newRequest(method, target string, headers map[string]string, body string) *Request {
	u, _ := url.Parse(target)
	r := &http.Request{Method: method, URL: u, Header: http.Header{}}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return FromHTTP(r, []byte(body))
}

func TestMatch_MethodAndPath(t *testing.T) {
	m := NewRequestMatcher()
	exp := expectedRequest(t, `{"method": "GET", "path": "/users"}`)

	assert.True(t, m.Match(newRequest("get", "/users", nil, ""), exp).Matched())

	res := m.Match(newRequest("POST", "/users/", nil, ""), exp)
	require.False(t, res.Matched())
	assert.True(t, res.Has(KindMethod))
	assert.True(t, res.Has(KindPath))
	assert.False(t, res.Near())
	assert.Contains(t, res.Reasons()[0], "Expected method of 'GET' but received 'POST'")
}

func TestMatch_PathRule(t *testing.T) {
	m := NewRequestMatcher()
	exp := expectedRequest(t, `{"method": "GET", "path": "/users/1",
		"matchingRules": {"path": {"matchers": [{"match": "regex", "regex": "/users/\\d+"}]}}}`)

	assert.True(t, m.Match(newRequest("GET", "/users/42", nil, ""), exp).Matched())
	res := m.Match(newRequest("GET", "/users/42/orders", nil, ""), exp)
	assert.True(t, res.Has(KindPath), "regex must match the whole path")
}

func TestMatch_Query(t *testing.T) {
	m := NewRequestMatcher()
	exp := expectedRequest(t, `{"method": "GET", "path": "/q", "query": {"a": ["1"], "b": ["x", "y"]}}`)

	tests := []struct {
		name    string
		target  string
		matched bool
	}{
		{"exact", "/q?a=1&b=x&b=y", true},
		{"reordered params", "/q?b=x&a=1&b=y", true},
		{"value order matters", "/q?a=1&b=y&b=x", false},
		{"missing param", "/q?a=1", false},
		{"unexpected param", "/q?a=1&b=x&b=y&c=3", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Match(newRequest("GET", tt.target, nil, ""), exp)
			assert.Equal(t, tt.matched, res.Matched(), res.Reasons())
		})
	}
}

func TestMatch_UnconstrainedQuery(t *testing.T) {
	m := NewRequestMatcher()
	exp := expectedRequest(t, `{"method": "GET", "path": "/q"}`)
	assert.True(t, m.Match(newRequest("GET", "/q?anything=1", nil, ""), exp).Matched())
}

func TestMatch_QueryRule(t *testing.T) {
	m := NewRequestMatcher()
	exp := expectedRequest(t, `{"method": "GET", "path": "/q", "query": {"page": ["1"]},
		"matchingRules": {"query": {"page": {"matchers": [{"match": "integer"}]}}}}`)

	assert.True(t, m.Match(newRequest("GET", "/q?page=7", nil, ""), exp).Matched())
	res := m.Match(newRequest("GET", "/q?page=seven", nil, ""), exp)
	require.True(t, res.Has(KindQuery))
	assert.Contains(t, res.Reasons()[0], "integer")
}

func TestMatch_Headers(t *testing.T) {
	m := NewRequestMatcher()
	exp := expectedRequest(t, `{"method": "GET", "path": "/h",
		"headers": {"accept": "application/json, text/plain", "Content-Type": "application/json"}}`)

	tests := []struct {
		name    string
		headers map[string]string
		matched bool
	}{
		{"exact", map[string]string{"Accept": "application/json, text/plain", "Content-Type": "application/json"}, true},
		{"whitespace around commas", map[string]string{"Accept": "application/json,text/plain", "Content-Type": "application/json"}, true},
		{"extra content type params", map[string]string{"Accept": "application/json, text/plain", "Content-Type": "application/json; charset=utf-8"}, true},
		{"extra headers allowed", map[string]string{"Accept": "application/json, text/plain", "Content-Type": "application/json", "X-Trace": "1"}, true},
		{"missing header", map[string]string{"Content-Type": "application/json"}, false},
		{"wrong value", map[string]string{"Accept": "text/html", "Content-Type": "application/json"}, false},
		{"wrong media type", map[string]string{"Accept": "application/json, text/plain", "Content-Type": "text/xml"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Match(newRequest("GET", "/h", tt.headers, ""), exp)
			assert.Equal(t, tt.matched, res.Matched(), res.Reasons())
		})
	}
}

func TestMatch_HeaderRule(t *testing.T) {
	m := NewRequestMatcher()
	exp := expectedRequest(t, `{"method": "GET", "path": "/h", "headers": {"Authorization": "Bearer abc"},
		"matchingRules": {"header": {"authorization": {"matchers": [{"match": "regex", "regex": "Bearer [a-z0-9]+"}]}}}}`)

	assert.True(t, m.Match(newRequest("GET", "/h", map[string]string{"Authorization": "Bearer xyz123"}, ""), exp).Matched())
	assert.False(t, m.Match(newRequest("GET", "/h", map[string]string{"Authorization": "Basic xyz"}, ""), exp).Matched())
}

func TestMatch_CombineOR(t *testing.T) {
	m := NewRequestMatcher()
	exp := expectedRequest(t, `{"method": "GET", "path": "/h", "headers": {"X-Mode": "a"},
		"matchingRules": {"header": {"X-Mode": {"combine": "OR", "matchers": [
			{"match": "regex", "regex": "a+"}, {"match": "regex", "regex": "b+"}]}}}}`)

	assert.True(t, m.Match(newRequest("GET", "/h", map[string]string{"X-Mode": "bbb"}, ""), exp).Matched())
	assert.False(t, m.Match(newRequest("GET", "/h", map[string]string{"X-Mode": "c"}, ""), exp).Matched())
}

func TestMatch_InvalidRegexIsMismatch(t *testing.T) {
	m := NewRequestMatcher()
	exp := expectedRequest(t, `{"method": "GET", "path": "/x",
		"matchingRules": {"path": {"matchers": [{"match": "regex", "regex": "("}]}}}`)

	res := m.Match(newRequest("GET", "/x", nil, ""), exp)
	require.True(t, res.Has(KindPath))
	assert.Contains(t, res.Reasons()[0], "invalid regex")
}

func TestMatch_NilInputs(t *testing.T) {
	m := NewRequestMatcher()
	assert.False(t, m.Match(nil, &pact.Request{}).Matched())
	assert.False(t, m.Match(&Request{}, nil).Matched())
}

func TestResult_Near(t *testing.T) {
	tests := []struct {
		name  string
		kinds []Kind
		want  bool
	}{
		{"body only", []Kind{KindBody}, true},
		{"method only", []Kind{KindMethod}, true},
		{"path only", []Kind{KindPath, KindQuery}, true},
		{"method and path", []Kind{KindMethod, KindPath}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Result
			for _, k := range tt.kinds {
				r.Mismatches = append(r.Mismatches, Mismatch{Kind: k})
			}
			assert.Equal(t, tt.want, r.Near())
		})
	}
}
