package engine

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/getmockd/pactstub/internal/matching"
	"github.com/getmockd/pactstub/internal/storage"
	"github.com/getmockd/pactstub/pkg/pact"
)

const usersPact = `{
  "consumer": {"name": "web"},
  "provider": {"name": "users"},
  "interactions": [
    {
      "description": "get existing user",
      "providerStates": [{"name": "user exists"}],
      "request": {"method": "GET", "path": "/users/1"},
      "response": {"status": 200, "headers": {"Content-Type": "application/json"}, "body": {"id": 1, "name": "Ada"}}
    },
    {
      "description": "get missing user",
      "providerStates": [{"name": "no users"}],
      "request": {"method": "GET", "path": "/users/1"},
      "response": {"status": 404, "headers": {"x-reason": "missing"}}
    },
    {
      "description": "create user",
      "request": {"method": "POST", "path": "/users", "headers": {"Content-Type": "application/json"}, "body": {"name": "Ada"}},
      "response": {"status": 201, "headers": {"Location": "/users/2"}}
    },
    {
      "description": "custom preflight",
      "request": {"method": "OPTIONS", "path": "/custom"},
      "response": {"status": 204, "headers": {"access-control-allow-origin": "https://custom.test"}}
    }
  ],
  "metadata": {"pactSpecification": {"version": "3.0.0"}}
}`

func parsePacts(t testing.TB, docs ...string) []*pact.Pact {
	t.Helper()
	var pacts []*pact.Pact
	for i, doc := range docs {
		p, err := pact.Parse("pact-"+string(rune('a'+i))+".json", []byte(doc))
		require.NoError(t, err)
		pacts = append(pacts, p)
	}
	return pacts
}

func newTestHandler(t testing.TB, opts Options, docs ...string) *Handler {
	t.Helper()
	if len(docs) == 0 {
		docs = []string{usersPact}
	}
	return NewHandler(storage.NewInMemoryInteractionStore(parsePacts(t, docs...)), opts)
}

func newRequest(method, target string, headers map[string]string, body string) *matching.Request {
	u, _ := url.Parse(target)
	r := &http.Request{Method: method, URL: u, Header: http.Header{}}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return matching.FromHTTP(r, []byte(body))
}

func handle(h *Handler, method, target string, headers map[string]string, body string) *Response {
	return h.Handle(context.Background(), newRequest(method, target, headers, body))
}

func mustFilter(t *testing.T, pattern string, includeStateless bool) StateFilter {
	t.Helper()
	f, err := NewStateFilter(pattern, includeStateless)
	require.NoError(t, err)
	return f
}

func bodyString(r *Response) string {
	return strings.TrimSpace(string(r.Body))
}
