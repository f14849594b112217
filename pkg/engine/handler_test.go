package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/pactstub/internal/matching"
	"github.com/getmockd/pactstub/internal/storage"
	"github.com/getmockd/pactstub/pkg/pact"
)

// ============================================================================
// Matching and selection
// ============================================================================

func TestHandle_MatchedResponseVerbatim(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{})

	resp := handle(h, "POST", "/users", map[string]string{"Content-Type": "application/json"}, `{"name": "Ada"}`)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, []string{"/users/2"}, resp.Header["Location"])
	assert.Empty(t, resp.Body)
}

func TestHandle_RecordedHeaderNamesKept(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{StateFilter: mustFilter(t, "no users", false)})

	resp := handle(h, "GET", "/users/1", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, []string{"missing"}, resp.Header["x-reason"])
}

func TestHandle_EarliestLoadedWins(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{StateHeader: DefaultStateHeader})

	resp := handle(h, "GET", "/users/1", nil, "")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"id": 1, "name": "Ada"}`, string(resp.Body))
	assert.Equal(t, []string{"application/json"}, resp.Header["Content-Type"])
}

func TestHandle_StateHeaderSelects(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{StateHeader: DefaultStateHeader})

	resp := handle(h, "GET", "/users/1", map[string]string{DefaultStateHeader: "no users"}, "")
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp = handle(h, "GET", "/users/1", map[string]string{DefaultStateHeader: "unknown state"}, "")
	assert.Equal(t, http.StatusOK, resp.Status, "unknown header value falls back to earliest loaded")
}

func TestHandle_StateHeaderIgnoredWhenNotConfigured(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{})

	resp := handle(h, "GET", "/users/1", map[string]string{DefaultStateHeader: "no users"}, "")
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestHandle_StateHeaderIndependentOfLoadOrder(t *testing.T) {
	t.Parallel()
	a := `{"consumer": {"name": "c"}, "provider": {"name": "p"}, "interactions": [
		{"description": "A", "providerState": "A", "request": {"method": "GET", "path": "/x"}, "response": {"status": 200, "body": "A"}}]}`
	b := `{"consumer": {"name": "c"}, "provider": {"name": "p"}, "interactions": [
		{"description": "B", "providerState": "B", "request": {"method": "GET", "path": "/x"}, "response": {"status": 200, "body": "B"}}]}`

	for _, order := range [][]string{{a, b}, {b, a}} {
		h := newTestHandler(t, Options{StateHeader: "X-State"}, order...)
		resp := handle(h, "GET", "/x", map[string]string{"X-State": "B"}, "")
		assert.Equal(t, "B", string(resp.Body))
	}

	first := newTestHandler(t, Options{StateHeader: "X-State"}, b, a)
	assert.Equal(t, "B", string(handle(first, "GET", "/x", nil, "").Body), "without header the first loaded wins")
}

// ============================================================================
// Provider-state filter
// ============================================================================

func TestHandle_FilterExcludesNonMatchingStates(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{StateFilter: mustFilter(t, "nothing matches this", false)})

	for _, tc := range []struct{ method, path, body string }{
		{"GET", "/users/1", ""},
		{"POST", "/users", `{"name": "Ada"}`},
		{"OPTIONS", "/custom", ""},
		{"DELETE", "/elsewhere", ""},
	} {
		resp := handle(h, tc.method, tc.path, map[string]string{"Content-Type": "application/json"}, tc.body)
		assert.Equal(t, http.StatusInternalServerError, resp.Status, "%s %s", tc.method, tc.path)
	}
}

func TestHandle_FilterIncludesStateless(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{StateFilter: mustFilter(t, "nothing matches this", true)})

	resp := handle(h, "POST", "/users", map[string]string{"Content-Type": "application/json"}, `{"name": "Ada"}`)
	assert.Equal(t, http.StatusCreated, resp.Status)

	resp = handle(h, "GET", "/users/1", nil, "")
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}

func TestHandle_FilterSelectsState(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{StateFilter: mustFilter(t, "no", false)})

	resp := handle(h, "GET", "/users/1", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

// ============================================================================
// CORS
// ============================================================================

func TestHandle_CORSPreflight(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{AutoCORS: true})

	resp := handle(h, "OPTIONS", "/users/1", nil, "")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, corsAllowMethods, resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Headers"))
}

func TestHandle_CORSPreflightReferer(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{AutoCORS: true, CORSReferer: true})

	resp := handle(h, "OPTIONS", "/users/1", map[string]string{"Referer": "http://x.test"}, "")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "http://x.test", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = handle(h, "OPTIONS", "/users/1", nil, "")
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"), "no referer falls back to wildcard")
}

func TestHandle_RecordedOptionsTakesPrecedence(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{AutoCORS: true})

	resp := handle(h, "OPTIONS", "/custom", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.Equal(t, []string{"https://custom.test"}, resp.Header["access-control-allow-origin"])
	assert.NotContains(t, resp.Header, "Access-Control-Allow-Origin", "recorded header is not duplicated")
}

func TestHandle_CORSInjectedIntoMatchedResponse(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{AutoCORS: true, CORSReferer: true})

	resp := handle(h, "GET", "/users/1", map[string]string{"Referer": "http://x.test"}, "")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "http://x.test", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHandle_NoCORSWhenDisabled(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{})

	resp := handle(h, "OPTIONS", "/users/1", nil, "")
	assert.Equal(t, http.StatusInternalServerError, resp.Status)

	resp = handle(h, "GET", "/users/1", nil, "")
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHandle_DoesNotMutateStore(t *testing.T) {
	t.Parallel()
	pacts := parsePacts(t, usersPact)
	store := storage.NewInMemoryInteractionStore(pacts)
	h := NewHandler(store, Options{AutoCORS: true})

	resp := handle(h, "GET", "/users/1", nil, "")
	resp.Body[0] = 'X'
	resp.Header["Extra"] = []string{"1"}

	rec := store.Get(0).Response
	assert.NotContains(t, rec.Headers, "Access-Control-Allow-Origin")
	assert.NotContains(t, rec.Headers, "Extra")
	assert.Equal(t, byte('{'), rec.Body.Content[0])
}

// ============================================================================
// Fallback
// ============================================================================

type fallbackBody struct {
	Error      string              `json:"error"`
	Message    string              `json:"message"`
	Method     string              `json:"method"`
	Path       string              `json:"path"`
	NearMisses []matching.NearMiss `json:"nearMisses"`
}

func decodeFallback(t *testing.T, resp *Response) fallbackBody {
	t.Helper()
	require.Equal(t, http.StatusInternalServerError, resp.Status)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body fallbackBody
	require.NoError(t, json.Unmarshal(resp.Body, &body))
	return body
}

func TestHandle_NoMatchNearMisses(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{})

	resp := handle(h, "POST", "/users", map[string]string{"Content-Type": "application/json"}, `{"name": "Bob"}`)
	body := decodeFallback(t, resp)
	assert.Equal(t, "no_match", body.Error)
	assert.Equal(t, "POST", body.Method)
	assert.Equal(t, "/users", body.Path)

	require.NotEmpty(t, body.NearMisses)
	assert.LessOrEqual(t, len(body.NearMisses), matching.DefaultNearMisses)
	for _, nm := range body.NearMisses {
		assert.NotEmpty(t, nm.Mismatches, "every near miss carries a reason")
	}
	assert.Equal(t, "create user", body.NearMisses[0].Description)
	assert.Contains(t, body.NearMisses[0].Mismatches[0], "$.name")
	assert.Equal(t, "1", resp.Header.Get(NearMissHeader))
}

func TestHandle_NoMatchWithoutNearMisses(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{})

	resp := handle(h, "DELETE", "/nothing/here", nil, "")
	body := decodeFallback(t, resp)
	assert.Empty(t, body.NearMisses)
	assert.Equal(t, "0", resp.Header.Get(NearMissHeader))
	assert.NotEmpty(t, body.Message)
}

func TestHandle_EmptyStore(t *testing.T) {
	t.Parallel()
	h := NewHandler(nil, Options{})
	decodeFallback(t, handle(h, "GET", "/", nil, ""))
}

func TestHandle_NilRequest(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{})
	resp := h.Handle(context.Background(), nil)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}

func TestHandle_Cancelled(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := h.Handle(ctx, newRequest("GET", "/users/1", nil, ""))
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}

type panicMatcher struct{}

func (panicMatcher) Match(*matching.Request, *pact.Request) matching.Result {
	panic("boom")
}

func TestHandle_MatcherPanicDegrades(t *testing.T) {
	t.Parallel()
	store := storage.NewInMemoryInteractionStore(parsePacts(t, usersPact))
	h := NewHandler(store, Options{}, WithMatcher(panicMatcher{}))

	body := decodeFallback(t, handle(h, "GET", "/users/1", nil, ""))
	assert.Contains(t, body.Message, "boom")
}

// ============================================================================
// Determinism and concurrency
// ============================================================================

func TestHandle_Deterministic(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{AutoCORS: true, StateHeader: DefaultStateHeader})

	requests := []*matching.Request{
		newRequest("GET", "/users/1", nil, ""),
		newRequest("POST", "/users", map[string]string{"Content-Type": "application/json"}, `{"name": "Zed"}`),
		newRequest("PUT", "/users/1", nil, ""),
		newRequest("OPTIONS", "/anything", nil, ""),
	}
	for _, req := range requests {
		first := h.Handle(context.Background(), req)
		for n := 0; n < 5; n++ {
			again := h.Handle(context.Background(), req)
			assert.Equal(t, first.Status, again.Status)
			assert.Equal(t, first.Header, again.Header)
			assert.Equal(t, string(first.Body), string(again.Body))
		}
	}
}

func TestHandle_Concurrent(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{StateHeader: DefaultStateHeader})

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				state, want := "user exists", http.StatusOK
				if (g+n)%2 == 0 {
					state, want = "no users", http.StatusNotFound
				}
				resp := handle(h, "GET", "/users/1", map[string]string{DefaultStateHeader: state}, "")
				if resp.Status != want {
					t.Errorf("status = %d, want %d", resp.Status, want)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestHandle_SnapshotSwap(t *testing.T) {
	t.Parallel()
	snap := storage.NewSnapshot(storage.NewInMemoryInteractionStore(parsePacts(t, usersPact)))
	h := NewHandler(snap, Options{})
	assert.Equal(t, http.StatusOK, handle(h, "GET", "/users/1", nil, "").Status)

	snap.Swap(storage.NewInMemoryInteractionStore(nil))
	assert.Equal(t, http.StatusInternalServerError, handle(h, "GET", "/users/1", nil, "").Status)
}

// ============================================================================
// ServeHTTP
// ============================================================================

func TestServeHTTP(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{AutoCORS: true})

	t.Run("matched", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/users/1", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id": 1, "name": "Ada"}`, rec.Body.String())
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/users", strings.NewReader(`{"name":"Ada"}`))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("recorded header case", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/custom", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []string{"https://custom.test"}, rec.Header()["access-control-allow-origin"])
	})

	t.Run("unmatched", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error":"no_match"`)
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestServeHTTP_BodyReadFailure(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/users", io.NopCloser(failingReader{}))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to read the request body")
}

func TestServeHTTP_BodyTooLarge(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t, Options{})

	rec := httptest.NewRecorder()
	big := strings.NewReader(strings.Repeat("a", MaxRequestBodySize+1))
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/users", big))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "maximum allowed size")
}
