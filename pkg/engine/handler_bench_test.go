package engine

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

// manyPact builds a pact with n GET interactions on distinct paths.
func manyPact(n int) string {
	var sb strings.Builder
	sb.WriteString(`{"consumer": {"name": "bench"}, "provider": {"name": "api"}, "interactions": [`)
	for i := range n {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"description": "item %d", "request": {"method": "GET", "path": "/items/%d", "query": {"expand": ["true"]}, "headers": {"Accept": "application/json"}}, "response": {"status": 200, "body": {"id": %d}}}`, i, i, i)
	}
	sb.WriteString(`], "metadata": {"pactSpecification": {"version": "3.0.0"}}}`)
	return sb.String()
}

func BenchmarkHandle_Match(b *testing.B) {
	h := newTestHandler(b, Options{AutoCORS: true}, manyPact(500))
	req := newRequest(http.MethodGet, "/items/499?expand=true", map[string]string{"Accept": "application/json"}, "")

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if resp := h.Handle(b.Context(), req); resp.Status != http.StatusOK {
			b.Fatalf("unexpected status: %d", resp.Status)
		}
	}
}

func BenchmarkHandle_NoMatch(b *testing.B) {
	h := newTestHandler(b, Options{}, manyPact(500))
	req := newRequest(http.MethodGet, "/items/missing?expand=true", map[string]string{"Accept": "application/json"}, "")

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if resp := h.Handle(b.Context(), req); resp.Status != http.StatusInternalServerError {
			b.Fatalf("unexpected status: %d", resp.Status)
		}
	}
}

func BenchmarkHandle_Parallel(b *testing.B) {
	h := newTestHandler(b, Options{}, manyPact(100))

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			req := newRequest(http.MethodGet, fmt.Sprintf("/items/%d?expand=true", i%100), map[string]string{"Accept": "application/json"}, "")
			if resp := h.Handle(b.Context(), req); resp.Status != http.StatusOK {
				b.Errorf("unexpected status: %d", resp.Status)
				return
			}
			i++
		}
	})
}
