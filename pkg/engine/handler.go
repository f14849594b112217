// Core HTTP request handler for the stub server.

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/getmockd/pactstub/internal/matching"
	"github.com/getmockd/pactstub/internal/storage"
	"github.com/getmockd/pactstub/pkg/httputil"
	"github.com/getmockd/pactstub/pkg/logging"
	"github.com/getmockd/pactstub/pkg/pact"
)

// Handler answers requests from the interactions of a store.
// It is safe for concurrent use; it holds no per-request state.
type Handler struct {
	store   storage.InteractionStore
	matcher matching.Matcher
	opts    Options
	cors    CORSPolicy
	log     *slog.Logger
}

// NewHandler creates a Handler serving the interactions of store. Passing a
// *storage.Snapshot allows the interactions to be replaced while serving.
func NewHandler(store storage.InteractionStore, opts Options, hopts ...HandlerOption) *Handler {
	if store == nil {
		store = storage.NewInMemoryInteractionStore(nil)
	}
	h := &Handler{
		store:   store,
		matcher: matching.NewRequestMatcher(),
		opts:    opts,
		cors:    CORSPolicy{Enabled: opts.AutoCORS, UseReferer: opts.CORSReferer},
		log:     logging.Nop(),
	}
	for _, opt := range hopts {
		opt(h)
	}
	return h
}

// Options returns the handler configuration.
func (h *Handler) Options() Options {
	return h.opts
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the request ID used in log lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return uuid.NewString()
}

// Handle selects the interaction for req and builds the response. It always
// returns exactly one response; failures degrade to the no-match fallback.
func (h *Handler) Handle(ctx context.Context, req *matching.Request) (resp *Response) {
	if req == nil {
		req = &matching.Request{Method: http.MethodGet, Path: "/"}
	}
	log := h.log.With("request_id", requestID(ctx), "method", req.Method, "path", req.Path)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling request", "panic", r, "stack", string(debug.Stack()))
			resp = fallbackResponse(req, fmt.Sprintf("Internal error while matching the request: %v", r), nil)
		}
	}()

	// One Load per request keeps the view consistent across a reload.
	all := h.store.All()

	var (
		candidates []*pact.Interaction
		misses     []matching.Evaluation
	)
	for _, i := range all {
		if err := ctx.Err(); err != nil {
			log.Debug("request abandoned", "error", err)
			return fallbackResponse(req, "Request was cancelled before it could be matched", nil)
		}
		if !h.opts.StateFilter.Applies(i) {
			continue
		}
		res := h.matcher.Match(req, &i.Request)
		if res.Matched() {
			candidates = append(candidates, i)
			continue
		}
		if log.Enabled(ctx, logging.LevelTrace) {
			logging.Trace(log, "interaction did not match", "interaction", i.Label(), "mismatches", res.Reasons())
		}
		misses = append(misses, matching.Evaluation{Interaction: i, Result: res})
	}

	sel := Disambiguate(candidates, h.opts.StateHeader, h.stateHeaderValue(req))
	if sel.Interaction != nil {
		if sel.Ambiguous {
			log.Warn("ambiguous match", "reason", sel.Reason)
		}
		log.Info("request matched", "interaction", sel.Interaction.Label(), "status", sel.Interaction.Response.Status)
		resp = BuildResponse(sel.Interaction)
		h.cors.Inject(resp, req)
		return resp
	}

	if h.cors.IsPreflight(req) {
		log.Info("answering CORS preflight")
		return h.cors.Preflight(req)
	}

	nearMisses := matching.RankNearMisses(misses, h.opts.NearMisses)
	log.Warn("no interaction matched", "near_misses", len(nearMisses), "interactions", len(all))
	for _, nm := range nearMisses {
		log.Debug("near miss", "interaction", nm.Interaction, "mismatches", nm.Mismatches)
	}
	return fallbackResponse(req, "No interaction matched the request", nearMisses)
}

func (h *Handler) stateHeaderValue(req *matching.Request) string {
	if h.opts.StateHeader == "" {
		return ""
	}
	return req.Headers.Get(h.opts.StateHeader)
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	ctx := WithRequestID(r.Context(), id)

	written := false
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("panic while writing response", "request_id", id, "panic", rec)
			if !written {
				httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "Internal error while handling the request")
			}
		}
	}()

	// MaxBytesReader fails the read once the limit is exceeded instead of
	// silently truncating the body.
	var body []byte
	var readErr error
	if r.Body != nil {
		body, readErr = io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBodySize))
	}
	req := matching.FromHTTP(r, body)

	var resp *Response
	if readErr != nil {
		var maxBytesErr *http.MaxBytesError
		msg := "Failed to read the request body"
		if errors.As(readErr, &maxBytesErr) {
			msg = fmt.Sprintf("Request body exceeds the maximum allowed size of %d bytes", MaxRequestBodySize)
		}
		h.log.Warn("failed to read request body", "request_id", id, "path", r.URL.Path, "error", readErr)
		resp = fallbackResponse(req, msg, nil)
	} else {
		resp = h.Handle(ctx, req)
	}

	written = true
	if err := resp.Write(w); err != nil {
		h.log.Debug("failed to write response", "request_id", id, "error", err)
	}
}

var _ http.Handler = (*Handler)(nil)
