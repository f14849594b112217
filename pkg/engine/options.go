package engine

import (
	"log/slog"

	"github.com/getmockd/pactstub/internal/matching"
)

// MaxRequestBodySize is the maximum allowed request body size for matching (10MB).
const MaxRequestBodySize = 10 << 20

// DefaultStateHeader is the conventional disambiguation header name.
const DefaultStateHeader = "X-Pact-Provider-State"

// NearMissHeader carries the number of near misses in a no-match response.
const NearMissHeader = "X-Pact-Stub-Near-Misses"

// Options is the frozen engine configuration shared by every request.
type Options struct {
	// AutoCORS answers preflight requests and adds Access-Control-Allow-Origin
	// to matched responses that do not define it.
	AutoCORS bool

	// CORSReferer echoes the request Referer as the allowed origin instead of "*".
	CORSReferer bool

	// StateFilter restricts the interactions that can be served.
	StateFilter StateFilter

	// StateHeader is the request header used to choose among several matching
	// interactions by provider state. Empty disables the override.
	StateHeader string

	// NearMisses caps the number of near misses reported. Zero means
	// matching.DefaultNearMisses.
	NearMisses int
}

// HandlerOption is a functional option for configuring a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithMatcher replaces the request matcher.
func WithMatcher(m matching.Matcher) HandlerOption {
	return func(h *Handler) {
		if m != nil {
			h.matcher = m
		}
	}
}
