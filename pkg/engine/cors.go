// CORS handling for the stub server.

package engine

import (
	"net/http"

	"github.com/getmockd/pactstub/internal/matching"
)

// Header names and values used for CORS.
const (
	headerAllowOrigin  = "Access-Control-Allow-Origin"
	headerAllowMethods = "Access-Control-Allow-Methods"
	headerAllowHeaders = "Access-Control-Allow-Headers"

	corsAllowMethods = "GET, HEAD, POST, PUT, DELETE, CONNECT, OPTIONS, TRACE, PATCH"
	corsAllowHeaders = "*"
)

// CORSPolicy derives CORS headers for requests.
type CORSPolicy struct {
	Enabled    bool
	UseReferer bool
}

// AllowOrigin returns "*", or the request Referer when UseReferer is set and
// the request has one.
func (p CORSPolicy) AllowOrigin(req *matching.Request) string {
	if p.UseReferer {
		if ref := req.Headers.Get("Referer"); ref != "" {
			return ref
		}
	}
	return "*"
}

// IsPreflight reports whether the request should get a synthesized preflight
// answer when no interaction matched it.
func (p CORSPolicy) IsPreflight(req *matching.Request) bool {
	return p.Enabled && req.Method == http.MethodOptions
}

// Preflight synthesizes a permissive preflight response.
func (p CORSPolicy) Preflight(req *matching.Request) *Response {
	return &Response{
		Status: http.StatusOK,
		Header: http.Header{
			headerAllowOrigin:  {p.AllowOrigin(req)},
			headerAllowMethods: {corsAllowMethods},
			headerAllowHeaders: {corsAllowHeaders},
		},
	}
}

// Inject adds Access-Control-Allow-Origin to resp unless the recorded
// response already defines it.
func (p CORSPolicy) Inject(resp *Response, req *matching.Request) {
	if !p.Enabled || resp.HasHeader(headerAllowOrigin) {
		return
	}
	resp.Header[headerAllowOrigin] = []string{p.AllowOrigin(req)}
}
