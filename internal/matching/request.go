package matching

import (
	"net/http"
	"net/url"
)

// Request is the inbound request as seen by the matcher.
// The engine builds it once per request; it is never modified afterwards.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    []byte
}

// FromHTTP captures the parts of r relevant for matching. The body must already
// have been read by the caller.
func FromHTTP(r *http.Request, body []byte) *Request {
	req := &Request{
		Method:  r.Method,
		Headers: r.Header.Clone(),
		Body:    body,
	}
	if r.URL != nil {
		req.Path = r.URL.Path
		req.Query = r.URL.Query()
	}
	if req.Path == "" {
		req.Path = "/"
	}
	if req.Headers == nil {
		req.Headers = http.Header{}
	}
	return req
}

// ContentType returns the declared content type of the request body.
func (r *Request) ContentType() string {
	return r.Headers.Get("Content-Type")
}
