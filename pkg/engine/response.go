package engine

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/getmockd/pactstub/internal/matching"
	"github.com/getmockd/pactstub/pkg/httputil"
	"github.com/getmockd/pactstub/pkg/pact"
)

// Response is an outbound HTTP response. It is built fresh for every request
// and never shares header or body storage with the stored interaction.
type Response struct {
	Status int

	// Header keeps names as recorded, so it must be written by direct map
	// assignment rather than Header.Set.
	Header http.Header

	Body []byte
}

// HasHeader reports whether the response defines name, compared
// case-insensitively.
func (r *Response) HasHeader(name string) bool {
	for k := range r.Header {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// Write sends the response.
func (r *Response) Write(w http.ResponseWriter) error {
	dst := w.Header()
	for k, v := range r.Header {
		dst[k] = v
	}
	// A nil canonical entry stops net/http from sniffing a second
	// Content-Type when the recorded name is not canonical.
	if _, ok := dst["Content-Type"]; !ok && r.HasHeader("Content-Type") {
		dst["Content-Type"] = nil
	}
	w.WriteHeader(r.Status)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

// BuildResponse copies the recorded response of an interaction. A body with
// a known content type and no recorded Content-Type header gets one.
func BuildResponse(i *pact.Interaction) *Response {
	rec := i.Response
	resp := &Response{
		Status: rec.Status,
		Header: make(http.Header, len(rec.Headers)+1),
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	for k, v := range rec.Headers {
		resp.Header[k] = append([]string(nil), v...)
	}
	if rec.Body.Present {
		resp.Body = append([]byte(nil), rec.Body.Content...)
		if rec.Body.ContentType != "" && !resp.HasHeader("Content-Type") {
			resp.Header["Content-Type"] = []string{rec.Body.ContentType}
		}
	}
	return resp
}

// noMatchBody is the diagnostic body of the fallback response.
type noMatchBody struct {
	Error      string              `json:"error"`
	Message    string              `json:"message"`
	Method     string              `json:"method"`
	Path       string              `json:"path"`
	NearMisses []matching.NearMiss `json:"nearMisses,omitempty"`
}

// fallbackResponse builds the 500 response sent when no interaction can be
// served.
func fallbackResponse(req *matching.Request, message string, nearMisses []matching.NearMiss) *Response {
	body, err := httputil.EncodeJSON(noMatchBody{
		Error:      "no_match",
		Message:    message,
		Method:     req.Method,
		Path:       req.Path,
		NearMisses: nearMisses,
	})
	if err != nil {
		body = []byte(`{"error":"no_match","message":"No interaction matched the request"}`)
	}
	return &Response{
		Status: http.StatusInternalServerError,
		Header: http.Header{
			"Content-Type": {"application/json"},
			NearMissHeader: {strconv.Itoa(len(nearMisses))},
		},
		Body: body,
	}
}
