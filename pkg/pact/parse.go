package pact

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrUnsupportedSpec is returned for pact files declaring a specification
// version this parser does not understand.
var ErrUnsupportedSpec = errors.New("unsupported pact specification version")

// V4 interaction types.
const (
	interactionTypeHTTP = "Synchronous/HTTP"
)

// versionPaths are the metadata locations different pact libraries use to
// record the specification version.
var versionPaths = []string{
	"metadata.pactSpecification.version",
	"metadata.pact-specification.version",
	"metadata.pactSpecificationVersion",
}

type rawPact struct {
	Consumer     rawParty          `json:"consumer"`
	Provider     rawParty          `json:"provider"`
	Interactions []json.RawMessage `json:"interactions"`
}

type rawParty struct {
	Name string `json:"name"`
}

type rawInteraction struct {
	Type           string          `json:"type"`
	Key            string          `json:"key"`
	Description    string          `json:"description"`
	ProviderState  *string         `json:"providerState"`
	ProviderState1 *string         `json:"provider_state"`
	ProviderStates []rawState      `json:"providerStates"`
	Request        json.RawMessage `json:"request"`
	Response       json.RawMessage `json:"response"`
	Pending        bool            `json:"pending"`
}

type rawState struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type rawRequest struct {
	Method        string                     `json:"method"`
	Path          string                     `json:"path"`
	Query         json.RawMessage            `json:"query"`
	Headers       map[string]json.RawMessage `json:"headers"`
	Body          json.RawMessage            `json:"body"`
	MatchingRules json.RawMessage            `json:"matchingRules"`
}

type rawResponse struct {
	Status        *int                       `json:"status"`
	Headers       map[string]json.RawMessage `json:"headers"`
	Body          json.RawMessage            `json:"body"`
	MatchingRules json.RawMessage            `json:"matchingRules"`
}

// Parse decodes a pact document and normalizes its HTTP interactions.
// The source is recorded on the pact and its interactions for diagnostics.
func Parse(source string, data []byte) (*Pact, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("pact is not valid JSON")
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, errors.New("pact must be a JSON object")
	}
	if !gjson.GetBytes(data, "interactions").Exists() {
		return nil, errors.New("pact has no interactions attribute")
	}

	spec, err := detectSpec(data)
	if err != nil {
		return nil, err
	}

	var doc rawPact
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode pact: %w", err)
	}

	p := &Pact{
		Consumer: doc.Consumer.Name,
		Provider: doc.Provider.Name,
		Spec:     spec,
		Source:   source,
	}
	for n, raw := range doc.Interactions {
		i, err := parseInteraction(spec, raw)
		if err != nil {
			return nil, fmt.Errorf("interaction %d: %w", n, err)
		}
		if i == nil {
			continue
		}
		i.Consumer = p.Consumer
		i.Provider = p.Provider
		i.Source = source
		p.Interactions = append(p.Interactions, i)
	}
	return p, nil
}

// detectSpec reads the declared specification version. Files without metadata
// are read as V2, the oldest format still in common use.
func detectSpec(data []byte) (Spec, error) {
	var version string
	for _, path := range versionPaths {
		if r := gjson.GetBytes(data, path); r.Exists() {
			version = r.String()
			break
		}
	}
	if version == "" {
		return SpecV2, nil
	}

	parts := strings.SplitN(strings.TrimPrefix(strings.ToLower(version), "v"), ".", 3)
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return SpecUnknown, fmt.Errorf("%w: %q", ErrUnsupportedSpec, version)
	}
	minor := 0
	if len(parts) > 1 {
		minor, _ = strconv.Atoi(parts[1])
	}
	switch {
	case major == 1 && minor == 0:
		return SpecV1, nil
	case major == 1:
		return SpecV1_1, nil
	case major == 2:
		return SpecV2, nil
	case major == 3:
		return SpecV3, nil
	case major == 4:
		return SpecV4, nil
	default:
		return SpecUnknown, fmt.Errorf("%w: %q", ErrUnsupportedSpec, version)
	}
}

func parseInteraction(spec Spec, data json.RawMessage) (*Interaction, error) {
	var raw rawInteraction
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.Type != "" && raw.Type != interactionTypeHTTP {
		// message interactions have no HTTP request to stub
		return nil, nil
	}
	if isNull(raw.Request) || isNull(raw.Response) {
		return nil, errors.New("missing request or response")
	}

	i := &Interaction{
		Key:         raw.Key,
		Description: raw.Description,
		Pending:     raw.Pending,
	}
	switch {
	case len(raw.ProviderStates) > 0:
		for _, s := range raw.ProviderStates {
			i.ProviderStates = append(i.ProviderStates, ProviderState(s))
		}
	case raw.ProviderState != nil && *raw.ProviderState != "":
		i.ProviderStates = []ProviderState{{Name: *raw.ProviderState}}
	case raw.ProviderState1 != nil && *raw.ProviderState1 != "":
		i.ProviderStates = []ProviderState{{Name: *raw.ProviderState1}}
	}

	req, err := parseRequest(spec, raw.Request)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	i.Request = *req

	resp, err := parseResponse(spec, raw.Response)
	if err != nil {
		return nil, fmt.Errorf("response: %w", err)
	}
	i.Response = *resp
	return i, nil
}

func parseRequest(spec Spec, data json.RawMessage) (*Request, error) {
	var raw rawRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	req := &Request{
		Method: strings.ToUpper(raw.Method),
		Path:   raw.Path,
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Path == "" {
		req.Path = "/"
	}

	query, err := parseQuery(raw.Query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	req.Query = query

	headers, err := parseHeaders(raw.Headers)
	if err != nil {
		return nil, err
	}
	req.Headers = make(http.Header, len(headers))
	for name, values := range headers {
		req.Headers[http.CanonicalHeaderKey(name)] = values
	}

	req.Body, err = parseBody(spec, raw.Body, req.Headers.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	req.Rules, err = parseMatchingRules(raw.MatchingRules)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func parseResponse(spec Spec, data json.RawMessage) (*Response, error) {
	var raw rawResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	resp := &Response{Status: http.StatusOK}
	if raw.Status != nil {
		resp.Status = *raw.Status
	}
	if resp.Status < 100 || resp.Status > 999 {
		return nil, fmt.Errorf("invalid status %d", resp.Status)
	}

	headers, err := parseHeaders(raw.Headers)
	if err != nil {
		return nil, err
	}
	resp.Headers = headers
	resp.Body, err = parseBody(spec, raw.Body, headerValue(headers, "Content-Type"))
	if err != nil {
		return nil, err
	}
	resp.Rules, err = parseMatchingRules(raw.MatchingRules)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// parseQuery accepts a V2 query string or a V3/V4 map of value lists.
func parseQuery(raw json.RawMessage) (url.Values, error) {
	if isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return url.ParseQuery(s)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	values := make(url.Values, len(m))
	for k, v := range m {
		list, err := stringOrList(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}
		values[k] = list
	}
	return values, nil
}

// parseHeaders keeps header names exactly as written in the pact.
func parseHeaders(raw map[string]json.RawMessage) (http.Header, error) {
	headers := make(http.Header, len(raw))
	for name, v := range raw {
		list, err := stringOrList(v)
		if err != nil {
			return nil, fmt.Errorf("header %q: %w", name, err)
		}
		headers[name] = list
	}
	return headers, nil
}

func stringOrList(raw json.RawMessage) ([]string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errors.New("expected a string or a list of strings")
	}
	return list, nil
}

// parseBody converts a pact body into wire bytes. JSON values are kept as
// written; string bodies are unquoted unless the content type is JSON.
func parseBody(spec Spec, raw json.RawMessage, contentType string) (Body, error) {
	if isNull(raw) {
		return Body{}, nil
	}
	if spec >= SpecV4 {
		if b, ok, err := parseV4Body(raw, contentType); ok || err != nil {
			return b, err
		}
	}

	body := Body{Present: true, ContentType: contentType}
	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] == '"' && !IsJSONContentType(contentType) {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Body{}, fmt.Errorf("body: %w", err)
		}
		body.Content = []byte(s)
		return body, nil
	}
	body.Content = append([]byte(nil), trimmed...)
	if body.ContentType == "" && trimmed[0] != '"' {
		body.ContentType = "application/json"
	}
	return body, nil
}

type rawV4Body struct {
	Content     json.RawMessage `json:"content"`
	ContentType string          `json:"contentType"`
	Encoded     any             `json:"encoded"`
}

func parseV4Body(raw json.RawMessage, contentType string) (Body, bool, error) {
	if !gjson.GetBytes(raw, "content").Exists() {
		return Body{}, false, nil
	}
	var v4 rawV4Body
	if err := json.Unmarshal(raw, &v4); err != nil {
		return Body{}, false, nil
	}
	if v4.ContentType != "" {
		contentType = v4.ContentType
	}
	body := Body{Present: true, ContentType: contentType}

	encoding := ""
	switch e := v4.Encoded.(type) {
	case string:
		encoding = strings.ToLower(e)
	case bool:
		if e {
			encoding = "base64"
		}
	}

	switch encoding {
	case "base64":
		var s string
		if err := json.Unmarshal(v4.Content, &s); err != nil {
			return Body{}, true, fmt.Errorf("body: %w", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Body{}, true, fmt.Errorf("body: invalid base64 content: %w", err)
		}
		body.Content = decoded
	case "json":
		var s string
		if err := json.Unmarshal(v4.Content, &s); err != nil {
			return Body{}, true, fmt.Errorf("body: %w", err)
		}
		body.Content = []byte(s)
	default:
		var s string
		if err := json.Unmarshal(v4.Content, &s); err == nil && !IsJSONContentType(contentType) {
			body.Content = []byte(s)
		} else {
			body.Content = append([]byte(nil), bytes.TrimSpace(v4.Content)...)
			if body.ContentType == "" && len(body.Content) > 0 && (body.Content[0] == '{' || body.Content[0] == '[') {
				body.ContentType = "application/json"
			}
		}
	}
	return body, true, nil
}

func headerValue(h http.Header, name string) string {
	for k, v := range h {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// SortedHeaderNames returns the header names of h in sorted order.
func SortedHeaderNames(h http.Header) []string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
