package pact

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Spec is a pact specification version.
type Spec int

// Supported specification versions.
const (
	SpecUnknown Spec = iota
	SpecV1
	SpecV1_1
	SpecV2
	SpecV3
	SpecV4
)

// String returns the version in the form used in pact metadata.
func (s Spec) String() string {
	switch s {
	case SpecV1:
		return "1.0.0"
	case SpecV1_1:
		return "1.1.0"
	case SpecV2:
		return "2.0.0"
	case SpecV3:
		return "3.0.0"
	case SpecV4:
		return "4.0"
	default:
		return "unknown"
	}
}

// Pact is one contract document: a consumer/provider pair and its HTTP interactions.
type Pact struct {
	Consumer     string
	Provider     string
	Spec         Spec
	Source       string
	Interactions []*Interaction
}

// ProviderState is a named precondition under which an interaction is valid.
type ProviderState struct {
	Name   string
	Params map[string]any
}

// Interaction is one recorded request/response exchange.
//
// Interactions are created once at load time and never mutated afterwards.
type Interaction struct {
	// Index is the position of the interaction in overall load order.
	// It is assigned when the interaction store is built.
	Index int

	// Key is the V4 interaction key, if any.
	Key string

	Description    string
	ProviderStates []ProviderState
	Request        Request
	Response       Response

	// Pending marks V4 interactions that are not yet verified by the provider.
	Pending bool

	Consumer string
	Provider string
	Source   string
}

// Label returns a stable human-readable name used in diagnostics.
func (i *Interaction) Label() string {
	return fmt.Sprintf("#%d %q (%s -> %s)", i.Index, i.Description, i.Consumer, i.Provider)
}

// HasProviderState reports whether the interaction declares any provider state.
func (i *Interaction) HasProviderState() bool {
	return len(i.ProviderStates) > 0
}

// StateNames returns the provider state names in declaration order.
func (i *Interaction) StateNames() []string {
	names := make([]string, 0, len(i.ProviderStates))
	for _, s := range i.ProviderStates {
		names = append(names, s.Name)
	}
	return names
}

// Request is the expected request of an interaction.
type Request struct {
	Method string
	Path   string

	// Query is nil when the interaction does not constrain the query string.
	Query url.Values

	// Headers are keyed by canonical header name.
	Headers http.Header

	Body  Body
	Rules MatchingRules
}

// Response is the recorded response of an interaction.
type Response struct {
	Status int

	// Headers keep the names exactly as recorded in the pact file.
	Headers http.Header

	Body  Body
	Rules MatchingRules
}

// Body is a request or response body.
type Body struct {
	// Present is false when the pact does not specify a body at all.
	Present bool

	// Content is the body as it goes on the wire.
	Content []byte

	// ContentType is the declared or inferred content type, if known.
	ContentType string
}

// IsJSON reports whether the body content type is a JSON media type.
func (b Body) IsJSON() bool {
	return IsJSONContentType(b.ContentType)
}

// IsJSONContentType reports whether ct is application/json or a +json variant.
func IsJSONContentType(ct string) bool {
	mt := mediaType(ct)
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// IsXMLContentType reports whether ct is an XML media type.
func IsXMLContentType(ct string) bool {
	mt := mediaType(ct)
	return mt == "application/xml" || mt == "text/xml" || strings.HasSuffix(mt, "+xml")
}

// IsFormContentType reports whether ct is application/x-www-form-urlencoded.
func IsFormContentType(ct string) bool {
	return mediaType(ct) == "application/x-www-form-urlencoded"
}

func mediaType(ct string) string {
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	}
	return mt
}
