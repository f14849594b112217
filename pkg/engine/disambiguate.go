package engine

import (
	"fmt"
	"strings"

	"github.com/getmockd/pactstub/pkg/pact"
)

// Selection is the outcome of choosing among the matching interactions.
type Selection struct {
	// Interaction is nil when nothing matched.
	Interaction *pact.Interaction

	// Ambiguous is set when several interactions matched and the earliest
	// loaded one was chosen without help from the state header.
	Ambiguous bool

	// Reason explains an ambiguous choice.
	Reason string
}

// Disambiguate picks one interaction out of the candidates.
//
// A single candidate is selected as is. With several, a state header value
// equal to a provider state of exactly one candidate selects that candidate;
// otherwise the candidate with the lowest load index wins. The result depends
// only on the candidates and the header, never on their slice order.
func Disambiguate(candidates []*pact.Interaction, headerName, headerValue string) Selection {
	switch len(candidates) {
	case 0:
		return Selection{}
	case 1:
		return Selection{Interaction: candidates[0]}
	}

	if headerName != "" && headerValue != "" {
		var chosen *pact.Interaction
		hits := 0
		for _, c := range candidates {
			if hasState(c, headerValue) {
				chosen = c
				hits++
			}
		}
		if hits == 1 {
			return Selection{Interaction: chosen}
		}
	}

	first := earliest(candidates)
	return Selection{
		Interaction: first,
		Ambiguous:   true,
		Reason:      ambiguityReason(candidates, first, headerName, headerValue),
	}
}

func hasState(i *pact.Interaction, name string) bool {
	for _, s := range i.ProviderStates {
		if s.Name == name {
			return true
		}
	}
	return false
}

func earliest(candidates []*pact.Interaction) *pact.Interaction {
	first := candidates[0]
	for _, c := range candidates[1:] {
		if c.Index < first.Index {
			first = c
		}
	}
	return first
}

func ambiguityReason(candidates []*pact.Interaction, chosen *pact.Interaction, headerName, headerValue string) string {
	var states []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		for _, s := range c.StateNames() {
			if !seen[s] {
				seen[s] = true
				states = append(states, fmt.Sprintf("%q", s))
			}
		}
	}

	reason := fmt.Sprintf("%d interactions matched, using the first loaded %s", len(candidates), chosen.Label())
	switch {
	case headerName == "":
		reason += "; set a provider state header name to choose by provider state"
	case headerValue != "":
		reason += fmt.Sprintf("; %s value %q did not select exactly one of them", headerName, headerValue)
	default:
		reason += fmt.Sprintf("; send the %s header to choose one", headerName)
	}
	if len(states) > 0 {
		reason += " (provider states: " + strings.Join(states, ", ") + ")"
	}
	return reason
}
