package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getmockd/pactstub/pkg/pact"
)

// DefaultNearMisses is the number of near misses reported when no explicit
// limit is given.
const DefaultNearMisses = 3

// Evaluation pairs an interaction with the result of matching a request
// against it.
type Evaluation struct {
	Interaction *pact.Interaction
	Result      Result
}

// NearMiss is an interaction that partially matched an inbound request.
type NearMiss struct {
	Interaction    string   `json:"interaction"`
	Index          int      `json:"index"`
	Description    string   `json:"description"`
	ProviderStates []string `json:"providerStates,omitempty"`
	Source         string   `json:"source,omitempty"`
	Mismatches     []string `json:"mismatches"`
	Reason         string   `json:"reason"`
}

// RankNearMisses returns up to topN failed evaluations whose method or path
// matched, ordered by fewest mismatches and then load order.
// It is only called when nothing matched, so matched requests pay nothing.
func RankNearMisses(evals []Evaluation, topN int) []NearMiss {
	if topN <= 0 {
		topN = DefaultNearMisses
	}

	var candidates []Evaluation
	for _, e := range evals {
		if e.Interaction == nil || e.Result.Matched() || !e.Result.Near() {
			continue
		}
		candidates = append(candidates, e)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ni, nj := len(candidates[i].Result.Mismatches), len(candidates[j].Result.Mismatches)
		if ni != nj {
			return ni < nj
		}
		return candidates[i].Interaction.Index < candidates[j].Interaction.Index
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}

	out := make([]NearMiss, 0, len(candidates))
	for _, e := range candidates {
		out = append(out, NearMiss{
			Interaction:    e.Interaction.Label(),
			Index:          e.Interaction.Index,
			Description:    e.Interaction.Description,
			ProviderStates: e.Interaction.StateNames(),
			Source:         e.Interaction.Source,
			Mismatches:     e.Result.Reasons(),
			Reason:         GenerateReason(e.Result),
		})
	}
	return out
}

// GenerateReason creates a short explanation of why an interaction partially
// matched but ultimately failed.
func GenerateReason(r Result) string {
	if r.Matched() {
		return "all fields matched"
	}

	var matched []string
	for _, k := range []Kind{KindMethod, KindPath, KindQuery, KindHeader} {
		if !r.Has(k) {
			matched = append(matched, string(k))
		}
	}
	if !r.Has(KindBody) && !r.Has(KindBodyType) {
		matched = append(matched, "body")
	}

	first := r.Mismatches[0]
	if len(matched) == 0 {
		return first.Description
	}
	reason := fmt.Sprintf("%s matched, but %s", strings.Join(matched, ", "), first.Description)
	if n := len(r.Mismatches) - 1; n > 0 {
		reason += fmt.Sprintf(" (and %d more)", n)
	}
	return reason
}
