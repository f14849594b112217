package engine

import (
	"fmt"
	"regexp"

	"github.com/getmockd/pactstub/pkg/pact"
)

// StateFilter narrows the interactions that may be served by provider state.
// The zero value applies to every interaction.
type StateFilter struct {
	// Pattern is matched unanchored against each provider state name.
	Pattern *regexp.Regexp

	// IncludeStateless lets interactions without any provider state through
	// while a Pattern is set.
	IncludeStateless bool
}

// NewStateFilter compiles pattern. An empty pattern disables the filter.
func NewStateFilter(pattern string, includeStateless bool) (StateFilter, error) {
	if pattern == "" {
		return StateFilter{IncludeStateless: includeStateless}, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return StateFilter{}, fmt.Errorf("invalid provider state regex %q: %w", pattern, err)
	}
	return StateFilter{Pattern: re, IncludeStateless: includeStateless}, nil
}

// Enabled reports whether a pattern is configured.
func (f StateFilter) Enabled() bool {
	return f.Pattern != nil
}

// Applies reports whether the interaction passes the filter.
func (f StateFilter) Applies(i *pact.Interaction) bool {
	if f.Pattern == nil {
		return true
	}
	if !i.HasProviderState() {
		return f.IncludeStateless
	}
	for _, s := range i.ProviderStates {
		if f.Pattern.MatchString(s.Name) {
			return true
		}
	}
	return false
}

// String describes the filter for logs.
func (f StateFilter) String() string {
	if f.Pattern == nil {
		return "none"
	}
	return fmt.Sprintf("%q (stateless included: %t)", f.Pattern.String(), f.IncludeStateless)
}
