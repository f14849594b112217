package matching

import (
	"fmt"

	"github.com/getmockd/pactstub/pkg/pact"
)

// MatchPath checks if the request path equals the expected path.
// A trailing slash is significant.
func MatchPath(expected, actual string) bool {
	return expected == actual
}

func (c *comparison) path(expected, actual string) {
	if rs, ok := c.rules.For(pact.CategoryPath, ""); ok {
		if msg := c.checkRuleSet(rs, expected, actual); msg != "" {
			c.add(Mismatch{
				Kind:        KindPath,
				Expected:    expected,
				Actual:      actual,
				Description: fmt.Sprintf("Expected path '%s' but received '%s': %s", expected, actual, msg),
			})
		}
		return
	}
	if MatchPath(expected, actual) {
		return
	}
	c.add(Mismatch{
		Kind:        KindPath,
		Expected:    expected,
		Actual:      actual,
		Description: fmt.Sprintf("Expected path '%s' but received '%s'", expected, actual),
	})
}
