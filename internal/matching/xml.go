package matching

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

func (c *comparison) xmlBody(expectedRaw, actualRaw []byte) {
	expected := etree.NewDocument()
	if err := expected.ReadFromBytes(expectedRaw); err != nil || expected.Root() == nil {
		c.textBody(expectedRaw, actualRaw)
		return
	}
	actual := etree.NewDocument()
	if err := actual.ReadFromBytes(actualRaw); err != nil || actual.Root() == nil {
		msg := "no root element"
		if err != nil {
			msg = err.Error()
		}
		c.add(Mismatch{
			Kind:        KindBodyType,
			Path:        "$",
			Description: fmt.Sprintf("Failed to parse the request body as XML: %s", msg),
		})
		return
	}
	c.compareElement(expected.Root(), actual.Root(), nil)
}

// compareElement compares tag, attributes, text and child elements in order.
// Rules address text as "$.a.b['#text']" and attributes as "$.a.b['@name']".
func (c *comparison) compareElement(expected, actual *etree.Element, segs []segment) {
	segs = append(append([]segment(nil), segs...), keySeg(expected.Tag))
	path := renderPath(segs)
	if expected.FullTag() != actual.FullTag() {
		c.add(Mismatch{
			Kind:        KindBody,
			Path:        path,
			Expected:    expected.FullTag(),
			Actual:      actual.FullTag(),
			Description: fmt.Sprintf("%s: Expected element <%s> but received <%s>", path, expected.FullTag(), actual.FullTag()),
		})
		return
	}

	for _, attr := range expected.Attr {
		if attr.Space == "xmlns" || attr.Key == "xmlns" {
			continue
		}
		key := attr.FullKey()
		got := actual.SelectAttr(key)
		if got == nil {
			c.add(Mismatch{
				Kind:        KindBody,
				Path:        path,
				Expected:    attr.Value,
				Description: fmt.Sprintf("%s: Expected attribute '%s' but was missing", path, key),
			})
			continue
		}
		c.compareXMLValue(append(segs, keySeg("@"+key)), attr.Value, got.Value, "attribute '"+key+"'")
	}

	want := strings.TrimSpace(expected.Text())
	got := strings.TrimSpace(actual.Text())
	if want != "" || got != "" {
		c.compareXMLValue(append(segs, keySeg("#text")), want, got, "text")
	}

	ec, ac := expected.ChildElements(), actual.ChildElements()
	if len(ec) != len(ac) {
		c.add(Mismatch{
			Kind:        KindBody,
			Path:        path,
			Expected:    fmt.Sprintf("%d children", len(ec)),
			Actual:      fmt.Sprintf("%d children", len(ac)),
			Description: fmt.Sprintf("%s: Expected %d child elements but received %d", path, len(ec), len(ac)),
		})
	}
	for i := 0; i < min(len(ec), len(ac)); i++ {
		c.compareElement(ec[i], ac[i], segs)
	}
}

func (c *comparison) compareXMLValue(segs []segment, want, got, what string) {
	path := renderPath(segs[:len(segs)-1])
	if rs, ok := c.bodyRule(segs); ok {
		if msg := c.checkRuleSet(rs, want, got); msg != "" {
			c.add(Mismatch{
				Kind:        KindBody,
				Path:        path,
				Expected:    want,
				Actual:      got,
				Description: fmt.Sprintf("%s: Mismatch in %s: %s", path, what, msg),
			})
		}
		return
	}
	if want != got {
		c.add(Mismatch{
			Kind:        KindBody,
			Path:        path,
			Expected:    want,
			Actual:      got,
			Description: fmt.Sprintf("%s: Expected %s '%s' but received '%s'", path, what, want, got),
		})
	}
}
