package loader

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/pactstub/pkg/pact"
)

// HAL relations followed on the broker.
const (
	relLatestPactVersions = "pb:latest-pact-versions"
	relPacts              = "pb:pacts"
)

// brokerPact is one entry of the broker's latest pact versions.
type brokerPact struct {
	href  string
	title string
}

// loadBroker fetches the index of latest pacts and then every listed pact.
func (l *loader) loadBroker(ctx context.Context, src Source) []Outcome {
	links, err := l.brokerPacts(ctx, src)
	if err != nil {
		return []Outcome{{Source: src.Location, Err: err}}
	}
	if len(links) == 0 {
		l.log.Warn("pact broker has no pacts", "broker", src.Location)
		return nil
	}

	outcomes := make([]Outcome, len(links))
	var g errgroup.Group
	g.SetLimit(l.limit)
	for i, link := range links {
		g.Go(func() error {
			name := link.href
			if link.title != "" {
				name = fmt.Sprintf("%s (%s)", link.title, link.href)
			}
			data, err := l.fetch(ctx, link.href, src)
			if err != nil {
				outcomes[i] = Outcome{Source: name, Err: err}
				return nil
			}
			p, err := pact.Parse(link.href, data)
			if err != nil {
				outcomes[i] = Outcome{Source: name, Err: err}
				return nil
			}
			outcomes[i] = Outcome{Source: name, Pact: p}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (l *loader) brokerPacts(ctx context.Context, src Source) ([]brokerPact, error) {
	base, err := url.Parse(src.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid broker URL: %w", err)
	}

	index, err := l.fetch(ctx, base.String(), src)
	if err != nil {
		return nil, err
	}
	href, err := halLink(index, relLatestPactVersions)
	if err != nil {
		return nil, err
	}
	latestURL, err := resolve(base, href)
	if err != nil {
		return nil, err
	}

	latest, err := l.fetch(ctx, latestURL, src)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(latest) {
		return nil, errors.New("broker returned invalid JSON for the latest pacts")
	}

	var links []brokerPact
	var resolveErr error
	gjson.GetBytes(latest, "_links."+gjson.Escape(relPacts)).ForEach(func(_, v gjson.Result) bool {
		h := v.Get("href").String()
		if h == "" {
			return true
		}
		u, err := resolve(base, h)
		if err != nil {
			resolveErr = err
			return false
		}
		title := v.Get("title").String()
		if title == "" {
			title = v.Get("name").String()
		}
		links = append(links, brokerPact{href: u, title: title})
		return true
	})
	if resolveErr != nil {
		return nil, resolveErr
	}
	return links, nil
}

// halLink returns the href of a HAL link relation.
func halLink(doc []byte, rel string) (string, error) {
	if !gjson.ValidBytes(doc) {
		return "", errors.New("broker returned invalid JSON")
	}
	href := gjson.GetBytes(doc, "_links."+gjson.Escape(rel)+".href").String()
	if href == "" {
		return "", fmt.Errorf("broker response has no %s link", rel)
	}
	return href, nil
}

func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}
