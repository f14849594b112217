package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/getmockd/pactstub/pkg/pact"
)

// maxDocumentSize bounds a fetched pact or broker document (50MB).
const maxDocumentSize = 50 << 20

func (l *loader) loadURL(ctx context.Context, src Source) Outcome {
	data, err := l.fetch(ctx, src.Location, src)
	if err != nil {
		return Outcome{Source: src.Location, Err: err}
	}
	p, err := pact.Parse(src.Location, data)
	if err != nil {
		return Outcome{Source: src.Location, Err: err}
	}
	return Outcome{Source: src.Location, Pact: p}
}

// fetch GETs url with the source credentials.
func (l *loader) fetch(ctx context.Context, url string, src Source) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "application/hal+json, application/json")
	setAuth(req, src)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("request failed with status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("response exceeds %d bytes", maxDocumentSize)
	}
	return data, nil
}

func setAuth(req *http.Request, src Source) {
	switch {
	case src.Token != "":
		req.Header.Set("Authorization", "Bearer "+src.Token)
	case src.User != "":
		user, password, _ := strings.Cut(src.User, ":")
		req.SetBasicAuth(user, password)
	}
}
