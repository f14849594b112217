package loader

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/getmockd/pactstub/pkg/logging"
	"github.com/getmockd/pactstub/pkg/pact"
)

// DefaultConcurrency limits how many sources are fetched at once.
const DefaultConcurrency = 4

// Options configures loading.
type Options struct {
	// InsecureTLS disables certificate verification for URL and broker
	// sources. Ignored when HTTPClient is set.
	InsecureTLS bool

	// HTTPClient is used for URL and broker sources.
	HTTPClient *http.Client

	Logger *slog.Logger

	// Concurrency defaults to DefaultConcurrency.
	Concurrency int
}

// Outcome is the result of loading one pact document.
type Outcome struct {
	// Source names the file or URL the document came from.
	Source string
	Pact   *pact.Pact
	Err    error
}

type loader struct {
	client *http.Client
	log    *slog.Logger
	limit  int
}

func newLoader(opts Options) *loader {
	l := &loader{client: opts.HTTPClient, log: opts.Logger, limit: opts.Concurrency}
	if l.log == nil {
		l.log = logging.Nop()
	}
	if l.limit <= 0 {
		l.limit = DefaultConcurrency
	}
	if l.client == nil {
		l.client = newHTTPClient(opts.InsecureTLS)
		if opts.InsecureTLS {
			l.log.Warn("TLS certificate verification is disabled for pact URLs")
		}
	}
	return l
}

func newHTTPClient(insecure bool) *http.Client {
	if !insecure {
		return &http.Client{}
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	//nolint:gosec // G402: explicitly requested with --insecure-tls
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	return &http.Client{Transport: transport}
}

// Load fetches every source concurrently. The outcomes are ordered by source,
// then by file or pact within a source. A directory or broker yields one
// outcome per document; a source that fails as a whole yields one failed
// outcome.
func Load(ctx context.Context, sources []Source, opts Options) []Outcome {
	l := newLoader(opts)
	results := make([][]Outcome, len(sources))

	var g errgroup.Group
	g.SetLimit(l.limit)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = l.load(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	var out []Outcome
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func (l *loader) load(ctx context.Context, src Source) []Outcome {
	l.log.Debug("loading pacts", "source", src.String())
	var outcomes []Outcome
	switch src.Kind {
	case KindFile:
		outcomes = []Outcome{loadFile(src.Location)}
	case KindDir:
		outcomes = l.loadDir(src)
	case KindURL:
		outcomes = []Outcome{l.loadURL(ctx, src)}
	case KindBroker:
		outcomes = l.loadBroker(ctx, src)
	default:
		outcomes = []Outcome{{Source: src.String(), Err: errors.New("unknown source kind")}}
	}
	for _, o := range outcomes {
		if o.Err != nil {
			l.log.Error("failed to load pact", "source", o.Source, "error", o.Err)
			continue
		}
		l.log.Info("loaded pact", "source", o.Source,
			"consumer", o.Pact.Consumer, "provider", o.Pact.Provider,
			"interactions", len(o.Pact.Interactions), "spec", o.Pact.Spec.String())
	}
	return outcomes
}

// Collect returns the pacts of successful outcomes in order. If any outcome
// failed, it returns every failure joined, each as a *LoadError.
func Collect(outcomes []Outcome) ([]*pact.Pact, error) {
	var (
		pacts []*pact.Pact
		errs  []error
	)
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, &LoadError{Source: o.Source, Err: o.Err})
			continue
		}
		if o.Pact != nil {
			pacts = append(pacts, o.Pact)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return pacts, nil
}

// LoadAll is Load followed by Collect. It returns ErrNoSources for an empty
// source list.
func LoadAll(ctx context.Context, sources []Source, opts Options) ([]*pact.Pact, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	return Collect(Load(ctx, sources, opts))
}
