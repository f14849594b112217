package loader

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies where a source is read from.
type Kind string

// Source kinds.
const (
	KindFile   Kind = "file"
	KindDir    Kind = "dir"
	KindURL    Kind = "url"
	KindBroker Kind = "broker"
)

// DefaultExtension is the file extension scanned in directories.
const DefaultExtension = "json"

// ErrNoSources is returned when nothing was configured to load.
var ErrNoSources = errors.New("no pact source given")

// Source describes one place to load pacts from.
type Source struct {
	Kind Kind

	// Location is a file path, directory path or URL.
	Location string

	// Extension filters directory entries. Defaults to DefaultExtension.
	Extension string

	// User is "name" or "name:password" for basic authentication.
	User string

	// Token is sent as a bearer token.
	Token string
}

// FileSource returns a Source for a single pact file.
func FileSource(path string) Source { return Source{Kind: KindFile, Location: path} }

// DirSource returns a Source scanning dir recursively for files with ext.
func DirSource(dir, ext string) Source {
	return Source{Kind: KindDir, Location: dir, Extension: ext}
}

// URLSource returns a Source fetching one pact over HTTP.
func URLSource(url, user, token string) Source {
	return Source{Kind: KindURL, Location: url, User: user, Token: token}
}

// BrokerSource returns a Source fetching the latest pacts from a pact broker.
func BrokerSource(baseURL, user, token string) Source {
	return Source{Kind: KindBroker, Location: baseURL, User: user, Token: token}
}

// String renders the source for logs and errors without credentials.
func (s Source) String() string {
	switch s.Kind {
	case KindDir:
		return fmt.Sprintf("dir %s (*.%s)", s.Location, s.extension())
	case "":
		return s.Location
	default:
		return fmt.Sprintf("%s %s", s.Kind, s.Location)
	}
}

// IsLocal reports whether the source reads from the local filesystem.
func (s Source) IsLocal() bool {
	return s.Kind == KindFile || s.Kind == KindDir
}

func (s Source) extension() string {
	ext := strings.TrimPrefix(s.Extension, ".")
	if ext == "" {
		return DefaultExtension
	}
	return ext
}

// LoadError reports a failure to load one source.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
