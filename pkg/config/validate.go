package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/getmockd/pactstub/pkg/loader"
	"github.com/getmockd/pactstub/pkg/logging"
)

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration and returns every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !c.HasSources() {
		add("sources", "at least one of file, dir, url or broker-url is required")
	}
	for _, u := range c.Sources.URLs {
		if err := validateURL(u); err != nil {
			add("url", "%v", err)
		}
	}
	if c.Sources.BrokerURL != "" {
		if err := validateURL(c.Sources.BrokerURL); err != nil {
			add("broker-url", "%v", err)
		}
	}
	if c.Sources.User != "" && c.Sources.Token != "" {
		add("user", "cannot be used together with token")
	}
	if c.Sources.Extension != "" && c.Sources.Extension != loader.DefaultExtension && len(c.Sources.Dirs) == 0 {
		add("extension", "requires dir")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		add("port", "must be between 0 and 65535, got %d", c.Server.Port)
	}

	if c.Engine.CORSReferer && !c.Engine.CORS {
		add("cors-referer", "requires cors")
	}
	if c.Engine.ProviderState != "" {
		if _, err := regexp.Compile(c.Engine.ProviderState); err != nil {
			add("provider-state", "invalid regular expression: %v", err)
		}
	} else if c.Engine.EmptyProviderState {
		add("empty-provider-state", "requires provider-state")
	}
	if c.Engine.NearMisses < 0 {
		add("near-misses", "must not be negative")
	}

	if _, ok := logging.LookupLevel(c.Log.Level); !ok {
		add("loglevel", "must be one of error, warn, info, debug, trace, none; got %q", c.Log.Level)
	}
	if _, ok := logging.LookupFormat(c.Log.Format); !ok {
		add("log-format", "must be text or json; got %q", c.Log.Format)
	}

	if c.Watch && len(c.Sources.Files) == 0 && len(c.Sources.Dirs) == 0 {
		add("watch", "requires file or dir sources")
	}

	return errors.Join(errs...)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return nil
}
