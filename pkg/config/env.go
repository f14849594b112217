package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvBrokerURL      = "PACT_BROKER_BASE_URL"
	EnvBrokerUsername = "PACT_BROKER_USERNAME"
	EnvBrokerPassword = "PACT_BROKER_PASSWORD"
	EnvBrokerToken    = "PACT_BROKER_TOKEN"
	EnvConfig         = "PACT_STUB_CONFIG"
	EnvHost           = "PACT_STUB_HOST"
	EnvPort           = "PACT_STUB_PORT"
	EnvLogLevel       = "PACT_STUB_LOGLEVEL"
	EnvLogFormat      = "PACT_STUB_LOG_FORMAT"
	EnvCORS           = "PACT_STUB_CORS"
	EnvInsecureTLS    = "PACT_STUB_INSECURE_TLS"
	EnvStateHeader    = "PACT_STUB_PROVIDER_STATE_HEADER_NAME"
	EnvWatch          = "PACT_STUB_WATCH"
)

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays the process environment on cfg.
func ApplyEnv(cfg *Config) error {
	return ApplyEnvFrom(cfg, os.LookupEnv)
}

// ApplyEnvFrom overlays variables from lookup on cfg. Only variables that are
// set and non-empty are applied.
func ApplyEnvFrom(cfg *Config, lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvBrokerURL); ok {
		cfg.Sources.BrokerURL = v
	}
	if v, ok := get(EnvBrokerUsername); ok {
		cfg.Sources.User = v
		if p, ok := get(EnvBrokerPassword); ok {
			cfg.Sources.User = v + ":" + p
		}
	}
	if v, ok := get(EnvBrokerToken); ok {
		cfg.Sources.Token = v
	}
	if v, ok := get(EnvHost); ok {
		cfg.Server.Host = v
	}
	if v, ok := get(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		cfg.Server.Port = port
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.Log.Level = v
	}
	if v, ok := get(EnvLogFormat); ok {
		cfg.Log.Format = v
	}
	if v, ok := get(EnvStateHeader); ok {
		cfg.Engine.ProviderStateHeaderName = v
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{EnvCORS, &cfg.Engine.CORS},
		{EnvInsecureTLS, &cfg.Sources.InsecureTLS},
		{EnvWatch, &cfg.Watch},
	}
	for _, b := range bools {
		v, ok := get(b.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", b.key, v)
		}
		*b.dst = parsed
	}
	return nil
}

// ConfigFileFromEnv returns the configuration file named by PACT_STUB_CONFIG.
func ConfigFileFromEnv() string {
	return os.Getenv(EnvConfig)
}
