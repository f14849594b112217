package config

import (
	"log/slog"

	"github.com/getmockd/pactstub/internal/matching"
	"github.com/getmockd/pactstub/pkg/engine"
	"github.com/getmockd/pactstub/pkg/loader"
	"github.com/getmockd/pactstub/pkg/logging"
)

// Config is the complete stub server configuration.
type Config struct {
	Sources SourcesConfig `yaml:"sources" json:"sources"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Engine  EngineConfig  `yaml:"engine" json:"engine"`
	Log     LogConfig     `yaml:"log" json:"log"`

	// Watch reloads local pact files when they change.
	Watch bool `yaml:"watch" json:"watch"`
}

// SourcesConfig lists where pacts are loaded from.
type SourcesConfig struct {
	Files     []string `yaml:"files" json:"files,omitempty"`
	Dirs      []string `yaml:"dirs" json:"dirs,omitempty"`
	Extension string   `yaml:"extension" json:"extension,omitempty"`
	URLs      []string `yaml:"urls" json:"urls,omitempty"`
	BrokerURL string   `yaml:"brokerUrl" json:"brokerUrl,omitempty"`

	// User is "name:password" for basic authentication against URLs and the broker.
	User  string `yaml:"user" json:"-"`
	Token string `yaml:"token" json:"-"`

	InsecureTLS bool `yaml:"insecureTls" json:"insecureTls,omitempty"`
}

// ServerConfig configures the listener.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// EngineConfig configures request handling.
type EngineConfig struct {
	CORS                    bool   `yaml:"cors" json:"cors"`
	CORSReferer             bool   `yaml:"corsReferer" json:"corsReferer"`
	ProviderState           string `yaml:"providerState" json:"providerState,omitempty"`
	ProviderStateHeaderName string `yaml:"providerStateHeaderName" json:"providerStateHeaderName,omitempty"`
	EmptyProviderState      bool   `yaml:"emptyProviderState" json:"emptyProviderState"`
	NearMisses              int    `yaml:"nearMisses" json:"nearMisses"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// DefaultHost binds every interface.
const DefaultHost = "0.0.0.0"

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Sources: SourcesConfig{Extension: loader.DefaultExtension},
		Server:  ServerConfig{Host: DefaultHost},
		Engine:  EngineConfig{NearMisses: matching.DefaultNearMisses},
		Log:     LogConfig{Level: "info", Format: string(logging.FormatText)},
	}
}

// HasSources reports whether at least one pact source is configured.
func (c *Config) HasSources() bool {
	s := c.Sources
	return len(s.Files) > 0 || len(s.Dirs) > 0 || len(s.URLs) > 0 || s.BrokerURL != ""
}

// LoaderSources returns the configured sources in a stable order: files,
// directories, URLs, then the broker.
func (c *Config) LoaderSources() []loader.Source {
	s := c.Sources
	var out []loader.Source
	for _, f := range s.Files {
		out = append(out, loader.FileSource(f))
	}
	for _, d := range s.Dirs {
		out = append(out, loader.DirSource(d, s.Extension))
	}
	for _, u := range s.URLs {
		out = append(out, loader.URLSource(u, s.User, s.Token))
	}
	if s.BrokerURL != "" {
		out = append(out, loader.BrokerSource(s.BrokerURL, s.User, s.Token))
	}
	return out
}

// LoaderOptions returns the options for loading the configured sources.
func (c *Config) LoaderOptions(log *slog.Logger) loader.Options {
	return loader.Options{InsecureTLS: c.Sources.InsecureTLS, Logger: log}
}

// EngineOptions compiles the engine options. It fails only on an invalid
// provider state pattern.
func (c *Config) EngineOptions() (engine.Options, error) {
	filter, err := engine.NewStateFilter(c.Engine.ProviderState, c.Engine.EmptyProviderState)
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		AutoCORS:    c.Engine.CORS,
		CORSReferer: c.Engine.CORSReferer,
		StateFilter: filter,
		StateHeader: c.Engine.ProviderStateHeaderName,
		NearMisses:  c.Engine.NearMisses,
	}, nil
}

// LoggingConfig returns the logger configuration. Unknown values fall back
// to info and text; Validate reports them.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.Log.Level)
	cfg.Format = logging.ParseFormat(c.Log.Format)
	return cfg
}

// EngineServerConfig returns the listener configuration.
func (c *Config) EngineServerConfig(log *slog.Logger) engine.ServerConfig {
	return engine.ServerConfig{Host: c.Server.Host, Port: c.Server.Port, Logger: log}
}
