package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/pactstub/pkg/config"
	"github.com/getmockd/pactstub/pkg/loader"
)

const binaryName = "pact-stub-server"

// rootFlags holds the values bound to the shared flags.
type rootFlags struct {
	files       []string
	dirs        []string
	extension   string
	urls        []string
	brokerURL   string
	user        string
	token       string
	insecureTLS bool

	host string
	port int

	cors               bool
	corsReferer        bool
	providerState      string
	stateHeader        string
	emptyProviderState bool

	logLevel   string
	logFormat  string
	configFile string
	watch      bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&rootFlags{})
}

func newRootCommand(f *rootFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   binaryName + " [flags]",
		Short: "Serve pact interactions as an HTTP stub server",
		Long: `pact-stub-server loads pact files and answers HTTP requests with the recorded
responses of the matching interactions.

Pacts can be loaded from files, directories, URLs or a pact broker. When a
request matches several interactions, the provider state header chooses one
of them. Requests that match nothing get a 500 response describing the
closest interactions.

Settings can also come from a YAML file (--config or PACT_STUB_CONFIG) and from
the environment (PACT_BROKER_BASE_URL, PACT_BROKER_TOKEN, PACT_STUB_PORT, ...).
Flags take precedence.`,
		Example: `  # Serve a directory of pacts on port 8080
  pact-stub-server -d ./pacts -p 8080

  # Serve the latest pacts from a broker, answering CORS preflights
  pact-stub-server -b https://broker.example.com -t $TOKEN --cors

  # Only serve interactions for a provider state, choosing by header
  pact-stub-server -f pact.json -s "^user" --provider-state-header-name X-Pact-Provider-State`,
		Version:       displayVersion(buildVersion().Version),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, f)
		},
	}
	root.SetVersionTemplate(binaryName + " {{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Err: err}
	})

	pf := root.PersistentFlags()
	pf.StringArrayVarP(&f.files, "file", "f", nil, "Pact file to load (can be repeated)")
	pf.StringArrayVarP(&f.dirs, "dir", "d", nil, "Directory of pact files to load (can be repeated)")
	pf.StringVarP(&f.extension, "extension", "e", loader.DefaultExtension, "File extension to use when loading from a directory")
	pf.StringArrayVarP(&f.urls, "url", "u", nil, "URL of a pact file to fetch (can be repeated)")
	pf.StringVarP(&f.brokerURL, "broker-url", "b", "", "URL of the pact broker to fetch pacts from (or set "+config.EnvBrokerURL+")")
	pf.StringVar(&f.user, "user", "", "User and password for URLs and the pact broker in user:password form")
	pf.StringVarP(&f.token, "token", "t", "", "Bearer token for URLs and the pact broker")
	pf.BoolVar(&f.insecureTLS, "insecure-tls", false, "Disable TLS certificate validation")
	pf.StringVarP(&f.providerState, "provider-state", "s", "", "Provider state regular expression to filter the interactions by")
	pf.BoolVar(&f.emptyProviderState, "empty-provider-state", false, "Include interactions without a provider state when filtering with --provider-state")
	pf.StringVarP(&f.logLevel, "loglevel", "l", "info", "Log level (error, warn, info, debug, trace, none)")
	pf.StringVar(&f.logFormat, "log-format", "text", "Log format (text, json)")
	pf.StringVar(&f.configFile, "config", "", "Path to a YAML configuration file")

	lf := root.Flags()
	lf.StringVar(&f.host, "host", config.DefaultHost, "Interface to listen on")
	lf.IntVarP(&f.port, "port", "p", 0, "Port to run on (defaults to a random port assigned by the OS)")
	lf.BoolVarP(&f.cors, "cors", "o", false, "Answer CORS preflight requests and add CORS headers to responses")
	lf.BoolVar(&f.corsReferer, "cors-referer", false, "Set Access-Control-Allow-Origin to the request Referer")
	lf.StringVar(&f.stateHeader, "provider-state-header-name", "", "Header choosing the provider state when several interactions match")
	lf.BoolVar(&f.watch, "watch", false, "Reload local pact files when they change")

	root.AddCommand(newVersionCommand())
	root.AddCommand(newListCommand(f))
	return root
}

// resolveConfig layers the configuration file, the environment and the flags
// the user set over the defaults.
func resolveConfig(cmd *cobra.Command, f *rootFlags) (*config.Config, error) {
	cfg := config.Default()

	path := f.configFile
	if path == "" {
		path = config.ConfigFileFromEnv()
	}
	if path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	changed := flags.Changed
	if changed("file") {
		cfg.Sources.Files = f.files
	}
	if changed("dir") {
		cfg.Sources.Dirs = f.dirs
	}
	if changed("extension") {
		cfg.Sources.Extension = f.extension
	}
	if changed("url") {
		cfg.Sources.URLs = f.urls
	}
	if changed("broker-url") {
		cfg.Sources.BrokerURL = f.brokerURL
	}
	if changed("user") {
		cfg.Sources.User = f.user
	}
	if changed("token") {
		cfg.Sources.Token = f.token
	}
	if changed("insecure-tls") {
		cfg.Sources.InsecureTLS = f.insecureTLS
	}
	if changed("host") {
		cfg.Server.Host = f.host
	}
	if changed("port") {
		cfg.Server.Port = f.port
	}
	if changed("cors") {
		cfg.Engine.CORS = f.cors
	}
	if changed("cors-referer") {
		cfg.Engine.CORSReferer = f.corsReferer
	}
	if changed("provider-state") {
		cfg.Engine.ProviderState = f.providerState
	}
	if changed("provider-state-header-name") {
		cfg.Engine.ProviderStateHeaderName = f.stateHeader
	}
	if changed("empty-provider-state") {
		cfg.Engine.EmptyProviderState = f.emptyProviderState
	}
	if changed("loglevel") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if changed("watch") {
		cfg.Watch = f.watch
	}
	return cfg, nil
}

// loadConfig resolves and validates the configuration. Problems are usage
// errors.
func loadConfig(cmd *cobra.Command, f *rootFlags) (*config.Config, error) {
	cfg, err := resolveConfig(cmd, f)
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ExitError{Code: ExitUsage, Err: fmt.Errorf("invalid configuration:\n%w", err)}
	}
	return cfg, nil
}

// Run executes the command line with args and returns the exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		var exitErr *ExitError
		if !errors.As(err, &exitErr) || exitErr.Err != nil {
			fmt.Fprintln(stderr, "Error:", err)
		}
	}
	return exitCode(err)
}

// Main runs the command line with the process arguments.
func Main() int {
	return Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}
