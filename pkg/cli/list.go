package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/pactstub/internal/storage"
	"github.com/getmockd/pactstub/pkg/cli/internal/output"
	"github.com/getmockd/pactstub/pkg/pact"
)

// listEntry is the JSON form of one listed interaction.
type listEntry struct {
	Index          int      `json:"index"`
	Description    string   `json:"description"`
	Consumer       string   `json:"consumer"`
	Provider       string   `json:"provider"`
	ProviderStates []string `json:"providerStates,omitempty"`
	Method         string   `json:"method"`
	Path           string   `json:"path"`
	Query          string   `json:"query,omitempty"`
	Headers        []string `json:"headers,omitempty"`
	Status         int      `json:"status"`
	Pending        bool     `json:"pending,omitempty"`
	Source         string   `json:"source"`
}

func newListEntry(i *pact.Interaction) listEntry {
	e := listEntry{
		Index:          i.Index,
		Description:    i.Description,
		Consumer:       i.Consumer,
		Provider:       i.Provider,
		ProviderStates: i.StateNames(),
		Method:         i.Request.Method,
		Path:           i.Request.Path,
		Headers:        pact.SortedHeaderNames(i.Request.Headers),
		Status:         i.Response.Status,
		Pending:        i.Pending,
		Source:         i.Source,
	}
	if i.Request.Query != nil {
		e.Query = i.Request.Query.Encode()
	}
	return e
}

func newListCommand(f *rootFlags) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Load the pacts and list the interactions that would be served",
		Example: `  pact-stub-server list -d ./pacts
  pact-stub-server list -f pact.json -s "^user" --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			log := newLogger(cmd, cfg)
			opts, err := cfg.EngineOptions()
			if err != nil {
				return &ExitError{Code: ExitUsage, Err: err}
			}

			pacts, err := loadPacts(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			store := storage.NewInMemoryInteractionStore(pacts)
			view := storage.NewFilteredInteractionStore(store, opts.StateFilter.Applies)

			interactions := view.All()
			entries := make([]listEntry, 0, len(interactions))
			for _, i := range interactions {
				entries = append(entries, newListEntry(i))
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				return output.JSON(w, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(w, "No interactions.")
				return nil
			}

			tw := output.Table(w)
			fmt.Fprintln(tw, "INDEX\tMETHOD\tPATH\tSTATUS\tPROVIDER STATES\tDESCRIPTION")
			for _, e := range entries {
				path := e.Path
				if e.Query != "" {
					path += "?" + e.Query
				}
				states := strings.Join(e.ProviderStates, ", ")
				if states == "" {
					states = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", e.Index, e.Method, path, e.Status, states, e.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(entries) != store.Count() {
				fmt.Fprintf(w, "\n%d of %d interactions match the provider state filter.\n", len(entries), store.Count())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	return cmd
}
