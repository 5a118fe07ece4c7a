package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/cueline/internal/config"
	"github.com/roach88/cueline/internal/rundown"
	"github.com/roach88/cueline/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
	ID       string
}

// ImportResult reports what was written.
type ImportResult struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Revision     int64   `json:"revision"`
	Entries      int     `json:"entries"`
	Events       int     `json:"events"`
	CustomFields int     `json:"customFields"`
	Dropped      []issue `json:"dropped,omitempty"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <rundown-file>",
		Short: "Import a rundown document into the database",
		Long: `Import a YAML or JSON rundown document into the database.

The document is validated and normalised before it is stored. Invalid
entries are dropped and reported; the rest of the rundown is imported.
Custom field definitions in the document replace the stored ones.

Example:
  cueline import ./show.yaml --db ./show.db
  cueline import ./show.yaml --id main`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "store under this id instead of the document's")

	return cmd
}

// openConfiguredStore loads the config, applies a --db override and opens
// the store it names.
func openConfiguredStore(opts *RootOptions, dbFlag string) (*store.Store, *config.Config, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if dbFlag != "" {
		cfg.Database = dbFlag
	}
	st, err := openStore(cfg.Database, slog.New(slog.DiscardHandler))
	if err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	doc, err := readDocument(path)
	if err != nil {
		_ = formatter.Error(ErrCodeParse, err.Error(), nil)
		return err
	}
	r, md := doc.process()
	if opts.ID != "" {
		r.ID = opts.ID
	}
	if r.ID == "" {
		err := NewExitError(ExitCommandError, "rundown has no id; pass --id")
		_ = formatter.Error(ErrCodeInvalid, err.Error(), nil)
		return err
	}
	if r.Title == "" {
		r.Title = r.ID
	}

	st, _, err := openConfiguredStore(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := writeImport(ctx, st, r, doc.Fields); err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to store rundown", err)
	}

	result := ImportResult{
		ID:           r.ID,
		Title:        r.Title,
		Revision:     r.Revision,
		Entries:      len(r.Entries),
		Events:       len(md.PlayableEventOrder),
		CustomFields: len(doc.Fields),
		Dropped:      doc.Dropped,
	}
	return formatter.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "Imported %q (%s): %d entries, %d playable events\n",
			result.Title, result.ID, result.Entries, result.Events)
		for _, d := range result.Dropped {
			fmt.Fprintf(w, "  dropped %s: %s\n", d.Entry, d.Message)
		}
	})
}

func writeImport(ctx context.Context, st *store.Store, r rundown.Rundown, defs rundown.CustomFields) error {
	if len(defs) > 0 {
		if err := st.SetCustomFields(ctx, defs); err != nil {
			return err
		}
	}
	return st.SetRundown(ctx, r.ID, r)
}
