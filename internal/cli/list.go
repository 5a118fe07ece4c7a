package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/cueline/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Database string
}

// RundownSummary is one row of the list output.
type RundownSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Revision int64  `json:"revision"`
	Hash     string `json:"hash"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List stored rundowns",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, _, err := openConfiguredStore(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	infos, err := st.ListRundowns(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list rundowns", err)
	}

	rows := summaries(infos)
	return formatter.Render(rows, func(w io.Writer) {
		if len(rows) == 0 {
			fmt.Fprintln(w, "No rundowns stored.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tREVISION")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", r.ID, r.Title, r.Revision)
		}
		tw.Flush()
	})
}

func summaries(infos []store.RundownInfo) []RundownSummary {
	rows := make([]RundownSummary, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, RundownSummary(info))
	}
	return rows
}
