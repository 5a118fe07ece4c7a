package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cueline/internal/delay"
	"github.com/roach88/cueline/internal/metadata"
	"github.com/roach88/cueline/internal/rundown"
)

// DelayResult is the schedule after delays were folded in.
type DelayResult struct {
	Applied  []string      `json:"applied"`
	Schedule []scheduleRow `json:"schedule"`
}

// NewDelayCommand creates the delay command.
func NewDelayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delay <rundown-file> [delay-id...]",
		Short: "Preview the schedule after applying delays",
		Long: `Fold delay entries into the schedule and print the result. The file
is not modified. Without ids every delay in the rundown is applied in
order.

Example:
  cueline delay ./show.yaml d1`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelay(rootOpts, args[0], args[1:], cmd)
		},
	}
	return cmd
}

func runDelay(opts *RootOptions, path string, ids []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	doc, err := readDocument(path)
	if err != nil {
		_ = formatter.Error(ErrCodeParse, err.Error(), nil)
		return err
	}
	r, _ := doc.process()

	if len(ids) == 0 {
		ids = delayIDs(r)
	}
	for _, id := range ids {
		if _, ok := r.Entries[id].(*rundown.Delay); !ok {
			err := NewExitError(ExitFailure, fmt.Sprintf("no delay entry %q", id))
			_ = formatter.Error(ErrCodeUnknownItem, err.Error(), nil)
			return err
		}
	}
	for _, id := range ids {
		formatter.VerboseLog("Applying delay %s", id)
		delay.Apply(id, &r)
	}

	res := metadata.Process(r, doc.Fields, nil)
	r.Entries, r.Order, r.FlatOrder = res.Entries, res.Order, res.FlatOrder
	result := DelayResult{
		Applied:  ids,
		Schedule: schedule(r, res.Metadata),
	}
	if result.Applied == nil {
		result.Applied = []string{}
	}

	return formatter.Render(result, func(w io.Writer) {
		if len(ids) == 0 {
			fmt.Fprintln(w, "No delays to apply.")
		} else {
			fmt.Fprintf(w, "Applied %d delay(s)\n", len(ids))
		}
		writeSchedule(w, result.Schedule)
	})
}

// delayIDs lists the delay entries of r in flat order.
func delayIDs(r rundown.Rundown) []string {
	var ids []string
	for _, id := range r.FlatOrder {
		if _, ok := r.Entries[id].(*rundown.Delay); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
