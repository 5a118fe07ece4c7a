package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cueline/internal/metadata"
	"github.com/roach88/cueline/internal/rundown"
)

// MetadataResult is the processed view of a rundown document.
type MetadataResult struct {
	Metadata metadata.Metadata `json:"metadata"`
	Schedule []scheduleRow     `json:"schedule"`
	Dropped  []issue           `json:"dropped,omitempty"`
}

// NewMetadataCommand creates the metadata command.
func NewMetadataCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata <rundown-file>",
		Short: "Print the metadata derived from a rundown document",
		Long: `Process a rundown document and print what the engine derives from it:
total duration and delay, day count, first start and last end, the
playable and timed event orders and the custom fields in use.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetadata(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runMetadata(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	doc, err := readDocument(path)
	if err != nil {
		_ = formatter.Error(ErrCodeParse, err.Error(), nil)
		return err
	}
	r, md := doc.process()
	result := MetadataResult{
		Metadata: md,
		Schedule: schedule(r, md),
		Dropped:  doc.Dropped,
	}

	return formatter.Render(result, func(w io.Writer) {
		writeMetadata(w, result)
	})
}

func writeMetadata(w io.Writer, res MetadataResult) {
	md := res.Metadata
	fmt.Fprintf(w, "Events:         %d playable, %d timed\n", len(md.PlayableEventOrder), len(md.TimedEventOrder))
	fmt.Fprintf(w, "First start:    %s\n", clockOrDash(md.FirstStart))
	fmt.Fprintf(w, "Last end:       %s\n", clockOrDash(md.LastEnd))
	fmt.Fprintf(w, "Total duration: %s\n", rundown.FormatClock(md.TotalDuration))
	fmt.Fprintf(w, "Total delay:    %s\n", rundown.FormatClock(md.TotalDelay))
	fmt.Fprintf(w, "Days crossed:   %d\n", md.TotalDays)
	for key, ids := range sortedFields(md.AssignedCustomFields) {
		fmt.Fprintf(w, "Field %s:  %s\n", key, strings.Join(ids, ", "))
	}
	if len(res.Schedule) > 0 {
		fmt.Fprintln(w)
		writeSchedule(w, res.Schedule)
	}
	for _, d := range res.Dropped {
		fmt.Fprintf(w, "dropped %s: %s\n", d.Entry, d.Message)
	}
}

func clockOrDash(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return rundown.FormatClock(*ms)
}
