package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool    `json:"valid"`
	Entries int     `json:"entries"`
	Errors  []issue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rundown-file>",
		Short: "Validate a rundown document without importing it",
		Long: `Validate a YAML or JSON rundown document.

Every entry is checked against the rundown schema. Entries that would be
dropped on import are reported, as are structural problems left after
the metadata pass.

Exit codes:
  0 - Document is valid
  1 - Entries would be dropped
  2 - Command error (unreadable file, malformed document)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	doc, err := readDocument(path)
	if err != nil {
		_ = formatter.Error(ErrCodeParse, err.Error(), nil)
		return err
	}
	formatter.VerboseLog("Parsed %d entries from %s", len(doc.Rundown.Entries), path)

	issues := doc.Dropped
	r, _ := doc.process()
	if err := r.Verify(); err != nil {
		issues = append(issues, issue{Message: err.Error()})
	}

	result := ValidationResult{
		Valid:   len(issues) == 0,
		Entries: len(r.Entries),
		Errors:  issues,
	}

	if !result.Valid {
		if opts.Format == "json" {
			_ = formatter.Error(ErrCodeInvalid, "validation failed", result)
		} else {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "✗ %s: %d problem(s)\n", path, len(issues))
			for _, is := range issues {
				if is.Entry != "" {
					fmt.Fprintf(w, "  %s: %s\n", is.Entry, is.Message)
				} else {
					fmt.Fprintf(w, "  %s\n", is.Message)
				}
			}
		}
		return NewExitError(ExitFailure, "validation failed")
	}

	return formatter.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s: %d entries valid\n", path, result.Entries)
	})
}
