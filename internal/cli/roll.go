package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/cueline/internal/engine"
	"github.com/roach88/cueline/internal/roll"
	"github.com/roach88/cueline/internal/rundown"
	"github.com/roach88/cueline/internal/runtime"
)

// RollOptions holds flags for the roll command.
type RollOptions struct {
	*RootOptions
	At string
}

// RollResult is what roll mode would show at a given time of day.
type RollResult struct {
	At         string `json:"at"`
	Now        string `json:"now,omitempty"`
	Next       string `json:"next,omitempty"`
	PublicNow  string `json:"publicNow,omitempty"`
	PublicNext string `json:"publicNext,omitempty"`
	TimeToNext *int64 `json:"timeToNext,omitempty"`
}

// NewRollCommand creates the roll command.
func NewRollCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RollOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "roll <rundown-file>",
		Short: "Show which events roll mode selects at a time of day",
		Long: `Show the event roll mode would play at a given time of day, and the
event after it. Without --at the current time in the configured timezone
is used.

Example:
  cueline roll ./show.yaml --at 10:15:00`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoll(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "time of day as HH:MM[:SS]")

	return cmd
}

func runRoll(opts *RollOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	at, err := opts.timeOfDay()
	if err != nil {
		_ = formatter.Error(ErrCodeInvalid, err.Error(), nil)
		return err
	}

	doc, err := readDocument(path)
	if err != nil {
		_ = formatter.Error(ErrCodeParse, err.Error(), nil)
		return err
	}
	r, md := doc.process()
	pl := runtime.NewPlaylist(r, md.PlayableEventOrder)
	timers := roll.GetRollTimers(pl.Events, at)

	result := RollResult{
		At:         rundown.FormatClock(at),
		Now:        idOf(timers.CurrentEvent),
		Next:       idOf(timers.NextEvent),
		PublicNow:  idOf(timers.CurrentPublicEvent),
		PublicNext: idOf(timers.NextPublicEvent),
		TimeToNext: timers.TimeToNext,
	}

	return formatter.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "At %s\n", result.At)
		fmt.Fprintf(w, "  now:  %s\n", describeEvent(timers.CurrentEvent))
		next := describeEvent(timers.NextEvent)
		if timers.TimeToNext != nil {
			next += " in " + rundown.FormatClock(*timers.TimeToNext)
		}
		fmt.Fprintf(w, "  next: %s\n", next)
	})
}

// timeOfDay parses --at, or reads the configured clock.
func (o *RollOptions) timeOfDay() (int64, error) {
	if o.At != "" {
		ms, err := rundown.ParseClock(o.At)
		if err != nil {
			return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid --at: %v", err))
		}
		return ms, nil
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return 0, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return engine.SystemClock{Location: loc}.NowMsOfDay(), nil
}

func idOf(ev *rundown.Event) string {
	if ev == nil {
		return ""
	}
	return ev.ID
}

func describeEvent(ev *rundown.Event) string {
	if ev == nil {
		return "-"
	}
	s := ev.ID
	if ev.Cue != "" {
		s = fmt.Sprintf("[%s] %s", ev.Cue, s)
	}
	if ev.Title != "" {
		s += " " + ev.Title
	}
	return fmt.Sprintf("%s (%s-%s)", s, rundown.FormatClock(ev.TimeStart), rundown.FormatClock(ev.TimeEnd))
}
