package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/cueline/internal/engine"
	"github.com/roach88/cueline/internal/rundown"
)

// console feeds text commands to a running engine.
type console struct {
	engine *engine.Engine
	out    *OutputFormatter
	logger *slog.Logger
}

// consoleReply is the JSON payload written for an accepted command.
type consoleReply struct {
	Command string        `json:"command"`
	Value   string        `json:"value,omitempty"`
	State   engineSummary `json:"state"`
}

// engineSummary is the part of a snapshot the console prints.
type engineSummary struct {
	Revision int64  `json:"revision"`
	Playback string `json:"playback"`
	Mode     string `json:"mode"`
	EventID  string `json:"eventId,omitempty"`
	Current  *int64 `json:"current,omitempty"`
	Offset   int64  `json:"offset"`
}

func summarise(s engine.Snapshot) engineSummary {
	sum := engineSummary{
		Revision: s.Revision,
		Playback: string(s.State.Timer.Playback),
		Mode:     string(s.State.Mode),
		Current:  s.State.Timer.Current,
		Offset:   s.State.Runtime.Offset,
	}
	if s.State.EventNow != nil {
		sum.EventID = s.State.EventNow.ID
	}
	return sum
}

// statusLine renders a snapshot as one human-readable line.
func statusLine(s engine.Snapshot) string {
	st := s.State
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", st.Mode, st.Timer.Playback)
	if ev := st.EventNow; ev != nil {
		fmt.Fprintf(&b, " %s", ev.ID)
		if ev.Cue != "" {
			fmt.Fprintf(&b, " [%s]", ev.Cue)
		}
	} else {
		b.WriteString(" -")
	}
	if st.Timer.Current != nil {
		fmt.Fprintf(&b, " %s", rundown.FormatClock(*st.Timer.Current))
	}
	fmt.Fprintf(&b, " offset %s", rundown.FormatClock(st.Runtime.Offset))
	return b.String()
}

// run reads lines until EOF, "quit" or ctx is done. The reader goroutine
// may outlive run when in blocks.
func (c *console) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("console: %w", err)
					}
				default:
				}
				return nil
			}
			quit, err := c.handle(ctx, line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

// handle runs one line. It returns quit for "quit" and an error only when
// the engine is gone.
func (c *console) handle(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	switch line {
	case "", "#":
		return false, nil
	case "quit", "exit":
		return true, nil
	case "status":
		s := c.engine.Snapshot()
		return false, c.out.Render(summarise(s), func(w io.Writer) {
			fmt.Fprintln(w, statusLine(s))
		})
	}
	if strings.HasPrefix(line, "#") {
		return false, nil
	}

	cmd, err := engine.ParseLine(line)
	if err != nil {
		if errors.Is(err, engine.ErrEmptyLine) {
			return false, nil
		}
		return false, c.out.Error(ErrCodeParse, err.Error(), nil)
	}

	res, err := c.engine.Do(ctx, cmd)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return true, nil
		}
		return false, fmt.Errorf("console: %w", err)
	}
	if !res.OK() {
		c.logger.Debug("command rejected", "command", cmd.Kind, "error", res.Err)
		code := string(engine.CodeOf(res.Err))
		if code == "" {
			code = ErrCodeGeneric
		}
		return false, c.out.Error(code, res.Err.Error(), nil)
	}

	return false, c.out.Render(consoleReply{
		Command: string(cmd.Kind),
		Value:   res.Value,
		State:   summarise(res.Snapshot),
	}, func(w io.Writer) {
		if res.Value != "" {
			fmt.Fprintf(w, "ok %s\n", res.Value)
		} else {
			fmt.Fprintln(w, "ok")
		}
		fmt.Fprintln(w, statusLine(res.Snapshot))
	})
}
