package cli

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/roach88/cueline/internal/metadata"
	"github.com/roach88/cueline/internal/rundown"
)

// document is a rundown file read from disk.
type document struct {
	Rundown rundown.Rundown
	Fields  rundown.CustomFields
	Dropped []issue
}

// issue is an entry that was dropped or a structural problem.
type issue struct {
	Entry   string `json:"entry,omitempty"`
	Message string `json:"message"`
}

func issueOf(err error) issue {
	var pe *rundown.ParseError
	if errors.As(err, &pe) {
		return issue{Entry: pe.EntryID, Message: pe.Reason}
	}
	return issue{Message: err.Error()}
}

// readDocument parses the YAML or JSON rundown at path. Entries that fail
// validation are collected in Dropped rather than failing the read.
func readDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read rundown", err)
	}
	doc := &document{}
	doc.Rundown, doc.Fields, err = rundown.Parse(data, func(err error) {
		doc.Dropped = append(doc.Dropped, issueOf(err))
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to parse %s", path), err)
	}
	return doc, nil
}

// process runs the metadata walk and returns the normalised rundown with
// its metadata.
func (d *document) process() (rundown.Rundown, metadata.Metadata) {
	res := metadata.Process(d.Rundown, d.Fields, nil)
	r := d.Rundown.Clone()
	r.Entries, r.Order, r.FlatOrder = res.Entries, res.Order, res.FlatOrder
	return r, res.Metadata
}

// scheduleRow is one playable event in a printed schedule.
type scheduleRow struct {
	ID        string `json:"id"`
	Cue       string `json:"cue"`
	Title     string `json:"title"`
	TimeStart string `json:"timeStart"`
	TimeEnd   string `json:"timeEnd"`
	Duration  string `json:"duration"`
	Linked    bool   `json:"linked,omitempty"`
}

func schedule(r rundown.Rundown, md metadata.Metadata) []scheduleRow {
	rows := make([]scheduleRow, 0, len(md.PlayableEventOrder))
	for _, id := range md.PlayableEventOrder {
		ev := r.Event(id)
		if ev == nil {
			continue
		}
		rows = append(rows, scheduleRow{
			ID:        ev.ID,
			Cue:       ev.Cue,
			Title:     ev.Title,
			TimeStart: rundown.FormatClock(ev.TimeStart),
			TimeEnd:   rundown.FormatClock(ev.TimeEnd),
			Duration:  rundown.FormatClock(ev.Duration),
			Linked:    ev.LinkStart,
		})
	}
	return rows
}

func writeSchedule(w io.Writer, rows []scheduleRow) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CUE\tID\tSTART\tEND\tDURATION\tTITLE")
	for _, r := range rows {
		start := r.TimeStart
		if r.Linked {
			start += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Cue, r.ID, start, r.TimeEnd, r.Duration, r.Title)
	}
	tw.Flush()
}

// sortedFields yields custom field keys in order with the entries using them.
func sortedFields(m map[string][]string) iter.Seq2[string, []string] {
	return func(yield func(string, []string) bool) {
		for _, k := range slices.Sorted(maps.Keys(m)) {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}
