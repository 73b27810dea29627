// Package report prints human-readable run summaries to the console.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/starford/schemafill/internal/backfill"
	"github.com/starford/schemafill/internal/journal"
	"github.com/starford/schemafill/internal/schemaservice"
)

// Printer writes colored summaries to w. Colors follow color.NoColor,
// which is set automatically when stdout is not a terminal.
type Printer struct {
	w io.Writer

	ok   *color.Color
	warn *color.Color
	bad  *color.Color
	dim  *color.Color
	bold *color.Color
}

// New creates a Printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{
		w:    w,
		ok:   color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		bad:  color.New(color.FgRed, color.Bold),
		dim:  color.New(color.Faint),
		bold: color.New(color.Bold),
	}
}

// Backfill prints one model outcome.
func (p *Printer) Backfill(res *backfill.Result, err error) {
	name := p.bold.Sprint(res.Model)
	switch res.Status {
	case backfill.StatusSkipped:
		fmt.Fprintf(p.w, "%s %s %s\n", p.dim.Sprint("-"), name, p.dim.Sprint("no defaults to apply"))
	case backfill.StatusNotFound:
		fmt.Fprintf(p.w, "%s %s %s\n", p.warn.Sprint("?"), name, p.warn.Sprint("no matching collection"))
	case backfill.StatusFailed:
		msg := "failed"
		if err != nil {
			msg = err.Error()
		}
		fmt.Fprintf(p.w, "%s %s %s\n", p.bad.Sprint("x"), name, p.bad.Sprint(msg))
	default:
		verb := "modified"
		if res.DryRun {
			verb = "would modify"
		}
		fmt.Fprintf(p.w, "%s %s → %s [%s] %s %d of %d\n",
			p.ok.Sprint("✓"), name, res.Collection, strings.Join(res.Fields, ", "),
			verb, res.Modified, res.Scanned)
	}
}

// Written prints the outcome of a convert run.
func (p *Printer) Written(dir string, res *schemaservice.WriteResult) {
	for _, f := range res.Written {
		fmt.Fprintf(p.w, "%s %s\n", p.ok.Sprint("wrote"), f)
	}
	fmt.Fprintf(p.w, "%s %d written, %d unchanged in %s\n",
		p.bold.Sprint("convert:"), len(res.Written), len(res.Unchanged), dir)
}

// Runs prints journaled runs, newest first.
func (p *Printer) Runs(runs []journal.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(p.w, p.dim.Sprint("no runs recorded"))
		return
	}
	for _, r := range runs {
		status := string(r.Status)
		switch r.Status {
		case backfill.StatusCompleted:
			status = p.ok.Sprint(status)
		case backfill.StatusNotFound:
			status = p.warn.Sprint(status)
		case backfill.StatusFailed:
			status = p.bad.Sprint(status)
		default:
			status = p.dim.Sprint(status)
		}
		dry := ""
		if r.DryRun {
			dry = p.dim.Sprint(" (dry run)")
		}
		fmt.Fprintf(p.w, "%s  %-20s %-10s %-24s modified %d of %d%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Model, status, r.Collection,
			r.Modified, r.Scanned, dry)
		if r.Error != "" {
			fmt.Fprintf(p.w, "    %s\n", p.bad.Sprint(r.Error))
		}
	}
}

// Totals prints the aggregate over a backfill run.
func (p *Printer) Totals(results []*backfill.Result) {
	var modified, scanned int64
	counts := map[backfill.Status]int{}
	for _, r := range results {
		modified += r.Modified
		scanned += r.Scanned
		counts[r.Status]++
	}
	fmt.Fprintf(p.w, "%s %d models: %d completed, %d skipped, %d not found, %d failed; %d of %d records modified\n",
		p.bold.Sprint("backfill:"), len(results),
		counts[backfill.StatusCompleted], counts[backfill.StatusSkipped],
		counts[backfill.StatusNotFound], counts[backfill.StatusFailed],
		modified, scanned)
}
