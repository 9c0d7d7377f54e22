package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/internal/app/service"
	"github.com/fatih/color"
)

// maxListedErrors caps per-record error lines in summaries.
const maxListedErrors = 20

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	failColor    = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.Faint)
)

// Printer writes colorized progress and summaries for the command line tools.
type Printer struct {
	out   io.Writer
	phase string
}

func NewPrinter() *Printer {
	return &Printer{out: color.Output}
}

// NewPlainPrinter writes to out without color.
func NewPlainPrinter(out io.Writer) *Printer {
	color.NoColor = true
	return &Printer{out: out}
}

func (p *Printer) Header(title string) {
	headerColor.Fprintln(p.out, "\n"+title)
	headerColor.Fprintln(p.out, strings.Repeat("=", len(title)))
}

func (p *Printer) Info(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "  "+format+"\n", args...)
}

func (p *Printer) Success(format string, args ...interface{}) {
	successColor.Fprintf(p.out, "✓ "+format+"\n", args...)
}

func (p *Printer) Warn(format string, args ...interface{}) {
	warnColor.Fprintf(p.out, "! "+format+"\n", args...)
}

func (p *Printer) Fail(format string, args ...interface{}) {
	failColor.Fprintf(p.out, "✗ "+format+"\n", args...)
}

// Progress returns a callback that rewrites one status line.
func (p *Printer) Progress(label string) func(current, total int, name string) {
	return func(current, total int, name string) {
		dimColor.Fprintf(p.out, "\r  %s %d/%d %-40.40s", label, current, total, name)
		if current == total {
			fmt.Fprintln(p.out)
		}
	}
}

// Publish renders sync progress events: one line per phase, then a
// rewriting counter while items are processed.
func (p *Printer) Publish(event service.ProgressEvent) {
	if event.Phase != p.phase {
		p.phase = event.Phase
		if event.Current == 0 && !event.Done {
			p.Info("%s...", event.Phase)
		}
	}
	if event.Error != "" {
		p.Fail("%s", event.Error)
		return
	}
	if event.Total > 0 && event.Current > 0 {
		p.Progress(event.Phase)(event.Current, event.Total, event.Name)
	}
}

// Table prints rows aligned under headers.
func (p *Printer) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	seps := make([]string, len(headers))
	for i, h := range headers {
		seps[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(seps, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

// Errors lists at most maxListedErrors messages.
func (p *Printer) Errors(errs []string) {
	if len(errs) == 0 {
		return
	}
	warnColor.Fprintf(p.out, "\nErrors (%d):\n", len(errs))
	for i, e := range errs {
		if i == maxListedErrors {
			dimColor.Fprintf(p.out, "  ... and %d more\n", len(errs)-maxListedErrors)
			break
		}
		fmt.Fprintf(p.out, "  - %s\n", e)
	}
}

func (p *Printer) ImportSummary(summary *service.ImportSummary) {
	p.Header("Import summary")
	rows := [][]string{
		{"Discovered", itoa(summary.Discovered)},
		{"Transformed", itoa(summary.Transformed)},
	}
	if r := summary.Import; r != nil {
		rows = append(rows,
			[]string{"Created", itoa(r.Created)},
			[]string{"Updated", itoa(r.Updated)},
			[]string{"Unchanged", itoa(r.Unchanged)},
			[]string{"Skipped", itoa(r.Skipped)},
			[]string{"Failed", itoa(r.Failed)},
		)
	}
	if summary.Dedup != nil {
		rows = append(rows, []string{"Duplicates removed", itoa(summary.Dedup.Removed)})
	}
	p.Table([]string{"Metric", "Count"}, rows)
	p.Usage(summary.Usage)
	if summary.ReportURL != "" {
		p.Info("Report: %s", summary.ReportURL)
	}
	p.Info("Duration: %s", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second))
	p.Errors(summary.Errors)
}

func (p *Printer) RefreshSummary(run *service.RefreshRun) {
	p.Header("Refresh summary")
	if s := run.Summary; s != nil {
		p.Table([]string{"Metric", "Count"}, [][]string{
			{"Total", itoa(s.Total)},
			{"Updated", itoa(s.Updated)},
			{"Skipped", itoa(s.Skipped)},
			{"Protected", itoa(s.Protected)},
			{"No source id", itoa(s.NoSourceID)},
			{"Failed", itoa(s.Failed)},
		})
		p.Info("Duration: %s", s.FinishedAt.Sub(s.StartedAt).Round(time.Second))
	}
	if run.ReportURL != "" {
		p.Info("Report: %s", run.ReportURL)
	}
	p.Errors(run.Errors)
}

func (p *Printer) Usage(stats *model.UsageStats) {
	if stats == nil {
		return
	}
	line := fmt.Sprintf("API usage %s: %d/%d (%.1f%%), %d remaining",
		stats.Date, stats.RequestCount, stats.DailyLimit, stats.PercentUsed, stats.Remaining)
	if stats.PercentUsed >= 80 {
		p.Warn("%s", line)
		return
	}
	p.Info("%s", line)
}

// Exit codes returned by the command run functions.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Failed prints msg as a failure and returns ExitFailure.
func (p *Printer) Failed(format string, args ...interface{}) int {
	p.Fail(format, args...)
	return ExitFailure
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
