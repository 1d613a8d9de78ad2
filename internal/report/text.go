package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/openblacklist/blacklist-etl/internal/model"
)

// TextWriter outputs human-readable run summaries.
type TextWriter struct {
	baseWriter

	// verbose lists every outcome, not only the problems.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose lists every outcome in the output.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *TextWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeCounts(&sb, report)
	w.writeOutcomes(&sb, report)
	w.writeArtifacts(&sb, report)

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *TextWriter) writeHeader(sb *strings.Builder, r *model.RunReport) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        BLACKLIST ETL RUN\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run ID:    %s\n", r.RunID)
	fmt.Fprintf(sb, "Started:   %s\n", r.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:  %s\n", r.Duration().Round(time.Millisecond))
	if !r.Since.IsZero() {
		fmt.Fprintf(sb, "Since:     %s (%s)\n",
			r.Since.Format(time.RFC3339),
			humanize.RelTime(r.Since, r.StartedAt, "before start", "after start"))
	}
	fmt.Fprintf(sb, "Status:    %s\n\n", statusText(r))
}

func (w *TextWriter) writeCounts(sb *strings.Builder, r *model.RunReport) {
	section(sb, "COUNTS")
	fmt.Fprintf(sb, "  Fetched:      %s\n", humanize.Comma(int64(r.Fetched)))
	fmt.Fprintf(sb, "  Qualified:    %s\n", humanize.Comma(int64(r.Qualified)))
	fmt.Fprintf(sb, "  Appeals:      %s\n", humanize.Comma(int64(r.Appeals)))
	fmt.Fprintf(sb, "  Processed:    %s\n", humanize.Comma(int64(r.CountOutcomes(model.OutcomeProcessed))))
	fmt.Fprintf(sb, "  Skipped:      %s\n", humanize.Comma(int64(r.CountOutcomes(model.OutcomeSkipped))))
	fmt.Fprintf(sb, "  Spam closed:  %s\n", humanize.Comma(int64(r.CountOutcomes(model.OutcomeSpamClosed))))
	fmt.Fprintf(sb, "  Total:        %s records\n\n", humanize.Comma(int64(r.TotalCount)))
}

func (w *TextWriter) writeOutcomes(sb *strings.Builder, r *model.RunReport) {
	outcomes := problemOutcomes(r)
	if w.verbose {
		outcomes = r.Outcomes
	}
	if len(outcomes) == 0 {
		return
	}

	section(sb, "OUTCOMES")
	for _, o := range outcomes {
		fmt.Fprintf(sb, "  #%-6d %-11s %s", o.ID, o.Stage, o.Status)
		if o.Reason != "" {
			fmt.Fprintf(sb, ": %s", o.Reason)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeArtifacts(sb *strings.Builder, r *model.RunReport) {
	failed := r.FailedArtifacts()
	if len(r.Artifacts) == 0 {
		return
	}

	section(sb, "ARTIFACTS")
	fmt.Fprintf(sb, "  Written: %s of %s\n",
		humanize.Comma(int64(len(r.Artifacts)-len(failed))),
		humanize.Comma(int64(len(r.Artifacts))))
	for _, a := range failed {
		fmt.Fprintf(sb, "  [!] %s (%s): %s\n", a.Name, a.Path, a.Error)
	}
	sb.WriteString("\n")
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}
