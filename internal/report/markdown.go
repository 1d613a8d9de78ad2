package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/openblacklist/blacklist-etl/internal/model"
)

// MarkdownWriter outputs run reports in Markdown format, for example as a
// CI job summary.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeCounts(md, report)
	w.writeProblems(md, report)
	w.writeArtifacts(md, report)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, r *model.RunReport) {
	md.H1("Blacklist ETL Run")
	md.PlainText("")

	since := "-"
	if !r.Since.IsZero() {
		since = r.Since.Format(time.RFC3339)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + r.RunID + "`"},
			{"Started", r.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", r.Duration().Round(time.Millisecond).String()},
			{"Since", since},
			{"Status", w.statusBadge(r)},
		},
	})
	md.PlainText("")

	switch r.Status() {
	case model.RunFailed:
		md.Cautionf("The run stopped: %s", errorText(r))
	case model.RunPartial:
		md.Warningf("%d record(s) need attention and %d artifact(s) failed to write.",
			len(problemOutcomes(r)), len(r.FailedArtifacts()))
	default:
		md.Tip("All records and artifacts were handled.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) statusBadge(r *model.RunReport) string {
	switch r.Status() {
	case model.RunFailed:
		return "❌ Failed"
	case model.RunPartial:
		return "⚠️ Partial"
	default:
		return "✅ Complete"
	}
}

func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, r *model.RunReport) {
	md.H2("Counts")
	md.PlainText("")

	processed := r.CountOutcomes(model.OutcomeProcessed)
	skipped := r.CountOutcomes(model.OutcomeSkipped)
	closed := r.CountOutcomes(model.OutcomeSpamClosed)

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Fetched", strconv.Itoa(r.Fetched)},
			{"Qualified", strconv.Itoa(r.Qualified)},
			{"Appeals", strconv.Itoa(r.Appeals)},
			{"Processed", strconv.Itoa(processed)},
			{"Skipped", strconv.Itoa(skipped)},
			{"Spam closed", strconv.Itoa(closed)},
			{"**Total records**", "**" + strconv.Itoa(r.TotalCount) + "**"},
		},
	})
	md.PlainText("")

	if processed+skipped+closed == 0 {
		return
	}
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Outcomes"),
		piechart.WithShowData(true),
	)
	if processed > 0 {
		chart.LabelAndIntValue("Processed", uint64(processed)) //nolint:gosec // counts are non-negative
	}
	if skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(skipped)) //nolint:gosec // counts are non-negative
	}
	if closed > 0 {
		chart.LabelAndIntValue("Spam closed", uint64(closed)) //nolint:gosec // counts are non-negative
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeProblems(md *markdown.Markdown, r *model.RunReport) {
	problems := problemOutcomes(r)
	if len(problems) == 0 {
		return
	}

	md.H2("Needs Attention")
	md.PlainText("")

	rows := make([][]string, len(problems))
	for i, o := range problems {
		reason := o.Reason
		if reason == "" {
			reason = "-"
		}
		rows[i] = []string{"#" + strconv.Itoa(o.ID), string(o.Stage), string(o.Status), truncateString(reason, 80)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Issue", "Stage", "Status", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeArtifacts(md *markdown.Markdown, r *model.RunReport) {
	failed := r.FailedArtifacts()
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Artifacts")
	md.PlainText("")
	for _, a := range failed {
		md.Details(a.Name, a.Path+": "+a.Error)
	}
	md.PlainText("")
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
