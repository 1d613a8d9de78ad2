package report

import (
	"errors"
	"io"

	"github.com/openblacklist/blacklist-etl/internal/model"
)

// Writer outputs a run report.
type Writer interface {
	// Write renders the report to the configured destination and returns
	// the number of bytes written.
	Write(report *model.RunReport) (int, error)
}

// Format selects a Writer implementation.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ErrUnknownFormat is returned by New for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// New returns the writer for format. verbose only affects the text writer.
func New(format Format, output io.Writer, verbose bool) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewTextWriter(output, WithVerbose(verbose)), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, ErrUnknownFormat
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText returns a short description of how the run ended.
func statusText(r *model.RunReport) string {
	switch r.Status() {
	case model.RunFailed:
		return "FAILED - " + errorText(r)
	case model.RunPartial:
		return "Partial (see outcomes)"
	default:
		return "Complete"
	}
}

func errorText(r *model.RunReport) string {
	if r.ErrorMessage != "" {
		return r.ErrorMessage
	}
	if r.Error != nil {
		return r.Error.Error()
	}
	return ""
}

// problemOutcomes returns the outcomes that need attention.
func problemOutcomes(r *model.RunReport) []model.Outcome {
	var out []model.Outcome
	for _, o := range r.Outcomes {
		if o.Status == model.OutcomeSkipped || o.Status == model.OutcomeSpamCloseFailed {
			out = append(out, o)
		}
	}
	return out
}
