package report

import (
	"encoding/json"
	"io"

	"github.com/openblacklist/blacklist-etl/internal/model"
)

// JSONWriter outputs run reports as JSON.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// jsonReport adds derived fields to the serialized run report.
type jsonReport struct {
	*model.RunReport
	Status     model.RunStatus `json:"status"`
	DurationMS int64           `json:"duration_ms"`
}

// Write outputs the report in JSON format, followed by a newline.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	v := jsonReport{
		RunReport:  report,
		Status:     report.Status(),
		DurationMS: report.Duration().Milliseconds(),
	}
	if v.ErrorMessage == "" && report.Error != nil {
		cp := *report
		cp.ErrorMessage = report.Error.Error()
		v.RunReport = &cp
	}

	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
