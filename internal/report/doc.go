// Package report renders run reports.
//
// Three writers are provided:
//   - TextWriter: human-readable summary for terminal display
//   - JSONWriter: structured output for scripts and CI
//   - MarkdownWriter: a document suitable for job summaries
//
// Writers implement the Writer interface and can be selected at runtime
// with New.
package report
