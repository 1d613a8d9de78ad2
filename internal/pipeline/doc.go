// Package pipeline runs one incremental ETL cycle as an ordered list of
// steps.
//
// Each Step receives the shared run State and may add to it. Steps record
// recoverable per-record failures as outcomes in the run report and only
// return an error for failures that must abort the run, such as an output
// directory that cannot be created or a canceled context.
//
// The default pipeline runs: layout, fetch, filter, spam guard, process,
// merge and publish.
package pipeline
