// Package model defines the data structures shared across the ETL pipeline.
//
// This package contains the following main types:
//   - Issue and Event: the tracker's view of a submission and its timeline
//   - Report: the published, denormalized record keyed by issue number
//   - SearchEntry, IndexEntry, AuditStats, DatasetMeta: projections of the
//     report set written by the publisher
//   - RunReport and Outcome: the tagged result of one pipeline run
//
// Report is the only durable entity; every other output type is regenerated
// from the report set on each run.
package model
