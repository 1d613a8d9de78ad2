// Package dataset owns the persisted JSON dataset and the in-memory record
// set built from it.
//
// Store knows the on-disk layout and reads and writes whole files. Set is
// the id keyed collection a run works on. Deriver turns tracker issues into
// reports and re-derives persisted reports from their raw body. Merger
// combines freshly processed reports with the persisted set and re-derives
// every other record so that parser changes apply to the whole dataset.
// A run therefore costs time proportional to the whole dataset, not to the
// number of changed issues.
package dataset
