// Package results stores the history of batch runs in SQLite.
//
// Each run records the outcome of every recording it visited (processed,
// empty, classification failure, no fixations) and a copy of the aggregated
// fixation table, so earlier runs can be inspected from the CLI after the
// output directory has been overwritten. The schema is created from embedded
// migrations on open.
package results
