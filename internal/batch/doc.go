// Package batch drives one pass over a data folder: discover recordings, clean
// and reconcile each one, hand the series to the fixation classifier, and
// collect the results into a single fixation table.
//
// A Runner owns the table for the lifetime of a run. Per-recording problems
// (empty files, parse failures, classifier errors, zero fixations) are logged
// and recorded as outcomes without stopping the batch; only failures to lock
// the output directory or write the final table abort a run.
package batch
