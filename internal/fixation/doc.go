// Package fixation defines the contract with the external fixation classifier
// and aggregates its output across a batch.
//
// Classifier implementations receive a canonical gaze.Series plus Options and
// return fixation events, a per-sample trace, and the parameters they ran with.
// Options is passed through to the classifier unmodified; merge thresholds and
// other algorithm knobs are never interpreted here.
//
// Table is the append-only, cross-file result set. It is created by the batch
// runner, appended to once per successfully classified file, and exported once
// as a delimited file or workbook with a fixed column order.
package fixation
