// Package gaze turns raw binocular tracker samples into the validity-aware
// time series handed to fixation classification.
//
// Cleaning is a pure per-eye predicate: a sample is missing when either
// coordinate lies more than one screen outside the display or the tracker
// reports a validity code above 1. Missing eyes are replaced by the configured
// sentinel pair so downstream code never sees an X without its Y.
//
// Channel reconciliation resolves which traces exist for a recording into one
// of a closed set of layouts (left only, right only, both, average only). The
// resolved Layout travels with the Series so classification and plotting agree
// on channel order and color.
package gaze
