// Package i2mc runs an external I2MC fixation classifier as a subprocess.
//
// The client stages the canonical gaze series and the classifier options in
// a scratch directory, invokes the configured command, and decodes the
// fixation arrays, per-sample trace columns, and effective parameters it
// writes back. Command execution sits behind the Executor interface so tests
// can substitute canned output without a real classifier installed.
package i2mc
