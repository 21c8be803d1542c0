// Package recording discovers recording files below a data folder and loads
// them into raw gaze samples.
//
// Every directory under the data root is one participant; every file with a
// recognized extension inside it is one trial. Loaders locate the timestamp,
// per-eye position, and validity columns by header name, scale normalized
// coordinates to pixels when asked, and report which channels the file carries.
package recording
