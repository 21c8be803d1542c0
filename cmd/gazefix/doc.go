// Package main hosts the gazefix CLI entrypoint and command graph.
//
// The Cobra-based command tree runs fixation batches over a data folder,
// inspects single recordings, browses stored run history, and scaffolds
// configuration. It centralizes configuration resolution and logging setup so
// subcommands only translate flags into calls on the internal packages.
package main
