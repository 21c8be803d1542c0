// Package config loads, normalizes, and validates gazefix configuration data.
//
// It supplies repository defaults (the tracker geometry and classifier
// thresholds of a 1920x1080, 300 Hz setup), expands user paths (including
// tilde shortcuts), reads TOML files, and honours GAZEFIX_* environment
// overrides. The Config type centralizes every knob the batch runner and CLI
// need and derives the option sets handed to the cleaning, loading, and
// classification stages.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
