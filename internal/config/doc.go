// Package config loads, normalizes, and validates worklist configuration data.
//
// It supplies repository defaults, reads TOML files, layers WORKLIST_*
// environment overrides on top, and expands user paths (including tilde
// shortcuts). The Config type centralizes every knob the CLI and the store
// need so the database file, lock file and log directory are resolved once
// and passed explicitly to constructors.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
