// Package config loads, normalizes, and validates roasterd configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts),
// reads TOML files and applies COFFEEROASTER_* environment overrides for the
// storage, blob and mail secrets. The Config type centralizes every knob the
// daemon and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
