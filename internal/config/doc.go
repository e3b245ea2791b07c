// Package config loads, normalizes, and validates analyzer configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and overlays secrets from the environment
// such as APIFY_API_TOKEN and LLM_API_KEY. The Config type centralizes every
// knob the daemon and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
