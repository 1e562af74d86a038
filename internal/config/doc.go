// Package config loads, normalizes, and validates Sublift configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY and FFMPEG_PATH. The Config type centralizes every knob the
// CLI and pipeline need, so tool locations, output directories, and provider
// credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
