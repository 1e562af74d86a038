// Package logging builds the application's slog loggers: a pretty console
// handler that prefixes messages with the emitting component and renders
// attributes as k=v pairs, and a JSON handler for machine consumption. It
// also provides attribute helpers and the standardized field names used
// across the pipeline.
package logging
