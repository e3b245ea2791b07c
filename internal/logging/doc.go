// Package logging builds slog loggers for the daemon and CLI, and carries
// standardized field names plus context-derived attributes so every stage
// logs job, content, and correlation identifiers consistently.
package logging
