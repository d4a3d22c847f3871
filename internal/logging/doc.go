// Package logging provides module-scoped slog loggers with per-module
// levels, optional systemd journal output, and an in-memory ring buffer
// that backs the control API's log endpoint.
package logging
