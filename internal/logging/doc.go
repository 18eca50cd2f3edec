// Package logging wraps log/slog with the attribute vocabulary and
// handlers shared by the daemon, CLI, and pipeline stages.
package logging
