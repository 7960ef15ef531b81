// Package logging builds slog loggers with console and JSON handlers plus
// small helpers for standardized attribute keys used across framecast.
package logging
