// Package logging builds the slog loggers used across outpost and provides
// small attribute helpers so call sites stay consistent.
package logging
