// Package logging wires log/slog with the console and JSON handlers used by
// the slidecast CLI, plus small attribute helpers shared across components.
package logging
