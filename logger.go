package duplexrpc

import (
	"io"
	"log/slog"
)

// NopLogger returns a logger that discards all output. Engines and bridges
// use it when no logger is supplied.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
