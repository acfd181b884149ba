// Package testutil provides shared testing infrastructure: a silenced
// logger, a fake Ollama server, a deterministic embedder and a PostgreSQL
// test container with the schema applied.
package testutil

import "log/slog"

// DiscardLogger returns a slog.Logger that discards all output. For
// components that take log.Logger (an alias of *slog.Logger), log.NewNop()
// returns the same thing.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
