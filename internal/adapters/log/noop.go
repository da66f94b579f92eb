package log

import (
	pkglog "github.com/lattice-sci/frameark/pkg/log"
)

// NoopLogger discards every log message. Aliased from pkg/log so test
// code across internal/* gets the same type embedders see through the
// public API.
type NoopLogger = pkglog.NoopLogger

// NewNoopLogger creates a no-op logger.
func NewNoopLogger() *NoopLogger {
	return pkglog.NewNoopLogger()
}
