package log

import (
	pkglog "github.com/lattice-sci/frameark/pkg/log"
)

// NewZerolog constructs the default ports.Logger implementation, backed
// by zerolog console output on stderr.
func NewZerolog() *pkglog.ZerologAdapter {
	return pkglog.NewZerologAdapter()
}
