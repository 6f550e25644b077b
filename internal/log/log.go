// Package log is a minimal, swappable logging seam for the rest of the
// module. The teacher this repo is adapted from never reaches for a
// structured logging library and logs directly with fmt; this package keeps
// that idiom but lets embedders redirect it (mirrors the
// Logger/WithLogger seam used by supervisor-style packages in the wild).
package log

import (
	"fmt"
	"os"
)

// Logger is the narrow interface the rest of the module logs through.
type Logger interface {
	Printf(format string, args ...interface{})
}

type stderrLogger struct{}

func (stderrLogger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

var current Logger = stderrLogger{}

// SetLogger redirects all subsequent log output. Passing nil restores the
// default stderr logger.
func SetLogger(l Logger) {
	if l == nil {
		current = stderrLogger{}
		return
	}
	current = l
}

// Printf logs a formatted line through the currently installed Logger.
func Printf(format string, args ...interface{}) {
	current.Printf(format, args...)
}
