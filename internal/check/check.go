// Package check implements the precondition assertions used across the
// module. In the default (debug) build a failed check logs the failing
// expression with its source location and panics. Building with
// -tags arena_release compiles every check out.
package check

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// SetLogger replaces the logger failed checks are reported to.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	logger = l
}

// Failure is the panic value raised by a failed check.
type Failure struct {
	Expr string
	File string
	Line int
}

func (f *Failure) Error() string {
	return fmt.Sprintf("check failed: %s (%s:%d)", f.Expr, f.File, f.Line)
}

func fail(expr string, args ...any) {
	if len(args) > 0 {
		expr = fmt.Sprintf(expr, args...)
	}
	// skip fail and the exported wrapper
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file, line = "unknown", 0
	}
	f := &Failure{Expr: expr, File: filepath.Base(file), Line: line}
	logger.WithField("action", "check").
		WithField("file", f.File).
		WithField("line", f.Line).
		Error(f.Error())
	panic(f)
}
