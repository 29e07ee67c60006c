package observability

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoverPanic recovers from a panic and logs it with the stack. It must be
// called directly in a defer statement:
//
//	go func() {
//	    defer observability.RecoverPanic(log, "debounced resync")
//	    ...
//	}()
//
// The panic is not re-raised.
func RecoverPanic(logger *logrus.Logger, context string) {
	if r := recover(); r != nil {
		logger.WithFields(logrus.Fields{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": context,
		}).Error("PANIC recovered")
	}
}
