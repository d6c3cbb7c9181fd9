package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with the stack trace.
// It must be deferred directly:
//
//	defer observability.RecoverPanic(logger, "snapshot refresh")
//
// The panic is not re-raised.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logPanic(logger, context, r)
	}
}

// PanicError converts a recovered value into an error and logs it; nil stays nil
func PanicError(logger *Logger, context string, r interface{}) error {
	if r == nil {
		return nil
	}
	logPanic(logger, context, r)
	return fmt.Errorf("panic in %s: %v", context, r)
}

func logPanic(logger *Logger, context string, r interface{}) {
	logger.WithField("panic", fmt.Sprint(r)).
		WithField("stack", string(debug.Stack())).
		WithField("context", context).
		Error("PANIC recovered")
}
