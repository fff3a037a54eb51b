package utils

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// PanicError is a recovered panic. Retrieval branches return it in place of
// their result so one misbehaving query cannot take down a request.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: string(debug.Stack())}
}

// RecoverAsError turns a panic into an error assigned to *errPtr. Use it as
// the first deferred call of a function with a named error result.
func RecoverAsError(errPtr *error) {
	if r := recover(); r != nil {
		perr := newPanicError(r)
		slog.Error("recovered from panic", "panic", r, "stack", perr.Stack)
		*errPtr = perr
	}
}

// RecoverWithCallback hands a recovered panic to callback.
func RecoverWithCallback(callback func(error)) {
	if r := recover(); r != nil {
		perr := newPanicError(r)
		slog.Error("recovered from panic", "panic", r, "stack", perr.Stack)
		if callback != nil {
			callback(perr)
		}
	}
}
