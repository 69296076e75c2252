// Package perr provides the error taxonomy and propagation helpers
// used throughout async and unified (spec.md §7): a small Kind
// classification, a wire-error carrying *Error type, and chain-walking
// helpers in the style of rclone's lib/errors.Walk and fs/fserrors
// retry/fatal wrapping.
package perr

import (
	"errors"
	"fmt"
)

// Error is the concrete error type produced by this module. Kind gives
// the coarse classification; WireText carries device/variant-side text
// for the KindDevice catch-all; the wrapped cause (if any) is reachable
// via Unwrap.
type Error struct {
	Kind     Kind
	Message  string
	WireText string
	cause    error
	noRetry  bool
	fatal    bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.WireText != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.WireText)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.cause)
	}
	return msg
}

// Unwrap exposes the wrapped cause, if any, to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a new *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and a message to an existing cause.
func Wrap(cause error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Device builds the catch-all device/variant error carrying wire-side
// text, per spec.md §7.
func Device(wireText string) *Error {
	return &Error{Kind: KindDevice, WireText: wireText}
}

// Is reports whether err is an *Error of the given kind, anywhere in
// its cause chain.
func Is(err error, kind Kind) bool {
	found := false
	Walk(err, func(e error) bool {
		if pe, ok := e.(*Error); ok && pe.Kind == kind {
			found = true
			return true
		}
		return false
	})
	return found
}

// causer matches the long-standing github.com/pkg/errors convention
// also recognised by lib/errors.Walk.
type causer interface {
	Cause() error
}

// Walk calls fn on err and then on each cause in its unwrap/cause
// chain (preferring Cause() where present, falling back to Unwrap(),
// then to a reflect-free stop), stopping early if fn returns true.
// Mirrors lib/errors.Walk's contract.
func Walk(err error, fn func(error) bool) {
	for err != nil {
		if fn(err) {
			return
		}
		if c, ok := err.(causer); ok {
			err = c.Cause()
			continue
		}
		err = errors.Unwrap(err)
	}
}

// MarkNoRetry marks err (if it is, or wraps, an *Error) as one that
// should not be retried by a caller sitting in a retry loop.
func MarkNoRetry(err error) error {
	if pe := asError(err); pe != nil {
		pe.noRetry = true
	}
	return err
}

// IsNoRetry reports whether err was marked with MarkNoRetry anywhere
// in its chain.
func IsNoRetry(err error) bool {
	result := false
	Walk(err, func(e error) bool {
		if pe, ok := e.(*Error); ok && pe.noRetry {
			result = true
			return true
		}
		return false
	})
	return result
}

// MarkFatal marks err as fatal: a condition from which no async
// operation kind should attempt recovery.
func MarkFatal(err error) error {
	if pe := asError(err); pe != nil {
		pe.fatal = true
	}
	return err
}

// IsFatal reports whether err was marked with MarkFatal anywhere in
// its chain.
func IsFatal(err error) bool {
	result := false
	Walk(err, func(e error) bool {
		if pe, ok := e.(*Error); ok && pe.fatal {
			result = true
			return true
		}
		return false
	})
	return result
}

func asError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}
