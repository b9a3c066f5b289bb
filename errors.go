// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

import (
	"errors"
	"fmt"
	"runtime"
)

// Sentinel and structural errors, styled after the teacher's errors.go
// (sentinel vars plus a small struct hierarchy with Unwrap support).
var (
	// ErrIllegalState is raised for operations that violate a one-way state
	// machine invariant, e.g. completing an already-Set Deferred, or
	// running an Effect that stays suspended at an Async node through
	// RunSync.
	ErrIllegalState = errors.New("effect: illegal state")

	// ErrAsyncInRunSync is returned (wrapped with ErrIllegalState) when
	// RunSync's interpretation is still suspended at an Async node when
	// the run loop returns control.
	ErrAsyncInRunSync = fmt.Errorf("effect: RunSync encountered an Async node: %w", ErrIllegalState)

	// ErrDeferredAlreadyComplete is returned (wrapped with ErrIllegalState)
	// by Deferred.Complete when the cell is already set.
	ErrDeferredAlreadyComplete = fmt.Errorf("effect: deferred already completed: %w", ErrIllegalState)

	// ErrFiberCancelled is the join result of a Fiber whose interpretation
	// never reached a terminal value because Cancel() ran first.
	ErrFiberCancelled = errors.New("effect: fiber cancelled")

	// ErrEmptyRace is returned by Race when given no effects to race.
	ErrEmptyRace = errors.New("effect: race given no effects")
)

// PanicError wraps a panic value recovered from a Delay/Suspend thunk, a
// continuation, or a finalizer. It is a user error (handler-catchable)
// unless its Value is itself a FatalError or a runtime.Error - see IsFatal.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("effect: panic recovered: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error,
// enabling errors.Is/errors.As through the cause chain.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// FatalError marks a cause as non-recoverable: the run loop's raise path
// bypasses handler frames entirely for a fatal error and surfaces it
// directly to the terminal callback. Wrap a cause with FatalError to opt
// it into that behavior.
type FatalError struct {
	Cause error
}

// Error implements the error interface.
func (e FatalError) Error() string {
	if e.Cause == nil {
		return "effect: fatal error"
	}
	return "effect: fatal error: " + e.Cause.Error()
}

// Unwrap returns the wrapped cause.
func (e FatalError) Unwrap() error { return e.Cause }

// IsFatal is the fatal-error predicate (§7, error kind 2, and SPEC_FULL.md's
// Open Question decision). It is a package variable so callers may swap in
// a project-specific predicate; the default matches a FatalError anywhere
// in the cause chain, or a runtime.Error (e.g. a recovered nil-pointer
// dereference or out-of-bounds index).
var IsFatal = defaultIsFatal

func defaultIsFatal(err error) bool {
	if err == nil {
		return false
	}
	var fatal FatalError
	if errors.As(err, &fatal) {
		return true
	}
	var re runtime.Error
	return errors.As(err, &re)
}

// toPanicError converts a recovered panic value into an error, passing an
// already-error value through unwrapped (so errors.Is/As work without an
// extra layer of PanicError wrapping).
func toPanicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return PanicError{Value: r}
}
