// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package diag is the one process-wide diagnostic channel the effect
// runtime writes to: dropped-callback reports (§7.5 of the design), and
// cancellation finalizer errors beyond the first (§4.2). It is grounded in
// the teacher's use of github.com/joeycumines/logiface with the stumpy
// JSON backend, replacing the teacher's bare `log.Println` diagnostic line
// (e.g. eventloop's Promisify panic path) with a structured event.
package diag

import (
	"os"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var current atomic.Pointer[logiface.Logger[*stumpy.Event]]

func init() {
	current.Store(newDefault())
}

func newDefault() *logiface.Logger[*stumpy.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
	)
}

// Logger returns the current process-wide diagnostic logger.
func Logger() *logiface.Logger[*stumpy.Event] {
	return current.Load()
}

// SetLogger replaces the process-wide diagnostic logger. Passing nil
// restores the default (structured JSON lines on os.Stderr).
func SetLogger(l *logiface.Logger[*stumpy.Event]) {
	if l == nil {
		l = newDefault()
	}
	current.Store(l)
}
