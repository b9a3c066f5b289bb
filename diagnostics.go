// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/kory33/goeffect/internal/diag"
)

// SetDiagnosticLogger replaces the process-wide diagnostic logger used for
// dropped-callback reports (§7.5) and non-primary cancellation finalizer
// errors (§4.2). Passing nil restores the default, which writes structured
// JSON lines to os.Stderr.
func SetDiagnosticLogger(l *logiface.Logger[*stumpy.Event]) {
	diag.SetLogger(l)
}

// diagLogger is the package-internal accessor used by token.go, restart.go,
// and entrypoints.go.
func diagLogger() *logiface.Logger[*stumpy.Event] {
	return diag.Logger()
}
