// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

// Result is the settled outcome of an asynchronous boundary: either a value
// (Err == nil) or a failure (Err != nil, Value is meaningless). It mirrors
// the teacher's eventloop.Result = any convention, but carries an explicit
// success/failure discriminant because, unlike a Promise, an Effect's
// continuation must distinguish "value is nil" from "no value, only error".
type Result struct {
	Value any
	Err   error
}

// Ok constructs a successful Result.
func Ok(v any) Result { return Result{Value: v} }

// Failed constructs a failed Result.
func Failed(err error) Result { return Result{Err: err} }

// IsOk reports whether the Result completed without error.
func (r Result) IsOk() bool { return r.Err == nil }
