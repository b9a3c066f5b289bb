// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

// RunSync interprets e on the calling goroutine and never blocks: if the
// interpretation has not settled by the time the run loop returns control
// (it is suspended at an Async node), RunSync fails with ErrAsyncInRunSync
// rather than blocking or hanging (§6). Reaching an Async node is not by
// itself a failure: when the producer resumes before the run loop returns
// control, the run continues and RunSync returns its outcome.
func RunSync(e *Effect) (any, error) { return defaultRuntime.RunSync(e) }

// RunSync is the Runtime method backing the package-level RunSync.
func (r *Runtime) RunSync(e *Effect) (any, error) {
	var (
		completed bool
		result    Result
	)
	token := NewCancellationToken()
	startLoop(r.cfg, e, token, func(res Result) {
		completed = true
		result = res
	})
	if !completed {
		return nil, ErrAsyncInRunSync
	}
	return result.Value, result.Err
}

// RunAsync starts interpreting e, invoking callback exactly once when it
// settles - synchronously, if e never suspends, or later (possibly on
// another goroutine) otherwise. RunAsync never blocks the calling
// goroutine past the point where e first suspends.
func RunAsync(e *Effect, callback func(v any, err error)) { defaultRuntime.RunAsync(e, callback) }

// RunAsync is the Runtime method backing the package-level RunAsync.
func (r *Runtime) RunAsync(e *Effect, callback func(v any, err error)) {
	token := NewCancellationToken()
	startLoop(r.cfg, e, token, func(res Result) { callback(res.Value, res.Err) })
}

// RunCancellable starts interpreting e exactly like RunAsync, and returns
// an Effect that, when run, cancels the in-flight interpretation (running
// its finalizers) - see CancellationToken.Cancel.
func RunCancellable(e *Effect, callback func(v any, err error)) *Effect {
	return defaultRuntime.RunCancellable(e, callback)
}

// RunCancellable is the Runtime method backing the package-level
// RunCancellable.
func (r *Runtime) RunCancellable(e *Effect, callback func(v any, err error)) *Effect {
	token := NewCancellationToken()
	startLoop(r.cfg, e, token, func(res Result) { callback(res.Value, res.Err) })
	// token.Cancel() itself flips the token's cancelled flag the instant
	// it's called, not when its returned Effect runs - so it must stay
	// unevaluated (Suspend) until the caller actually runs the cancel
	// Effect. Calling it eagerly here would mark the interpretation
	// cancelled before the caller ever asked for that.
	return Suspend(func() (*Effect, error) { return token.Cancel(), nil })
}

// RunBlocking interprets e to completion, blocking the calling goroutine
// until it settles - including across any number of Async boundaries.
// Unlike RunSync, it never fails merely because e suspends; it is the
// primitive Main uses to obtain a program's final value. It is not part of
// spec.md's named entry-point trio; it exists to give Main (and other
// genuinely top-level callers) a blocking facade without weakening
// RunSync's "never block" contract.
func RunBlocking(e *Effect) (any, error) { return defaultRuntime.RunBlocking(e) }

// RunBlocking is the Runtime method backing the package-level RunBlocking.
func (r *Runtime) RunBlocking(e *Effect) (any, error) {
	done := make(chan Result, 1)
	token := NewCancellationToken()
	startLoop(r.cfg, e, token, func(res Result) { done <- res })
	res := <-done
	return res.Value, res.Err
}

// ExitCode is the value a Main program returns to request a specific
// process exit status.
type ExitCode int

// Main runs program(argv) to completion and computes an exit code (§6,
// §8 scenario 4): 0 if the Effect completes with a value that isn't an
// ExitCode, the requested code if it completes with one, or 1 if it
// fails. Uncaught failures are reported to the diagnostic channel. Main
// does not call os.Exit; bootstrapping a process around it is left to the
// caller, consistent with CLI entry points being out of scope (§1).
func Main(argv []string, program func(argv []string) *Effect) ExitCode {
	v, err := RunBlocking(program(argv))
	if err != nil {
		diagLogger().Err().Err(err).Log("effect: Main program failed")
		return 1
	}
	if code, ok := v.(ExitCode); ok {
		return code
	}
	return 0
}
