// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

// Fiber is a forked interpretation running concurrently with its parent: its
// own CancellationToken, and a join Deferred that settles exactly once,
// either with the interpretation's own result or, if Cancel won the race,
// with ErrFiberCancelled (or the first finalizer failure, see Cancel)
// (§4.6).
type Fiber struct {
	token *CancellationToken
	join  *Deferred
}

// Start forks eff onto the package-level default Runtime, returning an
// Effect that produces the new Fiber.
func Start(eff *Effect) *Effect { return defaultRuntime.Start(eff) }

// Start is the Runtime method backing the package-level Start: it submits a
// fresh interpretation of eff to the Runtime's Executor and returns
// immediately with a handle onto it.
func (r *Runtime) Start(eff *Effect) *Effect {
	return Delay(func() (any, error) {
		token := NewCancellationToken()
		join := NewDeferredWithExecutor(r.executor)
		fiber := &Fiber{token: token, join: join}
		r.cfg.metricsOrNil().incFibersStarted()
		err := r.executor.Submit(TaskFunc(func() {
			startLoop(r.cfg, eff, token, func(res Result) {
				token.markDone()
				_ = join.completeSync(res)
			})
		}))
		if err != nil {
			return nil, err
		}
		return fiber, nil
	})
}

// Join returns an Effect that suspends until the Fiber settles, then
// re-surfaces its outcome - success or failure alike.
func (f *Fiber) Join() *Effect {
	return f.join.Get().Bind(func(v any) (*Effect, error) {
		res := v.(Result)
		if res.Err != nil {
			return RaiseError(res.Err), nil
		}
		return Pure(res.Value), nil
	})
}

// Cancel marks the Fiber's token cancelled, runs its pending finalizers,
// and waits for the join to settle - either with the in-flight
// interpretation's own outcome (if it raced ahead of Cancel to a terminal
// value) or with ErrFiberCancelled (§4.6, §8 cancellation scenario). The
// join's outcome is discarded: Cancel itself succeeds with nil. A
// finalizer failure takes precedence over ErrFiberCancelled as the join
// outcome and is surfaced as Cancel's own failure.
func (f *Fiber) Cancel() *Effect {
	return f.token.Cancel().Attempt().Bind(func(v any) (*Effect, error) {
		outcome := v.(Either)
		if outcome.Left != nil {
			_ = f.join.completeSync(Failed(outcome.Left))
			return RaiseError(outcome.Left), nil
		}
		_ = f.join.completeSync(Failed(ErrFiberCancelled))
		return f.join.Get().Map(func(any) (any, error) { return nil, nil }), nil
	})
}
