// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

import "sync"

// effectTag discriminates the closed sum of Effect variants. Dispatch in
// the run loop is a dense integer switch on this tag, not virtual-method
// dispatch on the node - see runloop.go.
type effectTag uint8

const (
	tagPure effectTag = iota
	tagDelay
	tagSuspend
	tagRaise
	tagBind
	tagMap
	tagAsync
	tagContextSwitch
)

// asyncProducer is invoked off the run loop. It must arrange for resume to
// be called exactly once, with either an Ok or a Failed Result. token and
// ctx are the active cancellation token and trace context at the point the
// Async node was reached.
type asyncProducer func(token *CancellationToken, ctx *traceContext, resume func(Result))

// modifyToken rewrites the active cancellation token on entry to a
// ContextSwitch node. Returning the same token is valid (e.g. Bracket only
// mutates the token's finalizer stack, it doesn't swap tokens).
type modifyToken func(*CancellationToken) *CancellationToken

// restoreToken is applied, as a bind frame, once next completes or fails.
// It receives the settled Result along with the token before and after
// modify, and returns the Effect to continue with (typically one that
// re-surfaces result after running cleanup).
type restoreToken func(result Result, old, new *CancellationToken) *Effect

// Effect is a finite, immutable, tagged tree describing a computation.
// Building an Effect has no side effect; only running one (via RunSync,
// RunAsync, or RunCancellable) does.
type Effect struct {
	tag effectTag

	// tagPure
	value any

	// tagDelay: produces a value by evaluating thunk synchronously; any
	// panic or returned error is captured and surfaces as a failure.
	//
	// tagSuspend: produces another Effect by evaluating suspendThunk;
	// enables recursion without building an infinite tree up front.
	thunk        func() (any, error)
	suspendThunk func() (*Effect, error)

	// tagRaise
	err error

	// tagBind / tagMap
	inner *Effect
	frame *frame

	// tagAsync
	producer        asyncProducer
	trampolineAfter bool

	// tagContextSwitch
	next    *Effect
	modify  modifyToken
	restore restoreToken
}

// Pure lifts an already-evaluated value into an Effect.
func Pure(v any) *Effect { return &Effect{tag: tagPure, value: v} }

// unitEffect is the Effect that produces nil with no side effect.
var unitEffect = Pure(nil)

// Unit returns the canonical no-op, successful Effect.
func Unit() *Effect { return unitEffect }

// Delay builds an Effect that evaluates thunk synchronously when run,
// capturing any returned error (or recovered panic, see runloop.go) as a
// failure rather than propagating it through the host language.
func Delay(thunk func() (any, error)) *Effect {
	return &Effect{tag: tagDelay, thunk: thunk}
}

// Suspend builds an Effect that evaluates thunk to produce the *next*
// Effect to run. This is the standard trampolining primitive for
// expressing recursive effects without unbounded native-stack growth.
func Suspend(thunk func() (*Effect, error)) *Effect {
	return &Effect{tag: tagSuspend, suspendThunk: thunk}
}

// RaiseError builds an Effect that unconditionally fails with err.
func RaiseError(err error) *Effect {
	return &Effect{tag: tagRaise, err: err}
}

// Bind sequences inner with k: once inner produces a value, k(value) is
// evaluated to obtain the next Effect. A panic inside k is recovered and
// converted to a RaiseError by the run loop, not by Bind itself.
func (e *Effect) Bind(k func(any) (*Effect, error)) *Effect {
	return &Effect{tag: tagBind, inner: e, frame: &frame{onSuccess: k}}
}

// Then sequences inner with a following Effect, discarding inner's value.
func (e *Effect) Then(next *Effect) *Effect {
	return e.Bind(func(any) (*Effect, error) { return next, nil })
}

// Map transforms inner's value with f, without allowing f to branch into a
// new Effect. The run loop handles a Map node exactly like a Bind node
// (see runloop.go); semantically it is Bind plus Pure.
func (e *Effect) Map(f func(any) (any, error)) *Effect {
	return &Effect{tag: tagMap, inner: e, frame: &frame{onSuccess: func(v any) (*Effect, error) {
		out, err := f(v)
		if err != nil {
			return nil, err
		}
		return Pure(out), nil
	}}}
}

// HandleErrorWith recovers from a failure of e by evaluating f(err) to
// obtain a replacement Effect. Success of e passes through unchanged.
func (e *Effect) HandleErrorWith(f func(error) (*Effect, error)) *Effect {
	return &Effect{tag: tagBind, inner: e, frame: &frame{onError: f}}
}

// Redeem maps both outcomes of e into values, never failing as a result of
// e's own outcome (onErr/onOk themselves may still return an error or
// panic, which the loop converts to a failure).
func (e *Effect) Redeem(onErr func(error) (any, error), onOk func(any) (any, error)) *Effect {
	return &Effect{tag: tagBind, inner: e, frame: &frame{
		onSuccess: func(v any) (*Effect, error) {
			out, err := onOk(v)
			if err != nil {
				return nil, err
			}
			return Pure(out), nil
		},
		onError: func(err error) (*Effect, error) {
			out, ferr := onErr(err)
			if ferr != nil {
				return nil, ferr
			}
			return Pure(out), nil
		},
	}}
}

// RedeemWith is Redeem's Effect-returning counterpart: both arms return the
// next Effect directly instead of a plain value.
func (e *Effect) RedeemWith(onErr func(error) (*Effect, error), onOk func(any) (*Effect, error)) *Effect {
	return &Effect{tag: tagBind, inner: e, frame: &frame{onSuccess: onOk, onError: onErr}}
}

// Either is the value Attempt produces: Left for a failure, Right for a
// success value, so callers can discriminate without a second type
// parameter.
type Either struct {
	Left  error // non-nil iff this represents a failure
	Right any
}

// Attempt converts e's outcome into a value: Either{Right: v} on success,
// Either{Left: err} on failure. Attempt never itself fails.
func (e *Effect) Attempt() *Effect {
	return e.Redeem(
		func(err error) (any, error) { return Either{Left: err}, nil },
		func(v any) (any, error) { return Either{Right: v}, nil },
	)
}

// Async builds a node that invokes producer off the run loop; producer
// must arrange for resume to be called exactly once (see restart.go for
// the at-most-once enforcement). trampolineAfter controls whether the
// resumed continuation is run inline or bounced through the Trampoline to
// break unbounded synchronous callback chains (see §4.3 of the design).
func Async(producer func(resume func(Result)), trampolineAfter bool) *Effect {
	return &Effect{
		tag: tagAsync,
		producer: func(_ *CancellationToken, _ *traceContext, resume func(Result)) {
			producer(resume)
		},
		trampolineAfter: trampolineAfter,
	}
}

// Cancellable builds an Async node whose register function receives the
// resume callback and returns the Effect that, if run, cancels the
// in-flight operation. That cancel Effect is pushed onto the active
// cancellation token as a finalizer for the duration of the async
// boundary - this is how Deferred.Get (deferred.go) and any other
// cancellable async producer participate in cooperative cancellation.
//
// The pushed finalizer is popped back off as soon as the operation settles
// normally (resume fires), via a mutex-guarded handshake against the push
// itself: whichever of "settle" and "push" happens second is the one that
// either pops or skips pushing, so a completed Cancellable never leaves a
// stale finalizer on the token - one that a later Cancel would otherwise
// re-run against an operation that has already finished.
func Cancellable(register func(resume func(Result)) *Effect) *Effect {
	return &Effect{
		tag: tagAsync,
		producer: func(token *CancellationToken, _ *traceContext, resume func(Result)) {
			var (
				mu      sync.Mutex
				pushed  bool
				settled bool
			)
			wrappedResume := func(res Result) {
				mu.Lock()
				shouldPop := pushed
				pushed = false
				settled = true
				mu.Unlock()
				if shouldPop && token != nil {
					token.Pop()
				}
				resume(res)
			}

			cancelEffect := register(wrappedResume)

			mu.Lock()
			if !settled && token != nil && cancelEffect != nil {
				pushed = token.Push(cancelEffect)
			}
			mu.Unlock()
		},
		trampolineAfter: true,
	}
}

// ContextSwitch rewrites the active cancellation token for the duration of
// next, restoring via restore once next settles. See bracket.go for
// Bracket and Uncancellable, the two concrete uses.
func ContextSwitch(next *Effect, modify modifyToken, restore restoreToken) *Effect {
	return &Effect{tag: tagContextSwitch, next: next, modify: modify, restore: restore}
}
