// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

import "sync/atomic"

// Bracket runs acquire, then use(acquired), guaranteeing release(acquired)
// runs exactly once if acquire succeeded - on normal completion, on
// failure of use, or on cancellation - and not at all if acquire itself
// failed (§8, Bracket invariant).
//
// It is built from ContextSwitch (§3). The finalizer is guarded by a CAS
// flag so it runs at most once regardless of path, and is also pushed
// onto the active cancellation token for the duration of use so a
// concurrent Cancel can run it. Push is a no-op while the token is masked
// (Uncancellable nests inside Bracket, or Bracket nests inside
// Uncancellable) - in that case the normal-exit restore path still runs
// the guarded finalizer directly, so release is never skipped just
// because cancellation observation happened to be suspended.
func Bracket(acquire *Effect, use func(any) *Effect, release func(any) error) *Effect {
	return acquire.Bind(func(acquired any) (*Effect, error) {
		var ran atomic.Bool
		finalizer := Delay(func() (any, error) {
			if ran.CompareAndSwap(false, true) {
				return nil, release(acquired)
			}
			return nil, nil
		})
		var pushed bool
		return ContextSwitch(
			use(acquired),
			func(token *CancellationToken) *CancellationToken {
				pushed = token.Push(finalizer)
				return token
			},
			func(result Result, _, newToken *CancellationToken) *Effect {
				if pushed {
					newToken.Pop()
				}
				return finalizer.Bind(func(any) (*Effect, error) {
					if result.Err != nil {
						return RaiseError(result.Err), nil
					}
					return Pure(result.Value), nil
				})
			},
		), nil
	})
}

// Uncancellable runs e in a masked region: cancellation is latched but not
// observed by the run loop until the region exits, at which point any
// pending cancel is processed normally by the caller's auto-cancel poll.
func Uncancellable(e *Effect) *Effect {
	return ContextSwitch(
		e,
		func(token *CancellationToken) *CancellationToken {
			token.PushMask()
			return token
		},
		func(result Result, _, newToken *CancellationToken) *Effect {
			newToken.PopMask()
			if result.Err != nil {
				return RaiseError(result.Err)
			}
			return Pure(result.Value)
		},
	)
}
