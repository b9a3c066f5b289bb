// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Option represents an optional value, returned by Deferred.TryGet.
type Option struct {
	Value   any
	Present bool
}

// deferredState is the immutable snapshot behind a Deferred's atomic
// pointer: either Unset (with a waiter map and a monotonically increasing
// id counter) or Set(value). State transitions are one-way Unset* -> Set,
// enforced entirely by CAS - the same discipline the teacher's promise
// registry (registry.go) and FastState (state.go) use.
type deferredState struct {
	isSet   bool
	value   any
	waiters map[uint64]func(any)
	nextID  uint64
}

// Deferred is a single-assignment cell with lock-free waiter registration
// (§3, §4.4).
type Deferred struct {
	id       string
	state    atomic.Pointer[deferredState]
	executor Executor
}

// NewDeferred returns an unset Deferred whose Complete fans out waiters
// via DefaultExecutor.
func NewDeferred() *Deferred { return NewDeferredWithExecutor(DefaultExecutor) }

// NewDeferredWithExecutor returns an unset Deferred whose Complete submits
// each waiter callback through exec, so a slow or malicious waiter can
// never block the caller of Complete.
func NewDeferredWithExecutor(exec Executor) *Deferred {
	d := &Deferred{id: uuid.NewString(), executor: exec}
	d.state.Store(&deferredState{waiters: map[uint64]func(any){}, nextID: 1})
	return d
}

// ID returns a diagnostic identifier; metadata only.
func (d *Deferred) ID() string { return d.id }

// Get returns an Effect that produces the Deferred's value once set,
// suspending (as a Cancellable Async node) if it isn't set yet. The
// registration's cancel Effect removes the waiter if the Deferred is still
// unset when cancellation runs; it is idempotent.
func (d *Deferred) Get() *Effect {
	return Cancellable(func(resume func(Result)) *Effect {
		for {
			st := d.state.Load()
			if st.isSet {
				resume(Ok(st.value))
				return Unit()
			}

			id := st.nextID
			newWaiters := make(map[uint64]func(any), len(st.waiters)+1)
			for k, v := range st.waiters {
				newWaiters[k] = v
			}
			newWaiters[id] = func(v any) { resume(Ok(v)) }

			newSt := &deferredState{waiters: newWaiters, nextID: st.nextID + 1}
			if d.state.CompareAndSwap(st, newSt) {
				return d.removeWaiter(id)
			}
			// CAS lost the race against a concurrent Get or Complete: retry.
		}
	})
}

// removeWaiter builds the idempotent cancellation Effect for waiter id: a
// no-op if the Deferred has since been Set, or if id is no longer present.
func (d *Deferred) removeWaiter(id uint64) *Effect {
	return Delay(func() (any, error) {
		for {
			st := d.state.Load()
			if st.isSet {
				return nil, nil
			}
			if _, ok := st.waiters[id]; !ok {
				return nil, nil
			}
			newWaiters := make(map[uint64]func(any), len(st.waiters)-1)
			for k, v := range st.waiters {
				if k != id {
					newWaiters[k] = v
				}
			}
			newSt := &deferredState{waiters: newWaiters, nextID: st.nextID}
			if d.state.CompareAndSwap(st, newSt) {
				return nil, nil
			}
		}
	})
}

// GetUncancellable is Get's non-cancellable counterpart (§4.4's
// "uncancellable variant"): it registers a waiter exactly as Get does, but
// the returned Effect is a plain Async node rather than Cancellable, so no
// cancel Effect is pushed onto the active token and the registration can
// never be removed once made. The waiter still runs on Complete, but if
// the interpretation's token has been cancelled by then, the run loop is
// not resumed (see restartCallback.signal).
func (d *Deferred) GetUncancellable() *Effect {
	return Async(func(resume func(Result)) {
		for {
			st := d.state.Load()
			if st.isSet {
				resume(Ok(st.value))
				return
			}

			id := st.nextID
			newWaiters := make(map[uint64]func(any), len(st.waiters)+1)
			for k, v := range st.waiters {
				newWaiters[k] = v
			}
			newWaiters[id] = func(v any) { resume(Ok(v)) }

			newSt := &deferredState{waiters: newWaiters, nextID: st.nextID + 1}
			if d.state.CompareAndSwap(st, newSt) {
				return
			}
			// CAS lost the race against a concurrent Get or Complete: retry.
		}
	}, true)
}

// TryGet reads the Deferred once, returning Option{Present: true} iff it
// is Set, without suspending.
func (d *Deferred) TryGet() *Effect {
	return Delay(func() (any, error) {
		st := d.state.Load()
		if st.isSet {
			return Option{Value: st.value, Present: true}, nil
		}
		return Option{}, nil
	})
}

// Complete sets the Deferred's value, failing with
// ErrDeferredAlreadyComplete if it was already Set. On success, every
// registered waiter is submitted to the Executor - not called inline - so
// that completion order never implies callback order, and a slow waiter
// can't block Complete's caller.
func (d *Deferred) Complete(v any) *Effect {
	return Delay(func() (any, error) { return nil, d.completeSync(v) })
}

// completeSync is Complete's body, factored out so internal callers (Fiber's
// join completion) can settle a Deferred without round-tripping through
// RunSync.
func (d *Deferred) completeSync(v any) error {
	for {
		st := d.state.Load()
		if st.isSet {
			return ErrDeferredAlreadyComplete
		}
		newSt := &deferredState{isSet: true, value: v}
		if d.state.CompareAndSwap(st, newSt) {
			for _, waiter := range st.waiters {
				waiter := waiter
				_ = d.executor.Submit(TaskFunc(func() { waiter(v) }))
			}
			return nil
		}
	}
}
