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

// finalizerNode is an immutable cons cell in the finalizer stack. Using an
// immutable linked list, mutated only via CAS on the head pointer, lets
// Cancel read a consistent snapshot of all pending finalizers without
// taking a lock - the same discipline the teacher's FastState (state.go)
// and promise registry (registry.go) use for their own atomic transitions.
type finalizerNode struct {
	effect *Effect
	next   *finalizerNode
}

// CancellationToken is a mutable, shareable cancellation scope: a stack of
// finalizer Effects to run on cancel, a monotonic cancelled flag, and a
// nestable mask that suspends cancellation observation.
type CancellationToken struct {
	id        string
	head      atomic.Pointer[finalizerNode]
	cancelled atomic.Bool
	maskDepth atomic.Int32
	done      chan struct{}
	doneOnce  atomic.Bool
}

// NewCancellationToken returns a fresh, unmasked, uncancelled token.
func NewCancellationToken() *CancellationToken {
	return &CancellationToken{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

// ID returns a diagnostic identifier for structured-log correlation; it is
// metadata only and plays no role in any ordering or uniqueness guarantee.
func (t *CancellationToken) ID() string { return t.id }

// masked reports whether cancellation is currently suspended by
// PushMask/PopMask.
func (t *CancellationToken) masked() bool { return t.maskDepth.Load() > 0 }

// Push records a finalizer Effect to run on cancel. It is a no-op if the
// token is already cancelled (once cancelled, no finalizer added
// afterward is retained - the token is "done") or currently masked, in
// which case it reports false so a caller that needs the finalizer to run
// regardless (see Bracket in bracket.go) knows to take it from there.
func (t *CancellationToken) Push(e *Effect) bool {
	if e == nil || t.cancelled.Load() || t.masked() {
		return false
	}
	for {
		old := t.head.Load()
		node := &finalizerNode{effect: e, next: old}
		if t.head.CompareAndSwap(old, node) {
			return true
		}
	}
}

// Pop removes and returns the most recently pushed finalizer, or Unit() if
// the stack is empty.
func (t *CancellationToken) Pop() *Effect {
	for {
		old := t.head.Load()
		if old == nil {
			return Unit()
		}
		if t.head.CompareAndSwap(old, old.next) {
			return old.effect
		}
	}
}

// drainAll atomically detaches the entire finalizer stack and returns its
// elements in LIFO (most-recently-pushed-first) order.
func (t *CancellationToken) drainAll() []*Effect {
	var old *finalizerNode
	for {
		old = t.head.Load()
		if t.head.CompareAndSwap(old, nil) {
			break
		}
	}
	var out []*Effect
	for n := old; n != nil; n = n.next {
		out = append(out, n.effect)
	}
	return out
}

// IsCancelled reflects the token's cancellation state as observed by the
// run loop: it always reports false while masked, even if a cancel is
// pending (latched, observed on the next unmasked poll).
func (t *CancellationToken) IsCancelled() bool {
	if t.masked() {
		return false
	}
	return t.cancelled.Load()
}

// PushMask enters a nested uncancellable region.
func (t *CancellationToken) PushMask() { t.maskDepth.Add(1) }

// PopMask exits one level of an uncancellable region.
func (t *CancellationToken) PopMask() { t.maskDepth.Add(-1) }

// Cancel marks the token cancelled (idempotent - only the first call has
// any effect on the flag) and returns an Effect that, when run, executes
// all pending finalizers in LIFO order. The first finalizer failure is
// surfaced as the cancel Effect's own failure; subsequent failures are
// reported to the diagnostic channel. Running the returned Effect closes
// the token's done channel exactly once, regardless of outcome, which is
// what lets Fiber.Cancel await finalizer completion.
func (t *CancellationToken) Cancel() *Effect {
	t.cancelled.Store(true)
	return Delay(func() (any, error) {
		defer t.markDone()
		finalizers := t.drainAll()
		var first error
		for _, fin := range finalizers {
			if err := runFinalizerSync(fin); err != nil {
				if first == nil {
					first = err
				} else {
					diagLogger().Warning().Str("token_id", t.id).Err(err).Log("finalizer error during cancel, discarded (first error already latched)")
				}
			}
		}
		return nil, first
	})
}

// markDone closes the done channel exactly once.
func (t *CancellationToken) markDone() {
	if t.doneOnce.CompareAndSwap(false, true) {
		close(t.done)
	}
}

// Done returns a channel closed once this token's cancellation finalizers
// have finished running (or immediately, for a token that is never
// cancelled and whose owning Fiber completes normally - see fiber.go).
func (t *CancellationToken) Done() <-chan struct{} { return t.done }

// runFinalizerSync runs a (typically small, Delay-shaped) finalizer Effect
// to completion synchronously via RunSync, recovering a panicking
// finalizer and folding it into the same "first error wins" policy as a
// normally-returned error (see SPEC_FULL.md's Open Question decision).
func runFinalizerSync(fin *Effect) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toPanicError(r)
		}
	}()
	_, err = RunSync(fin)
	return err
}
