// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

import "sync/atomic"

// Ref is a mutable, thread-safe cell, accessed only through Effects - every
// method returns an Effect rather than touching the cell directly, so a Ref
// composes with the rest of the Bind chain instead of leaking a side effect
// outside it (§3).
type Ref struct {
	value atomic.Pointer[any]
}

// NewRef builds a Ref holding the given initial value.
func NewRef(initial any) *Ref {
	r := &Ref{}
	r.value.Store(&initial)
	return r
}

// Get reads the current value.
func (r *Ref) Get() *Effect {
	return Delay(func() (any, error) { return *r.value.Load(), nil })
}

// Set unconditionally replaces the current value.
func (r *Ref) Set(v any) *Effect {
	return Delay(func() (any, error) {
		r.value.Store(&v)
		return nil, nil
	})
}

// Update replaces the current value with f(current), retrying on
// contention against concurrent Update/Modify/Set calls. f must be pure and
// side-effect free, since it may run more than once per call.
func (r *Ref) Update(f func(any) any) *Effect {
	return Delay(func() (any, error) {
		for {
			old := r.value.Load()
			next := f(*old)
			if r.value.CompareAndSwap(old, &next) {
				return nil, nil
			}
		}
	})
}

// Modify replaces the current value with the first element of f(current)
// and returns the second, retrying on contention exactly like Update. f
// must be pure for the same reason.
func (r *Ref) Modify(f func(any) (any, any)) *Effect {
	return Delay(func() (any, error) {
		for {
			old := r.value.Load()
			next, out := f(*old)
			if r.value.CompareAndSwap(old, &next) {
				return out, nil
			}
		}
	})
}
