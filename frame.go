// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

// frame is a continuation suspended on the bind stack while an inner
// Effect is evaluated. onSuccess is the plain bind/map arm: value -> next
// Effect. onError is the handler arm: error -> recovery Effect. A frame
// needs at least one of the two; a frame with only onError is a
// "handler-only" frame, skipped when popped on the value path (it has no
// success arm); a frame with only onSuccess is a plain bind frame,
// discarded (not consulted) when popped on the error path.
type frame struct {
	onSuccess func(any) (*Effect, error)
	onError   func(error) (*Effect, error)
}

// isHandler reports whether this frame carries a failure-recovery arm.
func (f *frame) isHandler() bool { return f.onError != nil }

// bindStack is the array-backed LIFO of pending continuations: one hot
// register (first) plus an overflow slice (rest), avoiding an allocation
// per Bind/Map for the common case of a short, non-overlapping chain.
type bindStack struct {
	first *frame
	rest  []*frame
}

// push installs next as the hot frame, demoting any existing hot frame
// onto the overflow stack.
func (s *bindStack) push(next *frame) {
	if s.first != nil {
		s.rest = append(s.rest, s.first)
	}
	s.first = next
}

// popAny removes and returns the most recently pushed frame, regardless of
// shape, or (nil, false) if the stack is empty.
func (s *bindStack) popAny() (*frame, bool) {
	if s.first != nil {
		f := s.first
		s.first = s.popFromRest()
		return f, true
	}
	return nil, false
}

// popFromRest pops the overflow slice into the hot slot, or returns nil if
// the overflow is empty.
func (s *bindStack) popFromRest() *frame {
	n := len(s.rest)
	if n == 0 {
		return nil
	}
	f := s.rest[n-1]
	s.rest[n-1] = nil
	s.rest = s.rest[:n-1]
	return f
}

// popForValue pops and discards handler-only frames until it finds one
// with an onSuccess arm, or exhausts the stack. Handler-only frames
// encountered along the way are skipped (dropped): they have already
// "failed to fire" in the sense that the value path doesn't concern them.
func (s *bindStack) popForValue() (*frame, bool) {
	for {
		f, ok := s.popAny()
		if !ok {
			return nil, false
		}
		if f.onSuccess != nil {
			return f, true
		}
		// handler-only frame: no success arm, skip it on the value path.
	}
}

// popForError pops and discards frames lacking a recovery arm until it
// finds a handler frame, or exhausts the stack.
func (s *bindStack) popForError() (*frame, bool) {
	for {
		f, ok := s.popAny()
		if !ok {
			return nil, false
		}
		if f.onError != nil {
			return f, true
		}
		// plain bind/map frame: discarded on the error path.
	}
}

// snapshot captures the current (first, rest) pair for a RestartCallback to
// save across an async boundary. The returned rest is detached so further
// mutation of s doesn't alias it.
func (s *bindStack) snapshot() (*frame, []*frame) {
	first := s.first
	var rest []*frame
	if len(s.rest) > 0 {
		rest = make([]*frame, len(s.rest))
		copy(rest, s.rest)
	}
	return first, rest
}

// restore reinstates a previously captured (first, rest) pair, e.g. when a
// RestartCallback resumes the loop.
func (s *bindStack) restore(first *frame, rest []*frame) {
	s.first = first
	s.rest = rest
}
