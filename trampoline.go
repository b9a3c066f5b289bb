// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

import (
	"sync"

	"github.com/kory33/goeffect/internal/trampoline"
)

// Trampoline is the "immediate" executor named in §6: it runs tasks on the
// current goroutine, but detects re-entry (a task submitting another task
// while already draining) and queues instead of recursing, which is what
// gives RestartCallback's trampolineAfter path its stack-safety guarantee
// against unbounded synchronous callback chains.
//
// It is built on the same chunked-queue discipline as the teacher's
// ChunkedIngress (internal/trampoline), protected here by a plain mutex
// rather than the teacher's lock-free MicrotaskRing, since Trampoline's
// queue is drained by whichever goroutine is currently submitting, not by
// a single dedicated loop goroutine.
type Trampoline struct {
	mu       sync.Mutex
	queue    trampoline.Queue
	draining bool
}

// NewTrampoline returns a ready-to-use Trampoline.
func NewTrampoline() *Trampoline { return &Trampoline{} }

// Submit implements Executor. If this goroutine (or another) is already
// draining the Trampoline, task is merely enqueued for the in-progress
// drain loop to pick up; otherwise this call becomes the drain loop.
func (t *Trampoline) Submit(task Task) error {
	t.mu.Lock()
	t.queue.Push(task.Run)
	if t.draining {
		t.mu.Unlock()
		return nil
	}
	t.draining = true
	t.mu.Unlock()

	t.drain()
	return nil
}

func (t *Trampoline) drain() {
	for {
		t.mu.Lock()
		task, ok := t.queue.Pop()
		if !ok {
			t.draining = false
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()
		task()
	}
}

// globalTrampoline is used by RestartCallback (restart.go) when a caller
// runs an Effect without supplying its own Trampoline (see RuntimeOption
// in options.go).
var globalTrampoline = NewTrampoline()
