// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

import "sync/atomic"

// Metrics is an optional, zero-overhead-when-absent counter set, mirroring
// the teacher's WithMetrics/metrics.go: every method is nil-safe so a
// Runtime created without WithMetrics(true) pays nothing for the check
// beyond a single nil comparison per run-loop step.
type Metrics struct {
	Iterations      atomic.Int64
	AsyncBoundaries atomic.Int64
	FibersStarted   atomic.Int64
	Cancellations   atomic.Int64
}

func (m *Metrics) incIterations() {
	if m != nil {
		m.Iterations.Add(1)
	}
}

func (m *Metrics) incAsyncBoundaries() {
	if m != nil {
		m.AsyncBoundaries.Add(1)
	}
}

func (m *Metrics) incFibersStarted() {
	if m != nil {
		m.FibersStarted.Add(1)
	}
}

func (m *Metrics) incCancellations() {
	if m != nil {
		m.Cancellations.Add(1)
	}
}

// Snapshot is a point-in-time copy of Metrics' counters.
type Snapshot struct {
	Iterations      int64
	AsyncBoundaries int64
	FibersStarted   int64
	Cancellations   int64
}

// Snapshot reads all counters. Safe to call concurrently with increments.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Iterations:      m.Iterations.Load(),
		AsyncBoundaries: m.AsyncBoundaries.Load(),
		FibersStarted:   m.FibersStarted.Load(),
		Cancellations:   m.Cancellations.Load(),
	}
}
