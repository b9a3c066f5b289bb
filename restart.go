// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

import "sync/atomic"

// restartCallback is the mutable, one-shot-per-async-boundary object
// installed by the run loop when it reaches an Async node (§4.3). It
// enforces the at-most-once callback discipline (§7, error kind 5) and,
// once invoked, resumes the run loop with the saved bind stack.
//
// Its fields mirror the cyclic-structure-avoidance note in the design: a
// restartCallback references the token it will resume against, but the
// token never references the callback back, and the saved frames are
// nulled out the moment the callback fires (see signal) so any retained
// user closures inside them become collectible even if the terminal
// callback itself never runs (e.g. cancellation).
type restartCallback struct {
	canCall atomic.Bool

	token           *CancellationToken
	ctx             *traceContext
	bFirst          *frame
	bRest           []*frame
	terminal        func(Result)
	trampolineAfter bool
	trampoline      *Trampoline
	cfg             *loopConfig

	pendingResult Result
}

var _ Task = (*restartCallback)(nil)

func newRestartCallback(token *CancellationToken, ctx *traceContext, bFirst *frame, bRest []*frame, terminal func(Result), trampolineAfter bool, tr *Trampoline) *restartCallback {
	rc := &restartCallback{
		token:           token,
		ctx:             ctx,
		bFirst:          bFirst,
		bRest:           bRest,
		terminal:        terminal,
		trampolineAfter: trampolineAfter,
		trampoline:      tr,
	}
	rc.canCall.Store(true)
	return rc
}

// invoke is the function value handed to the async producer as its resume
// callback. It may be called from any goroutine, any number of times; only
// the first call has any effect.
func (rc *restartCallback) invoke(res Result) {
	if !rc.canCall.CompareAndSwap(true, false) {
		// At-most-once: additional invocations are dropped. If the dropped
		// value was an error, it's worth a diagnostic line since it likely
		// indicates a misbehaving producer.
		if res.Err != nil {
			diagLogger().Warning().Err(res.Err).Log("effect: async producer invoked its callback more than once; extra invocation dropped")
		}
		return
	}

	if rc.trampolineAfter {
		rc.pendingResult = res
		tr := rc.trampoline
		if tr == nil {
			tr = globalTrampoline
		}
		// Submitting self breaks unbounded synchronous callback chains:
		// a producer that resolves inline, whose continuation installs
		// another Async that also resolves inline, and so on, is run as a
		// sequence of drained tasks rather than a growing call stack.
		_ = tr.Submit(rc)
		return
	}

	rc.signal(res)
}

// Run implements Task, invoked by the Trampoline once this restartCallback
// reaches the front of the queue.
func (rc *restartCallback) Run() {
	rc.signal(rc.pendingResult)
}

// signal nulls the saved frames (letting the owner/GC reclaim anything
// they retain) and, if the token hasn't been cancelled in the meantime,
// resumes the run loop with Pure(v) or RaiseError(e) as the new source.
func (rc *restartCallback) signal(res Result) {
	token, ctx, bFirst, bRest, terminal := rc.token, rc.ctx, rc.bFirst, rc.bRest, rc.terminal
	rc.token, rc.ctx, rc.bFirst, rc.bRest, rc.terminal = nil, nil, nil, nil, nil

	if token != nil && token.IsCancelled() {
		// Cancellation: the loop stops silently, the terminal callback is
		// never invoked (§7, error kind 4).
		return
	}

	var next *Effect
	if res.Err != nil {
		next = RaiseError(res.Err)
	} else {
		next = Pure(res.Value)
	}

	resumeLoopWithConfig(rc.cfg, next, token, ctx, bFirst, bRest, terminal)
}
