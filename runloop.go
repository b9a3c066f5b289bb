// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

// defaultAutoCancelBatch bounds the worst-case cancellation latency to
// this many synchronous run-loop steps (§4.1, §5). It is the run loop's
// MAX_AUTO_CANCEL_BATCH.
const defaultAutoCancelBatch = 512

// traceContext is the per-interpretation side-channel for error
// augmentation (§3's IOContext). Stack-trace rewriting is explicitly out
// of scope (§1); this is kept minimal - a lazily-allocated breadcrumb
// trail, only allocated when a Runtime is configured with
// WithTraceCollection(true). Nothing in the run loop appends breadcrumbs
// to it.
type traceContext struct {
	frames []string
}

func newTraceContext(enabled bool) *traceContext {
	if !enabled {
		return nil
	}
	return &traceContext{}
}

// loopConfig bundles the knobs a Runtime (options.go) threads through every
// run-loop invocation it starts, including ones resumed later by a
// restartCallback.
type loopConfig struct {
	autoCancelBatch int
	trampoline      *Trampoline
	metrics         *Metrics
	traceEnabled    bool
}

func (c *loopConfig) batch() int {
	if c == nil || c.autoCancelBatch <= 0 {
		return defaultAutoCancelBatch
	}
	return c.autoCancelBatch
}

func (c *loopConfig) tramp() *Trampoline {
	if c == nil || c.trampoline == nil {
		return globalTrampoline
	}
	return c.trampoline
}

func (c *loopConfig) metricsOrNil() *Metrics {
	if c == nil {
		return nil
	}
	return c.metrics
}

func (c *loopConfig) trace() bool {
	return c != nil && c.traceEnabled
}

var defaultLoopConfig = &loopConfig{autoCancelBatch: defaultAutoCancelBatch, trampoline: globalTrampoline}

// startLoop begins a fresh interpretation of source: an empty bind stack,
// no saved trace context, and the supplied (possibly nil) cancellation
// token - a nil token is lazily allocated the first time an Async or
// ContextSwitch node is reached, matching §4.1's "lazily allocate conn and
// ctx if absent".
func startLoop(cfg *loopConfig, source *Effect, token *CancellationToken, terminal func(Result)) {
	runLoop(cfg, source, token, nil, bindStack{}, terminal)
}

// resumeLoopWithConfig restarts interpretation after an async boundary,
// with a previously saved bind stack.
func resumeLoopWithConfig(cfg *loopConfig, current *Effect, token *CancellationToken, ctx *traceContext, bFirst *frame, bRest []*frame, terminal func(Result)) {
	runLoop(cfg, current, token, ctx, bindStack{first: bFirst, rest: bRest}, terminal)
}

// runLoop is the trampolined interpreter (§4.1). It consumes current
// (plus the active token/ctx/bind-stack) until it either produces a
// terminal result, is cooperatively cancelled, or reaches an Async node
// and returns control to the caller.
func runLoop(cfg *loopConfig, current *Effect, token *CancellationToken, ctx *traceContext, bs bindStack, terminal func(Result)) {
	var (
		hasUnboxed bool
		unboxed    any
		iterCount  int
	)
	batch := cfg.batch()
	metrics := cfg.metricsOrNil()

	for {
		if hasUnboxed {
			f, ok := bs.popForValue()
			if !ok {
				terminal(Ok(unboxed))
				return
			}
			next, err := applySuccess(f.onSuccess, unboxed)
			hasUnboxed = false
			if err != nil {
				current = RaiseError(err)
			} else {
				current = next
			}
		} else {
			switch current.tag {
			case tagPure:
				unboxed = current.value
				hasUnboxed = true

			case tagDelay:
				v, err := applyThunk(current.thunk)
				if err != nil {
					current = RaiseError(err)
				} else {
					unboxed = v
					hasUnboxed = true
				}

			case tagSuspend:
				next, err := applySuspend(current.suspendThunk)
				if err != nil {
					current = RaiseError(err)
				} else {
					current = next
				}

			case tagRaise:
				if IsFatal(current.err) {
					terminal(Failed(current.err))
					return
				}
				f, ok := bs.popForError()
				if !ok {
					terminal(Failed(current.err))
					return
				}
				next, err := applyError(f.onError, current.err)
				if err != nil {
					current = RaiseError(err)
				} else {
					current = next
				}

			case tagBind, tagMap:
				bs.push(current.frame)
				current = current.inner

			case tagAsync:
				if token == nil {
					token = NewCancellationToken()
				}
				if ctx == nil {
					ctx = newTraceContext(cfg.trace())
				}
				bFirst, bRest := bs.snapshot()
				rc := newRestartCallback(token, ctx, bFirst, bRest, terminal, current.trampolineAfter, cfg.tramp())
				rc.cfg = cfg
				metrics.incAsyncBoundaries()
				invokeProducer(current.producer, token, ctx, rc)
				return

			case tagContextSwitch:
				oldToken := token
				if oldToken == nil {
					oldToken = NewCancellationToken()
				}
				newToken := current.modify(oldToken)
				if newToken == nil {
					newToken = oldToken
				}
				token = newToken
				if current.restore != nil {
					restoreFn := current.restore
					capturedNew, capturedOld := newToken, oldToken
					bs.push(&frame{
						onSuccess: func(v any) (*Effect, error) { return restoreFn(Ok(v), capturedOld, capturedNew), nil },
						onError:   func(err error) (*Effect, error) { return restoreFn(Failed(err), capturedOld, capturedNew), nil },
					})
				}
				current = current.next
			}
		}

		iterCount++
		metrics.incIterations()
		if iterCount%batch == 0 && token != nil && token.IsCancelled() {
			metrics.incCancellations()
			return
		}
	}
}

// invokeProducer calls producer, converting a panic into a dropped-or-
// delivered Failed result via the restartCallback's at-most-once gate
// (exactly as a producer that calls resume(Failed(...)) itself would).
func invokeProducer(producer asyncProducer, token *CancellationToken, ctx *traceContext, rc *restartCallback) {
	defer func() {
		if r := recover(); r != nil {
			rc.invoke(Failed(toPanicError(r)))
		}
	}()
	producer(token, ctx, rc.invoke)
}

func applyThunk(thunk func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toPanicError(r)
		}
	}()
	return thunk()
}

func applySuspend(thunk func() (*Effect, error)) (next *Effect, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toPanicError(r)
		}
	}()
	return thunk()
}

func applySuccess(k func(any) (*Effect, error), v any) (next *Effect, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toPanicError(r)
		}
	}()
	return k(v)
}

func applyError(h func(error) (*Effect, error), e error) (next *Effect, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = toPanicError(r)
		}
	}()
	return h(e)
}
