// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

// runtimeOptions holds configuration resolved from RuntimeOption values,
// styled directly after the teacher's loopOptions/resolveLoopOptions
// (options.go).
type runtimeOptions struct {
	autoCancelBatch int
	executor        Executor
	trampoline      *Trampoline
	metricsEnabled  bool
	traceEnabled    bool
}

// RuntimeOption configures a Runtime instance.
type RuntimeOption interface {
	applyRuntime(*runtimeOptions)
}

type runtimeOptionFunc func(*runtimeOptions)

func (f runtimeOptionFunc) applyRuntime(o *runtimeOptions) { f(o) }

// WithAutoCancelBatch overrides MAX_AUTO_CANCEL_BATCH (§4.1): the number of
// synchronous run-loop steps between cooperative-cancellation polls.
// Defaults to 512. A non-positive value is ignored.
func WithAutoCancelBatch(n int) RuntimeOption {
	return runtimeOptionFunc(func(o *runtimeOptions) {
		if n > 0 {
			o.autoCancelBatch = n
		}
	})
}

// WithExecutor sets the Executor used to fork Fiber interpretations (§4.6)
// and to fan out the waiters of each Fiber's join Deferred. Defaults to
// DefaultExecutor (GoroutineExecutor).
func WithExecutor(e Executor) RuntimeOption {
	return runtimeOptionFunc(func(o *runtimeOptions) {
		if e != nil {
			o.executor = e
		}
	})
}

// WithTrampoline sets the Trampoline instance used to break unbounded
// synchronous async-callback recursion (§4.3). Defaults to a private
// Trampoline per Runtime (not the package-level globalTrampoline), so
// distinct Runtimes don't contend on the same queue.
func WithTrampoline(t *Trampoline) RuntimeOption {
	return runtimeOptionFunc(func(o *runtimeOptions) {
		if t != nil {
			o.trampoline = t
		}
	})
}

// WithMetrics enables the Runtime's Metrics counters. Disabled by default.
func WithMetrics(enabled bool) RuntimeOption {
	return runtimeOptionFunc(func(o *runtimeOptions) { o.metricsEnabled = enabled })
}

// WithTraceCollection enables the per-interpretation breadcrumb trace
// context (traceContext). Disabled by default, since stack-trace
// rewriting is out of scope (§1) and this is a minimal stand-in.
func WithTraceCollection(enabled bool) RuntimeOption {
	return runtimeOptionFunc(func(o *runtimeOptions) { o.traceEnabled = enabled })
}

func resolveRuntimeOptions(opts []RuntimeOption) *runtimeOptions {
	cfg := &runtimeOptions{
		autoCancelBatch: defaultAutoCancelBatch,
		executor:        DefaultExecutor,
		trampoline:      NewTrampoline(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyRuntime(cfg)
	}
	return cfg
}

// Runtime is a configured façade over the run loop, Fiber forking, and
// bounded-traversal machinery. The zero-configuration entry points
// (RunSync, RunAsync, RunCancellable in entrypoints.go) use a
// package-level default Runtime; construct one explicitly via NewRuntime
// to override the auto-cancel batch size, the Executor, or to enable
// metrics/tracing.
type Runtime struct {
	cfg      *loopConfig
	executor Executor
	metrics  *Metrics
}

// NewRuntime builds a Runtime from the supplied options.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	resolved := resolveRuntimeOptions(opts)
	var metrics *Metrics
	if resolved.metricsEnabled {
		metrics = &Metrics{}
	}
	return &Runtime{
		cfg: &loopConfig{
			autoCancelBatch: resolved.autoCancelBatch,
			trampoline:      resolved.trampoline,
			metrics:         metrics,
			traceEnabled:    resolved.traceEnabled,
		},
		executor: resolved.executor,
		metrics:  metrics,
	}
}

// defaultRuntime backs the package-level RunSync/RunAsync/RunCancellable.
var defaultRuntime = &Runtime{cfg: defaultLoopConfig, executor: DefaultExecutor}

// Metrics returns the Runtime's counters, or nil if WithMetrics wasn't
// enabled.
func (r *Runtime) Metrics() *Metrics { return r.metrics }
