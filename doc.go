// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package effect implements the core of a purely-functional effect runtime:
// first-class, referentially transparent descriptions of computations
// ("effects"), interpreted by a trampolined run loop with well-defined
// semantics for sequencing, error handling, asynchrony, cancellation, and
// bounded concurrency.
//
// # Architecture
//
// An [Effect] value is a lazily built, immutable description of a
// computation (see effect.go for the tagged-variant AST). [RunSync],
// [RunAsync], and [RunCancellable] are entry points that hand an Effect to
// the run loop (runloop.go), which interprets it to either a synchronous
// value, an error, or an asynchronous continuation installed via a
// [restartCallback] (restart.go).
//
// Cancellation is cooperative, threaded through a [CancellationToken]
// (token.go): a shared, CAS-mutated stack of finalizer Effects plus a
// monotonic cancelled flag and a nestable mask. [Deferred] (deferred.go) is
// a lock-free single-assignment cell with waiter registration; [Ref]
// (ref.go) is a CAS cell for pure state; [Fiber] (fiber.go) forks an
// independent interpretation with its own token. [ParallelTraverseN]
// (parallel.go) runs a family of Effects with a fixed upper bound on
// in-flight work.
//
// # Concurrency model
//
// The run loop itself is single-threaded per invocation: one goroutine
// interprets one Effect tree at a time. Distinct Effects, Fibers, and async
// producers may run concurrently on separate goroutines, coordinated via
// the [Executor] interface (executor.go) consumed from an external
// thread-pool collaborator, and via the internal [Trampoline]
// (trampoline.go) which breaks unbounded synchronous callback recursion
// without growing the native stack.
//
// # Scope
//
// Out of scope: type-class law checking, timers/clocks/sleep (only the hook
// shape is defined), thread-pool implementations (only the Submit
// interface is consumed), stack-trace rewriting, CLI bootstrap, preemptive
// cancellation, and fairness across effect graphs.
package effect
