// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package effect

// Task is a unit of work an Executor can run. restartCallback implements it
// directly (restart.go); Fiber's run-loop invocation is wrapped in a
// TaskFunc (fiber.go).
type Task interface {
	Run()
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func()

// Run implements Task.
func (f TaskFunc) Run() { f() }

// Executor is the thread-pool collaborator consumed by the runtime (§6):
// schedule a piece of work, guaranteeing it runs exactly once, possibly on
// any goroutine, and - critically for breaking recursive callback chains -
// never inline on the calling goroutine. Fiber.Start submits the child
// interpretation through an Executor.
type Executor interface {
	Submit(Task) error
}

// GoroutineExecutor is the simplest real Executor: every submitted Task
// runs on a freshly spawned goroutine. It never blocks Submit and never
// runs inline, satisfying the Executor contract trivially.
type GoroutineExecutor struct{}

// Submit implements Executor.
func (GoroutineExecutor) Submit(t Task) error {
	go t.Run()
	return nil
}

// DefaultExecutor is used by Fiber.Start when no Executor is supplied via
// RuntimeOption, and by NewDeferred to fan out waiters.
var DefaultExecutor Executor = GoroutineExecutor{}
