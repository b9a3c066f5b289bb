// Copyright 2026 Joseph Cumines / Permission to use, copy, modify, and
// distribute this software for any purpose with or without fee is hereby
// granted, provided that this copyright notice appears in all copies.

package effect

import (
	"sync"
	"sync/atomic"
)

// ParallelTraverseN forks one Fiber per item, bounded to at most n running
// concurrently (a counting semaphore, the same shape as the teacher's
// microbatch flush gate), and returns an Effect producing the results in
// input order regardless of completion order. The first failure (from
// starting a Fiber or from one failing) cancels every other in-flight
// Fiber and that failure is what the returned Effect surfaces; results
// from siblings still running at that point are discarded (§4.6, §8
// bounded-traversal scenario).
func ParallelTraverseN(n int, items []any, f func(any) *Effect) *Effect {
	return defaultRuntime.ParallelTraverseN(n, items, f)
}

// ParallelTraverseN is the Runtime method backing the package-level
// ParallelTraverseN.
func (r *Runtime) ParallelTraverseN(n int, items []any, f func(any) *Effect) *Effect {
	if n <= 0 {
		n = 1
	}
	return Cancellable(func(resume func(Result)) *Effect {
		count := len(items)
		if count == 0 {
			resume(Ok([]any{}))
			return Unit()
		}

		var (
			sem      = make(chan struct{}, n)
			wg       sync.WaitGroup
			fibers   = make([]*Fiber, count)
			fibersMu sync.Mutex
			results  = make([]any, count)
			failed   atomic.Bool
			firstErr atomic.Pointer[error]
		)

		latchFailure := func(err error) bool {
			if failed.CompareAndSwap(false, true) {
				firstErr.Store(&err)
				return true
			}
			return false
		}
		cancelAll := func() {
			fibersMu.Lock()
			snapshot := append([]*Fiber(nil), fibers...)
			fibersMu.Unlock()
			for _, fb := range snapshot {
				if fb != nil {
					_, _ = RunBlocking(fb.Cancel())
				}
			}
		}

		wg.Add(count)
		for i := 0; i < count; i++ {
			i := i
			go func() {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				if failed.Load() {
					return
				}
				fv, err := RunSync(r.Start(f(items[i])))
				if err != nil {
					if latchFailure(err) {
						go cancelAll()
					}
					return
				}
				fb := fv.(*Fiber)
				fibersMu.Lock()
				fibers[i] = fb
				fibersMu.Unlock()
				if failed.Load() {
					// A concurrent cancelAll() may have already taken its
					// snapshot before this fiber was stored, missing it.
					// Catch that race by checking again right after storing.
					_, _ = RunBlocking(fb.Cancel())
					return
				}
				v, jerr := RunBlocking(fb.Join())
				if jerr != nil {
					if latchFailure(jerr) {
						go cancelAll()
					}
					return
				}
				results[i] = v
			}()
		}

		go func() {
			wg.Wait()
			if failed.Load() {
				cancelAll()
				resume(Failed(*firstErr.Load()))
				return
			}
			resume(Ok(results))
		}()

		return Delay(func() (any, error) {
			latchFailure(ErrFiberCancelled)
			cancelAll()
			return nil, nil
		})
	})
}

// ParallelSequenceN is ParallelTraverseN specialized to a slice of
// already-built Effects.
func ParallelSequenceN(n int, effects []*Effect) *Effect {
	return defaultRuntime.ParallelSequenceN(n, effects)
}

// ParallelSequenceN is the Runtime method backing the package-level
// ParallelSequenceN.
func (r *Runtime) ParallelSequenceN(n int, effects []*Effect) *Effect {
	items := make([]any, len(effects))
	for i, e := range effects {
		items[i] = e
	}
	return r.ParallelTraverseN(n, items, func(v any) *Effect { return v.(*Effect) })
}

// ParallelReplicateAN runs eff count times concurrently, bounded to n at
// once, and collects the count results in slot order.
func ParallelReplicateAN(n, count int, eff *Effect) *Effect {
	return defaultRuntime.ParallelReplicateAN(n, count, eff)
}

// ParallelReplicateAN is the Runtime method backing the package-level
// ParallelReplicateAN.
func (r *Runtime) ParallelReplicateAN(n, count int, eff *Effect) *Effect {
	items := make([]any, count)
	return r.ParallelTraverseN(n, items, func(any) *Effect { return eff })
}

// ParMapN is an alias for ParallelTraverseN, named for callers thinking in
// terms of "map this function over these items, n at a time" rather than
// "traverse."
func ParMapN(n int, items []any, f func(any) *Effect) *Effect {
	return ParallelTraverseN(n, items, f)
}

// ParMapN is the Runtime method backing the package-level ParMapN.
func (r *Runtime) ParMapN(n int, items []any, f func(any) *Effect) *Effect {
	return r.ParallelTraverseN(n, items, f)
}

// Race runs every effect concurrently and settles with whichever finishes
// first - success or failure alike - cancelling every other still-running
// effect. Race fails with ErrEmptyRace if effects is empty.
func Race(effects []*Effect) *Effect { return defaultRuntime.Race(effects) }

// Race is the Runtime method backing the package-level Race.
func (r *Runtime) Race(effects []*Effect) *Effect {
	return Cancellable(func(resume func(Result)) *Effect {
		if len(effects) == 0 {
			resume(Failed(ErrEmptyRace))
			return Unit()
		}

		var (
			fibers   = make([]*Fiber, len(effects))
			fibersMu sync.Mutex
			once     sync.Once
			settled  atomic.Bool
		)
		cancelAll := func(except int) {
			fibersMu.Lock()
			snapshot := append([]*Fiber(nil), fibers...)
			fibersMu.Unlock()
			for i, fb := range snapshot {
				if i != except && fb != nil {
					_, _ = RunBlocking(fb.Cancel())
				}
			}
		}

		for i, eff := range effects {
			i, eff := i, eff
			go func() {
				fv, err := RunSync(r.Start(eff))
				if err != nil {
					once.Do(func() { resume(Failed(err)) })
					return
				}
				fb := fv.(*Fiber)
				fibersMu.Lock()
				fibers[i] = fb
				fibersMu.Unlock()
				if settled.Load() {
					// A concurrent cancelAll() may have already taken its
					// snapshot before this fiber was stored, missing it.
					// Catch that race by checking again right after storing.
					_, _ = RunBlocking(fb.Cancel())
					return
				}
				v, jerr := RunBlocking(fb.Join())
				once.Do(func() {
					settled.Store(true)
					cancelAll(i)
					if jerr != nil {
						resume(Failed(jerr))
					} else {
						resume(Ok(v))
					}
				})
			}()
		}

		return Delay(func() (any, error) {
			cancelAll(-1)
			return nil, nil
		})
	})
}

// RacePairResult is RacePair's outcome: the winning side's settled value
// (Value/Err) plus a live handle on the loser, which RacePair leaves
// running - the caller decides whether to Join or Cancel it.
type RacePairResult struct {
	FirstWon bool
	Value    any
	Err      error
	Loser    *Fiber
}

// RacePair runs a and b concurrently and settles as soon as either does,
// leaving the other (the loser) running and returned as a Fiber handle -
// unlike Race, which cancels the loser automatically.
func RacePair(a, b *Effect) *Effect { return defaultRuntime.RacePair(a, b) }

// RacePair is the Runtime method backing the package-level RacePair.
func (r *Runtime) RacePair(a, b *Effect) *Effect {
	return Delay(func() (any, error) {
		av, aerr := RunSync(r.Start(a))
		if aerr != nil {
			return nil, aerr
		}
		bv, berr := RunSync(r.Start(b))
		if berr != nil {
			fa := av.(*Fiber)
			_, _ = RunBlocking(fa.Cancel())
			return nil, berr
		}
		fa, fb := av.(*Fiber), bv.(*Fiber)
		return RacePairEffect(fa, fb), nil
	})
}

// RacePairEffect waits for whichever of fa/fb settles first and returns the
// RacePairResult describing the winner and the still-running loser.
func RacePairEffect(fa, fb *Fiber) *Effect {
	return Cancellable(func(resume func(Result)) *Effect {
		type settled struct {
			first bool
			v     any
			err   error
		}
		ch := make(chan settled, 2)
		go func() { v, err := RunBlocking(fa.Join()); ch <- settled{true, v, err} }()
		go func() { v, err := RunBlocking(fb.Join()); ch <- settled{false, v, err} }()

		go func() {
			first := <-ch
			if first.first {
				resume(Ok(RacePairResult{FirstWon: true, Value: first.v, Err: first.err, Loser: fb}))
			} else {
				resume(Ok(RacePairResult{FirstWon: false, Value: first.v, Err: first.err, Loser: fa}))
			}
		}()

		return Unit()
	})
}
