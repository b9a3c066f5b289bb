package effect

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestConcurrentFibersAgainstSharedRef stresses the Ref's CAS retry loop
// under real concurrent fiber scheduling, not just goroutines directly.
func TestConcurrentFibersAgainstSharedRef(t *testing.T) {
	ref := NewRef(0)
	const fibers = 200
	var wg sync.WaitGroup
	wg.Add(fibers)
	for i := 0; i < fibers; i++ {
		go func() {
			defer wg.Done()
			fv, err := RunSync(Start(ref.Update(func(v any) any { return v.(int) + 1 })))
			if err != nil {
				t.Error(err)
				return
			}
			if _, err := RunBlocking(fv.(*Fiber).Join()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	v, err := RunSync(ref.Get())
	if err != nil {
		t.Fatal(err)
	}
	if v.(int) != fibers {
		t.Fatalf("ref = %d, want %d", v, fibers)
	}
}

// TestManyConcurrentDeferredsDeliverExactlyOnce hammers Deferred's CAS
// waiter-registration loop with many concurrent Get/Complete pairs.
func TestManyConcurrentDeferredsDeliverExactlyOnce(t *testing.T) {
	const n = 300
	var wg sync.WaitGroup
	wg.Add(n)
	var deliveries atomic.Int64
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			d := NewDeferred()
			var innerWG sync.WaitGroup
			const waiters = 4
			innerWG.Add(waiters)
			for w := 0; w < waiters; w++ {
				RunAsync(d.Get(), func(v any, err error) {
					defer innerWG.Done()
					if err != nil {
						t.Error(err)
						return
					}
					if v.(int) != i {
						t.Errorf("waiter saw %v, want %d", v, i)
						return
					}
					deliveries.Add(1)
				})
			}
			if _, err := RunSync(d.Complete(i)); err != nil {
				t.Error(err)
			}
			innerWG.Wait()
		}()
	}
	wg.Wait()
	if got := deliveries.Load(); got != n*4 {
		t.Fatalf("deliveries = %d, want %d", got, n*4)
	}
}

// TestNestedParallelTraversalsDoNotDeadlock runs a traversal-of-traversals
// to stress the semaphore/fiber bookkeeping under recursive nesting.
func TestNestedParallelTraversalsDoNotDeadlock(t *testing.T) {
	outer := make([]any, 10)
	eff := ParallelTraverseN(3, outer, func(any) *Effect {
		inner := make([]any, 10)
		return ParallelTraverseN(2, inner, func(any) *Effect {
			return Pure(1)
		})
	})

	done := make(chan struct{})
	go func() {
		if _, err := RunBlocking(eff); err != nil {
			t.Error(err)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("nested parallel traversal deadlocked")
	}
}

// TestCancelDuringInFlightTraversalTerminates ensures cancelling an overall
// traversal cancels in-flight fibers rather than hanging forever (§4.7
// cancellation bullet).
func TestCancelDuringInFlightTraversalTerminates(t *testing.T) {
	items := make([]any, 20)

	eff := ParallelTraverseN(5, items, func(v any) *Effect {
		return Cancellable(func(resume func(Result)) *Effect {
			return Unit()
		})
	})

	token := NewCancellationToken()
	done := make(chan struct{})
	startLoop(defaultLoopConfig, eff, token, func(Result) { close(done) })

	time.Sleep(20 * time.Millisecond)
	cancelDone := make(chan struct{})
	go func() {
		_, _ = RunSync(token.Cancel())
		close(cancelDone)
	}()

	select {
	case <-cancelDone:
	case <-time.After(5 * time.Second):
		t.Fatal("cancelling an in-flight traversal did not complete")
	}
}
