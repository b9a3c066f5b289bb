package effect

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDeferredLaw is §8's Deferred law:
// Deferred[A].bind(r -> r.complete(a) >> r.get) == pure(a).
func TestDeferredLaw(t *testing.T) {
	d := NewDeferred()
	v, err := RunBlocking(d.Complete(99).Then(d.Get()))
	require.NoError(t, err)
	assert.Equal(t, 99, v)
}

func TestDeferredCompletionScenario(t *testing.T) {
	// §8 scenario 3: fork a fiber that completes the deferred, then get it.
	d := NewDeferred()
	eff := Start(d.Complete(42)).Then(d.Get())
	v, err := RunBlocking(eff)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDeferredGetBeforeSetSuspends(t *testing.T) {
	d := NewDeferred()
	done := make(chan struct{})
	var value any
	RunAsync(d.Get(), func(v any, err error) {
		require.NoError(t, err)
		value = v
		close(done)
	})

	select {
	case <-done:
		t.Fatal("Get must suspend until Complete runs")
	case <-time.After(20 * time.Millisecond):
	}

	_, err := RunSync(d.Complete(7))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was never woken after Complete")
	}
	assert.Equal(t, 7, value)
}

// TestDeferredExactlyOnceCompletion is §8's exactly-once invariant.
func TestDeferredExactlyOnceCompletion(t *testing.T) {
	d := NewDeferred()
	_, err := RunSync(d.Complete(1))
	require.NoError(t, err)

	_, err = RunSync(d.Complete(2))
	assert.ErrorIs(t, err, ErrDeferredAlreadyComplete)
	assert.ErrorIs(t, err, ErrIllegalState)

	v, err := RunSync(d.Get())
	require.NoError(t, err)
	assert.Equal(t, 1, v, "the first completion value must stick")
}

func TestDeferredAllWaitersObserveFirstValueExactlyOnce(t *testing.T) {
	d := NewDeferred()
	const waiters = 20
	results := make([]any, waiters)
	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		i := i
		RunAsync(d.Get(), func(v any, err error) {
			defer wg.Done()
			require.NoError(t, err)
			results[i] = v
		})
	}

	_, err := RunSync(d.Complete("value"))
	require.NoError(t, err)
	wg.Wait()

	for i, v := range results {
		assert.Equal(t, "value", v, "waiter %d did not observe the completion value", i)
	}
}

func TestDeferredTryGet(t *testing.T) {
	d := NewDeferred()
	v, err := RunSync(d.TryGet())
	require.NoError(t, err)
	assert.Equal(t, Option{}, v)

	_, err = RunSync(d.Complete("x"))
	require.NoError(t, err)

	v, err = RunSync(d.TryGet())
	require.NoError(t, err)
	assert.Equal(t, Option{Value: "x", Present: true}, v)
}

func TestDeferredGetCancellationRemovesWaiter(t *testing.T) {
	d := NewDeferred()
	token := NewCancellationToken()
	var delivered bool
	startLoop(defaultLoopConfig, d.Get(), token, func(Result) { delivered = true })

	// Cancelling before Complete must remove the waiter: a later Complete
	// should not try to invoke a stale callback (and must still succeed).
	_, err := RunSync(token.Cancel())
	require.NoError(t, err)
	assert.False(t, delivered)

	_, err = RunSync(d.Complete("late"))
	require.NoError(t, err)
}

func TestDeferredGetUncancellableIgnoresTokenCancel(t *testing.T) {
	d := NewDeferred()
	token := NewCancellationToken()
	var delivered bool
	startLoop(defaultLoopConfig, d.GetUncancellable(), token, func(Result) { delivered = true })

	// Unlike Get, GetUncancellable pushes no cancel finalizer: cancelling
	// the token must not remove the waiter.
	_, err := RunSync(token.Cancel())
	require.NoError(t, err)
	assert.False(t, delivered)

	_, err = RunSync(d.Complete("value"))
	require.NoError(t, err)
	assert.True(t, delivered)
}

func TestDeferredCompleteFansOutOffCaller(t *testing.T) {
	// Complete must submit waiters through the Executor rather than call
	// them inline, so a slow waiter can't block Complete's own caller.
	d := NewDeferred()
	release := make(chan struct{})
	waiterStarted := make(chan struct{})
	RunAsync(d.Get(), func(any, error) {
		close(waiterStarted)
		<-release
	})

	completeDone := make(chan struct{})
	go func() {
		_, _ = RunSync(d.Complete(1))
		close(completeDone)
	}()

	select {
	case <-completeDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Complete must not block on a slow waiter")
	}
	close(release)
	<-waiterStarted
}
