package effect

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenPushPopLIFO(t *testing.T) {
	tok := NewCancellationToken()
	var order []int
	push := func(n int) *Effect {
		return Delay(func() (any, error) { order = append(order, n); return nil, nil })
	}
	tok.Push(push(1))
	tok.Push(push(2))
	tok.Push(push(3))

	first := tok.Pop()
	second := tok.Pop()
	third := tok.Pop()
	empty := tok.Pop()

	_, _ = RunSync(first)
	_, _ = RunSync(second)
	_, _ = RunSync(third)
	assert.Equal(t, []int{3, 2, 1}, order)
	v, err := RunSync(empty)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestTokenPushNoOpWhenCancelledOrMasked(t *testing.T) {
	t.Run("cancelled", func(t *testing.T) {
		tok := NewCancellationToken()
		_, _ = RunSync(tok.Cancel())
		tok.Push(Unit())
		assert.Equal(t, Unit(), tok.Pop())
	})

	t.Run("masked", func(t *testing.T) {
		tok := NewCancellationToken()
		tok.PushMask()
		tok.Push(Unit())
		assert.Equal(t, Unit(), tok.Pop())
		tok.PopMask()
	})
}

func TestTokenCancelRunsFinalizersLIFOFirstErrorWins(t *testing.T) {
	tok := NewCancellationToken()
	var ran []string
	errA := errors.New("A failed")
	errB := errors.New("B failed")

	tok.Push(Delay(func() (any, error) { ran = append(ran, "first-pushed"); return nil, nil }))
	tok.Push(Delay(func() (any, error) { ran = append(ran, "second-pushed"); return nil, errA }))
	tok.Push(Delay(func() (any, error) { ran = append(ran, "third-pushed"); return nil, errB }))

	_, err := RunSync(tok.Cancel())
	require.Error(t, err)
	// LIFO: third-pushed runs first, its error (errB) wins as "first error".
	assert.Equal(t, []string{"third-pushed", "second-pushed", "first-pushed"}, ran)
	assert.ErrorIs(t, err, errB)
}

func TestTokenMaskLatchesCancellation(t *testing.T) {
	tok := NewCancellationToken()
	tok.PushMask()
	tok.cancelled.Store(true)
	assert.False(t, tok.IsCancelled(), "cancellation must not be observable while masked")
	tok.PopMask()
	assert.True(t, tok.IsCancelled(), "a pending cancel must be observed once unmasked")
}

func TestTokenMaskNestsCorrectly(t *testing.T) {
	tok := NewCancellationToken()
	tok.PushMask()
	tok.PushMask()
	tok.cancelled.Store(true)
	tok.PopMask()
	assert.False(t, tok.IsCancelled(), "still masked at depth 1")
	tok.PopMask()
	assert.True(t, tok.IsCancelled())
}

func TestTokenCancelIdempotent(t *testing.T) {
	tok := NewCancellationToken()
	var runs int
	tok.Push(Delay(func() (any, error) { runs++; return nil, nil }))

	_, err1 := RunSync(tok.Cancel())
	_, err2 := RunSync(tok.Cancel())
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, 1, runs, "finalizers must not run twice across repeated Cancel calls")
}

func TestTokenDoneClosedOnceAfterCancel(t *testing.T) {
	tok := NewCancellationToken()
	cancelEff := tok.Cancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-tok.Done()
	}()
	_, err := RunSync(cancelEff)
	require.NoError(t, err)
	wg.Wait()
	// Done must already be closed: a second receive must not block.
	<-tok.Done()
}

func TestTokenConcurrentPushRetainsAllFinalizers(t *testing.T) {
	tok := NewCancellationToken()
	const n = 200
	var mu sync.Mutex
	seen := make(map[int]bool, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			tok.Push(Delay(func() (any, error) {
				mu.Lock()
				seen[i] = true
				mu.Unlock()
				return nil, nil
			}))
		}()
	}
	wg.Wait()

	_, err := RunSync(tok.Cancel())
	require.NoError(t, err)
	assert.Len(t, seen, n, "every concurrently pushed finalizer must run exactly once")
}
