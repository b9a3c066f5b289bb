package effect

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// TestTrampolineConcurrentSubmission drives N goroutines via errgroup.Group
// to submit onto a shared Trampoline concurrently and asserts every task
// runs exactly once, whether it runs inline on the submitting goroutine (the
// one that becomes the drain loop) or queued for that drain loop to pick up.
func TestTrampolineConcurrentSubmission(t *testing.T) {
	tr := NewTrampoline()
	const n = 500
	var mu sync.Mutex
	seen := make(map[int]bool, n)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return tr.Submit(TaskFunc(func() {
				mu.Lock()
				seen[i] = true
				mu.Unlock()
			}))
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, seen, n, "every concurrently submitted task must run exactly once")
}
