package effect

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiberStartJoinReturnsResult(t *testing.T) {
	eff := Start(Pure(5).Map(func(v any) (any, error) { return v.(int) * 2, nil }))
	v, err := RunBlocking(eff.Bind(func(v any) (*Effect, error) {
		return v.(*Fiber).Join(), nil
	}))
	require.NoError(t, err)
	assert.Equal(t, 10, v)
}

func TestFiberJoinSurfacesFailure(t *testing.T) {
	sentinel := errors.New("fiber failed")
	eff := Start(RaiseError(sentinel)).Bind(func(v any) (*Effect, error) {
		return v.(*Fiber).Join(), nil
	})
	_, err := RunBlocking(eff)
	assert.ErrorIs(t, err, sentinel)
}

func TestFiberCancelWaitsForFinalizers(t *testing.T) {
	var finalizerRan bool
	blocked := make(chan struct{})
	child := Cancellable(func(resume func(Result)) *Effect {
		close(blocked)
		return Unit()
	})

	fv, err := RunSync(Start(Bracket(
		Pure(nil),
		func(any) *Effect { return child },
		func(any) error { finalizerRan = true; return nil },
	)))
	require.NoError(t, err)
	fiber := fv.(*Fiber)

	<-blocked
	_, err = RunBlocking(fiber.Cancel())
	require.NoError(t, err)
	assert.True(t, finalizerRan, "Cancel must wait for the bracket's release to run")
}

func TestFiberCancelIdempotent(t *testing.T) {
	fv, err := RunSync(Start(Cancellable(func(func(Result)) *Effect { return Unit() })))
	require.NoError(t, err)
	fiber := fv.(*Fiber)

	_, err1 := RunBlocking(fiber.Cancel())
	_, err2 := RunBlocking(fiber.Cancel())
	require.NoError(t, err1)
	require.NoError(t, err2)
}

func TestFiberJoinAfterNaturalCompletionRace(t *testing.T) {
	// A fiber that finishes before Cancel runs should still let Join
	// observe its own outcome rather than a manufactured cancellation.
	fv, err := RunSync(Start(Pure(123)))
	require.NoError(t, err)
	fiber := fv.(*Fiber)

	time.Sleep(10 * time.Millisecond) // let the fiber settle
	v, joinErr := RunBlocking(fiber.Join())
	require.NoError(t, joinErr)
	assert.Equal(t, 123, v)
}
