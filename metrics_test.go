package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.incIterations()
	m.incAsyncBoundaries()
	m.incFibersStarted()
	m.incCancellations()
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestRuntimeMetricsDisabledByDefault(t *testing.T) {
	rt := NewRuntime()
	assert.Nil(t, rt.Metrics())
}

func TestRuntimeMetricsCountsIterations(t *testing.T) {
	rt := NewRuntime(WithMetrics(true))
	require.NotNil(t, rt.Metrics())

	v, err := rt.RunSync(Pure(1).Map(func(v any) (any, error) { return v.(int) + 1, nil }))
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	snap := rt.Metrics().Snapshot()
	assert.Greater(t, snap.Iterations, int64(0))
}

func TestRuntimeMetricsCountsFibersStarted(t *testing.T) {
	rt := NewRuntime(WithMetrics(true))
	fv, err := rt.RunSync(rt.Start(Pure(1)))
	require.NoError(t, err)
	fiber := fv.(*Fiber)
	_, err = rt.RunBlocking(fiber.Join())
	require.NoError(t, err)

	assert.Equal(t, int64(1), rt.Metrics().Snapshot().FibersStarted)
}
