package polycubes

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	g := Rotations()
	e := NewEngine(NewBoundCanonicalizer(g), NewMemoryStore(g, true),
		WithLogger(quietLogger()), WithMetrics(m), WithWorkers(2))
	got, err := e.Counts(t.Context(), 4)
	require.NoError(t, err)
	require.Equal(t, oneSided[:4], got)

	// An n-cell shape has 6n attachments; each of its n-1 adjacencies blocks two.
	// seed: 6 free. domino: 12-2. two trominoes: 2*(18-4).
	assert.Equal(t, float64(6+10+28), testutil.ToFloat64(m.Candidates))
	assert.Equal(t, float64(0+2+8), testutil.ToFloat64(m.Occupied))
	assert.Equal(t, float64(6+10+28-1-2-8), testutil.ToFloat64(m.Duplicates))
	assert.Zero(t, testutil.ToFloat64(m.Collisions))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.Generation))
	assert.Equal(t, float64(8), testutil.ToFloat64(m.Shapes))
	assert.Equal(t, 1, testutil.CollectAndCount(m.GenDurations))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.observeGrowth(1, 2)
	m.observeGeneration(1, 1, BuilderStats{}, 0)
}

func TestNewMetricsRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}
