package polycubes

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Candidates   prometheus.Counter
	Occupied     prometheus.Counter
	Duplicates   prometheus.Counter
	Collisions   prometheus.Counter
	Generation   prometheus.Gauge
	Shapes       prometheus.Gauge
	GenDurations prometheus.Histogram
}

// NewMetrics registers the engine metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Candidates: f.NewCounter(prometheus.CounterOpts{
			Name: "polycubes_candidates_total",
			Help: "Shapes produced by one-cube growth, before deduplication",
		}),
		Occupied: f.NewCounter(prometheus.CounterOpts{
			Name: "polycubes_occupied_attachments_total",
			Help: "Growth attempts that hit an already occupied cell",
		}),
		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Name: "polycubes_duplicates_total",
			Help: "Candidates dropped as already present in their generation",
		}),
		Collisions: f.NewCounter(prometheus.CounterOpts{
			Name: "polycubes_fingerprint_collisions_total",
			Help: "Distinct shapes kept despite sharing a fingerprint",
		}),
		Generation: f.NewGauge(prometheus.GaugeOpts{
			Name: "polycubes_generation",
			Help: "Index of the last finished generation",
		}),
		Shapes: f.NewGauge(prometheus.GaugeOpts{
			Name: "polycubes_generation_shapes",
			Help: "Distinct shapes in the last finished generation",
		}),
		GenDurations: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "polycubes_generation_duration_seconds",
			Help:    "Wall time to build one generation",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 12),
		}),
	}
}

func (m *Metrics) observeGrowth(candidates, occupied int64) {
	if m == nil {
		return
	}
	m.Candidates.Add(float64(candidates))
	m.Occupied.Add(float64(occupied))
}

func (m *Metrics) observeGeneration(gen, shapes int, st BuilderStats, d time.Duration) {
	if m == nil {
		return
	}
	m.Duplicates.Add(float64(st.Duplicates))
	m.Collisions.Add(float64(st.Collisions))
	m.Generation.Set(float64(gen))
	m.Shapes.Set(float64(shapes))
	m.GenDurations.Observe(d.Seconds())
}
