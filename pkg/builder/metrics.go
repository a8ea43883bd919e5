package builder

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Metrics holds the Prometheus instruments the Builder updates as nodes
// move through the state machine. Nil-safe: a Builder with no Metrics
// configured skips instrumentation entirely.
type Metrics struct {
	building   prometheus.Gauge
	builds     *prometheus.CounterVec
	cacheHits  prometheus.Counter
	buildTimes prometheus.Histogram
}

// NewMetrics constructs and registers the Builder's instruments against
// reg. Pass prometheus.NewRegistry() (or DefaultRegisterer) from the
// caller's telemetry setup.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		building: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "xuehua",
			Subsystem: "builder",
			Name:      "building_nodes",
			Help:      "Number of nodes currently in the Building state.",
		}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xuehua",
			Subsystem: "builder",
			Name:      "builds_total",
			Help:      "Completed node builds, labeled by outcome.",
		}, []string{"outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xuehua",
			Subsystem: "builder",
			Name:      "cache_hits_total",
			Help:      "Node builds served from the store without invoking the build thunk.",
		}),
		buildTimes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "xuehua",
			Subsystem: "builder",
			Name:      "build_duration_seconds",
			Help:      "Wall-clock duration of non-cached node builds.",
		}),
	}
	reg.MustRegister(m.building, m.builds, m.cacheHits, m.buildTimes)
	return m
}

// Tracer is the optional OpenTelemetry tracer the Builder spans node
// builds under. A Builder with a nil Tracer still builds correctly; it
// just emits no spans.
type Tracer = trace.Tracer
