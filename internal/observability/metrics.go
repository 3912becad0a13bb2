package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/basecamp/loadable/loadable"
)

var _ loadable.Hooks = (*Metrics)(nil)

// Metrics exports load activity as Prometheus metrics.
//
// Metrics:
//   - loadable_loads_total{slot, result} (Counter): completed loads by slot and outcome
//   - loadable_load_duration_seconds{slot} (Histogram): load duration by slot
//   - loadable_loads_in_flight{slot} (Gauge): loads currently running
//   - loadable_cancels_total{slot} (Counter): cancelled loads
//   - loadable_fetches_total{result} (Counter): data source fetches
type Metrics struct {
	loads    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
	cancels  *prometheus.CounterVec
	fetches  *prometheus.CounterVec
}

// NewMetrics registers the load metrics with reg.
// A nil registerer uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		loads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadable_loads_total",
				Help: "Total number of completed loads",
			},
			[]string{"slot", "result"}, // "success", "failure"
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loadable_load_duration_seconds",
				Help:    "Load duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"slot"},
		),
		inFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "loadable_loads_in_flight",
				Help: "Number of loads currently running",
			},
			[]string{"slot"},
		),
		cancels: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadable_cancels_total",
				Help: "Total number of cancelled loads",
			},
			[]string{"slot"},
		),
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadable_fetches_total",
				Help: "Total number of data source fetches",
			},
			[]string{"result"},
		),
	}
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// OnLoadStart increments the in-flight gauge.
func (m *Metrics) OnLoadStart(ctx context.Context, info loadable.LoadInfo) context.Context {
	m.inFlight.WithLabelValues(info.Slot).Inc()
	return ctx
}

// OnLoadEnd records the outcome and duration of a load.
func (m *Metrics) OnLoadEnd(_ context.Context, info loadable.LoadInfo, err error, duration time.Duration) {
	m.inFlight.WithLabelValues(info.Slot).Dec()
	m.loads.WithLabelValues(info.Slot, result(err)).Inc()
	m.duration.WithLabelValues(info.Slot).Observe(duration.Seconds())
}

// OnCancel counts a cancelled load.
func (m *Metrics) OnCancel(slot string) {
	m.cancels.WithLabelValues(slot).Inc()
}

// OnFetch counts a data source fetch.
func (m *Metrics) OnFetch(f FetchMetrics) {
	m.fetches.WithLabelValues(result(f.Error)).Inc()
}
