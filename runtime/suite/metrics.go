package suite

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Conversion outcomes.
const (
	OutcomeConverted = "converted"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Metrics counts conversions. A nil *Metrics records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	transcripts *prometheus.CounterVec
	commands    prometheus.Counter
	isolated    prometheus.Counter
	duration    prometheus.Histogram
}

// NewMetrics registers the conversion metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transcripts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grnconv_transcripts_total",
			Help: "Transcripts processed, by outcome.",
		}, []string{"outcome"}),
		commands: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grnconv_commands_total",
			Help: "Commands emitted into generated tests.",
		}),
		isolated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grnconv_isolated_tests_total",
			Help: "Generated tests guarded by the isolation build tag.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grnconv_convert_duration_seconds",
			Help:    "Time to convert one transcript.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}
	m.registry.MustRegister(m.transcripts, m.commands, m.isolated, m.duration)
	return m
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the metrics in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(filename string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(filename, m.registry)
}

func (m *Metrics) observe(outcome string, d time.Duration, commands int, isolated bool) {
	if m == nil {
		return
	}
	m.transcripts.WithLabelValues(outcome).Inc()
	if outcome != OutcomeConverted {
		return
	}
	m.duration.Observe(d.Seconds())
	m.commands.Add(float64(commands))
	if isolated {
		m.isolated.Inc()
	}
}
