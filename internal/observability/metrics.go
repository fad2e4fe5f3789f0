package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the daemon.
type Metrics struct {
	Requests         *prometheus.CounterVec
	SynthesisLatency prometheus.Histogram
	ChunksPerRequest prometheus.Histogram
	EngineErrors     *prometheus.CounterVec
	ModelLoaded      prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests by route and status class.",
		}, []string{"route", "status"}),
		SynthesisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_ms",
			Help:      "End-to-end /speak synthesis latency in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 4000, 8000, 16000, 32000},
		}),
		ChunksPerRequest: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunks_per_request",
			Help:      "Text chunks synthesized per /speak request.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		EngineErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_errors_total",
			Help:      "Engine failures by stage (load, generate, assemble, write).",
		}, []string{"stage"}),
		ModelLoaded: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "1 once the TTS model is resident, else 0.",
		}),
	}
}

func (m *Metrics) ObserveSynthesisLatency(d time.Duration) {
	m.SynthesisLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
