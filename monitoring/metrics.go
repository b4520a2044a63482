// Package monitoring exposes Prometheus metrics and a websocket event hub.
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the service reports.
type Metrics struct {
	Trainings        prometheus.Counter
	TrainingCacheHit prometheus.Counter
	TrainingDuration prometheus.Histogram
	ModelAccuracy    prometheus.Gauge
	DatasetRows      prometheus.Gauge
	Predictions      *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     prometheus.Histogram
	WSClients        prometheus.Gauge
}

// New registers metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers metrics on registerer; tests pass a fresh
// prometheus.NewRegistry() to stay isolated.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Trainings: factory.NewCounter(prometheus.CounterOpts{
			Name: "trainings_total",
			Help: "Total number of full model fits",
		}),
		TrainingCacheHit: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_cache_hits_total",
			Help: "Total number of training requests served from the model cache",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Time spent loading, splitting and fitting",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		ModelAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_accuracy",
			Help: "Held-out accuracy of the latest model",
		}),
		DatasetRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dataset_rows",
			Help: "Rows in the dataset the latest model was fitted on",
		}),
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions by outcome",
		}, []string{"outcome"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "code"}),
		HTTPDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ws_clients",
			Help: "Connected websocket clients",
		}),
	}
}

func (m *Metrics) ObserveTraining(d time.Duration, accuracy float64, rows int) {
	m.Trainings.Inc()
	m.TrainingDuration.Observe(d.Seconds())
	m.ModelAccuracy.Set(accuracy)
	m.DatasetRows.Set(float64(rows))
}

func (m *Metrics) ObserveCacheHit() {
	m.TrainingCacheHit.Inc()
}

func (m *Metrics) ObservePrediction(detected bool) {
	outcome := "healthy"
	if detected {
		outcome = "detected"
	}
	m.Predictions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(method string, code int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.Observe(d.Seconds())
}
