package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricNamespace = "transformer_zoo"

	metricsNameVisualizationLatency = "server_visualization_latency"
	metricsNameModelLoadLatency     = "server_model_load_latency"
	metricsNameModelLoads           = "server_model_loads_total"
	metricsNameCacheHits            = "server_cache_hits_total"
	metricsNameCacheMisses          = "server_cache_misses_total"
	metricsNameResidentModel        = "server_resident_model"

	metricLabelModelName = "model_name"
)

// MetricsMonitoring is an interface for monitoring metrics.
type MetricsMonitoring interface {
	ObserveVisualizationLatency(modelName string, latency time.Duration)
	ObserveModelLoadLatency(modelName string, latency time.Duration)
	IncModelLoads(modelName string)
	IncCacheHits()
	IncCacheMisses()
	SetResidentModel(modelName string)
}

// MetricsMonitor holds and updates Prometheus metrics.
type MetricsMonitor struct {
	visualizationLatencyHistVec *prometheus.HistogramVec
	modelLoadLatencyHistVec     *prometheus.HistogramVec
	modelLoadCounterVec         *prometheus.CounterVec
	cacheHitCounter             prometheus.Counter
	cacheMissCounter            prometheus.Counter
	residentModelGaugeVec       *prometheus.GaugeVec

	residentModel string
}

// latencyBuckets are the buckets for the latencies from 100ms to 5 minutes.
var latencyBuckets []float64 = []float64{
	.1, .2, .5, 1, 2, 5, 10, 30, 60, 120, 180, 240, 300,
}

// NewMetricsMonitor returns a new MetricsMonitor.
func NewMetricsMonitor() *MetricsMonitor {
	visualizationLatencyHistVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      metricsNameVisualizationLatency,
			Buckets:   latencyBuckets,
		},
		[]string{
			metricLabelModelName,
		},
	)

	modelLoadLatencyHistVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      metricsNameModelLoadLatency,
			Buckets:   latencyBuckets,
		},
		[]string{
			metricLabelModelName,
		},
	)

	modelLoadCounterVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      metricsNameModelLoads,
		},
		[]string{
			metricLabelModelName,
		},
	)

	cacheHitCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      metricsNameCacheHits,
		},
	)

	cacheMissCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      metricsNameCacheMisses,
		},
	)

	residentModelGaugeVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      metricsNameResidentModel,
		},
		[]string{
			metricLabelModelName,
		},
	)

	m := &MetricsMonitor{
		visualizationLatencyHistVec: visualizationLatencyHistVec,
		modelLoadLatencyHistVec:     modelLoadLatencyHistVec,
		modelLoadCounterVec:         modelLoadCounterVec,
		cacheHitCounter:             cacheHitCounter,
		cacheMissCounter:            cacheMissCounter,
		residentModelGaugeVec:       residentModelGaugeVec,
	}

	prometheus.MustRegister(
		visualizationLatencyHistVec,
		modelLoadLatencyHistVec,
		modelLoadCounterVec,
		cacheHitCounter,
		cacheMissCounter,
		residentModelGaugeVec,
	)

	return m
}

// ObserveVisualizationLatency observes a new latency data for a visualization request.
func (m *MetricsMonitor) ObserveVisualizationLatency(modelName string, latency time.Duration) {
	m.visualizationLatencyHistVec.WithLabelValues(modelName).Observe(float64(latency) / float64(time.Second))
}

// ObserveModelLoadLatency observes a new latency data for a model load.
func (m *MetricsMonitor) ObserveModelLoadLatency(modelName string, latency time.Duration) {
	m.modelLoadLatencyHistVec.WithLabelValues(modelName).Observe(float64(latency) / float64(time.Second))
}

// IncModelLoads increments the load counter for the model.
func (m *MetricsMonitor) IncModelLoads(modelName string) {
	m.modelLoadCounterVec.WithLabelValues(modelName).Inc()
}

// IncCacheHits increments the cache hit counter.
func (m *MetricsMonitor) IncCacheHits() {
	m.cacheHitCounter.Inc()
}

// IncCacheMisses increments the cache miss counter.
func (m *MetricsMonitor) IncCacheMisses() {
	m.cacheMissCounter.Inc()
}

// SetResidentModel marks the model currently resident in the runtime.
// Only one model is resident at a time, so the previous series is reset.
func (m *MetricsMonitor) SetResidentModel(modelName string) {
	if m.residentModel != "" {
		m.residentModelGaugeVec.WithLabelValues(m.residentModel).Set(0)
	}
	m.residentModel = modelName
	if modelName != "" {
		m.residentModelGaugeVec.WithLabelValues(modelName).Set(1)
	}
}

// UnregisterAllCollectors unregisters all collectors.
func (m *MetricsMonitor) UnregisterAllCollectors() {
	prometheus.Unregister(m.visualizationLatencyHistVec)
	prometheus.Unregister(m.modelLoadLatencyHistVec)
	prometheus.Unregister(m.modelLoadCounterVec)
	prometheus.Unregister(m.cacheHitCounter)
	prometheus.Unregister(m.cacheMissCounter)
	prometheus.Unregister(m.residentModelGaugeVec)
}
