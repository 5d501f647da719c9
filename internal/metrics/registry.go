package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sovereignctl/internal/model"
)

// Registry holds the Prometheus collectors exported by the platform.
type Registry struct {
	registry *prometheus.Registry

	NodeCPU             *prometheus.GaugeVec
	NodeTemp            *prometheus.GaugeVec
	NodeMemory          *prometheus.GaugeVec
	InferenceLatency    prometheus.Gauge
	InferenceThroughput prometheus.Gauge
	AmbientTemp         prometheus.Gauge
	AmbientHumidity     prometheus.Gauge
	AmbientPressure     prometheus.Gauge
	TicksTotal          prometheus.Counter

	AnalysisRequestsTotal *prometheus.CounterVec
	AnalysisDuration      prometheus.Histogram

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with every collector registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initClusterMetrics()
	r.initAnalysisMetrics()
	r.initHTTPMetrics()
	return r
}

// Prometheus returns the underlying registry for exposition.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

func (r *Registry) initClusterMetrics() {
	r.NodeCPU = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sovereign_node_cpu_usage_percent",
			Help: "Simulated CPU usage per node",
		},
		[]string{"node"},
	)
	r.NodeTemp = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sovereign_node_temperature_celsius",
			Help: "Simulated SoC temperature per node",
		},
		[]string{"node"},
	)
	r.NodeMemory = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sovereign_node_memory_usage_percent",
			Help: "Simulated memory usage per node",
		},
		[]string{"node"},
	)
	r.InferenceLatency = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sovereign_inference_latency_ms",
			Help: "Latency of the newest inference sample",
		},
	)
	r.InferenceThroughput = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sovereign_inference_throughput",
			Help: "Throughput of the newest inference sample",
		},
	)
	r.AmbientTemp = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sovereign_ambient_temperature_celsius",
			Help: "Environmental sensor temperature",
		},
	)
	r.AmbientHumidity = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sovereign_ambient_humidity_percent",
			Help: "Environmental sensor relative humidity",
		},
	)
	r.AmbientPressure = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sovereign_ambient_pressure_hpa",
			Help: "Environmental sensor pressure",
		},
	)
	r.TicksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sovereign_ticks_total",
			Help: "Number of simulation ticks applied",
		},
	)
}

func (r *Registry) initAnalysisMetrics() {
	r.AnalysisRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sovereign_analysis_requests_total",
			Help: "Analysis runs by outcome",
		},
		[]string{"outcome"},
	)
	r.AnalysisDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sovereign_analysis_duration_seconds",
			Help:    "Duration of outbound analysis calls",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sovereign_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sovereign_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
}

// ObserveState publishes the gauges for a state copy.
func (r *Registry) ObserveState(s model.State) {
	for _, n := range s.Nodes {
		r.NodeCPU.WithLabelValues(n.ID).Set(n.CPUUsage)
		r.NodeTemp.WithLabelValues(n.ID).Set(n.Temp)
		r.NodeMemory.WithLabelValues(n.ID).Set(n.MemoryUsage)
	}
	if len(s.Metrics) > 0 {
		newest := s.Metrics[len(s.Metrics)-1]
		r.InferenceLatency.Set(newest.Latency)
		r.InferenceThroughput.Set(newest.Throughput)
	}
	r.AmbientTemp.Set(s.Telemetry.Temp)
	r.AmbientHumidity.Set(s.Telemetry.Humidity)
	r.AmbientPressure.Set(s.Telemetry.Pressure)
}

// RecordTick counts one applied tick.
func (r *Registry) RecordTick() {
	r.TicksTotal.Inc()
}

// RecordAnalysis records one analysis run.
func (r *Registry) RecordAnalysis(outcome string, duration time.Duration) {
	r.AnalysisRequestsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		r.AnalysisDuration.Observe(duration.Seconds())
	}
}

// RecordHTTPRequest records an HTTP request with its duration.
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
