package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry is served on /api/metrics
	Registry = prometheus.NewRegistry()

	factory = promauto.With(Registry)

	// Buckets for admissions API calls ranging from milliseconds to the client timeout
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13}

	// HTTP Metrics
	HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// Admissions API client metrics
	PortalAPIRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_api_client_operation_duration_seconds",
			Help:    "Admissions API operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	PortalAPIRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_api_client_operation_total",
			Help: "Total number of admissions API operations",
		},
		[]string{"operation", "status"},
	)

	// Reference cache metrics
	CacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_name"},
	)

	CacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_name"},
	)

	CacheSize = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Number of entries in cache",
		},
		[]string{"cache_name"},
	)

	// Workflow metrics
	WorkflowTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_workflow_transitions_total",
			Help: "Workflow step transitions",
		},
		[]string{"from", "to"},
	)

	WorkflowOutcomes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_workflow_outcomes_total",
			Help: "Outcome of workflow intents",
		},
		[]string{"intent", "outcome"},
	)

	ApplicationSubmissions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_application_submissions_total",
			Help: "Total application submission attempts",
		},
		[]string{"status"},
	)

	OTPVerifications = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_otp_verifications_total",
			Help: "Total OTP verification attempts",
		},
		[]string{"status"},
	)

	ReceiptUploads = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_receipt_uploads_total",
			Help: "Total payment receipt uploads",
		},
		[]string{"payment_mode", "status"},
	)

	ActiveSessions = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "admissions_active_sessions",
			Help: "Number of live workflow sessions",
		},
	)

	// Infrastructure Metrics
	GoRoutines = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_goroutines",
			Help: "Number of goroutines",
		},
	)

	HeapAlloc = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_mem_heap_alloc_bytes",
			Help: "Heap allocated bytes",
		},
	)
)

func init() {
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// RecordInfrastructureMetrics collects infrastructure metrics until stop is closed
func RecordInfrastructureMetrics(stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				var m runtime.MemStats
				runtime.ReadMemStats(&m)

				GoRoutines.Set(float64(runtime.NumGoroutine()))
				HeapAlloc.Set(float64(m.HeapAlloc))
			}
		}
	}()
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}
