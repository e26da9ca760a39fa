package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docuflow"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	jobsClaimedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_claimed_total",
			Help:      "Jobs claimed by workers",
		},
		[]string{"type"},
	)
	jobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Jobs finished successfully",
		},
		[]string{"type"},
	)
	jobsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Job attempts that failed; final=true when no retry is scheduled",
		},
		[]string{"type", "final"},
	)
	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Job processing duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"type"},
	)
	jobsRecoveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_recovered_total",
			Help:      "Stale PROCESSING jobs released by recovery",
		},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Accepted uploads by endpoint",
		},
		[]string{"endpoint"},
	)
	documentsClassifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_classified_total",
			Help:      "Documents classified by detected type",
		},
		[]string{"type"},
	)
	ocrFallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ocr_fallback_total",
			Help:      "Extractions that fell back to OCR",
		},
	)
)

// ObserveHTTPRequest records one served request. Path should be the route
// template so label cardinality stays bounded.
func ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// IncJobClaimed increments the claimed counter.
func IncJobClaimed(jobType string) {
	jobsClaimedTotal.WithLabelValues(jobType).Inc()
}

// IncJobCompleted increments the completed counter.
func IncJobCompleted(jobType string) {
	jobsCompletedTotal.WithLabelValues(jobType).Inc()
}

// IncJobFailed increments the failed counter.
func IncJobFailed(jobType string, final bool) {
	jobsFailedTotal.WithLabelValues(jobType, strconv.FormatBool(final)).Inc()
}

// ObserveJobDuration records a job duration.
func ObserveJobDuration(jobType string, elapsed time.Duration) {
	if elapsed < 0 {
		elapsed = 0
	}
	jobDuration.WithLabelValues(jobType).Observe(elapsed.Seconds())
}

// AddJobsRecovered adds n to the recovered counter.
func AddJobsRecovered(n int) {
	if n > 0 {
		jobsRecoveredTotal.Add(float64(n))
	}
}

// IncUpload increments the uploads counter.
func IncUpload(endpoint string) {
	uploadsTotal.WithLabelValues(endpoint).Inc()
}

// IncDocumentClassified increments the classification counter.
func IncDocumentClassified(docType string) {
	documentsClassifiedTotal.WithLabelValues(docType).Inc()
}

// IncOCRFallback increments the OCR fallback counter.
func IncOCRFallback() {
	ocrFallbackTotal.Inc()
}

// Handler exposes the default registry in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
