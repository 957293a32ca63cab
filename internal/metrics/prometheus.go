package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/garyjia/scanpaie/internal/application/port"
	"github.com/garyjia/scanpaie/internal/domain/entity"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanpaie",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scanpaie",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// Analysis metrics
	analysesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "scanpaie",
			Name:      "analyses_total",
			Help:      "Total number of payroll analyses",
		},
	)

	anomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanpaie",
			Name:      "anomalies_total",
			Help:      "Total number of detected anomalies",
		},
		[]string{"type", "severity"},
	)

	riskScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "scanpaie",
			Name:      "risk_score",
			Help:      "Overall risk score of payroll analyses",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		},
	)

	// Import metrics
	importRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanpaie",
			Name:      "import_rows_total",
			Help:      "Total number of imported payroll rows by status",
		},
		[]string{"status"},
	)
)

// Middleware records request count and latency per route pattern
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAnalysis records one completed analysis
func RecordAnalysis(report *entity.ScanPaieAnalysis) {
	analysesTotal.Inc()
	riskScore.Observe(float64(report.OverallRiskScore))
	for i := range report.Anomalies {
		a := &report.Anomalies[i]
		anomaliesTotal.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
	}
}

// RecordImportRows adds count rows with the given import status
func RecordImportRows(status string, count int) {
	if count <= 0 {
		return
	}
	importRowsTotal.WithLabelValues(status).Add(float64(count))
}

// Recorder adapts the package collectors to port.MetricsRecorder
type Recorder struct{}

// NewRecorder creates a Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// ObserveAnalysis implements port.MetricsRecorder
func (Recorder) ObserveAnalysis(report *entity.ScanPaieAnalysis) {
	RecordAnalysis(report)
}

// ObserveImportRows implements port.MetricsRecorder
func (Recorder) ObserveImportRows(status string, count int) {
	RecordImportRows(status, count)
}

var _ port.MetricsRecorder = Recorder{}
