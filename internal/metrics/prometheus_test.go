package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/garyjia/scanpaie/internal/domain/entity"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveAnalysis(t *testing.T) {
	before := testutil.ToFloat64(analysesTotal)
	beforeSpike := testutil.ToFloat64(anomaliesTotal.WithLabelValues("salary_spike", "high"))

	NewRecorder().ObserveAnalysis(&entity.ScanPaieAnalysis{
		OverallRiskScore: 48,
		Anomalies: []entity.Anomaly{
			{Type: entity.AnomalySalarySpike, Severity: entity.SeverityHigh},
			{Type: entity.AnomalySalarySpike, Severity: entity.SeverityHigh},
			{Type: entity.AnomalyTaxInconsistent, Severity: entity.SeverityMedium},
		},
	})

	assert.Equal(t, before+1, testutil.ToFloat64(analysesTotal))
	assert.Equal(t, beforeSpike+2, testutil.ToFloat64(anomaliesTotal.WithLabelValues("salary_spike", "high")))
}

func TestRecorder_ObserveImportRows(t *testing.T) {
	before := testutil.ToFloat64(importRowsTotal.WithLabelValues("warning"))

	r := NewRecorder()
	r.ObserveImportRows("warning", 3)
	r.ObserveImportRows("warning", 0)

	assert.Equal(t, before+3, testutil.ToFloat64(importRowsTotal.WithLabelValues("warning")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Middleware())
	router.GET("/api/scanpaie/analyses/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})
	router.GET("/metrics", gin.WrapH(Handler()))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/scanpaie/analyses/:id", "404"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/scanpaie/analyses/abc", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/scanpaie/analyses/:id", "404")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "scanpaie_http_requests_total"))
}
