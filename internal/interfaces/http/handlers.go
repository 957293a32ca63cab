package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/scanpaie/internal/application/service"
	"github.com/garyjia/scanpaie/internal/domain/entity"
	"github.com/garyjia/scanpaie/internal/payroll"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	scanService service.ScanService
	health      HealthChecker
	version     string
	logger      Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(scanService service.ScanService, health HealthChecker, version string, logger Logger) *Handlers {
	return &Handlers{
		scanService: scanService,
		health:      health,
		version:     version,
		logger:      logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ListAnalysesRequest represents query parameters for listing analyses
type ListAnalysesRequest struct {
	CompanyID string `form:"company_id"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

// ListAnalysesResponse is one page of stored analyses
type ListAnalysesResponse struct {
	Analyses []*entity.AnalysisRecord `json:"analyses"`
	Limit    int                      `json:"limit"`
	Offset   int                      `json:"offset"`
}

// SummaryResponse counts stored anomalies per severity
type SummaryResponse struct {
	CompanyID  string                  `json:"company_id"`
	BySeverity map[entity.Severity]int `json:"by_severity"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	}

	if h.health != nil {
		if err := h.health.Health(c.Request.Context()); err != nil {
			h.logger.Error("Health check failed", "error", err)
			response.Status = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, Response{
				Success: false,
				Data:    response,
				Error:   "database unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// Analyze handles POST /api/scanpaie/analyze
func (h *Handlers) Analyze(c *gin.Context) {
	var req service.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid analyze request", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	record, err := h.scanService.Analyze(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "Analysis failed", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    record,
	})
}

// ImportPayroll handles POST /api/payroll/import
func (h *Handlers) ImportPayroll(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "file is required",
		})
		return
	}
	if fileHeader.Size > payroll.MaxFileSize {
		h.fail(c, "Payroll upload rejected", payroll.ErrFileTooLarge)
		return
	}

	analyze, err := strconv.ParseBool(c.DefaultPostForm("analyze", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "analyze must be true or false",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.fail(c, "Failed to open upload", err)
		return
	}
	defer file.Close()

	req := service.ImportRequest{
		CompanyID:      c.PostForm("company_id"),
		Period:         c.PostForm("period"),
		Filename:       fileHeader.Filename,
		Content:        file,
		BaselinePeriod: c.PostForm("baseline_period"),
	}

	if analyze {
		result, err := h.scanService.ImportAndAnalyze(c.Request.Context(), req)
		if err != nil {
			h.fail(c, "Payroll import and analysis failed", err)
			return
		}
		c.JSON(http.StatusOK, Response{Success: true, Data: result})
		return
	}

	result, err := h.scanService.ImportPayroll(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "Payroll import failed", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ListAnalyses handles GET /api/scanpaie/analyses
func (h *Handlers) ListAnalyses(c *gin.Context) {
	var req ListAnalysesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	req.Limit, req.Offset = entity.NormalizePage(req.Limit, req.Offset)

	records, err := h.scanService.ListAnalyses(c.Request.Context(), req.CompanyID, req.Limit, req.Offset)
	if err != nil {
		h.fail(c, "Failed to list analyses", err)
		return
	}
	if records == nil {
		records = []*entity.AnalysisRecord{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: ListAnalysesResponse{
			Analyses: records,
			Limit:    req.Limit,
			Offset:   req.Offset,
		},
	})
}

// GetAnalysis handles GET /api/scanpaie/analyses/:id
func (h *Handlers) GetAnalysis(c *gin.Context) {
	id := c.Param("id")

	record, err := h.scanService.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get analysis", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    record,
	})
}

// SeveritySummary handles GET /api/scanpaie/summary
func (h *Handlers) SeveritySummary(c *gin.Context) {
	companyID := c.Query("company_id")

	summary, err := h.scanService.SeveritySummary(c.Request.Context(), companyID)
	if err != nil {
		h.fail(c, "Failed to summarize anomalies", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: SummaryResponse{
			CompanyID:  companyID,
			BySeverity: summary,
		},
	})
}

// fail logs err and writes the error envelope with the mapped status
func (h *Handlers) fail(c *gin.Context, msg string, err error) {
	status, message := errorStatus(err)
	h.logger.Error(msg, "path", c.FullPath(), "status", status, "error", err)
	c.JSON(status, Response{
		Success: false,
		Error:   message,
	})
}

// errorStatus maps service errors to an HTTP status and client message
func errorStatus(err error) (int, string) {
	var invalid *entity.InvalidEntryError
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.Is(err, entity.ErrCompanyRequired):
		return http.StatusBadRequest, entity.ErrCompanyRequired.Error()
	case errors.Is(err, entity.ErrAnalysisNotFound):
		return http.StatusNotFound, entity.ErrAnalysisNotFound.Error()
	case errors.Is(err, payroll.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, payroll.ErrUnsupportedFormat),
		errors.Is(err, payroll.ErrEmptyFile),
		errors.Is(err, payroll.ErrMissingColumns):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
