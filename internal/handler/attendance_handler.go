package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
	"github.com/noah-isme/lab-assessment-api/pkg/response"
)

type attendanceService interface {
	Mark(ctx context.Context, markedBy string, req models.MarkAttendanceRequest) (*models.MarkAttendanceResult, error)
	Report(ctx context.Context, filter models.AttendanceReportFilter) ([]models.AttendanceReportRow, error)
}

// AttendanceHandler exposes attendance marking and reporting.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Mark godoc
// @Summary Mark attendance for a batch session
// @Description mode=atomic (default) writes all records or none; mode=partialOnError reports per-record failures
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.MarkAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req models.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "attendance"))
		return
	}
	markedBy := ""
	if claims := claimsFromContext(c); claims != nil {
		markedBy = claims.UserID
	}
	result, err := h.service.Mark(c.Request.Context(), markedBy, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Report godoc
// @Summary Attendance of a batch within a date range
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param batchId query string true "Batch ID"
// @Param startDate query string true "YYYY-MM-DD"
// @Param endDate query string true "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/attendance/report [get]
func (h *AttendanceHandler) Report(c *gin.Context) {
	filter, err := reportFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.service.Report(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

func reportFilter(c *gin.Context) (models.AttendanceReportFilter, error) {
	start, err := dateQuery(c, "startDate")
	if err != nil {
		return models.AttendanceReportFilter{}, err
	}
	end, err := dateQuery(c, "endDate")
	if err != nil {
		return models.AttendanceReportFilter{}, err
	}
	batchID := strings.TrimSpace(c.Query("batchId"))
	if batchID == "" {
		return models.AttendanceReportFilter{}, appErrors.Clone(appErrors.ErrValidation, "batchId is required")
	}
	return models.AttendanceReportFilter{BatchID: batchID, StartDate: start, EndDate: end}, nil
}
