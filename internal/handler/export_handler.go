package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	"github.com/noah-isme/lab-assessment-api/internal/service"
	"github.com/noah-isme/lab-assessment-api/pkg/response"
)

type exportService interface {
	Attendance(ctx context.Context, filter models.AttendanceReportFilter, format string) (*service.ExportFile, error)
	Batch(ctx context.Context, batchID, format string) (*service.ExportFile, error)
}

// ExportHandler streams spreadsheet, CSV and PDF downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Attendance godoc
// @Summary Download an attendance report
// @Tags Exports
// @Produce application/octet-stream
// @Security BearerAuth
// @Param batchId query string true "Batch ID"
// @Param startDate query string true "YYYY-MM-DD"
// @Param endDate query string true "YYYY-MM-DD"
// @Param format query string false "xlsx (default), csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/export/attendance [get]
func (h *ExportHandler) Attendance(c *gin.Context) {
	filter, err := reportFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.Attendance(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// Batch godoc
// @Summary Download per-student results of a batch
// @Tags Exports
// @Produce application/octet-stream
// @Security BearerAuth
// @Param batchId query string true "Batch ID"
// @Param format query string false "xlsx (default), csv or pdf"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /admin/export/batch [get]
func (h *ExportHandler) Batch(c *gin.Context) {
	file, err := h.service.Batch(c.Request.Context(), c.Query("batchId"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
