package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
	"github.com/noah-isme/lab-assessment-api/pkg/response"
)

type importService interface {
	Import(ctx context.Context, importType models.ImportType, filename string, r io.Reader) (*models.ImportSummary, error)
	Submit(ctx context.Context, importType models.ImportType, filename string, r io.Reader) (*models.ImportJob, error)
	Job(ctx context.Context, id string) (*models.ImportJob, error)
}

// UploadHandler accepts bulk student and teacher uploads.
type UploadHandler struct {
	service importService
}

// NewUploadHandler constructs handler.
func NewUploadHandler(svc importService) *UploadHandler {
	return &UploadHandler{service: svc}
}

// Upload godoc
// @Summary Bulk import students or teachers
// @Description Accepts a .csv or .xlsx file. With async=true the file is queued and a job is returned.
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param type path string true "students or teachers"
// @Param file formData file true "CSV or XLSX file"
// @Param async query bool false "Process in the background"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/upload/{type} [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	importType := models.ImportType(c.Param("type"))
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read upload"))
		return
	}
	defer file.Close()

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		job, err := h.service.Submit(c.Request.Context(), importType, header.Filename, file)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusAccepted, job, nil)
		return
	}

	summary, err := h.service.Import(c.Request.Context(), importType, header.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Job godoc
// @Summary State of an asynchronous upload
// @Tags Uploads
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/upload/jobs/{id} [get]
func (h *UploadHandler) Job(c *gin.Context) {
	job, err := h.service.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}
