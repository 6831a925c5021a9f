package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	"github.com/noah-isme/lab-assessment-api/internal/service"
	"github.com/noah-isme/lab-assessment-api/pkg/response"
)

// AllocationHandler exposes teacher/subject/batch allocation endpoints.
type AllocationHandler struct {
	service *service.AllocationService
}

// NewAllocationHandler constructs handler.
func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: svc}
}

// List godoc
// @Summary List allocations
// @Tags Allocations
// @Produce json
// @Security BearerAuth
// @Param teacherId query string false "Teacher ID"
// @Param subjectId query string false "Subject ID"
// @Param batchId query string false "Batch ID"
// @Param academicYear query string false "Academic year"
// @Success 200 {object} response.Envelope
// @Router /admin/allocations [get]
func (h *AllocationHandler) List(c *gin.Context) {
	filter := models.AllocationFilter{
		TeacherID:    strings.TrimSpace(c.Query("teacherId")),
		SubjectID:    strings.TrimSpace(c.Query("subjectId")),
		BatchID:      strings.TrimSpace(c.Query("batchId")),
		AcademicYear: strings.TrimSpace(c.Query("academicYear")),
	}
	allocations, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocations, nil)
}

// Allocate godoc
// @Summary Allocate a teacher to a subject and batch
// @Tags Allocations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.AllocationRequest true "Allocation tuple"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/allocations [post]
func (h *AllocationHandler) Allocate(c *gin.Context) {
	var req models.AllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "allocation"))
		return
	}
	allocation, err := h.service.Allocate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, allocation)
}

// Reallocate godoc
// @Summary Replace the tuple of an allocation
// @Tags Allocations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Allocation ID"
// @Param payload body models.AllocationRequest true "Allocation tuple"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/allocations/{id} [put]
func (h *AllocationHandler) Reallocate(c *gin.Context) {
	var req models.AllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "allocation"))
		return
	}
	allocation, err := h.service.Reallocate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation, nil)
}

// Delete godoc
// @Summary Delete allocation
// @Tags Allocations
// @Security BearerAuth
// @Param id path string true "Allocation ID"
// @Success 204
// @Router /admin/allocations/{id} [delete]
func (h *AllocationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
