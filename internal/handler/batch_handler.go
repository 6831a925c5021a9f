package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	"github.com/noah-isme/lab-assessment-api/internal/service"
	"github.com/noah-isme/lab-assessment-api/pkg/response"
)

// BatchHandler exposes batch and membership endpoints.
type BatchHandler struct {
	batches *service.BatchService
}

// NewBatchHandler constructs a BatchHandler.
func NewBatchHandler(batches *service.BatchService) *BatchHandler {
	return &BatchHandler{batches: batches}
}

// List godoc
// @Summary List batches
// @Tags Batches
// @Produce json
// @Security BearerAuth
// @Param year query string false "SE, TE or BE"
// @Param division query string false "9, 10 or 11"
// @Param teacherId query string false "Filter by teacher"
// @Param state query string false "active or archived"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	filter := models.BatchFilter{
		ListOptions: listOptions(c),
		Year:        strings.ToUpper(strings.TrimSpace(c.Query("year"))),
		Division:    strings.TrimSpace(c.Query("division")),
		TeacherID:   strings.TrimSpace(c.Query("teacherId")),
		State:       stateQuery(c),
	}
	batches, pagination, err := h.batches.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, pagination)
}

// Get godoc
// @Summary Get batch
// @Tags Batches
// @Produce json
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	batch, err := h.batches.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// Create godoc
// @Summary Create batch
// @Description Creates the batch and, when subjectId is given, its allocation in one transaction
// @Tags Batches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.BatchRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "batch"))
		return
	}
	batch, err := h.batches.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// Update godoc
// @Summary Update batch
// @Tags Batches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Param payload body models.BatchRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /admin/batches/{id} [put]
func (h *BatchHandler) Update(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "batch"))
		return
	}
	batch, err := h.batches.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// Archive godoc
// @Summary Archive batch
// @Tags Batches
// @Produce json
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /admin/batches/{id} [delete]
func (h *BatchHandler) Archive(c *gin.Context) {
	batch, err := h.batches.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// Restore godoc
// @Summary Restore archived batch
// @Tags Batches
// @Produce json
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /admin/batches/{id}/restore [post]
func (h *BatchHandler) Restore(c *gin.Context) {
	batch, err := h.batches.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// Students godoc
// @Summary Students enrolled in a batch
// @Tags Batches
// @Produce json
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/batches/{id}/students [get]
func (h *BatchHandler) Students(c *gin.Context) {
	students, pagination, err := h.batches.Students(c.Request.Context(), c.Param("id"), listOptions(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// AddStudents godoc
// @Summary Enroll students in a batch
// @Tags Batches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Param payload body models.BatchMembershipRequest true "Student IDs"
// @Success 200 {object} response.Envelope
// @Router /admin/batches/{id}/students [post]
func (h *BatchHandler) AddStudents(c *gin.Context) {
	var req models.BatchMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "membership"))
		return
	}
	added, err := h.batches.AddStudents(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"added": added}, nil)
}

// RemoveStudent godoc
// @Summary Remove a student from a batch
// @Tags Batches
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Router /admin/batches/{id}/students/{studentId} [delete]
func (h *BatchHandler) RemoveStudent(c *gin.Context) {
	if err := h.batches.RemoveStudent(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
