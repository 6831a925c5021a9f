package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
	"github.com/noah-isme/lab-assessment-api/pkg/response"
)

type assessmentService interface {
	Save(ctx context.Context, req models.SaveAssessmentRequest) (*models.Assessment, error)
	ListByRoll(ctx context.Context, rollNumber string) ([]models.Assessment, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.BatchAssessment, error)
	TermWork(ctx context.Context, rollNumber string, scale int) (*models.TermWork, error)
}

// AssessmentHandler exposes lab assessment endpoints.
type AssessmentHandler struct {
	service assessmentService
}

// NewAssessmentHandler constructs handler.
func NewAssessmentHandler(svc assessmentService) *AssessmentHandler {
	return &AssessmentHandler{service: svc}
}

// Save godoc
// @Summary Create or partially update an assessment
// @Description Creates a row when id is empty, otherwise updates only the supplied fields
// @Tags Assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.SaveAssessmentRequest true "Assessment payload"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assessments [post]
func (h *AssessmentHandler) Save(c *gin.Context) {
	var req models.SaveAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "assessment"))
		return
	}
	assessment, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		response.Created(c, assessment)
		return
	}
	response.JSON(c, http.StatusOK, assessment, nil)
}

// ByStudent godoc
// @Summary Assessments of a student ordered by experiment number
// @Tags Assessments
// @Produce json
// @Security BearerAuth
// @Param rollNo path string true "Roll number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/student/{rollNo} [get]
func (h *AssessmentHandler) ByStudent(c *gin.Context) {
	assessments, err := h.service.ListByRoll(c.Request.Context(), c.Param("rollNo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessments, nil)
}

// ByBatch godoc
// @Summary Assessments of every student enrolled in a batch
// @Tags Assessments
// @Produce json
// @Security BearerAuth
// @Param batchId path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assessments/batch/{batchId} [get]
func (h *AssessmentHandler) ByBatch(c *gin.Context) {
	assessments, err := h.service.ListByBatch(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessments, nil)
}

// TermWork godoc
// @Summary Derived term-work marks of a student
// @Tags Assessments
// @Produce json
// @Security BearerAuth
// @Param rollNo path string true "Roll number"
// @Param scale query int false "25 or 50"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assessments/student/{rollNo}/term-work [get]
func (h *AssessmentHandler) TermWork(c *gin.Context) {
	scale := 0
	if raw := strings.TrimSpace(c.Query("scale")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || (v != 25 && v != 50) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "scale must be 25 or 50"))
			return
		}
		scale = v
	}
	tw, err := h.service.TermWork(c.Request.Context(), c.Param("rollNo"), scale)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tw, nil)
}
