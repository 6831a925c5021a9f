package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	"github.com/noah-isme/lab-assessment-api/pkg/database"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
)

type assessmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Assessment, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.BatchAssessment, error)
	Create(ctx context.Context, a *models.Assessment) error
	Update(ctx context.Context, a *models.Assessment) error
}

type rollNumberLookup interface {
	FindByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error)
}

type batchLookup interface {
	FindByID(ctx context.Context, id string) (*models.BatchDetail, error)
}

// AssessmentService records per-experiment marks and derives term work.
type AssessmentService struct {
	repo         assessmentRepository
	students     rollNumberLookup
	batches      batchLookup
	validator    *validator.Validate
	logger       *zap.Logger
	defaultScale int
}

// NewAssessmentService constructs an AssessmentService.
func NewAssessmentService(repo assessmentRepository, students rollNumberLookup, batches batchLookup, validate *validator.Validate, logger *zap.Logger, defaultScale int) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentService{
		repo:         repo,
		students:     students,
		batches:      batches,
		validator:    validate,
		logger:       logger,
		defaultScale: NormalizeScale(defaultScale, Scale25),
	}
}

// Save creates an assessment when req.ID is empty, otherwise it applies the
// supplied fields to the stored row. Derived marks are recomputed from their
// components; supplied derived marks that disagree are rejected.
func (s *AssessmentService) Save(ctx context.Context, req models.SaveAssessmentRequest) (*models.Assessment, error) {
	req.StudentRollNo = strings.TrimSpace(req.StudentRollNo)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "studentRollNo and experimentNo are required")
	}

	student, err := s.students.FindByRollNumber(ctx, req.StudentRollNo)
	if err != nil {
		return nil, notFoundOr(err, "student")
	}

	assessment := &models.Assessment{}
	storedScale := 0
	if req.ID != "" {
		assessment, err = s.repo.FindByID(ctx, req.ID)
		if err != nil {
			return nil, notFoundOr(err, "assessment")
		}
		storedScale = finalMarksScale(assessment)
	}

	assessment.StudentID = student.ID
	assessment.StudentRollNo = student.RollNumber
	assessment.ExperimentNo = *req.ExperimentNo
	applyAssessmentFields(assessment, req)

	if err := s.reconcile(assessment, req, storedScale); err != nil {
		return nil, err
	}

	if req.ID == "" {
		err = s.repo.Create(ctx, assessment)
	} else {
		err = s.repo.Update(ctx, assessment)
	}
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("experiment %d already recorded for %s", assessment.ExperimentNo, student.RollNumber))
		}
		return nil, notFoundOr(err, "assessment")
	}
	return assessment, nil
}

// ListByRoll returns a student's assessments ordered by experiment number.
func (s *AssessmentService) ListByRoll(ctx context.Context, rollNumber string) ([]models.Assessment, error) {
	student, err := s.students.FindByRollNumber(ctx, strings.TrimSpace(rollNumber))
	if err != nil {
		return nil, notFoundOr(err, "student")
	}
	assessments, err := s.repo.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, internal(err, "failed to list assessments")
	}
	return assessments, nil
}

// ListByBatch returns the assessments of every member of a batch.
func (s *AssessmentService) ListByBatch(ctx context.Context, batchID string) ([]models.BatchAssessment, error) {
	if _, err := s.batches.FindByID(ctx, batchID); err != nil {
		return nil, notFoundOr(err, "batch")
	}
	assessments, err := s.repo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, internal(err, "failed to list batch assessments")
	}
	return assessments, nil
}

// TermWork derives the term-work score of a student on the requested scale.
func (s *AssessmentService) TermWork(ctx context.Context, rollNumber string, scale int) (*models.TermWork, error) {
	student, err := s.students.FindByRollNumber(ctx, strings.TrimSpace(rollNumber))
	if err != nil {
		return nil, notFoundOr(err, "student")
	}
	assessments, err := s.repo.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, internal(err, "failed to list assessments")
	}
	tw := ComputeTermWork(*student, assessments, NormalizeScale(scale, s.defaultScale))
	return &tw, nil
}

// finalMarksScale reports the scale the stored finalMarks were derived on, or 0
// when the row has no derivable finalMarks.
func finalMarksScale(a *models.Assessment) int {
	if a.FinalMarks == nil || a.FinalAssignmentMarks == nil || a.TestMarks == nil || a.TheoryAttendanceMarks == nil {
		return 0
	}
	for _, scale := range []int{Scale25, Scale50} {
		if withinTolerance(*a.FinalMarks, FinalMarks(*a.FinalAssignmentMarks, *a.TestMarks, *a.TheoryAttendanceMarks, scale)) {
			return scale
		}
	}
	return 0
}

// reconcile recomputes derived marks. Without a requested scale, finalMarks
// keep the scale of the stored row and fall back to the configured default.
func (s *AssessmentService) reconcile(a *models.Assessment, req models.SaveAssessmentRequest, storedScale int) error {
	if converted, ok := ConvertUnitTests(a.UnitTest1Marks, a.UnitTest2Marks, a.UnitTest3Marks); ok {
		if req.ConvertedUnitTestMarks != nil && !withinTolerance(*req.ConvertedUnitTestMarks, converted) {
			return appErrors.Clone(appErrors.ErrMarksMismatch, fmt.Sprintf("convertedUnitTestMarks should be %.2f", converted))
		}
		a.ConvertedUnitTestMarks = &converted
	}

	if a.FinalAssignmentMarks == nil || a.TestMarks == nil || a.TheoryAttendanceMarks == nil {
		return nil
	}
	final := func(scale int) float64 {
		return FinalMarks(*a.FinalAssignmentMarks, *a.TestMarks, *a.TheoryAttendanceMarks, scale)
	}

	if req.FinalMarks == nil {
		scale := req.Scale
		if scale == 0 {
			scale = storedScale
		}
		computed := final(NormalizeScale(scale, s.defaultScale))
		a.FinalMarks = &computed
		return nil
	}

	supplied := *req.FinalMarks
	scales := []int{Scale25, Scale50}
	if req.Scale != 0 {
		scales = []int{req.Scale}
	}
	for _, scale := range scales {
		if computed := final(scale); withinTolerance(supplied, computed) {
			a.FinalMarks = &computed
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrMarksMismatch, fmt.Sprintf("finalMarks should be %.2f", final(scales[0])))
}

func applyAssessmentFields(a *models.Assessment, req models.SaveAssessmentRequest) {
	if req.ScheduledPerformanceDate != nil {
		a.ScheduledPerformanceDate = req.ScheduledPerformanceDate
	}
	if req.ActualPerformanceDate != nil {
		a.ActualPerformanceDate = req.ActualPerformanceDate
	}
	if req.ScheduledSubmissionDate != nil {
		a.ScheduledSubmissionDate = req.ScheduledSubmissionDate
	}
	if req.ActualSubmissionDate != nil {
		a.ActualSubmissionDate = req.ActualSubmissionDate
	}
	setMark(&a.RPPMarks, req.RPPMarks)
	setMark(&a.SPOMarks, req.SPOMarks)
	setMark(&a.AssignmentMarks, req.AssignmentMarks)
	setMark(&a.FinalAssignmentMarks, req.FinalAssignmentMarks)
	setMark(&a.TestMarks, req.TestMarks)
	setMark(&a.TheoryAttendanceMarks, req.TheoryAttendanceMarks)
	setMark(&a.FinalMarks, req.FinalMarks)
	setMark(&a.UnitTest1Marks, req.UnitTest1Marks)
	setMark(&a.UnitTest2Marks, req.UnitTest2Marks)
	setMark(&a.UnitTest3Marks, req.UnitTest3Marks)
	setMark(&a.ConvertedUnitTestMarks, req.ConvertedUnitTestMarks)
}

func setMark(dst **float64, src *float64) {
	if src != nil {
		v := *src
		*dst = &v
	}
}
