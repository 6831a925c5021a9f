package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	"github.com/noah-isme/lab-assessment-api/pkg/database"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
)

type batchRepository interface {
	FindByID(ctx context.Context, id string) (*models.BatchDetail, error)
	List(ctx context.Context, filter models.BatchFilter) ([]models.BatchDetail, int, error)
	Create(ctx context.Context, batch *models.Batch) error
	Update(ctx context.Context, batch *models.Batch) error
	SetState(ctx context.Context, id string, state models.EntityState) error
	AddStudents(ctx context.Context, batchID string, studentIDs []string) (int, error)
	RemoveStudent(ctx context.Context, batchID, studentID string) error
}

type batchTeacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type batchStudentLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

type allocationEnsurer interface {
	EnsureAllocation(ctx context.Context, key models.AllocationKey) error
}

// BatchService manages lab batches and their membership.
type BatchService struct {
	batches     batchRepository
	teachers    batchTeacherLookup
	students    batchStudentLister
	allocations allocationEnsurer
	tx          Transactor
	stats       StatsInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewBatchService constructs a BatchService.
func NewBatchService(batches batchRepository, teachers batchTeacherLookup, students batchStudentLister, allocations allocationEnsurer, tx Transactor, stats StatsInvalidator, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{
		batches:     batches,
		teachers:    teachers,
		students:    students,
		allocations: allocations,
		tx:          tx,
		stats:       stats,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns batches matching the filter with pagination metadata.
func (s *BatchService) List(ctx context.Context, filter models.BatchFilter) ([]models.BatchDetail, *models.Pagination, error) {
	filter.Normalize()
	batches, total, err := s.batches.List(ctx, filter)
	if err != nil {
		return nil, nil, internal(err, "failed to list batches")
	}
	return batches, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a batch by id.
func (s *BatchService) Get(ctx context.Context, id string) (*models.BatchDetail, error) {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "batch")
	}
	return batch, nil
}

// Create inserts a batch. When a subject is supplied the batch is allocated to
// its teacher in the same transaction.
func (s *BatchService) Create(ctx context.Context, req models.BatchRequest) (*models.BatchDetail, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}
	batch := &models.Batch{}
	applyBatchRequest(batch, req)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.batches.Create(ctx, batch); err != nil {
			if database.IsUnknownReference(err) {
				return appErrors.Clone(appErrors.ErrValidation, "teacher does not exist")
			}
			return internal(err, "failed to create batch")
		}
		return s.ensureAllocation(ctx, batch, req)
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.stats)
	return s.Get(ctx, batch.ID)
}

// Update overwrites a batch. A supplied subject makes sure the allocation for
// the new teacher exists; other allocations of the batch are left untouched.
func (s *BatchService) Update(ctx context.Context, id string, req models.BatchRequest) (*models.BatchDetail, error) {
	current, err := s.batches.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "batch")
	}
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}
	batch := current.Batch
	applyBatchRequest(&batch, req)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.batches.Update(ctx, &batch); err != nil {
			if database.IsUnknownReference(err) {
				return appErrors.Clone(appErrors.ErrValidation, "teacher does not exist")
			}
			return notFoundOr(err, "batch")
		}
		return s.ensureAllocation(ctx, &batch, req)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, batch.ID)
}

// Archive soft-deletes a batch.
func (s *BatchService) Archive(ctx context.Context, id string) (*models.BatchDetail, error) {
	return s.move(ctx, id, models.TransitionArchive)
}

// Restore reactivates an archived batch.
func (s *BatchService) Restore(ctx context.Context, id string) (*models.BatchDetail, error) {
	return s.move(ctx, id, models.TransitionRestore)
}

func (s *BatchService) move(ctx context.Context, id string, move models.StateTransition) (*models.BatchDetail, error) {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "batch")
	}
	next, err := transition(batch.State, move, "batch")
	if err != nil {
		return nil, err
	}
	if err := s.batches.SetState(ctx, batch.ID, next); err != nil {
		return nil, notFoundOr(err, "batch")
	}
	batch.State = next
	invalidate(ctx, s.stats)
	return batch, nil
}

// Students lists the members of a batch.
func (s *BatchService) Students(ctx context.Context, batchID string, opts models.ListOptions) ([]models.Student, *models.Pagination, error) {
	if _, err := s.batches.FindByID(ctx, batchID); err != nil {
		return nil, nil, notFoundOr(err, "batch")
	}
	opts.Normalize()
	students, total, err := s.students.List(ctx, models.StudentFilter{ListOptions: opts, BatchID: batchID})
	if err != nil {
		return nil, nil, internal(err, "failed to list batch students")
	}
	return students, &models.Pagination{Page: opts.Page, PageSize: opts.PageSize, TotalCount: total}, nil
}

// AddStudents enrols students in a batch and returns how many were newly added.
func (s *BatchService) AddStudents(ctx context.Context, batchID string, req models.BatchMembershipRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, validationError(err, "invalid membership payload")
	}
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		return 0, notFoundOr(err, "batch")
	}
	if batch.State != models.StateActive {
		return 0, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot enrol students in an archived batch")
	}

	var added int
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := s.batches.AddStudents(ctx, batchID, dedupe(req.StudentIDs))
		if err != nil {
			if database.IsUnknownReference(err) {
				return appErrors.Clone(appErrors.ErrValidation, "unknown student in membership list")
			}
			return internal(err, "failed to add students")
		}
		added = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// RemoveStudent removes a student from a batch.
func (s *BatchService) RemoveStudent(ctx context.Context, batchID, studentID string) error {
	if err := s.batches.RemoveStudent(ctx, batchID, studentID); err != nil {
		return notFoundOr(err, "batch membership")
	}
	return nil
}

func (s *BatchService) validateRequest(ctx context.Context, req models.BatchRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid batch payload")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "startDate and endDate are required")
	}
	if req.StartDate.After(req.EndDate.Time) {
		return appErrors.Clone(appErrors.ErrValidation, "startDate must not be after endDate")
	}
	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if errors.Is(err, sql.ErrNoRows) || database.IsInvalidText(err) {
		return appErrors.Clone(appErrors.ErrValidation, "teacher does not exist")
	}
	if err != nil {
		return internal(err, "failed to load teacher")
	}
	if teacher.State != models.StateActive {
		return appErrors.Clone(appErrors.ErrValidation, "teacher is archived")
	}
	return nil
}

func (s *BatchService) ensureAllocation(ctx context.Context, batch *models.Batch, req models.BatchRequest) error {
	subjectID := strings.TrimSpace(req.SubjectID)
	if subjectID == "" || s.allocations == nil {
		return nil
	}
	academicYear := strings.TrimSpace(req.AcademicYear)
	if academicYear == "" {
		academicYear = strconv.Itoa(s.now().Year())
	}
	return s.allocations.EnsureAllocation(ctx, models.AllocationKey{
		TeacherID:    batch.TeacherID,
		SubjectID:    subjectID,
		BatchID:      batch.ID,
		Division:     batch.Division,
		AcademicYear: academicYear,
	})
}

func applyBatchRequest(batch *models.Batch, req models.BatchRequest) {
	batch.Name = strings.TrimSpace(req.Name)
	batch.Year = req.Year
	batch.Division = req.Division
	batch.Day = req.Day
	batch.Time = strings.TrimSpace(req.Time)
	batch.StartDate = req.StartDate
	batch.EndDate = req.EndDate
	batch.TeacherID = req.TeacherID
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
