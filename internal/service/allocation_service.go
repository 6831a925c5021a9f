package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	"github.com/noah-isme/lab-assessment-api/pkg/database"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
)

type allocationRepository interface {
	Exists(ctx context.Context, key models.AllocationKey, excludeID string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Allocation, error)
	Create(ctx context.Context, allocation *models.Allocation) error
	Update(ctx context.Context, allocation *models.Allocation) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, error)
}

// AllocationService resolves which teacher teaches which subject to which batch.
type AllocationService struct {
	repo      allocationRepository
	stats     StatsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAllocationService constructs an AllocationService.
func NewAllocationService(repo allocationRepository, stats StatsInvalidator, validate *validator.Validate, logger *zap.Logger) *AllocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{repo: repo, stats: stats, validator: validate, logger: logger}
}

// List returns allocations matching the filter.
func (s *AllocationService) List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, error) {
	allocations, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internal(err, "failed to list allocations")
	}
	return allocations, nil
}

// Allocate inserts a new allocation. An identical tuple yields a conflict.
func (s *AllocationService) Allocate(ctx context.Context, req models.AllocationRequest) (*models.Allocation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid allocation payload")
	}
	allocation := allocationFromRequest(req)
	exists, err := s.repo.Exists(ctx, allocation.Key(), "")
	if err != nil {
		return nil, allocationLookupError(err)
	}
	if exists {
		return nil, duplicateAllocation()
	}
	if err := s.create(ctx, allocation); err != nil {
		return nil, err
	}
	invalidate(ctx, s.stats)
	return allocation, nil
}

// Reallocate replaces the full tuple of the allocation identified by id.
func (s *AllocationService) Reallocate(ctx context.Context, id string, req models.AllocationRequest) (*models.Allocation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid allocation payload")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "allocation")
	}
	next := allocationFromRequest(req)
	next.ID = current.ID
	next.IsActive = current.IsActive
	next.CreatedAt = current.CreatedAt

	exists, err := s.repo.Exists(ctx, next.Key(), current.ID)
	if err != nil {
		return nil, allocationLookupError(err)
	}
	if exists {
		return nil, duplicateAllocation()
	}
	if err := s.repo.Update(ctx, next); err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return nil, duplicateAllocation()
		case database.IsUnknownReference(err):
			return nil, unknownAllocationReference()
		}
		return nil, notFoundOr(err, "allocation")
	}
	return next, nil
}

// Delete removes an allocation.
func (s *AllocationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "allocation")
	}
	invalidate(ctx, s.stats)
	return nil
}

// EnsureAllocation creates the allocation for key unless it already exists.
// It joins any transaction carried by ctx.
func (s *AllocationService) EnsureAllocation(ctx context.Context, key models.AllocationKey) error {
	exists, err := s.repo.Exists(ctx, key, "")
	if err != nil {
		return allocationLookupError(err)
	}
	if exists {
		return nil
	}
	allocation := &models.Allocation{
		TeacherID:    key.TeacherID,
		SubjectID:    key.SubjectID,
		BatchID:      key.BatchID,
		Division:     key.Division,
		AcademicYear: key.AcademicYear,
	}
	return s.create(ctx, allocation)
}

func (s *AllocationService) create(ctx context.Context, allocation *models.Allocation) error {
	if err := s.repo.Create(ctx, allocation); err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return duplicateAllocation()
		case database.IsUnknownReference(err):
			return unknownAllocationReference()
		}
		return internal(err, "failed to create allocation")
	}
	return nil
}

func unknownAllocationReference() error {
	return appErrors.Clone(appErrors.ErrValidation, "allocation references an unknown record")
}

func allocationLookupError(err error) error {
	if database.IsInvalidText(err) {
		return unknownAllocationReference()
	}
	return internal(err, "failed to check allocation")
}

func allocationFromRequest(req models.AllocationRequest) *models.Allocation {
	return &models.Allocation{
		TeacherID:    strings.TrimSpace(req.TeacherID),
		SubjectID:    strings.TrimSpace(req.SubjectID),
		BatchID:      strings.TrimSpace(req.BatchID),
		Division:     req.Division,
		AcademicYear: strings.TrimSpace(req.AcademicYear),
	}
}

func duplicateAllocation() error {
	return appErrors.Clone(appErrors.ErrConflict, "allocation already exists")
}
