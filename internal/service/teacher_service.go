package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
)

type teacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	ListOptions(ctx context.Context) ([]models.TeacherOption, error)
	Update(ctx context.Context, teacher *models.Teacher) error
	SetState(ctx context.Context, id string, state models.EntityState) error
}

type profileUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateEmail(ctx context.Context, id, email string) error
	SetState(ctx context.Context, id string, state models.EntityState) error
}

type teacherAllocationLister interface {
	List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, error)
}

// TeacherService manages teacher profiles and their login accounts.
type TeacherService struct {
	teachers        teacherRepository
	users           profileUserRepository
	allocations     teacherAllocationLister
	accounts        *AccountManager
	tx              Transactor
	stats           StatsInvalidator
	validator       *validator.Validate
	logger          *zap.Logger
	defaultPassword string
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(teachers teacherRepository, users profileUserRepository, allocations teacherAllocationLister, accounts *AccountManager, tx Transactor, stats StatsInvalidator, validate *validator.Validate, logger *zap.Logger, defaultPassword string) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{
		teachers:        teachers,
		users:           users,
		allocations:     allocations,
		accounts:        accounts,
		tx:              tx,
		stats:           stats,
		validator:       validate,
		logger:          logger,
		defaultPassword: defaultPassword,
	}
}

// List returns teachers matching the filter with pagination metadata.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	filter.Normalize()
	teachers, total, err := s.teachers.List(ctx, filter)
	if err != nil {
		return nil, nil, internal(err, "failed to list teachers")
	}
	return teachers, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Options returns active teachers for selection lists.
func (s *TeacherService) Options(ctx context.Context) ([]models.TeacherOption, error) {
	options, err := s.teachers.ListOptions(ctx)
	if err != nil {
		return nil, internal(err, "failed to list teachers")
	}
	return options, nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "teacher")
	}
	return teacher, nil
}

// Create adds a teacher together with a login account.
func (s *TeacherService) Create(ctx context.Context, req models.CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	password := req.Password
	if password == "" {
		password = s.defaultPassword
	}
	teacher := &models.Teacher{
		Name:       strings.TrimSpace(req.Name),
		Email:      req.Email,
		Department: strings.TrimSpace(req.Department),
		Subjects:   req.Subjects,
		Phone:      optionalString(req.Phone),
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.accounts.CreateTeacher(ctx, password, teacher)
		return err
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.stats)
	return teacher, nil
}

// Update edits a teacher profile and keeps the login email in sync.
func (s *TeacherService) Update(ctx context.Context, id string, req models.UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "teacher")
	}

	email := NormalizeEmail(req.Email)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if email != teacher.Email {
			if err := changeEmail(ctx, s.users, teacher.UserID, email); err != nil {
				return err
			}
		}
		teacher.Name = strings.TrimSpace(req.Name)
		teacher.Email = email
		teacher.Department = strings.TrimSpace(req.Department)
		teacher.Subjects = req.Subjects
		teacher.Phone = optionalString(req.Phone)
		if err := s.teachers.Update(ctx, teacher); err != nil {
			return notFoundOr(err, "teacher")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return teacher, nil
}

// Archive moves a teacher and its account to the archived state.
func (s *TeacherService) Archive(ctx context.Context, id string) (*models.Teacher, error) {
	return s.move(ctx, id, models.TransitionArchive)
}

// Restore reactivates an archived teacher and its account.
func (s *TeacherService) Restore(ctx context.Context, id string) (*models.Teacher, error) {
	return s.move(ctx, id, models.TransitionRestore)
}

func (s *TeacherService) move(ctx context.Context, id string, move models.StateTransition) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "teacher")
	}
	next, err := transition(teacher.State, move, "teacher")
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.teachers.SetState(ctx, teacher.ID, next); err != nil {
			return notFoundOr(err, "teacher")
		}
		if err := s.users.SetState(ctx, teacher.UserID, next); err != nil {
			return notFoundOr(err, "user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	teacher.State = next
	invalidate(ctx, s.stats)
	return teacher, nil
}

// Batches returns the allocations of a teacher.
func (s *TeacherService) Batches(ctx context.Context, teacherID string) ([]models.AllocationDetail, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no teacher profile attached to this account")
	}
	allocations, err := s.allocations.List(ctx, models.AllocationFilter{TeacherID: teacherID})
	if err != nil {
		return nil, internal(err, "failed to list teacher batches")
	}
	return allocations, nil
}

// changeEmail moves a login to a new email after checking it is unused.
func changeEmail(ctx context.Context, users profileUserRepository, userID, email string) error {
	existing, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != userID:
		return appErrors.Clone(appErrors.ErrConflict, "email already registered")
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return internal(err, "failed to check email")
	}
	if err := users.UpdateEmail(ctx, userID, email); err != nil {
		return conflictOr(err, "email already registered", "failed to update email")
	}
	return nil
}
