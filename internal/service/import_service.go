package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
	"github.com/noah-isme/lab-assessment-api/pkg/jobs"
	"github.com/noah-isme/lab-assessment-api/pkg/storage"
	"github.com/noah-isme/lab-assessment-api/pkg/tabular"
)

// ImportJobType is the queue job type for asynchronous uploads.
const ImportJobType = "bulk_import"

// jobStoreTimeout bounds job record reads and writes, which outlive request
// and shutdown cancellation.
const jobStoreTimeout = 5 * time.Second

var errImportQueueFull = appErrors.New("IMPORT_QUEUE_FULL", http.StatusServiceUnavailable, "import queue is full, retry later")

type importUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type importTeacherRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
}

type importStudentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type uploadStore interface {
	Save(originalName string, r io.Reader) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type importJobStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ImportServiceParams groups constructor dependencies.
type ImportServiceParams struct {
	Users           importUserRepository
	Teachers        importTeacherRepository
	Students        importStudentRepository
	Accounts        *AccountManager
	Tx              Transactor
	Uploads         uploadStore
	Stats           StatsInvalidator
	Metrics         *MetricsService
	Validator       *validator.Validate
	Logger          *zap.Logger
	DefaultPassword string
	ResultTTL       time.Duration
}

// ImportService turns uploaded CSV/XLSX files into student and teacher accounts.
type ImportService struct {
	users           importUserRepository
	teachers        importTeacherRepository
	students        importStudentRepository
	accounts        *AccountManager
	tx              Transactor
	uploads         uploadStore
	stats           StatsInvalidator
	metrics         *MetricsService
	validator       *validator.Validate
	logger          *zap.Logger
	defaultPassword string
	resultTTL       time.Duration
	queue           jobEnqueuer
	jobStore        importJobStore
	now             func() time.Time
}

type importPayload struct {
	JobID  string
	Type   models.ImportType
	Stored string
}

// NewImportService constructs an ImportService.
func NewImportService(params ImportServiceParams) *ImportService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := params.ResultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ImportService{
		users:           params.Users,
		teachers:        params.Teachers,
		students:        params.Students,
		accounts:        params.Accounts,
		tx:              params.Tx,
		uploads:         params.Uploads,
		stats:           params.Stats,
		metrics:         params.Metrics,
		validator:       validate,
		logger:          logger,
		defaultPassword: params.DefaultPassword,
		resultTTL:       ttl,
		now:             time.Now,
	}
}

// EnableAsync attaches the worker queue and the store that keeps job results.
func (s *ImportService) EnableAsync(queue jobEnqueuer, store importJobStore) {
	s.queue = queue
	s.jobStore = store
}

// AsyncEnabled reports whether uploads can be processed in the background.
func (s *ImportService) AsyncEnabled() bool {
	return s.queue != nil && s.jobStore != nil
}

// Import stages the upload, processes every row and removes the staged file.
func (s *ImportService) Import(ctx context.Context, importType models.ImportType, filename string, r io.Reader) (*models.ImportSummary, error) {
	stored, err := s.stage(importType, filename, r)
	if err != nil {
		return nil, err
	}
	defer s.discard(stored)
	return s.process(ctx, importType, stored)
}

// Submit stages the upload and queues it for background processing.
func (s *ImportService) Submit(ctx context.Context, importType models.ImportType, filename string, r io.Reader) (*models.ImportJob, error) {
	if !s.AsyncEnabled() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "asynchronous imports are not available")
	}
	stored, err := s.stage(importType, filename, r)
	if err != nil {
		return nil, err
	}

	job := &models.ImportJob{
		ID:        uuid.NewString(),
		Type:      importType,
		Status:    models.ImportJobPending,
		Filename:  filename,
		CreatedAt: s.now().UTC(),
	}
	if err := s.jobStore.Set(ctx, importJobKey(job.ID), job, s.resultTTL); err != nil {
		s.discard(stored)
		return nil, internal(err, "failed to record import job")
	}
	err = s.queue.Enqueue(jobs.Job{
		ID:      job.ID,
		Type:    ImportJobType,
		Payload: importPayload{JobID: job.ID, Type: importType, Stored: stored},
	})
	if err != nil {
		s.discard(stored)
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, errImportQueueFull
		}
		return nil, internal(err, "failed to queue import")
	}
	return job, nil
}

// HandleJob processes a queued upload. It is registered as the queue handler.
func (s *ImportService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(importPayload)
	if !ok {
		return fmt.Errorf("unexpected import payload %T", job.Payload)
	}
	defer s.discard(payload.Stored)

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), jobStoreTimeout)
	defer cancel()

	record := &models.ImportJob{ID: payload.JobID}
	if err := s.jobStore.Get(storeCtx, importJobKey(payload.JobID), record); err != nil {
		s.logger.Warn("import job record missing", zap.String("job_id", payload.JobID), zap.Error(err))
		record = &models.ImportJob{ID: payload.JobID, Type: payload.Type, CreatedAt: job.Enqueued}
	}

	summary, err := s.process(ctx, payload.Type, payload.Stored)
	finished := s.now().UTC()
	record.FinishedAt = &finished
	if err != nil {
		record.Status = models.ImportJobFailed
		record.Error = appErrors.FromError(err).Message
	} else {
		record.Status = models.ImportJobCompleted
		record.Summary = summary
	}
	if storeErr := s.jobStore.Set(storeCtx, importJobKey(payload.JobID), record, s.resultTTL); storeErr != nil {
		s.logger.Error("failed to store import result", zap.String("job_id", payload.JobID), zap.Error(storeErr))
	}
	return err
}

// Job returns the stored state of an asynchronous upload.
func (s *ImportService) Job(ctx context.Context, id string) (*models.ImportJob, error) {
	if s.jobStore == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "import job not found")
	}
	var job models.ImportJob
	if err := s.jobStore.Get(ctx, importJobKey(id), &job); err != nil {
		if appErrors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "import job not found")
		}
		return nil, internal(err, "failed to load import job")
	}
	return &job, nil
}

func (s *ImportService) stage(importType models.ImportType, filename string, r io.Reader) (string, error) {
	if !importType.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "import type must be students or teachers")
	}
	if !tabular.IsSupported(filename) {
		return "", appErrors.Clone(appErrors.ErrUnsupportedFormat, "only .csv and .xlsx files are supported")
	}
	stored, err := s.uploads.Save(filename, r)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file exceeds maximum upload size")
		}
		return "", internal(err, "failed to store upload")
	}
	return stored, nil
}

func (s *ImportService) discard(stored string) {
	if err := s.uploads.Delete(stored); err != nil {
		s.logger.Warn("failed to remove staged upload", zap.String("file", stored), zap.Error(err))
	}
}

func (s *ImportService) process(ctx context.Context, importType models.ImportType, stored string) (*models.ImportSummary, error) {
	start := time.Now()
	file, err := s.uploads.Open(stored)
	if err != nil {
		return nil, internal(err, "failed to open upload")
	}
	rows, err := tabular.Read(file, stored)
	file.Close()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to parse file: "+err.Error())
	}

	summary := &models.ImportSummary{Success: true, Type: importType, Details: make([]models.ImportRowResult, 0, len(rows))}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, internal(err, "import cancelled")
		}
		result := s.importRow(ctx, importType, row)
		if result.Success {
			summary.SuccessCount++
		} else {
			summary.FailureCount++
		}
		summary.Details = append(summary.Details, result)
	}
	summary.Message = fmt.Sprintf("processed %d rows: %d succeeded, %d failed", len(rows), summary.SuccessCount, summary.FailureCount)

	s.metrics.ObserveImport(string(importType), summary.SuccessCount, summary.FailureCount, time.Since(start))
	if summary.SuccessCount > 0 {
		invalidate(ctx, s.stats)
	}
	s.logger.Info("bulk import finished",
		zap.String("type", string(importType)),
		zap.Int("success", summary.SuccessCount),
		zap.Int("failure", summary.FailureCount),
	)
	return summary, nil
}

func (s *ImportService) importRow(ctx context.Context, importType models.ImportType, row tabular.Row) models.ImportRowResult {
	result := models.ImportRowResult{Row: row.Line, Email: NormalizeEmail(row.Get("email"))}
	fail := func(msg string) models.ImportRowResult {
		result.Error = msg
		return result
	}

	if missing := row.Missing(importType.RequiredColumns()...); len(missing) > 0 {
		return fail("missing required columns: " + strings.Join(missing, ", "))
	}
	if err := s.validator.Var(result.Email, "email"); err != nil {
		return fail("invalid email")
	}
	if importType == models.ImportStudents {
		if err := s.validator.Var(row.Get("year"), "oneof=SE TE BE"); err != nil {
			return fail("year must be one of SE, TE, BE")
		}
		if err := s.validator.Var(row.Get("division"), "oneof=9 10 11"); err != nil {
			return fail("division must be one of 9, 10, 11")
		}
	}

	start := time.Now()
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		created, err := s.upsert(ctx, importType, result.Email, row)
		result.Created = created
		return err
	})
	s.metrics.ObserveDBQuery("import_"+string(importType)+"_row", time.Since(start))
	if err != nil {
		return fail(appErrors.FromError(err).Message)
	}
	result.Success = true
	return result
}

// upsert creates the account when the email is unknown and otherwise updates
// the profile attached to it.
func (s *ImportService) upsert(ctx context.Context, importType models.ImportType, email string, row tabular.Row) (bool, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, internal(err, "failed to look up email")
	}

	password := row.Get("password")
	if password == "" {
		password = s.defaultPassword
	}
	if user == nil {
		if err := s.validator.Var(password, "min=6"); err != nil {
			return false, validationError(err, "password must be at least 6 characters")
		}
	}

	switch importType {
	case models.ImportTeachers:
		teacher := &models.Teacher{
			Name:       row.Get("name"),
			Email:      email,
			Department: row.Get("department"),
			Subjects:   splitList(row.Get("subjects")),
			Phone:      optionalString(row.Get("phone")),
		}
		if user == nil {
			_, err := s.accounts.CreateTeacher(ctx, password, teacher)
			return err == nil, err
		}
		if user.Role != models.RoleTeacher {
			return false, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("email belongs to a %s account", user.Role))
		}
		existing, err := s.teachers.FindByUserID(ctx, user.ID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			teacher.UserID = user.ID
			if err := s.teachers.Create(ctx, teacher); err != nil {
				return false, internal(err, "failed to create teacher")
			}
			return false, nil
		case err != nil:
			return false, internal(err, "failed to load teacher")
		}
		existing.Name = teacher.Name
		existing.Department = teacher.Department
		if len(teacher.Subjects) > 0 {
			existing.Subjects = teacher.Subjects
		}
		if teacher.Phone != nil {
			existing.Phone = teacher.Phone
		}
		if err := s.teachers.Update(ctx, existing); err != nil {
			return false, internal(err, "failed to update teacher")
		}
		return false, nil

	default:
		student := &models.Student{
			Name:       row.Get("name"),
			Email:      email,
			RollNumber: row.Get("rollNumber"),
			Year:       row.Get("year"),
			Division:   row.Get("division"),
		}
		if user == nil {
			_, err := s.accounts.CreateStudent(ctx, password, student)
			return err == nil, err
		}
		if user.Role != models.RoleStudent {
			return false, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("email belongs to a %s account", user.Role))
		}
		existing, err := s.students.FindByUserID(ctx, user.ID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			student.UserID = user.ID
			if err := s.students.Create(ctx, student); err != nil {
				return false, conflictOr(err, "roll number already in use", "failed to create student")
			}
			return false, nil
		case err != nil:
			return false, internal(err, "failed to load student")
		}
		existing.Name = student.Name
		existing.RollNumber = student.RollNumber
		existing.Year = student.Year
		existing.Division = student.Division
		if err := s.students.Update(ctx, existing); err != nil {
			return false, conflictOr(err, "roll number already in use", "failed to update student")
		}
		return false, nil
	}
}

func importJobKey(id string) string {
	return "import:job:" + id
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
