package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	"github.com/noah-isme/lab-assessment-api/pkg/database"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
)

type attendanceRepository interface {
	Insert(ctx context.Context, record *models.Attendance) error
	Report(ctx context.Context, filter models.AttendanceReportFilter) ([]models.AttendanceReportRow, error)
}

type attendanceBatchLookup interface {
	FindByID(ctx context.Context, id string) (*models.BatchDetail, error)
	MemberIDs(ctx context.Context, batchID string) (map[string]struct{}, error)
}

// AttendanceService records and reports per-session attendance.
type AttendanceService struct {
	repo      attendanceRepository
	batches   attendanceBatchLookup
	tx        Transactor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(repo attendanceRepository, batches attendanceBatchLookup, tx Transactor, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, batches: batches, tx: tx, validator: validate, logger: logger}
}

// Mark records attendance for a batch session. In atomic mode the first
// failing record aborts the whole request. In partialOnError mode each record
// is written independently and failures are reported per student.
//
// When the batch has enrolled students, records for non-members are rejected.
func (s *AttendanceService) Mark(ctx context.Context, markedBy string, req models.MarkAttendanceRequest) (*models.MarkAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	if req.Date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	if req.Mode == "" {
		req.Mode = models.BulkModeAtomic
	}

	batch, err := s.batches.FindByID(ctx, req.BatchID)
	if err != nil {
		return nil, notFoundOr(err, "batch")
	}
	if batch.State != models.StateActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot mark attendance for an archived batch")
	}
	members, err := s.batches.MemberIDs(ctx, batch.ID)
	if err != nil {
		return nil, internal(err, "failed to load batch members")
	}

	var marker *string
	if markedBy != "" {
		marker = &markedBy
	}
	seen := make(map[string]struct{}, len(req.Records))
	write := func(ctx context.Context, in models.AttendanceRecordInput) error {
		if _, dup := seen[in.StudentID]; dup {
			return appErrors.Clone(appErrors.ErrValidation, "duplicate record for student")
		}
		seen[in.StudentID] = struct{}{}
		if len(members) > 0 {
			if _, ok := members[in.StudentID]; !ok {
				return appErrors.Clone(appErrors.ErrValidation, "student is not enrolled in batch")
			}
		}
		record := &models.Attendance{
			StudentID: in.StudentID,
			BatchID:   batch.ID,
			Date:      req.Date,
			Status:    in.Status,
			Remarks:   in.Remarks,
			MarkedBy:  marker,
		}
		if err := s.repo.Insert(ctx, record); err != nil {
			if database.IsUnknownReference(err) {
				return appErrors.Clone(appErrors.ErrValidation, "student does not exist")
			}
			return internal(err, "failed to record attendance")
		}
		return nil
	}

	result := &models.MarkAttendanceResult{Mode: req.Mode}
	if req.Mode == models.BulkModeAtomic {
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			for _, in := range req.Records {
				if err := write(ctx, in); err != nil {
					appErr := appErrors.FromError(err)
					return appErrors.Clone(appErr, fmt.Sprintf("student %s: %s", in.StudentID, appErr.Message))
				}
				result.Recorded++
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	for _, in := range req.Records {
		if err := write(ctx, in); err != nil {
			result.Failed = append(result.Failed, models.AttendanceFailure{StudentID: in.StudentID, Reason: appErrors.FromError(err).Message})
			s.logger.Warn("attendance record failed", zap.String("student_id", in.StudentID), zap.Error(err))
			continue
		}
		result.Recorded++
	}
	return result, nil
}

// Report returns a batch's attendance within an inclusive date range.
func (s *AttendanceService) Report(ctx context.Context, filter models.AttendanceReportFilter) ([]models.AttendanceReportRow, error) {
	if filter.BatchID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batchId is required")
	}
	if filter.StartDate.IsZero() || filter.EndDate.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate and endDate are required")
	}
	if filter.StartDate.After(filter.EndDate.Time) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must not be after endDate")
	}
	rows, err := s.repo.Report(ctx, filter)
	if err != nil {
		return nil, internal(err, "failed to load attendance report")
	}
	if rows == nil {
		rows = []models.AttendanceReportRow{}
	}
	return rows, nil
}
