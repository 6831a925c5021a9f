package service

import (
	"context"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-assessment-api/internal/models"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	Update(ctx context.Context, student *models.Student) error
	UpdateAttendanceMarks(ctx context.Context, id string, marks float64) error
	SetState(ctx context.Context, id string, state models.EntityState) error
}

type studentAssessmentLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Assessment, error)
}

type studentAttendanceHistory interface {
	History(ctx context.Context, studentID string) ([]models.AttendanceHistoryRow, error)
}

// StudentService manages student profiles and their progress views.
type StudentService struct {
	students        studentRepository
	users           profileUserRepository
	assessments     studentAssessmentLister
	attendance      studentAttendanceHistory
	accounts        *AccountManager
	tx              Transactor
	stats           StatsInvalidator
	validator       *validator.Validate
	logger          *zap.Logger
	defaultPassword string
}

// NewStudentService constructs a StudentService.
func NewStudentService(students studentRepository, users profileUserRepository, assessments studentAssessmentLister, attendance studentAttendanceHistory, accounts *AccountManager, tx Transactor, stats StatsInvalidator, validate *validator.Validate, logger *zap.Logger, defaultPassword string) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		students:        students,
		users:           users,
		assessments:     assessments,
		attendance:      attendance,
		accounts:        accounts,
		tx:              tx,
		stats:           stats,
		validator:       validate,
		logger:          logger,
		defaultPassword: defaultPassword,
	}
}

// List returns students matching the filter with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	filter.Normalize()
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, internal(err, "failed to list students")
	}
	return students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "student")
	}
	return student, nil
}

// Create adds a student together with a login account.
func (s *StudentService) Create(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	password := req.Password
	if password == "" {
		password = s.defaultPassword
	}
	student := &models.Student{
		Name:       strings.TrimSpace(req.Name),
		Email:      req.Email,
		RollNumber: strings.TrimSpace(req.RollNumber),
		Year:       req.Year,
		Division:   req.Division,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.accounts.CreateStudent(ctx, password, student)
		return err
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.stats)
	return student, nil
}

// Update edits a student profile and keeps the login email in sync.
func (s *StudentService) Update(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "student")
	}

	email := NormalizeEmail(req.Email)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if email != student.Email {
			if err := changeEmail(ctx, s.users, student.UserID, email); err != nil {
				return err
			}
		}
		student.Name = strings.TrimSpace(req.Name)
		student.Email = email
		student.RollNumber = strings.TrimSpace(req.RollNumber)
		student.Year = req.Year
		student.Division = req.Division
		if err := s.students.Update(ctx, student); err != nil {
			return conflictOr(err, "roll number already in use", "failed to update student")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return student, nil
}

// Archive moves a student and its account to the archived state.
func (s *StudentService) Archive(ctx context.Context, id string) (*models.Student, error) {
	return s.move(ctx, id, models.TransitionArchive)
}

// Restore reactivates an archived student and its account. Restoring fails
// with a conflict when another active student took the roll number meanwhile.
func (s *StudentService) Restore(ctx context.Context, id string) (*models.Student, error) {
	return s.move(ctx, id, models.TransitionRestore)
}

func (s *StudentService) move(ctx context.Context, id string, move models.StateTransition) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "student")
	}
	next, err := transition(student.State, move, "student")
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.students.SetState(ctx, student.ID, next); err != nil {
			return conflictOr(err, "roll number already in use by an active student", "failed to update student state")
		}
		if err := s.users.SetState(ctx, student.UserID, next); err != nil {
			return notFoundOr(err, "user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	student.State = next
	invalidate(ctx, s.stats)
	return student, nil
}

// Stats summarises the assessment progress of a student.
func (s *StudentService) Stats(ctx context.Context, id string) (*models.StudentStats, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "student")
	}
	assessments, err := s.assessments.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, internal(err, "failed to load assessments")
	}

	stats := &models.StudentStats{
		StudentID:          student.ID,
		RollNumber:         student.RollNumber,
		TotalAssessments:   len(assessments),
		MaxMarks:           float64(len(assessments) * models.MaxAssignmentMarks),
		AttendanceMarks:    student.AttendanceMarks,
		MaxAttendanceMarks: models.MaxAttendanceMarks,
	}
	for _, a := range assessments {
		if a.Completed() {
			stats.CompletedAssessments++
		}
		if a.AssignmentMarks != nil {
			stats.TotalMarks += *a.AssignmentMarks
		}
	}
	return stats, nil
}

// UpdateAttendanceMarks sets the attendance component used by term work.
func (s *StudentService) UpdateAttendanceMarks(ctx context.Context, id string, req models.UpdateAttendanceMarksRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "attendance marks must be between 0 and 20")
	}
	if err := s.students.UpdateAttendanceMarks(ctx, id, *req.AttendanceMarks); err != nil {
		return nil, notFoundOr(err, "student")
	}
	return s.Get(ctx, id)
}

// Attendance returns the attendance history of a student with a status summary.
func (s *StudentService) Attendance(ctx context.Context, id string) (*models.StudentAttendance, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "student")
	}
	history, err := s.attendance.History(ctx, student.ID)
	if err != nil {
		return nil, internal(err, "failed to load attendance")
	}
	if history == nil {
		history = []models.AttendanceHistoryRow{}
	}
	return &models.StudentAttendance{
		StudentID:       student.ID,
		AttendanceMarks: student.AttendanceMarks,
		Summary:         summarizeAttendance(history),
		History:         history,
	}, nil
}

// summarizeAttendance counts statuses. Late counts as attended.
func summarizeAttendance(rows []models.AttendanceHistoryRow) models.AttendanceSummary {
	var summary models.AttendanceSummary
	for _, row := range rows {
		switch row.Status {
		case models.AttendancePresent:
			summary.Present++
		case models.AttendanceAbsent:
			summary.Absent++
		case models.AttendanceLate:
			summary.Late++
		case models.AttendanceExcused:
			summary.Excused++
		}
	}
	summary.Total = len(rows)
	if summary.Total > 0 {
		attended := float64(summary.Present + summary.Late)
		summary.Percent = math.Round(attended/float64(summary.Total)*10000) / 100
	}
	return summary
}
