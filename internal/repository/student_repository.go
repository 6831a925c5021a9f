package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	"github.com/noah-isme/lab-assessment-api/pkg/database"
)

const studentColumns = `s.id, s.user_id, s.roll_number, s.name, s.email, s.year, s.division, s.attendance_marks, s.state, s.archived_at, s.created_at, s.updated_at`

// StudentRepository persists student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) findOne(ctx context.Context, where string, arg interface{}, label string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students s WHERE ` + where + ` LIMIT 1`
	var student models.Student
	if err := database.Conn(ctx, r.db).GetContext(ctx, &student, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student by %s: %w", label, err)
	}
	return &student, nil
}

// FindByID returns a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return r.findOne(ctx, "s.id = $1", id, "id")
}

// FindByUserID returns the student profile owned by an account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	return r.findOne(ctx, "s.user_id = $1", userID, "user id")
}

// FindByRollNumber resolves an active student by roll number.
func (r *StudentRepository) FindByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error) {
	return r.findOne(ctx, "s.roll_number = $1 AND s.state = 'active'", rollNumber, "roll number")
}

// List returns students matching the filter together with the total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	filter.Normalize()

	from := ` FROM students s`
	var conditions []string
	var args []interface{}

	if filter.BatchID != "" {
		from += ` JOIN student_batches sb ON sb.student_id = s.id`
		args = append(args, filter.BatchID)
		conditions = append(conditions, fmt.Sprintf("sb.batch_id = $%d", len(args)))
	}
	if filter.State != "" {
		args = append(args, filter.State)
		conditions = append(conditions, fmt.Sprintf("s.state = $%d", len(args)))
	}
	if filter.Year != "" {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("s.year = $%d", len(args)))
	}
	if filter.Division != "" {
		args = append(args, filter.Division)
		conditions = append(conditions, fmt.Sprintf("s.division = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.name) LIKE $%d OR LOWER(s.email) LIKE $%d OR LOWER(s.roll_number) LIKE $%d)", len(args), len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := map[string]string{
		"rollNumber": "s.roll_number",
		"name":       "s.name",
		"createdAt":  "s.created_at",
	}[filter.SortBy]
	if sortBy == "" {
		sortBy = "s.roll_number"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	listQuery := fmt.Sprintf("SELECT %s%s%s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, from, where, sortBy, sortOrder, filter.PageSize, filter.Offset())
	var students []models.Student
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &students, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &total, "SELECT COUNT(*)"+from+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// Create inserts a student profile.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.State == "" {
		student.State = models.StateActive
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, user_id, roll_number, name, email, year, division, attendance_marks, state, created_at, updated_at)
		VALUES (:id, :user_id, :roll_number, :name, :email, :year, :division, :attendance_marks, :state, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update overwrites the editable profile fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET roll_number = :roll_number, name = :name, email = :email, year = :year, division = :division, updated_at = :updated_at WHERE id = :id`
	res, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return expectAffected(res)
}

// UpdateAttendanceMarks sets the attendance component of term work.
func (r *StudentRepository) UpdateAttendanceMarks(ctx context.Context, id string, marks float64) error {
	const query = `UPDATE students SET attendance_marks = $2, updated_at = $3 WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, marks, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update attendance marks: %w", err)
	}
	return expectAffected(res)
}

// SetState archives or restores a student.
func (r *StudentRepository) SetState(ctx context.Context, id string, state models.EntityState) error {
	now := time.Now().UTC()
	var archivedAt *time.Time
	if state == models.StateArchived {
		archivedAt = &now
	}
	const query = `UPDATE students SET state = $2, archived_at = $3, updated_at = $4 WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, state, archivedAt, now)
	if err != nil {
		return fmt.Errorf("set student state: %w", err)
	}
	return expectAffected(res)
}
