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

const teacherColumns = `id, user_id, name, email, department, subjects, phone, state, archived_at, created_at, updated_at`

// TeacherRepository persists teacher profiles.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByID returns a teacher by identifier.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE id = $1 LIMIT 1`
	var teacher models.Teacher
	if err := database.Conn(ctx, r.db).GetContext(ctx, &teacher, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher by id: %w", err)
	}
	return &teacher, nil
}

// FindByUserID returns the teacher profile owned by an account.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE user_id = $1 LIMIT 1`
	var teacher models.Teacher
	if err := database.Conn(ctx, r.db).GetContext(ctx, &teacher, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher by user id: %w", err)
	}
	return &teacher, nil
}

// List returns teachers using the provided filter.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	filter.Normalize()

	var conditions []string
	var args []interface{}
	if filter.State != "" {
		args = append(args, filter.State)
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := map[string]string{
		"name":       "name",
		"department": "department",
		"createdAt":  "created_at",
	}[filter.SortBy]
	if sortBy == "" {
		sortBy = "name"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	listQuery := fmt.Sprintf("SELECT %s FROM teachers%s ORDER BY %s %s LIMIT %d OFFSET %d", teacherColumns, where, sortBy, sortOrder, filter.PageSize, filter.Offset())
	var teachers []models.Teacher
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &teachers, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	var total int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &total, "SELECT COUNT(*) FROM teachers"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// ListOptions returns every active teacher in compact form.
func (r *TeacherRepository) ListOptions(ctx context.Context) ([]models.TeacherOption, error) {
	const query = `SELECT id, name, department FROM teachers WHERE state = 'active' ORDER BY name ASC`
	var options []models.TeacherOption
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &options, query); err != nil {
		return nil, fmt.Errorf("list teacher options: %w", err)
	}
	return options, nil
}

// Create inserts a teacher profile.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	if teacher.State == "" {
		teacher.State = models.StateActive
	}
	if teacher.Subjects == nil {
		teacher.Subjects = []string{}
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, user_id, name, email, department, subjects, phone, state, created_at, updated_at)
		VALUES (:id, :user_id, :name, :email, :department, :subjects, :phone, :state, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update overwrites the editable teacher fields.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	if teacher.Subjects == nil {
		teacher.Subjects = []string{}
	}
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET name = :name, email = :email, department = :department, subjects = :subjects, phone = :phone, updated_at = :updated_at WHERE id = :id`
	res, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, teacher)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return expectAffected(res)
}

// SetState archives or restores a teacher profile.
func (r *TeacherRepository) SetState(ctx context.Context, id string, state models.EntityState) error {
	now := time.Now().UTC()
	var archivedAt *time.Time
	if state == models.StateArchived {
		archivedAt = &now
	}
	const query = `UPDATE teachers SET state = $2, archived_at = $3, updated_at = $4 WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, state, archivedAt, now)
	if err != nil {
		return fmt.Errorf("set teacher state: %w", err)
	}
	return expectAffected(res)
}
