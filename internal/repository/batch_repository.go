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

const batchColumns = `b.id, b.name, b.year, b.division, b.day, b.time, b.start_date, b.end_date, b.teacher_id, b.state, b.archived_at, b.created_at, b.updated_at`

const batchDetailSelect = `SELECT ` + batchColumns + `, t.name AS teacher_name,
	(SELECT COUNT(*) FROM student_batches sb WHERE sb.batch_id = b.id) AS student_count
	FROM batches b LEFT JOIN teachers t ON t.id = b.teacher_id`

// BatchRepository persists batches and their student membership.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs a BatchRepository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// FindByID returns a batch with teacher and membership details.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.BatchDetail, error) {
	query := batchDetailSelect + ` WHERE b.id = $1 LIMIT 1`
	var batch models.BatchDetail
	if err := database.Conn(ctx, r.db).GetContext(ctx, &batch, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find batch by id: %w", err)
	}
	return &batch, nil
}

// List returns batches matching the filter with the total count.
func (r *BatchRepository) List(ctx context.Context, filter models.BatchFilter) ([]models.BatchDetail, int, error) {
	filter.Normalize()

	var conditions []string
	var args []interface{}
	if filter.State != "" {
		args = append(args, filter.State)
		conditions = append(conditions, fmt.Sprintf("b.state = $%d", len(args)))
	}
	if filter.Year != "" {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("b.year = $%d", len(args)))
	}
	if filter.Division != "" {
		args = append(args, filter.Division)
		conditions = append(conditions, fmt.Sprintf("b.division = $%d", len(args)))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("b.teacher_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := map[string]string{
		"name":      "b.name",
		"startDate": "b.start_date",
		"createdAt": "b.created_at",
	}[filter.SortBy]
	if sortBy == "" {
		sortBy = "b.start_date"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" {
		sortOrder = "DESC"
	}

	listQuery := fmt.Sprintf("%s%s ORDER BY %s %s LIMIT %d OFFSET %d", batchDetailSelect, where, sortBy, sortOrder, filter.PageSize, filter.Offset())
	var batches []models.BatchDetail
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &batches, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}

	var total int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &total, "SELECT COUNT(*) FROM batches b"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}
	return batches, total, nil
}

// Create inserts a batch.
func (r *BatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.State == "" {
		batch.State = models.StateActive
	}
	now := time.Now().UTC()
	batch.CreatedAt = now
	batch.UpdatedAt = now

	const query = `INSERT INTO batches (id, name, year, division, day, time, start_date, end_date, teacher_id, state, created_at, updated_at)
		VALUES (:id, :name, :year, :division, :day, :time, :start_date, :end_date, :teacher_id, :state, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// Update overwrites the schedule fields of a batch.
func (r *BatchRepository) Update(ctx context.Context, batch *models.Batch) error {
	batch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE batches SET name = :name, year = :year, division = :division, day = :day, time = :time,
		start_date = :start_date, end_date = :end_date, teacher_id = :teacher_id, updated_at = :updated_at WHERE id = :id`
	res, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, batch)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return expectAffected(res)
}

// SetState archives or restores a batch.
func (r *BatchRepository) SetState(ctx context.Context, id string, state models.EntityState) error {
	now := time.Now().UTC()
	var archivedAt *time.Time
	if state == models.StateArchived {
		archivedAt = &now
	}
	const query = `UPDATE batches SET state = $2, archived_at = $3, updated_at = $4 WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, state, archivedAt, now)
	if err != nil {
		return fmt.Errorf("set batch state: %w", err)
	}
	return expectAffected(res)
}

// AddStudents links students to a batch, ignoring existing memberships.
// It returns the number of new memberships.
func (r *BatchRepository) AddStudents(ctx context.Context, batchID string, studentIDs []string) (int, error) {
	conn := database.Conn(ctx, r.db)
	added := 0
	for _, studentID := range studentIDs {
		res, err := conn.ExecContext(ctx, `INSERT INTO student_batches (student_id, batch_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, studentID, batchID, time.Now().UTC())
		if err != nil {
			return added, fmt.Errorf("add student %s to batch: %w", studentID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}
	return added, nil
}

// RemoveStudent unlinks a student from a batch.
func (r *BatchRepository) RemoveStudent(ctx context.Context, batchID, studentID string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM student_batches WHERE batch_id = $1 AND student_id = $2`, batchID, studentID)
	if err != nil {
		return fmt.Errorf("remove student from batch: %w", err)
	}
	return expectAffected(res)
}

// MemberIDs returns the set of students enrolled in the batch.
func (r *BatchRepository) MemberIDs(ctx context.Context, batchID string) (map[string]struct{}, error) {
	var ids []string
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &ids, `SELECT student_id FROM student_batches WHERE batch_id = $1`, batchID); err != nil {
		return nil, fmt.Errorf("list batch members: %w", err)
	}
	members := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		members[id] = struct{}{}
	}
	return members, nil
}
