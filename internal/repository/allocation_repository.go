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

// AllocationUniqueConstraint names the five-tuple unique constraint.
const AllocationUniqueConstraint = "teacher_subject_batches_tuple_key"

const allocationColumns = `a.id, a.teacher_id, a.subject_id, a.batch_id, a.division, a.academic_year, a.is_active, a.created_at, a.updated_at`

// AllocationRepository persists teacher/subject/batch allocations.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository constructs an AllocationRepository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// Exists reports whether an allocation with the tuple exists, ignoring excludeID when set.
func (r *AllocationRepository) Exists(ctx context.Context, key models.AllocationKey, excludeID string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM teacher_subject_batches
		WHERE teacher_id = $1 AND subject_id = $2 AND batch_id = $3 AND division = $4 AND academic_year = $5`
	args := []interface{}{key.TeacherID, key.SubjectID, key.BatchID, key.Division, key.AcademicYear}
	if excludeID != "" {
		args = append(args, excludeID)
		query += ` AND id <> $6`
	}
	query += `
	)`
	var exists bool
	if err := database.Conn(ctx, r.db).GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check allocation exists: %w", err)
	}
	return exists, nil
}

// FindByID returns an allocation by identifier.
func (r *AllocationRepository) FindByID(ctx context.Context, id string) (*models.Allocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM teacher_subject_batches a WHERE a.id = $1 LIMIT 1`
	var allocation models.Allocation
	if err := database.Conn(ctx, r.db).GetContext(ctx, &allocation, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find allocation by id: %w", err)
	}
	return &allocation, nil
}

// Create inserts an allocation.
func (r *AllocationRepository) Create(ctx context.Context, allocation *models.Allocation) error {
	if allocation.ID == "" {
		allocation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	allocation.IsActive = true
	allocation.CreatedAt = now
	allocation.UpdatedAt = now

	const query = `INSERT INTO teacher_subject_batches (id, teacher_id, subject_id, batch_id, division, academic_year, is_active, created_at, updated_at)
		VALUES (:id, :teacher_id, :subject_id, :batch_id, :division, :academic_year, :is_active, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, allocation); err != nil {
		return fmt.Errorf("create allocation: %w", err)
	}
	return nil
}

// Update replaces the full tuple of an existing allocation.
func (r *AllocationRepository) Update(ctx context.Context, allocation *models.Allocation) error {
	allocation.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teacher_subject_batches SET teacher_id = :teacher_id, subject_id = :subject_id, batch_id = :batch_id,
		division = :division, academic_year = :academic_year, updated_at = :updated_at WHERE id = :id`
	res, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, allocation)
	if err != nil {
		return fmt.Errorf("update allocation: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an allocation.
func (r *AllocationRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM teacher_subject_batches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}
	return expectAffected(res)
}

// List returns allocations joined with teacher, subject and batch names.
func (r *AllocationRepository) List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, error) {
	var conditions []string
	var args []interface{}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("a.teacher_id = $%d", len(args)))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		conditions = append(conditions, fmt.Sprintf("a.subject_id = $%d", len(args)))
	}
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		conditions = append(conditions, fmt.Sprintf("a.batch_id = $%d", len(args)))
	}
	if filter.AcademicYear != "" {
		args = append(args, filter.AcademicYear)
		conditions = append(conditions, fmt.Sprintf("a.academic_year = $%d", len(args)))
	}

	query := `SELECT ` + allocationColumns + `, t.name AS teacher_name, s.name AS subject_name, s.code AS subject_code,
		b.name AS batch_name, b.year AS batch_year, b.day AS batch_day, b.time AS batch_time
		FROM teacher_subject_batches a
		JOIN teachers t ON t.id = a.teacher_id
		JOIN subjects s ON s.id = a.subject_id
		JOIN batches b ON b.id = a.batch_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.academic_year DESC, b.name ASC, s.code ASC"

	var allocations []models.AllocationDetail
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &allocations, query, args...); err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	return allocations, nil
}
