package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	"github.com/noah-isme/lab-assessment-api/pkg/database"
)

// AssessmentUniqueConstraint guards one row per student and experiment.
const AssessmentUniqueConstraint = "assessments_student_experiment_key"

const assessmentColumns = `a.id, a.student_id, a.student_roll_no, a.experiment_no,
	a.scheduled_performance_date, a.actual_performance_date, a.scheduled_submission_date, a.actual_submission_date,
	a.rpp_marks, a.spo_marks, a.assignment_marks, a.final_assignment_marks, a.test_marks, a.theory_attendance_marks,
	a.final_marks, a.unit_test1_marks, a.unit_test2_marks, a.unit_test3_marks, a.converted_unit_test_marks,
	a.created_at, a.updated_at`

// AssessmentRepository persists per-experiment marks.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs an AssessmentRepository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// FindByID returns an assessment by identifier.
func (r *AssessmentRepository) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments a WHERE a.id = $1 LIMIT 1`
	var assessment models.Assessment
	if err := database.Conn(ctx, r.db).GetContext(ctx, &assessment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find assessment by id: %w", err)
	}
	return &assessment, nil
}

// ListByStudent returns a student's assessments ordered by experiment number.
func (r *AssessmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments a WHERE a.student_id = $1 ORDER BY a.experiment_no ASC`
	var assessments []models.Assessment
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &assessments, query, studentID); err != nil {
		return nil, fmt.Errorf("list assessments by student: %w", err)
	}
	return assessments, nil
}

// ListByBatch returns the assessments of every student enrolled in the batch.
func (r *AssessmentRepository) ListByBatch(ctx context.Context, batchID string) ([]models.BatchAssessment, error) {
	query := `SELECT ` + assessmentColumns + `, s.name AS student_name
		FROM assessments a
		JOIN students s ON s.id = a.student_id
		JOIN student_batches sb ON sb.student_id = s.id
		WHERE sb.batch_id = $1
		ORDER BY s.roll_number ASC, a.experiment_no ASC`
	var assessments []models.BatchAssessment
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &assessments, query, batchID); err != nil {
		return nil, fmt.Errorf("list assessments by batch: %w", err)
	}
	return assessments, nil
}

// Create inserts an assessment.
func (r *AssessmentRepository) Create(ctx context.Context, a *models.Assessment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	const query = `INSERT INTO assessments (id, student_id, student_roll_no, experiment_no,
		scheduled_performance_date, actual_performance_date, scheduled_submission_date, actual_submission_date,
		rpp_marks, spo_marks, assignment_marks, final_assignment_marks, test_marks, theory_attendance_marks,
		final_marks, unit_test1_marks, unit_test2_marks, unit_test3_marks, converted_unit_test_marks, created_at, updated_at)
		VALUES (:id, :student_id, :student_roll_no, :experiment_no,
		:scheduled_performance_date, :actual_performance_date, :scheduled_submission_date, :actual_submission_date,
		:rpp_marks, :spo_marks, :assignment_marks, :final_assignment_marks, :test_marks, :theory_attendance_marks,
		:final_marks, :unit_test1_marks, :unit_test2_marks, :unit_test3_marks, :converted_unit_test_marks, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

// Update writes every column of an existing assessment.
func (r *AssessmentRepository) Update(ctx context.Context, a *models.Assessment) error {
	a.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assessments SET student_id = :student_id, student_roll_no = :student_roll_no, experiment_no = :experiment_no,
		scheduled_performance_date = :scheduled_performance_date, actual_performance_date = :actual_performance_date,
		scheduled_submission_date = :scheduled_submission_date, actual_submission_date = :actual_submission_date,
		rpp_marks = :rpp_marks, spo_marks = :spo_marks, assignment_marks = :assignment_marks,
		final_assignment_marks = :final_assignment_marks, test_marks = :test_marks, theory_attendance_marks = :theory_attendance_marks,
		final_marks = :final_marks, unit_test1_marks = :unit_test1_marks, unit_test2_marks = :unit_test2_marks,
		unit_test3_marks = :unit_test3_marks, converted_unit_test_marks = :converted_unit_test_marks, updated_at = :updated_at
		WHERE id = :id`
	res, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, a)
	if err != nil {
		return fmt.Errorf("update assessment: %w", err)
	}
	return expectAffected(res)
}
