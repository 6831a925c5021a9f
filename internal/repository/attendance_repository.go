package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	"github.com/noah-isme/lab-assessment-api/pkg/database"
)

// AttendanceRepository persists attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Insert writes a single attendance record.
func (r *AttendanceRepository) Insert(ctx context.Context, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	const query = `INSERT INTO attendance (id, student_id, batch_id, date, status, remarks, marked_by, created_at, updated_at)
		VALUES (:id, :student_id, :batch_id, :date, :status, :remarks, :marked_by, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// Report returns batch attendance in an inclusive date range joined with student identity.
func (r *AttendanceRepository) Report(ctx context.Context, filter models.AttendanceReportFilter) ([]models.AttendanceReportRow, error) {
	const query = `SELECT at.id, at.date, at.student_id, s.name AS student_name, s.email, s.roll_number, at.status, at.remarks
		FROM attendance at
		JOIN students s ON s.id = at.student_id
		WHERE at.batch_id = $1 AND at.date BETWEEN $2 AND $3
		ORDER BY at.date ASC, s.roll_number ASC`
	var rows []models.AttendanceReportRow
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, filter.BatchID, filter.StartDate, filter.EndDate); err != nil {
		return nil, fmt.Errorf("attendance report: %w", err)
	}
	return rows, nil
}

// History returns a student's attendance records, newest first.
func (r *AttendanceRepository) History(ctx context.Context, studentID string) ([]models.AttendanceHistoryRow, error) {
	const query = `SELECT at.date, at.batch_id, b.name AS batch_name, at.status, at.remarks
		FROM attendance at
		JOIN batches b ON b.id = at.batch_id
		WHERE at.student_id = $1
		ORDER BY at.date DESC`
	var rows []models.AttendanceHistoryRow
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("attendance history: %w", err)
	}
	return rows, nil
}
