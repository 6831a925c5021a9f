package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lab-assessment-api/internal/models"
)

// DashboardRepository computes admin dashboard counters.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Stats counts active entities in one round trip.
func (r *DashboardRepository) Stats(ctx context.Context) (*models.DashboardStats, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM students WHERE state = 'active') AS total_students,
		(SELECT COUNT(*) FROM teachers WHERE state = 'active') AS total_teachers,
		(SELECT COUNT(*) FROM batches WHERE state = 'active') AS total_batches,
		(SELECT COUNT(*) FROM subjects) AS total_subjects,
		(SELECT COUNT(*) FROM teacher_subject_batches WHERE is_active) AS total_allocations`
	var stats models.DashboardStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &stats, nil
}
