package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-assessment-api/internal/models"
)

func TestAllocationExistsExcludesSelf(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	key := models.AllocationKey{TeacherID: "t1", SubjectID: "sub1", BatchID: "b1", Division: "9", AcademicYear: "2024"}
	mock.ExpectQuery(regexp.QuoteMeta("academic_year = $5 AND id <> $6")).
		WithArgs("t1", "sub1", "b1", "9", "2024", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.Exists(context.Background(), key, "a1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationExistsWithoutExclusionOmitsIDClause(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	key := models.AllocationKey{TeacherID: "t1", SubjectID: "sub1", BatchID: "b1", Division: "9", AcademicYear: "2024"}
	mock.ExpectQuery(`academic_year = \$5\s*\)$`).
		WithArgs("t1", "sub1", "b1", "9", "2024").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), key, "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAllocationsFiltersByTeacher(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	now := time.Now()
	cols := []string{"id", "teacher_id", "subject_id", "batch_id", "division", "academic_year", "is_active", "created_at", "updated_at",
		"teacher_name", "subject_name", "subject_code", "batch_name", "batch_year", "batch_day", "batch_time"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.teacher_id = $1 ORDER BY a.academic_year DESC")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a1", "t1", "sub1", "b1", "9", "2024", true, now, now, "Meera", "Networks", "CN", "SE-9-A", "SE", "Monday", "10:00-12:00"))

	rows, err := repo.List(context.Background(), models.AllocationFilter{TeacherID: "t1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Networks", rows[0].SubjectName)
	assert.Equal(t, "2024", rows[0].AcademicYear)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAllocationMarksActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAllocationRepository(db)

	mock.ExpectExec("INSERT INTO teacher_subject_batches").WillReturnResult(sqlmock.NewResult(1, 1))

	allocation := &models.Allocation{TeacherID: "t1", SubjectID: "sub1", BatchID: "b1", Division: "9", AcademicYear: "2024"}
	require.NoError(t, repo.Create(context.Background(), allocation))
	assert.True(t, allocation.IsActive)
	assert.NotEmpty(t, allocation.ID)
}
