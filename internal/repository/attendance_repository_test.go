package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-assessment-api/internal/models"
)

func TestAttendanceReportInclusiveRange(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	start, _ := models.ParseDate("2024-01-01")
	end, _ := models.ParseDate("2024-01-31")
	day := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`at.date BETWEEN \$2 AND \$3`).
		WithArgs("b1", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "student_id", "student_name", "email", "roll_number", "status", "remarks"}).
			AddRow("r1", day, "s1", "Asha", "asha@x.com", "SE01", "present", nil))

	rows, err := repo.Report(context.Background(), models.AttendanceReportFilter{BatchID: "b1", StartDate: start, EndDate: end})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-31", rows[0].Date.String())
	assert.Equal(t, models.AttendancePresent, rows[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAttendance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec("INSERT INTO attendance").WillReturnResult(sqlmock.NewResult(1, 1))

	day, _ := models.ParseDate("2024-01-08")
	record := &models.Attendance{StudentID: "s1", BatchID: "b1", Date: day, Status: models.AttendanceLate}
	require.NoError(t, repo.Insert(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
