package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
)

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportServiceAttendanceCSV(t *testing.T) {
	remarks := "left early"
	attendance := &attendanceRepoStub{rows: []models.AttendanceReportRow{
		{Date: models.NewDate(time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC)), StudentName: "Asha", Email: "asha@example.com", RollNumber: "R1", Status: models.AttendanceLate, Remarks: &remarks},
	}}
	svc := NewExportService(attendance, newBatchRepoStub(), newStudentRepoStub(), newAssessmentRepoStub(), zap.NewNop(), 0)

	file, err := svc.Attendance(context.Background(), models.AttendanceReportFilter{BatchID: "b1"}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "attendance-report.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	records := readCSV(t, file.Data)
	require.Len(t, records, 2)
	assert.Equal(t, attendanceExportHeaders, records[0])
	assert.Equal(t, []string{"2024-08-05", "Asha", "asha@example.com", "R1", "late", "left early"}, records[1])
}

func TestExportServiceBatchCSV(t *testing.T) {
	batches := newBatchRepoStub()
	batches.byID["b1"] = &models.Batch{ID: "b1", Name: "SE-9 DBMS", State: models.StateActive}
	students := newStudentRepoStub()
	asha := students.add(models.Student{Name: "Asha", Email: "asha@example.com", RollNumber: "R1", AttendanceMarks: 18})
	assessments := newAssessmentRepoStub()
	assessments.members["b1"] = []string{asha.ID}
	assessments.byID["a1"] = &models.Assessment{
		ID: "a1", StudentID: asha.ID, ExperimentNo: 1,
		RPPMarks: floatPtr(5), SPOMarks: floatPtr(5), AssignmentMarks: floatPtr(10),
		TestMarks: floatPtr(15), FinalMarks: floatPtr(20),
	}
	svc := NewExportService(&attendanceRepoStub{}, batches, students, assessments, zap.NewNop(), Scale25)

	file, err := svc.Batch(context.Background(), "b1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "batch-b1.csv", file.Filename)

	records := readCSV(t, file.Data)
	require.Len(t, records, 2)
	assert.Equal(t, batchExportHeaders, records[0])
	assert.Equal(t, []string{"R1", "Asha", "asha@example.com", "18", "1", "20", "23.25"}, records[1])
}

func TestExportServiceRejectsInput(t *testing.T) {
	svc := NewExportService(&attendanceRepoStub{}, newBatchRepoStub(), newStudentRepoStub(), newAssessmentRepoStub(), nil, 0)
	ctx := context.Background()

	_, err := svc.Attendance(ctx, models.AttendanceReportFilter{}, "docx")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnsupportedFormat))

	_, err = svc.Batch(ctx, "missing", "pdf")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	file, err := svc.Attendance(ctx, models.AttendanceReportFilter{}, "")
	require.NoError(t, err)
	assert.Equal(t, "attendance-report.xlsx", file.Filename)
}
