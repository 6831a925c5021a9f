package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// BulkOperationMode controls how bulk writes behave on errors.
type BulkOperationMode string

const (
	BulkModeAtomic         BulkOperationMode = "atomic"
	BulkModePartialOnError BulkOperationMode = "partialOnError"
)

// Attendance is a single per-student, per-batch, per-date record.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"studentId"`
	BatchID   string           `db:"batch_id" json:"batchId"`
	Date      Date             `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Remarks   *string          `db:"remarks" json:"remarks,omitempty"`
	MarkedBy  *string          `db:"marked_by" json:"markedBy,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time        `db:"updated_at" json:"updatedAt"`
}

// AttendanceRecordInput is one entry of a mark request.
type AttendanceRecordInput struct {
	StudentID string           `json:"studentId" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required,oneof=present absent late excused"`
	Remarks   *string          `json:"remarks"`
}

// MarkAttendanceRequest records attendance for a batch session.
type MarkAttendanceRequest struct {
	BatchID string                  `json:"batchId" validate:"required"`
	Date    Date                    `json:"date"`
	Mode    BulkOperationMode       `json:"mode" validate:"omitempty,oneof=atomic partialOnError"`
	Records []AttendanceRecordInput `json:"records" validate:"required,min=1,dive"`
}

// AttendanceFailure describes a record that could not be written.
type AttendanceFailure struct {
	StudentID string `json:"studentId"`
	Reason    string `json:"reason"`
}

// MarkAttendanceResult summarises a mark request.
type MarkAttendanceResult struct {
	Mode     BulkOperationMode   `json:"mode"`
	Recorded int                 `json:"recorded"`
	Failed   []AttendanceFailure `json:"failed,omitempty"`
}

// AttendanceReportFilter scopes the attendance report.
type AttendanceReportFilter struct {
	BatchID   string
	StartDate Date
	EndDate   Date
}

// AttendanceReportRow joins an attendance record with student identity.
type AttendanceReportRow struct {
	ID          string           `db:"id" json:"id"`
	Date        Date             `db:"date" json:"date"`
	StudentID   string           `db:"student_id" json:"studentId"`
	StudentName string           `db:"student_name" json:"studentName"`
	Email       string           `db:"email" json:"email"`
	RollNumber  string           `db:"roll_number" json:"rollNumber"`
	Status      AttendanceStatus `db:"status" json:"status"`
	Remarks     *string          `db:"remarks" json:"remarks,omitempty"`
}

// AttendanceHistoryRow is one entry of a student's attendance history.
type AttendanceHistoryRow struct {
	Date      Date             `db:"date" json:"date"`
	BatchID   string           `db:"batch_id" json:"batchId"`
	BatchName string           `db:"batch_name" json:"batchName"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Remarks   *string          `db:"remarks" json:"remarks,omitempty"`
}

// AttendanceSummary counts a student's attendance by status.
type AttendanceSummary struct {
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Late    int     `json:"late"`
	Excused int     `json:"excused"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// StudentAttendance bundles history and summary for a student.
type StudentAttendance struct {
	StudentID       string                 `json:"studentId"`
	AttendanceMarks float64                `json:"attendanceMarks"`
	Summary         AttendanceSummary      `json:"summary"`
	History         []AttendanceHistoryRow `json:"history"`
}
