package models

import "time"

// Student is the academic profile of a student account.
type Student struct {
	ID              string      `db:"id" json:"id"`
	UserID          string      `db:"user_id" json:"userId"`
	RollNumber      string      `db:"roll_number" json:"rollNumber"`
	Name            string      `db:"name" json:"name"`
	Email           string      `db:"email" json:"email"`
	Year            string      `db:"year" json:"year"`
	Division        string      `db:"division" json:"division"`
	AttendanceMarks float64     `db:"attendance_marks" json:"attendanceMarks"`
	State           EntityState `db:"state" json:"state"`
	ArchivedAt      *time.Time  `db:"archived_at" json:"archivedAt,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updatedAt"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	ListOptions
	Search   string
	Year     string
	Division string
	BatchID  string
	State    EntityState
}

// CreateStudentRequest is used by admins to add a student with a login.
type CreateStudentRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"omitempty,min=6"`
	RollNumber string `json:"rollNumber" validate:"required"`
	Year       string `json:"year" validate:"required,oneof=SE TE BE"`
	Division   string `json:"division" validate:"required,oneof=9 10 11"`
}

// UpdateStudentRequest carries editable profile fields.
type UpdateStudentRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	RollNumber string `json:"rollNumber" validate:"required"`
	Year       string `json:"year" validate:"required,oneof=SE TE BE"`
	Division   string `json:"division" validate:"required,oneof=9 10 11"`
}

// UpdateAttendanceMarksRequest sets the attendance component of term work.
type UpdateAttendanceMarksRequest struct {
	AttendanceMarks *float64 `json:"attendanceMarks" validate:"required,gte=0,lte=20"`
}

// StudentStats summarises a student's assessment progress.
type StudentStats struct {
	StudentID            string  `json:"studentId"`
	RollNumber           string  `json:"rollNumber"`
	TotalAssessments     int     `json:"totalAssessments"`
	CompletedAssessments int     `json:"completedAssessments"`
	TotalMarks           float64 `json:"totalMarks"`
	MaxMarks             float64 `json:"maxMarks"`
	AttendanceMarks      float64 `json:"attendanceMarks"`
	MaxAttendanceMarks   float64 `json:"maxAttendanceMarks"`
}

// MaxAttendanceMarks caps Student.AttendanceMarks.
const MaxAttendanceMarks = 20
