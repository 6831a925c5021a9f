package models

import "time"

// ImportType selects which accounts a bulk upload creates.
type ImportType string

const (
	ImportStudents ImportType = "students"
	ImportTeachers ImportType = "teachers"
)

// Valid reports whether the import type is supported.
func (t ImportType) Valid() bool {
	return t == ImportStudents || t == ImportTeachers
}

// RequiredColumns lists the header names every row must populate.
func (t ImportType) RequiredColumns() []string {
	switch t {
	case ImportStudents:
		return []string{"name", "email", "rollNumber", "year", "division"}
	case ImportTeachers:
		return []string{"name", "email", "department"}
	}
	return nil
}

// Role is the account role created for rows of this type.
func (t ImportType) Role() UserRole {
	if t == ImportTeachers {
		return RoleTeacher
	}
	return RoleStudent
}

// ImportRowResult reports the outcome of a single row.
type ImportRowResult struct {
	Row     int    `json:"row"`
	Email   string `json:"email,omitempty"`
	Success bool   `json:"success"`
	Created bool   `json:"created,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ImportSummary is returned after a bulk upload finishes.
type ImportSummary struct {
	Success      bool              `json:"success"`
	Message      string            `json:"message"`
	Type         ImportType        `json:"type"`
	SuccessCount int               `json:"successCount"`
	FailureCount int               `json:"failureCount"`
	Details      []ImportRowResult `json:"details"`
}

// ImportJobStatus tracks asynchronous uploads.
type ImportJobStatus string

const (
	ImportJobPending   ImportJobStatus = "pending"
	ImportJobCompleted ImportJobStatus = "completed"
	ImportJobFailed    ImportJobStatus = "failed"
)

// ImportJob is the stored state of an asynchronous upload.
type ImportJob struct {
	ID         string          `json:"id"`
	Type       ImportType      `json:"type"`
	Status     ImportJobStatus `json:"status"`
	Filename   string          `json:"filename"`
	Error      string          `json:"error,omitempty"`
	Summary    *ImportSummary  `json:"summary,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	FinishedAt *time.Time      `json:"finishedAt,omitempty"`
}
