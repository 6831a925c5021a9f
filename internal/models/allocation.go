package models

import "time"

// Allocation assigns a teacher to teach a subject to a batch division in an
// academic year. The five-tuple is unique.
type Allocation struct {
	ID           string    `db:"id" json:"id"`
	TeacherID    string    `db:"teacher_id" json:"teacherId"`
	SubjectID    string    `db:"subject_id" json:"subjectId"`
	BatchID      string    `db:"batch_id" json:"batchId"`
	Division     string    `db:"division" json:"division"`
	AcademicYear string    `db:"academic_year" json:"academicYear"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// AllocationKey is the uniqueness tuple of an allocation.
type AllocationKey struct {
	TeacherID    string
	SubjectID    string
	BatchID      string
	Division     string
	AcademicYear string
}

// Key returns the allocation uniqueness tuple.
func (a Allocation) Key() AllocationKey {
	return AllocationKey{
		TeacherID:    a.TeacherID,
		SubjectID:    a.SubjectID,
		BatchID:      a.BatchID,
		Division:     a.Division,
		AcademicYear: a.AcademicYear,
	}
}

// AllocationDetail enriches allocations with descriptive fields.
type AllocationDetail struct {
	Allocation
	TeacherName string `db:"teacher_name" json:"teacherName"`
	SubjectName string `db:"subject_name" json:"subjectName"`
	SubjectCode string `db:"subject_code" json:"subjectCode"`
	BatchName   string `db:"batch_name" json:"batchName"`
	BatchYear   string `db:"batch_year" json:"batchYear"`
	BatchDay    string `db:"batch_day" json:"batchDay"`
	BatchTime   string `db:"batch_time" json:"batchTime"`
}

// AllocationFilter scopes allocation listings.
type AllocationFilter struct {
	TeacherID    string
	SubjectID    string
	BatchID      string
	AcademicYear string
}

// AllocationRequest is the full tuple used by allocate and reallocate.
type AllocationRequest struct {
	TeacherID    string `json:"teacherId" validate:"required"`
	SubjectID    string `json:"subjectId" validate:"required"`
	BatchID      string `json:"batchId" validate:"required"`
	Division     string `json:"division" validate:"required,oneof=9 10 11"`
	AcademicYear string `json:"academicYear" validate:"required,max=16"`
}
