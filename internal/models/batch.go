package models

import "time"

// Batch is a scheduled lab section.
type Batch struct {
	ID         string      `db:"id" json:"id"`
	Name       string      `db:"name" json:"name"`
	Year       string      `db:"year" json:"year"`
	Division   string      `db:"division" json:"division"`
	Day        string      `db:"day" json:"day"`
	Time       string      `db:"time" json:"time"`
	StartDate  Date        `db:"start_date" json:"startDate"`
	EndDate    Date        `db:"end_date" json:"endDate"`
	TeacherID  string      `db:"teacher_id" json:"teacherId"`
	State      EntityState `db:"state" json:"state"`
	ArchivedAt *time.Time  `db:"archived_at" json:"archivedAt,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
}

// BatchDetail enriches a batch with teacher and membership information.
type BatchDetail struct {
	Batch
	TeacherName  *string `db:"teacher_name" json:"teacherName,omitempty"`
	StudentCount int     `db:"student_count" json:"studentCount"`
}

// BatchFilter scopes batch listings.
type BatchFilter struct {
	ListOptions
	Year      string
	Division  string
	TeacherID string
	State     EntityState
}

// BatchRequest is the create/update payload for batches. When SubjectID is
// set the batch is allocated to its teacher for that subject in the same
// transaction.
type BatchRequest struct {
	Name         string `json:"name" validate:"required"`
	Year         string `json:"year" validate:"required,oneof=SE TE BE"`
	Division     string `json:"division" validate:"required,oneof=9 10 11"`
	Day          string `json:"day" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday"`
	Time         string `json:"time" validate:"required"`
	StartDate    Date   `json:"startDate"`
	EndDate      Date   `json:"endDate"`
	TeacherID    string `json:"teacherId" validate:"required"`
	SubjectID    string `json:"subjectId"`
	AcademicYear string `json:"academicYear"`
}

// BatchMembershipRequest adds students to a batch.
type BatchMembershipRequest struct {
	StudentIDs []string `json:"studentIds" validate:"required,min=1,dive,required"`
}
