package models

import (
	"time"

	"github.com/lib/pq"
)

// Teacher is the staff profile linked to a teacher account.
type Teacher struct {
	ID         string         `db:"id" json:"id"`
	UserID     string         `db:"user_id" json:"userId"`
	Name       string         `db:"name" json:"name"`
	Email      string         `db:"email" json:"email"`
	Department string         `db:"department" json:"department"`
	Subjects   pq.StringArray `db:"subjects" json:"subjects"`
	Phone      *string        `db:"phone" json:"phone,omitempty"`
	State      EntityState    `db:"state" json:"state"`
	ArchivedAt *time.Time     `db:"archived_at" json:"archivedAt,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updatedAt"`
}

// TeacherFilter captures filtering criteria for listing teachers.
type TeacherFilter struct {
	ListOptions
	Search     string
	Department string
	State      EntityState
}

// TeacherOption is the compact shape used by selection dropdowns.
type TeacherOption struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	Department string `db:"department" json:"department"`
}

// CreateTeacherRequest adds a teacher together with a login.
type CreateTeacherRequest struct {
	Name       string   `json:"name" validate:"required"`
	Email      string   `json:"email" validate:"required,email"`
	Password   string   `json:"password" validate:"omitempty,min=6"`
	Department string   `json:"department" validate:"required"`
	Subjects   []string `json:"subjects"`
	Phone      string   `json:"phone"`
}

// UpdateTeacherRequest carries editable teacher fields.
type UpdateTeacherRequest struct {
	Name       string   `json:"name" validate:"required"`
	Email      string   `json:"email" validate:"required,email"`
	Department string   `json:"department" validate:"required"`
	Subjects   []string `json:"subjects"`
	Phone      string   `json:"phone"`
}
