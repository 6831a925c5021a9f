package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RegisterRequest creates an account with an optional role profile.
type RegisterRequest struct {
	Email      string   `json:"email" validate:"required,email"`
	Password   string   `json:"password" validate:"required,min=6"`
	Role       UserRole `json:"role" validate:"required,oneof=student teacher admin"`
	Name       string   `json:"name"`
	Department string   `json:"department"`
	Phone      string   `json:"phone"`
	Subjects   []string `json:"subjects"`
	RollNumber string   `json:"rollNumber"`
	Year       string   `json:"year" validate:"omitempty,oneof=SE TE BE"`
	Division   string   `json:"division" validate:"omitempty,oneof=9 10 11"`
}

// RegisterResponse reports the identifiers created at registration.
type RegisterResponse struct {
	UserID    string  `json:"userId"`
	TeacherID *string `json:"teacherId,omitempty"`
	StudentID *string `json:"studentId,omitempty"`
}

// LoginRequest holds credentials for authenticating a user. The role is part
// of the credential check.
type LoginRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required"`
	Role      UserRole `json:"role" validate:"required,oneof=student teacher admin"`
	IP        string   `json:"-"`
	UserAgent string   `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expiresIn"`
	IssuedAt  time.Time `json:"issuedAt"`
	User      UserInfo  `json:"user"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	Role       UserRole `json:"role"`
	Name       string   `json:"name,omitempty"`
	TeacherID  string   `json:"teacherId,omitempty"`
	Department string   `json:"department,omitempty"`
	StudentID  string   `json:"studentId,omitempty"`
	RollNumber string   `json:"rollNumber,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID     string   `json:"id"`
	Email      string   `json:"email"`
	Role       UserRole `json:"role"`
	TeacherID  string   `json:"teacherId,omitempty"`
	Department string   `json:"department,omitempty"`
	StudentID  string   `json:"studentId,omitempty"`
	RollNumber string   `json:"rollNumber,omitempty"`
	jwt.RegisteredClaims
}
