package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	"github.com/noah-isme/lab-assessment-api/pkg/database"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
)

type accountUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type accountTeacherRepository interface {
	Create(ctx context.Context, teacher *models.Teacher) error
}

type accountStudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
}

// AccountManager creates login accounts together with their role profile.
// Callers are expected to run it inside a transaction so that a failing
// profile insert does not leave an orphaned user row.
type AccountManager struct {
	users        accountUserRepository
	teachers     accountTeacherRepository
	students     accountStudentRepository
	passwordCost int
}

// NewAccountManager constructs an AccountManager. A zero cost uses bcrypt.DefaultCost.
func NewAccountManager(users accountUserRepository, teachers accountTeacherRepository, students accountStudentRepository, passwordCost int) *AccountManager {
	if passwordCost == 0 {
		passwordCost = bcrypt.DefaultCost
	}
	return &AccountManager{users: users, teachers: teachers, students: students, passwordCost: passwordCost}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword hashes a plaintext password with the configured cost.
func (m *AccountManager) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.passwordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CreateUser inserts a user after checking the email is unused.
func (m *AccountManager) CreateUser(ctx context.Context, email, password string, role models.UserRole) (*models.User, error) {
	email = NormalizeEmail(email)
	if _, err := m.users.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internal(err, "failed to check email")
	}

	hash, err := m.HashPassword(password)
	if err != nil {
		return nil, internal(err, "failed to hash password")
	}

	user := &models.User{Email: email, PasswordHash: hash, Role: role, State: models.StateActive}
	if err := m.users.Create(ctx, user); err != nil {
		return nil, conflictOr(err, "email already registered", "failed to create user")
	}
	return user, nil
}

// CreateTeacher inserts a teacher account and profile.
func (m *AccountManager) CreateTeacher(ctx context.Context, password string, teacher *models.Teacher) (*models.User, error) {
	user, err := m.CreateUser(ctx, teacher.Email, password, models.RoleTeacher)
	if err != nil {
		return nil, err
	}
	teacher.UserID = user.ID
	teacher.Email = user.Email
	if err := m.teachers.Create(ctx, teacher); err != nil {
		return nil, conflictOr(err, "teacher profile already exists", "failed to create teacher")
	}
	return user, nil
}

// CreateStudent inserts a student account and profile.
func (m *AccountManager) CreateStudent(ctx context.Context, password string, student *models.Student) (*models.User, error) {
	user, err := m.CreateUser(ctx, student.Email, password, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	student.UserID = user.ID
	student.Email = user.Email
	if err := m.students.Create(ctx, student); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "roll number already in use")
		}
		return nil, internal(err, "failed to create student")
	}
	return user, nil
}
