package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type authTeacherRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
}

type authStudentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// AuthService provides authentication use cases.
type AuthService struct {
	users     authUserRepository
	teachers  authTeacherRepository
	students  authStudentRepository
	audit     AuditRecorder
	accounts  *AccountManager
	tx        Transactor
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, teachers authTeacherRepository, students authStudentRepository, audit AuditRecorder, accounts *AccountManager, tx Transactor, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Expiry <= 0 {
		config.Expiry = 24 * time.Hour
	}
	return &AuthService{
		users:     users,
		teachers:  teachers,
		students:  students,
		audit:     audit,
		accounts:  accounts,
		tx:        tx,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Register creates an account and, for teachers and students, the matching
// profile in the same transaction.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid registration payload")
	}
	req.Email = NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.SplitN(req.Email, "@", 2)[0]
	}

	switch req.Role {
	case models.RoleTeacher:
		if strings.TrimSpace(req.Department) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "department is required for teachers")
		}
	case models.RoleStudent:
		if req.RollNumber != "" && (req.Year == "" || req.Division == "") {
			return nil, appErrors.Clone(appErrors.ErrValidation, "year and division are required with a roll number")
		}
	}

	resp := &models.RegisterResponse{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		switch {
		case req.Role == models.RoleTeacher:
			teacher := &models.Teacher{
				Name:       name,
				Email:      req.Email,
				Department: strings.TrimSpace(req.Department),
				Subjects:   req.Subjects,
				Phone:      optionalString(req.Phone),
			}
			user, err := s.accounts.CreateTeacher(ctx, req.Password, teacher)
			if err != nil {
				return err
			}
			resp.UserID = user.ID
			resp.TeacherID = &teacher.ID
		case req.Role == models.RoleStudent && req.RollNumber != "":
			student := &models.Student{
				Name:       name,
				Email:      req.Email,
				RollNumber: strings.TrimSpace(req.RollNumber),
				Year:       req.Year,
				Division:   req.Division,
			}
			user, err := s.accounts.CreateStudent(ctx, req.Password, student)
			if err != nil {
				return err
			}
			resp.UserID = user.ID
			resp.StudentID = &student.ID
		default:
			user, err := s.accounts.CreateUser(ctx, req.Email, req.Password, req.Role)
			if err != nil {
				return err
			}
			resp.UserID = user.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, &models.AuditLog{
		UserID:     &resp.UserID,
		Action:     models.AuditActionRegister,
		Resource:   "auth",
		ResourceID: &resp.UserID,
		NewValues:  []byte(fmt.Sprintf(`{"role":%q}`, req.Role)),
	})
	return resp, nil
}

// Login authenticates a user and returns a signed access token. Unknown
// emails, wrong passwords and role mismatches all yield the same error.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, internal(err, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	if user.Role != req.Role {
		return nil, appErrors.ErrInvalidCredentials
	}
	if user.State != models.StateActive {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	info, err := s.userInfo(ctx, user)
	if err != nil {
		return nil, err
	}

	issuedAt := time.Now().UTC()
	token, err := s.generateAccessToken(info, issuedAt)
	if err != nil {
		return nil, internal(err, "failed to create access token")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, issuedAt); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	s.record(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"success"}`),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	})

	return &models.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.config.Expiry.Seconds()),
		IssuedAt:  issuedAt,
		User:      *info,
	}, nil
}

// ChangePassword replaces the password of the given user after verifying the
// current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid change password payload")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, "user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "current password does not match")
	}

	newHash, err := s.accounts.HashPassword(req.NewPassword)
	if err != nil {
		return internal(err, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return internal(err, "failed to update password")
	}

	s.record(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionPasswordChange,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  []byte(`{"status":"changed"}`),
	})
	return nil
}

// Me returns the profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return s.userInfo(ctx, user)
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) userInfo(ctx context.Context, user *models.User) (*models.UserInfo, error) {
	info := &models.UserInfo{ID: user.ID, Email: user.Email, Role: user.Role}
	switch user.Role {
	case models.RoleTeacher:
		teacher, err := s.teachers.FindByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, internal(err, "failed to load teacher profile")
		}
		if teacher != nil {
			info.Name = teacher.Name
			info.TeacherID = teacher.ID
			info.Department = teacher.Department
		}
	case models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, internal(err, "failed to load student profile")
		}
		if student != nil {
			info.Name = student.Name
			info.StudentID = student.ID
			info.RollNumber = student.RollNumber
		}
	}
	return info, nil
}

func (s *AuthService) generateAccessToken(info *models.UserInfo, issuedAt time.Time) (string, error) {
	claims := &models.JWTClaims{
		UserID:     info.ID,
		Email:      info.Email,
		Role:       info.Role,
		TeacherID:  info.TeacherID,
		Department: info.Department,
		StudentID:  info.StudentID,
		RollNumber: info.RollNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   info.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *AuthService) record(ctx context.Context, entry *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
