package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
)

type authFixture struct {
	svc      *AuthService
	users    *userRepoStub
	teachers *teacherRepoStub
	students *studentRepoStub
	audit    *auditStub
	tx       *passthroughTx
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:    newUserRepoStub(),
		teachers: newTeacherRepoStub(),
		students: newStudentRepoStub(),
		audit:    &auditStub{},
		tx:       &passthroughTx{},
	}
	accounts := NewAccountManager(f.users, f.teachers, f.students, bcrypt.MinCost)
	f.svc = NewAuthService(f.users, f.teachers, f.students, f.audit, accounts, f.tx, validator.New(), zap.NewNop(), AuthConfig{
		Secret: "secret",
		Expiry: 24 * time.Hour,
		Issuer: "lab-assessment-api",
	})
	return f
}

func TestAuthServiceRegisterTeacherThenLogin(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, models.RegisterRequest{
		Email:      "T1@x.com",
		Password:   "secret1",
		Role:       models.RoleTeacher,
		Department: "IT",
	})
	require.NoError(t, err)
	require.NotNil(t, reg.TeacherID)
	assert.NotEmpty(t, reg.UserID)
	assert.Equal(t, 1, f.tx.calls)

	resp, err := f.svc.Login(ctx, models.LoginRequest{Email: "t1@x.com", Password: "secret1", Role: models.RoleTeacher})
	require.NoError(t, err)
	assert.Equal(t, int64((24 * time.Hour).Seconds()), resp.ExpiresIn)
	assert.Equal(t, *reg.TeacherID, resp.User.TeacherID)
	assert.Equal(t, "IT", resp.User.Department)
	assert.Equal(t, "t1", resp.User.Name)

	claims, err := f.svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, *reg.TeacherID, claims.TeacherID)
	assert.Equal(t, reg.UserID, claims.UserID)
	assert.Contains(t, f.audit.actions(), models.AuditActionLogin)
	assert.Contains(t, f.users.lastLogin, reg.UserID)
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	cases := []models.RegisterRequest{
		{Email: "bad", Password: "secret1", Role: models.RoleAdmin},
		{Email: "a@x.com", Password: "123", Role: models.RoleAdmin},
		{Email: "a@x.com", Password: "secret1", Role: "root"},
		{Email: "a@x.com", Password: "secret1", Role: models.RoleTeacher},
		{Email: "a@x.com", Password: "secret1", Role: models.RoleStudent, RollNumber: "R1"},
	}
	for _, req := range cases {
		_, err := f.svc.Register(ctx, req)
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation), "payload %+v", req)
	}
	assert.Empty(t, f.users.byID)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	_, err := f.svc.Register(ctx, models.RegisterRequest{Email: "a@x.com", Password: "secret1", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, models.RegisterRequest{Email: "A@X.com", Password: "secret2", Role: models.RoleAdmin})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Len(t, f.users.byID, 1)
}

func TestAuthServiceRegisterStudentProfile(t *testing.T) {
	f := newAuthFixture()

	reg, err := f.svc.Register(context.Background(), models.RegisterRequest{
		Email:      "s1@x.com",
		Password:   "secret1",
		Role:       models.RoleStudent,
		Name:       "Student One",
		RollNumber: "SE9-01",
		Year:       "SE",
		Division:   "9",
	})
	require.NoError(t, err)
	require.NotNil(t, reg.StudentID)
	student := f.students.byID[*reg.StudentID]
	require.NotNil(t, student)
	assert.Equal(t, reg.UserID, student.UserID)
	assert.Equal(t, "Student One", student.Name)
}

func TestAuthServiceRegisterProfileFailureReturnsError(t *testing.T) {
	f := newAuthFixture()
	f.teachers.createErr = errors.New("insert failed")

	_, err := f.svc.Register(context.Background(), models.RegisterRequest{
		Email: "t@x.com", Password: "secret1", Role: models.RoleTeacher, Department: "IT",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestAuthServiceLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	_, err := f.svc.Register(ctx, models.RegisterRequest{Email: "a@x.com", Password: "secret1", Role: models.RoleAdmin})
	require.NoError(t, err)

	attempts := []models.LoginRequest{
		{Email: "nobody@x.com", Password: "secret1", Role: models.RoleAdmin},
		{Email: "a@x.com", Password: "wrong-pass", Role: models.RoleAdmin},
		{Email: "a@x.com", Password: "secret1", Role: models.RoleTeacher},
	}
	for _, req := range attempts {
		_, err := f.svc.Login(ctx, req)
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Status, appErr.Status)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Message, appErr.Message)
	}
}

func TestAuthServiceLoginArchivedAccount(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, models.RegisterRequest{Email: "a@x.com", Password: "secret1", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.NoError(t, f.users.SetState(ctx, reg.UserID, models.StateArchived))

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "a@x.com", Password: "secret1", Role: models.RoleAdmin})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestAuthServiceChangePassword(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, models.RegisterRequest{Email: "a@x.com", Password: "secret1", Role: models.RoleAdmin})
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, reg.UserID, models.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "secret2"})
	require.Error(t, err)
	assert.Equal(t, 401, appErrors.FromError(err).Status)

	err = f.svc.ChangePassword(ctx, reg.UserID, models.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "123"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	require.NoError(t, f.svc.ChangePassword(ctx, reg.UserID, models.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "secret2"}))
	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "a@x.com", Password: "secret2", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Contains(t, f.audit.actions(), models.AuditActionPasswordChange)
}

func TestAuthServiceValidateTokenRejectsForeignSignature(t *testing.T) {
	f := newAuthFixture()
	claims := &models.JWTClaims{
		UserID: "u1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)

	_, err = f.svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	expired := &models.JWTClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = f.svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthServiceMe(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, models.RegisterRequest{
		Email: "s@x.com", Password: "secret1", Role: models.RoleStudent, RollNumber: "R1", Year: "TE", Division: "10",
	})
	require.NoError(t, err)

	info, err := f.svc.Me(ctx, reg.UserID)
	require.NoError(t, err)
	assert.Equal(t, "R1", info.RollNumber)
	assert.Equal(t, *reg.StudentID, info.StudentID)

	_, err = f.svc.Me(ctx, "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
