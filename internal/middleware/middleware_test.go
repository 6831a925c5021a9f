package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	"github.com/noah-isme/lab-assessment-api/internal/service"
)

const testSecret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, claims models.JWTClaims) string {
	t.Helper()
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newAuthService() *service.AuthService {
	return service.NewAuthService(nil, nil, nil, nil, nil, nil, nil, nil, service.AuthConfig{Secret: testSecret})
}

func TestJWTRejectsMissingAndMalformedTokens(t *testing.T) {
	router := gin.New()
	router.GET("/me", JWT(newAuthService()), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).Email)
	})

	cases := map[string]string{
		"missing":        "",
		"wrong scheme":   "Basic abc",
		"empty bearer":   "Bearer ",
		"foreign secret": "Bearer " + signToken(t, "other", models.JWTClaims{UserID: "u1"}),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer "+signToken(t, testSecret, models.JWTClaims{UserID: "u1", Email: "a@example.com", Role: models.RoleAdmin}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@example.com", rec.Body.String())
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
}

func TestRBAC(t *testing.T) {
	student := &models.JWTClaims{UserID: "u3", Role: models.RoleStudent, StudentID: "s1", RollNumber: "R1"}
	teacher := &models.JWTClaims{UserID: "u2", Role: models.RoleTeacher, TeacherID: "t1"}

	cases := []struct {
		name    string
		claims  *models.JWTClaims
		allowed []string
		route   string
		path    string
		want    int
	}{
		{"role allowed", teacher, []string{"admin", "teacher"}, "/x", "/x", http.StatusOK},
		{"role denied", student, []string{"admin", "teacher"}, "/x", "/x", http.StatusForbidden},
		{"no claims", nil, []string{"admin"}, "/x", "/x", http.StatusUnauthorized},
		{"own student id", student, []string{"admin", SelfStudent}, "/students/:id", "/students/s1", http.StatusOK},
		{"other student id", student, []string{"admin", SelfStudent}, "/students/:id", "/students/s2", http.StatusForbidden},
		{"own roll number", student, []string{"teacher", SelfRollNumber}, "/a/:rollNo", "/a/R1", http.StatusOK},
		{"other roll number", student, []string{"teacher", SelfRollNumber}, "/a/:rollNo", "/a/R2", http.StatusForbidden},
		{"teacher matching self marker", &models.JWTClaims{Role: models.RoleTeacher, StudentID: "s1"}, []string{"admin", SelfStudent}, "/students/:id", "/students/s1", http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.GET(tc.route, withClaims(tc.claims), RBAC(tc.allowed...), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

type auditRecorderStub struct {
	entries []*models.AuditLog
	err     error
}

func (a *auditRecorderStub) Create(ctx context.Context, log *models.AuditLog) error {
	a.entries = append(a.entries, log)
	return a.err
}

func TestAuditRecordsSuccessfulRequestsOnly(t *testing.T) {
	recorder := &auditRecorderStub{}
	claims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	router := gin.New()
	router.DELETE("/teachers/:id", withClaims(claims), Audit(recorder, nil, models.AuditActionArchive, "teacher"), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/teachers/missing", nil))
	assert.Empty(t, recorder.entries)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/teachers/t1", nil))
	require.Len(t, recorder.entries, 1)
	entry := recorder.entries[0]
	assert.Equal(t, models.AuditActionArchive, entry.Action)
	assert.Equal(t, "teacher", entry.Resource)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "t1", *entry.ResourceID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "admin-1", *entry.UserID)

	recorder.err = errors.New("db down")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/teachers/t2", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestResponseMetaAndMetrics(t *testing.T) {
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics), ResponseMeta())
	var captured map[string]interface{}
	router.GET("/stats", func(c *gin.Context) {
		SetCacheHit(c, true)
		captured = Meta(c)
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, captured[cacheHitKey])

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "http_requests_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMetricsLabelsByRouteTemplate(t *testing.T) {
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/students/:roll", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/students/TE10-01", "/students/TE10-02", "/health", "/nope/TE10-03"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "path" {
					counts[l.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{"/students/:roll": 2, unmatchedRoute: 1}, counts)
}
