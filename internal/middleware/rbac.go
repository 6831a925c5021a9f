package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
	"github.com/noah-isme/lab-assessment-api/pkg/response"
)

// Self markers accepted by RBAC in addition to role names.
const (
	// SelfStudent allows a student whose profile id equals the :id path parameter.
	SelfStudent = "SELF_STUDENT"
	// SelfRollNumber allows a student whose roll number equals the :rollNo path parameter.
	SelfRollNumber = "SELF_ROLL"
)

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{})
	var selfStudent, selfRoll bool
	for _, a := range allowed {
		switch a {
		case SelfStudent:
			selfStudent = true
		case SelfRollNumber:
			selfRoll = true
		default:
			allowedRoles[models.UserRole(a)] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if claims.Role == models.RoleStudent {
			if selfStudent && claims.StudentID != "" && c.Param("id") == claims.StudentID {
				c.Next()
				return
			}
			if selfRoll && claims.RollNumber != "" && c.Param("rollNo") == claims.RollNumber {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// Require is a helper that accepts a list of roles.
func Require(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
