package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-assessment-api/internal/middleware"
	"github.com/noah-isme/lab-assessment-api/internal/models"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}

func invalidPayload(err error, what string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+what+" payload")
}

// listOptions reads page, limit, sort and order query parameters.
func listOptions(c *gin.Context) models.ListOptions {
	opts := models.ListOptions{
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		opts.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		opts.PageSize = size
	}
	return opts
}

func stateQuery(c *gin.Context) models.EntityState {
	return models.EntityState(strings.ToLower(strings.TrimSpace(c.Query("state"))))
}

func dateQuery(c *gin.Context, key string) (models.Date, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, appErrors.Clone(appErrors.ErrValidation, key+" must be YYYY-MM-DD")
	}
	return d, nil
}
