package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	"github.com/noah-isme/lab-assessment-api/pkg/database"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
)

// Transactor runs a callback inside a database transaction carried on ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// internal wraps an unexpected failure, surfacing its message to the caller.
func internal(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message+": "+err.Error())
}

// notFoundOr maps sql.ErrNoRows and malformed ids to a NotFound error and anything else to internal.
func notFoundOr(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) || database.IsInvalidText(err) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return internal(err, "failed to load "+what)
}

// conflictOr maps unique violations to a Conflict error.
func conflictOr(err error, message, fallback string) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, message)
	}
	return internal(err, fallback)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// StatsInvalidator drops cached dashboard counters after writes.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

func invalidate(ctx context.Context, inv StatsInvalidator) {
	if inv != nil {
		inv.Invalidate(ctx)
	}
}

// transition applies a lifecycle move, rejecting moves the state machine forbids.
func transition(current models.EntityState, move models.StateTransition, what string) (models.EntityState, error) {
	next, ok := current.Next(move)
	if !ok {
		return current, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot %s %s in state %s", move, what, current))
	}
	return next, nil
}
