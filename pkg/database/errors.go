package database

import (
	"errors"

	"github.com/lib/pq"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
// When constraint names are supplied the violated constraint must match one of them.
func IsUniqueViolation(err error, constraints ...string) bool {
	return matches(err, codeUniqueViolation, constraints)
}

// IsForeignKeyViolation reports whether err is a PostgreSQL foreign_key_violation.
func IsForeignKeyViolation(err error, constraints ...string) bool {
	return matches(err, codeForeignKeyViolation, constraints)
}

// IsInvalidText reports whether err is a PostgreSQL invalid_text_representation,
// raised for instance when a malformed UUID is bound to a uuid column.
func IsInvalidText(err error) bool {
	return matches(err, codeInvalidText, nil)
}

// IsUnknownReference reports whether err means a referenced id does not exist:
// a foreign key violation or an id that cannot name any row.
func IsUnknownReference(err error) bool {
	return IsForeignKeyViolation(err) || IsInvalidText(err)
}

func matches(err error, code string, constraints []string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != code {
		return false
	}
	if len(constraints) == 0 {
		return true
	}
	for _, name := range constraints {
		if pqErr.Constraint == name {
			return true
		}
	}
	return false
}
