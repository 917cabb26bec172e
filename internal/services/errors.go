package service

import (
	"github.com/aaravmahajanofficial/storefront/internal/errors"
)

// asAppError passes AppErrors through and wraps anything else (begin/commit
// failures) as a database error.
func asAppError(err error, message string) error {
	if _, ok := errors.IsAppError(err); ok {
		return err
	}

	return errors.DatabaseError(message).WithError(err)
}
