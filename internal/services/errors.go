package services

import (
	"errors"
	"fmt"

	"warehouse_inventory_backend/internal/repositories"
	"warehouse_inventory_backend/pkg/utils"
)

// --- Domain error kinds ---
// Callers wrap these with fmt.Errorf("%w: ...", ErrX) and test them with errors.Is.
var (
	ErrValidation             = errors.New("validation failed")
	ErrAuthentication         = errors.New("authentication failed")
	ErrAuthorization          = errors.New("not authorized")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrConflict               = errors.New("concurrent modification, retry")
	ErrInvariantViolation     = errors.New("invariant violation")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNotFound               = errors.New("not found")
)

var kindCodes = []struct {
	err  error
	code string
}{
	{ErrValidation, utils.ErrCodeValidationFailed},
	{ErrAuthentication, utils.ErrCodeUnauthorized},
	{ErrAuthorization, utils.ErrCodeForbidden},
	{ErrInsufficientStock, utils.ErrCodeInsufficientStock},
	{ErrConflict, utils.ErrCodeConflict},
	{ErrInvariantViolation, utils.ErrCodeInvariantViolation},
	{ErrInvalidStateTransition, utils.ErrCodeInvalidStateTransition},
	{ErrNotFound, utils.ErrCodeNotFound},
}

// Kind returns the stable machine-readable code of err.
// Anything outside the domain taxonomy is INTERNAL_SERVER_ERROR.
func Kind(err error) string {
	for _, k := range kindCodes {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return utils.ErrCodeInternalServerError
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFoundOr maps repositories.ErrNotFound to kind, wrapping everything else as is.
func notFoundOr(err error, kind error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s", kind, what)
	}
	return fmt.Errorf("loading %s: %w", what, err)
}
