package errors

import (
	"errors"
	"fmt"
)

// AppError is the single typed failure returned by the service layer. It
// carries a machine-checkable Code; mapping a Code to a transport status is
// left to the caller.
type AppError struct {
	Code    string
	Message string
	Detail  string
	// Available is set on INSUFFICIENT_STOCK errors.
	Available int64
	Err       error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail

	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err

	return e
}

const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeCartEmpty         = "CART_EMPTY"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeDuplicateEntry    = "DUPLICATE_ENTRY"
	ErrCodeThirdPartyError   = "THIRD_PARTY_ERROR"
	ErrCodeTooManyRequests   = "TOO_MANY_REQUESTS"
)

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message)
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrCodeBadRequest, message)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message)
}

// InsufficientStockError names the product and the quantity still on hand.
func InsufficientStockError(product string, available int64) *AppError {
	e := NewAppError(ErrCodeInsufficientStock,
		fmt.Sprintf("Insufficient stock for product '%s': only %d available", product, available))
	e.Available = available

	return e
}

func CartEmptyError(message string) *AppError {
	return NewAppError(ErrCodeCartEmpty, message)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message)
}

func ForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message)
}

func DatabaseError(message string) *AppError {
	return NewAppError(ErrCodeDatabaseError, message)
}

func DuplicateEntryError(message string) *AppError {
	return NewAppError(ErrCodeDuplicateEntry, message)
}

func ThirdPartyError(message string) *AppError {
	return NewAppError(ErrCodeThirdPartyError, message)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(ErrCodeTooManyRequests, message)
}

func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := IsAppError(err)

	return ok && appErr.Code == code
}

// field validation error.
func AddValidationError(field, reason string) *AppError {
	return ValidationError(fmt.Sprintf("Invalid field '%s': %s", field, reason))
}
