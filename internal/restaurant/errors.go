package restaurant

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	CodeValidation        ErrorCode = "VALIDATION_ERROR"
	CodeInvalidItem       ErrorCode = "INVALID_ITEM"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodePayment           ErrorCode = "PAYMENT_ERROR"
)

// Error is a domain failure that maps onto an HTTP status.
type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on code so callers can use errors.Is against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code ErrorCode, status int, message string) *Error {
	return &Error{Code: code, Message: message, StatusCode: status}
}

var (
	ErrNotFound          = newError(CodeNotFound, http.StatusNotFound, "Not found")
	ErrInvalidItem       = newError(CodeInvalidItem, http.StatusBadRequest, "Invalid item")
	ErrConflict          = newError(CodeConflict, http.StatusConflict, "Already exists")
	ErrIllegalTransition = newError(CodeInvalidTransition, http.StatusConflict, "Cannot transition status")
)

func ValidationError(message string) *Error {
	return newError(CodeValidation, http.StatusBadRequest, message)
}

func InvalidItemError(itemID int64) *Error {
	return newError(CodeInvalidItem, http.StatusBadRequest, fmt.Sprintf("Invalid item %d", itemID))
}

func NotFoundError(what string) *Error {
	return newError(CodeNotFound, http.StatusNotFound, what+" not found")
}

func ConflictError(message string) *Error {
	return newError(CodeConflict, http.StatusConflict, message)
}

func TransitionError(from, to Status) *Error {
	return newError(CodeInvalidTransition, http.StatusConflict, fmt.Sprintf("Cannot transition order from %s to %s", from, to))
}

// ExternalServiceError hides the provider message from clients; the wrapped
// error keeps it for logging.
func ExternalServiceError(err error) *Error {
	return &Error{Code: CodePayment, Message: "Payment provider request failed", StatusCode: http.StatusBadGateway, Err: err}
}

// AsError extracts a domain error, if any.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
