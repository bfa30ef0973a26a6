package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code       string
	Message    string
	Detail     string
	StatusCode int
	// Retryable tells the caller the same request may succeed if repeated.
	Retryable bool
	Err       error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
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
	ErrCodeValidation                  = "VALIDATION_ERROR"
	ErrCodeBadRequest                  = "BAD_REQUEST"
	ErrCodeNotFound                    = "NOT_FOUND"
	ErrCodeUnauthorized                = "UNAUTHORIZED"
	ErrCodeForbidden                   = "FORBIDDEN"
	ErrCodeInternal                    = "INTERNAL_ERROR"
	ErrCodeDatabaseError               = "DATABASE_ERROR"
	ErrCodeTooManyRequests             = "TOO_MANY_REQUESTS"
	ErrCodeEmptyCart                   = "EMPTY_CART"
	ErrCodeConflict                    = "CONFLICT"
	ErrCodePaymentGatewayUnavailable   = "PAYMENT_GATEWAY_UNAVAILABLE"
	ErrCodePaymentFailed               = "PAYMENT_FAILED"
	ErrCodePaymentNotConfirmed         = "PAYMENT_NOT_CONFIRMED"
	ErrCodePaymentGatewayNotConfigured = "PAYMENT_GATEWAY_NOT_CONFIGURED"
	ErrCodePersistence                 = "PERSISTENCE_ERROR"
)

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

// UnprocessableError is a validation failure on a well-formed payload, such as a shipping address.
func UnprocessableError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusUnprocessableEntity)
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrCodeBadRequest, message, http.StatusBadRequest)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message, http.StatusNotFound)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func ForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, http.StatusForbidden)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(message string) *AppError {
	return NewAppError(ErrCodeDatabaseError, message, http.StatusInternalServerError)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(ErrCodeTooManyRequests, message, http.StatusTooManyRequests)
}

func EmptyCartError() *AppError {
	return NewAppError(ErrCodeEmptyCart, "Cart is empty", http.StatusBadRequest)
}

func ConflictError(message string) *AppError {
	return NewAppError(ErrCodeConflict, message, http.StatusConflict)
}

// PaymentUnavailableError is a transient gateway failure: timeouts, network errors, gateway outages.
func PaymentUnavailableError() *AppError {
	e := NewAppError(ErrCodePaymentGatewayUnavailable, "Payment provider is temporarily unavailable, please retry", http.StatusServiceUnavailable)
	e.Retryable = true

	return e
}

// PaymentFailedError is a definitive rejection by the gateway.
func PaymentFailedError(message string) *AppError {
	return NewAppError(ErrCodePaymentFailed, message, http.StatusPaymentRequired)
}

func PaymentNotConfirmedError() *AppError {
	return NewAppError(ErrCodePaymentNotConfirmed, "Payment has not been confirmed yet", http.StatusPaymentRequired)
}

func PaymentNotConfiguredError() *AppError {
	return NewAppError(ErrCodePaymentGatewayNotConfigured, "Payment provider is not configured", http.StatusInternalServerError)
}

// PersistenceError reports a failed write that was rolled back. The message never carries storage details.
func PersistenceError() *AppError {
	e := NewAppError(ErrCodePersistence, "Could not save your order, please retry", http.StatusInternalServerError)
	e.Retryable = true

	return e
}

func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}

// field validation error.
func AddValidationError(field, reason string) *AppError {
	return ValidationError(fmt.Sprintf("Invalid field '%s': %s", field, reason))
}
