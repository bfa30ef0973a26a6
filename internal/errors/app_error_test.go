package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	appErrors "github.com/jerseyshop/storefront-api/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *appErrors.AppError
		code      string
		status    int
		retryable bool
	}{
		{"Validation", appErrors.ValidationError("bad"), appErrors.ErrCodeValidation, http.StatusBadRequest, false},
		{"Unprocessable", appErrors.UnprocessableError("bad address"), appErrors.ErrCodeValidation, http.StatusUnprocessableEntity, false},
		{"NotFound", appErrors.NotFoundError("missing"), appErrors.ErrCodeNotFound, http.StatusNotFound, false},
		{"Forbidden", appErrors.ForbiddenError("nope"), appErrors.ErrCodeForbidden, http.StatusForbidden, false},
		{"EmptyCart", appErrors.EmptyCartError(), appErrors.ErrCodeEmptyCart, http.StatusBadRequest, false},
		{"Conflict", appErrors.ConflictError("changed"), appErrors.ErrCodeConflict, http.StatusConflict, false},
		{"PaymentUnavailable", appErrors.PaymentUnavailableError(), appErrors.ErrCodePaymentGatewayUnavailable, http.StatusServiceUnavailable, true},
		{"PaymentFailed", appErrors.PaymentFailedError("declined"), appErrors.ErrCodePaymentFailed, http.StatusPaymentRequired, false},
		{"PaymentNotConfirmed", appErrors.PaymentNotConfirmedError(), appErrors.ErrCodePaymentNotConfirmed, http.StatusPaymentRequired, false},
		{"PaymentNotConfigured", appErrors.PaymentNotConfiguredError(), appErrors.ErrCodePaymentGatewayNotConfigured, http.StatusInternalServerError, false},
		{"Persistence", appErrors.PersistenceError(), appErrors.ErrCodePersistence, http.StatusInternalServerError, true},
		{"TooManyRequests", appErrors.TooManyRequestsError("slow down"), appErrors.ErrCodeTooManyRequests, http.StatusTooManyRequests, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code)
			assert.Equal(t, tc.status, tc.err.StatusCode)
			assert.Equal(t, tc.retryable, tc.err.Retryable)
			assert.NotEmpty(t, tc.err.Error())
		})
	}
}

func TestWithErrorKeepsCauseOutOfMessage(t *testing.T) {
	// Arrange
	cause := errors.New("pq: duplicate key value violates unique constraint")

	// Act
	err := appErrors.PersistenceError().WithError(cause)

	// Assert
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "pq:")
}

func TestIsAppError(t *testing.T) {
	t.Run("Wrapped AppError", func(t *testing.T) {
		wrapped := fmt.Errorf("context: %w", appErrors.EmptyCartError())

		appErr, ok := appErrors.IsAppError(wrapped)

		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeEmptyCart, appErr.Code)
	})

	t.Run("Plain error", func(t *testing.T) {
		appErr, ok := appErrors.IsAppError(errors.New("boom"))

		assert.False(t, ok)
		assert.Nil(t, appErr)
	})
}

func TestAddValidationError(t *testing.T) {
	err := appErrors.AddValidationError("quantity", "must be at least 1")

	assert.Equal(t, appErrors.ErrCodeValidation, err.Code)
	assert.Equal(t, "Invalid field 'quantity': must be at least 1", err.Message)
	assert.Equal(t, "detail", err.WithDetail("detail").Detail)
}
