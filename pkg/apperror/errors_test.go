package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New(CodeInsufficientFunds, "Insufficient funds", http.StatusPaymentRequired),
			expected: "[LED_001] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap(CodeInternal, "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap(CodeInternal, "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New(CodeValidation, "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("verify action: %w", ErrInvalidStateTransition("action", "verified", "verified"))

	assert.True(t, HasCode(wrapped, CodeInvalidStateTransition))
	assert.False(t, HasCode(wrapped, CodeInsufficientFunds))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InsufficientFunds", ErrInsufficientFunds(), "LED_001", 402},
		{"BudgetExhausted", ErrBudgetExhausted(), "LED_002", 409},
		{"InvalidAmount", ErrInvalidAmount(), "VAL_001", 400},
		{"Validation", Validation("bad budget"), "VAL_001", 400},
		{"NotFound", ErrNotFound("wallet"), "RES_001", 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestStateErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidStateTransition", ErrInvalidStateTransition("campaign", "active", "draft"), "STATE_001", 409},
		{"DuplicateAction", ErrDuplicateAction(), "STATE_002", 409},
		{"MissionFull", ErrMissionFull(), "STATE_003", 409},
		{"NotEditable", ErrNotEditable("campaign", "active"), "STATE_001", 409},
		{"CampaignNotActive", ErrCampaignNotActive(), "STATE_001", 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestAuthErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidCredentials", ErrInvalidCredentials(), "AUTH_001", 401},
		{"UsernameExists", ErrUsernameExists(), "AUTH_002", 409},
		{"InvalidToken", ErrInvalidToken(), "AUTH_003", 401},
		{"ForbiddenRole", ErrForbiddenRole(), "AUTH_004", 403},
		{"Unauthorized", ErrUnauthorized("campaign"), "AUTH_005", 403},
		{"InvalidSignature", ErrInvalidSignature(), "SEC_001", 401},
		{"TimestampExpired", ErrTimestampExpired(), "SEC_002", 403},
		{"NonceUsed", ErrNonceUsed(), "SEC_003", 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	err := InternalError(inner)
	assert.Equal(t, "SYS_001", err.Code)
	assert.Equal(t, 500, err.HTTPStatus)
	assert.True(t, errors.Is(err, inner))
}

func TestRateLimitError(t *testing.T) {
	err := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
}

func TestInvalidStateTransition_Message(t *testing.T) {
	err := ErrInvalidStateTransition("action", "completed", "verified")
	assert.Equal(t, "action cannot move from completed to verified", err.Message)
}
