package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned to callers. Clients switch on these, so they are stable.
const (
	CodeValidation             = "VAL_001"
	CodeInsufficientFunds      = "LED_001"
	CodeBudgetExhausted        = "LED_002"
	CodeNotFound               = "RES_001"
	CodeInvalidCredentials     = "AUTH_001"
	CodeUsernameExists         = "AUTH_002"
	CodeInvalidToken           = "AUTH_003"
	CodeForbiddenRole          = "AUTH_004"
	CodeUnauthorized           = "AUTH_005"
	CodeInvalidSignature       = "SEC_001"
	CodeTimestampExpired       = "SEC_002"
	CodeNonceUsed              = "SEC_003"
	CodeInvalidStateTransition = "STATE_001"
	CodeDuplicateAction        = "STATE_002"
	CodeMissionFull            = "STATE_003"
	CodeRateLimitExceeded      = "RATE_001"
	CodeInternal               = "SYS_001"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err is (or wraps) an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ---- Validation (VAL) ----

// Validation returns a ValidationError with the given message.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return Validation("amount must be greater than zero")
}

// ---- Ledger (LED) ----

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrBudgetExhausted() *AppError {
	return New(CodeBudgetExhausted, "Campaign budget exhausted", http.StatusConflict)
}

// ---- Resources (RES) ----

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Authentication & ownership (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New(CodeInvalidCredentials, "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New(CodeUsernameExists, "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbiddenRole() *AppError {
	return New(CodeForbiddenRole, "Account role not allowed for this operation", http.StatusForbidden)
}

// ErrUnauthorized is returned on an ownership mismatch.
func ErrUnauthorized(entity string) *AppError {
	return New(CodeUnauthorized, fmt.Sprintf("Not the owner of this %s", entity), http.StatusForbidden)
}

// ---- Gateway callback security (SEC) ----

func ErrInvalidSignature() *AppError {
	return New(CodeInvalidSignature, "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New(CodeTimestampExpired, "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New(CodeNonceUsed, "Nonce has already been used", http.StatusForbidden)
}

// ---- State machine (STATE) ----

func ErrInvalidStateTransition(entity, from, to string) *AppError {
	return New(CodeInvalidStateTransition,
		fmt.Sprintf("%s cannot move from %s to %s", entity, from, to), http.StatusConflict)
}

// ErrNotEditable is returned when a campaign's details change outside draft.
func ErrNotEditable(entity string, status string) *AppError {
	return New(CodeInvalidStateTransition,
		fmt.Sprintf("%s cannot be edited while %s", entity, status), http.StatusConflict)
}

// ErrCampaignNotActive is returned when a mission is accepted outside the
// campaign's active window.
func ErrCampaignNotActive() *AppError {
	return New(CodeInvalidStateTransition, "Campaign is not accepting actions", http.StatusConflict)
}

func ErrDuplicateAction() *AppError {
	return New(CodeDuplicateAction, "An open action already exists for this mission", http.StatusConflict)
}

func ErrMissionFull() *AppError {
	return New(CodeMissionFull, "Mission has no remaining slots", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps a storage or infrastructure failure. Callers may retry.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}
