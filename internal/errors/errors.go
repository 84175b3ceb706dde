// Package errors provides the application error taxonomy for the invoicer API.
// Service and middleware code returns *AppError values so that a single
// responder can turn any failure into a consistent JSON envelope.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Details    []string `json:"details,omitempty"`
	StatusCode int      `json:"-"`
	Internal   error    `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError carrying the same code, so derived
// errors (Wrap, WithMessage) still match their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Details:    sentinel.Details,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// WithDetails creates a new AppError whose message is the first detail and
// which carries the full list for endpoints that report every failing field.
func WithDetails(sentinel *AppError, details []string) *AppError {
	if len(details) == 0 {
		return sentinel
	}
	return &AppError{
		Code:       sentinel.Code,
		Message:    details[0],
		Details:    details,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication errors. Every one of these is a 401.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrTokenMissing       = &AppError{Code: "TOKEN_MISSING", Message: "Authentication token missing. Please login", StatusCode: http.StatusUnauthorized}
	ErrTokenExpired       = &AppError{Code: "TOKEN_EXPIRED", Message: "Token expired, Please login again!", StatusCode: http.StatusUnauthorized}
	ErrTokenInvalid       = &AppError{Code: "TOKEN_INVALID", Message: "Invalid token signature, Please login again!", StatusCode: http.StatusUnauthorized}
	ErrStaleToken         = &AppError{Code: "STALE_TOKEN", Message: "User associated with the token no longer exists. Please login again", StatusCode: http.StatusUnauthorized}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrInvalidBody    = &AppError{Code: "INVALID_BODY", Message: "Invalid request body", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrRouteNotFound  = &AppError{Code: "ROUTE_NOT_FOUND", Message: "Invalid resource", StatusCode: http.StatusNotFound}
	ErrPageOutOfRange = &AppError{Code: "PAGE_OUT_OF_RANGE", Message: "Page does not exist", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "Something went wrong, please try again later", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound        = &AppError{Code: "USER_NOT_FOUND", Message: "There is no user with given email", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail      = &AppError{Code: "DUPLICATE_EMAIL", Message: "User with given email already exist. Please use another email.", StatusCode: http.StatusBadRequest}
	ErrPasswordUpdate      = &AppError{Code: "PASSWORD_UPDATE_NOT_ALLOWED", Message: "Password cannot be updated with this operation.", StatusCode: http.StatusBadRequest}
	ErrInvalidPassword     = &AppError{Code: "INVALID_PASSWORD", Message: "Invalid password", StatusCode: http.StatusBadRequest}
	ErrInvalidResetToken   = &AppError{Code: "INVALID_RESET_TOKEN", Message: "Reset token is invalid or has expired", StatusCode: http.StatusBadRequest}
	ErrNoImageUploaded     = &AppError{Code: "NO_IMAGE_UPLOADED", Message: "No image file uploaded", StatusCode: http.StatusBadRequest}
	ErrNoImageToDelete     = &AppError{Code: "NO_IMAGE", Message: "No profile image to delete", StatusCode: http.StatusBadRequest}
	ErrUnsupportedImage    = &AppError{Code: "UNSUPPORTED_IMAGE", Message: "Only image files can be uploaded", StatusCode: http.StatusBadRequest}
	ErrImageTooLarge       = &AppError{Code: "IMAGE_TOO_LARGE", Message: "Image file is too large", StatusCode: http.StatusBadRequest}
	ErrStorageFailed       = &AppError{Code: "STORAGE_FAILED", Message: "Failed to upload profile picture", StatusCode: http.StatusInternalServerError}
	ErrStorageDeleteFailed = &AppError{Code: "STORAGE_DELETE_FAILED", Message: "Failed to delete profile picture", StatusCode: http.StatusInternalServerError}
	ErrResetEmailFailed    = &AppError{Code: "RESET_EMAIL_FAILED", Message: "Failed to send password reset email", StatusCode: http.StatusInternalServerError}
)

// Invoice errors. Ownership misses use ErrInvoiceNotFound so that invoices of
// other accounts are indistinguishable from absent ones.
var (
	ErrInvoiceNotFound    = &AppError{Code: "INVOICE_NOT_FOUND", Message: "Invoice for given id does not exist", StatusCode: http.StatusNotFound}
	ErrInvalidInvoiceID   = &AppError{Code: "INVALID_ID", Message: "Invalid invoice id", StatusCode: http.StatusBadRequest}
	ErrInvalidStatus      = &AppError{Code: "INVALID_STATUS", Message: "Status must be 'draft' or 'pending' at creation", StatusCode: http.StatusBadRequest}
	ErrInvalidStatusMove  = &AppError{Code: "INVALID_STATUS_TRANSITION", Message: "Invoice status can only move forward", StatusCode: http.StatusBadRequest}
	ErrInvalidFilter      = &AppError{Code: "INVALID_STATUS_FILTER", Message: "Status filter must be one of 'Draft', 'Pending' or 'Paid'", StatusCode: http.StatusBadRequest}
	ErrInvoiceAlreadyPaid = &AppError{Code: "INVOICE_PAID", Message: "Invoice is Paid, no reminder needed", StatusCode: http.StatusBadRequest}
	ErrNotificationFailed = &AppError{Code: "NOTIFICATION_FAILED", Message: "Failed to send reminder email", StatusCode: http.StatusInternalServerError}
)
