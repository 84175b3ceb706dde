package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestRespond(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		mode       Mode
		wantStatus int
		wantCode   string
		wantMsg    string
		wantDetail bool
	}{
		{
			name:       "validation_error",
			err:        WithMessage(ErrInvalidInput, "firstName is required"),
			mode:       ModeProduction,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
			wantMsg:    "firstName is required",
		},
		{
			name:       "ownership_miss_is_not_found",
			err:        ErrInvoiceNotFound,
			mode:       ModeProduction,
			wantStatus: http.StatusNotFound,
			wantCode:   "INVOICE_NOT_FOUND",
			wantMsg:    "Invoice for given id does not exist",
		},
		{
			name:       "duplicate_email_is_bad_request",
			err:        ErrDuplicateEmail,
			mode:       ModeTest,
			wantStatus: http.StatusBadRequest,
			wantCode:   "DUPLICATE_EMAIL",
			wantMsg:    ErrDuplicateEmail.Message,
		},
		{
			name:       "unknown_error_production_hides_detail",
			err:        stderrors.New("connection refused"),
			mode:       ModeProduction,
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
			wantMsg:    "Something went wrong, please try again later",
		},
		{
			name:       "unknown_error_development_shows_detail",
			err:        stderrors.New("connection refused"),
			mode:       ModeDevelopment,
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
			wantMsg:    "Something went wrong, please try again later",
			wantDetail: true,
		},
		{
			name:       "wrapped_app_error_keeps_status",
			err:        fmt.Errorf("mark paid: %w", ErrTokenExpired),
			mode:       ModeProduction,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "TOKEN_EXPIRED",
			wantMsg:    "Token expired, Please login again!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := Respond(tt.err, tt.mode)
			if status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, status)
			}
			if body.Success {
				t.Error("expected success=false")
			}
			if body.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, body.Code)
			}
			if body.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, body.Message)
			}
			if (body.Detail != "") != tt.wantDetail {
				t.Errorf("detail presence mismatch: %q", body.Detail)
			}
		})
	}
}

func TestWithDetails(t *testing.T) {
	err := WithDetails(ErrInvalidInput, []string{"email is required", "password is required"})
	if err.Message != "email is required" {
		t.Errorf("expected first detail as message, got %q", err.Message)
	}
	if len(err.Details) != 2 {
		t.Errorf("expected 2 details, got %d", len(err.Details))
	}
	if !stderrors.Is(err, ErrInvalidInput) {
		t.Error("expected derived error to match its sentinel")
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("production") != ModeProduction {
		t.Error("expected production mode")
	}
	if ParseMode("test") != ModeTest {
		t.Error("expected test mode")
	}
	if ParseMode("") != ModeDevelopment {
		t.Error("expected development fallback")
	}
}

func TestSentinelCodesAreUnique(t *testing.T) {
	sentinels := []*AppError{
		ErrUnauthorized, ErrInvalidCredentials, ErrTokenMissing, ErrTokenExpired, ErrTokenInvalid, ErrStaleToken,
		ErrInvalidInput, ErrInvalidBody, ErrNotFound, ErrRouteNotFound, ErrPageOutOfRange, ErrInternalServer,
		ErrUserNotFound, ErrDuplicateEmail, ErrPasswordUpdate, ErrInvalidPassword, ErrInvalidResetToken,
		ErrNoImageUploaded, ErrNoImageToDelete, ErrUnsupportedImage, ErrImageTooLarge, ErrStorageFailed,
		ErrStorageDeleteFailed, ErrResetEmailFailed, ErrInvoiceNotFound, ErrInvalidInvoiceID, ErrInvalidStatus,
		ErrInvalidStatusMove, ErrInvalidFilter, ErrInvoiceAlreadyPaid, ErrNotificationFailed,
	}

	seen := make(map[string]string, len(sentinels))
	for _, s := range sentinels {
		if prev, ok := seen[s.Code]; ok {
			t.Errorf("code %s used by both %q and %q", s.Code, prev, s.Message)
		}
		seen[s.Code] = s.Message
	}

	if stderrors.Is(ErrNoImageUploaded, ErrNoImageToDelete) {
		t.Error("distinct sentinels must not match each other")
	}
}
