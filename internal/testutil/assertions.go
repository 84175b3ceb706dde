package testutil

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "invoicer/internal/errors"
)

// AssertAppError checks that err carries want's code and HTTP status.
// Messages are not compared since WithMessage may replace them.
func AssertAppError(t *testing.T, err error, want *apperrors.AppError) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s, got nil", want.Code)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	if appErr.Code != want.Code || appErr.StatusCode != want.StatusCode {
		t.Errorf("expected %s (%d), got %s (%d): %s",
			want.Code, want.StatusCode, appErr.Code, appErr.StatusCode, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertMoney compares an amount exactly against a decimal literal.
func AssertMoney(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()

	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("expected amount %s, got %s", want, got.String())
	}
}
