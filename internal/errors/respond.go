package errors

import (
	stderrors "errors"
	"fmt"
)

// Mode selects how much detail error responses expose.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
	ModeTest        Mode = "test"
)

// ParseMode maps an ENV value to a Mode. Unknown values fall back to
// development, matching the logger's behaviour.
func ParseMode(env string) Mode {
	switch Mode(env) {
	case ModeProduction:
		return ModeProduction
	case ModeTest:
		return ModeTest
	default:
		return ModeDevelopment
	}
}

// Body is the JSON envelope for every failed request.
type Body struct {
	Success bool     `json:"success"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
	Detail  string   `json:"detail,omitempty"`
}

// Respond maps err to an HTTP status and response body. Production mode never
// reveals internal errors; the other modes attach them as detail.
func Respond(err error, mode Mode) (int, Body) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = Wrap(ErrInternalServer, err)
	}

	body := Body{
		Success: false,
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}
	if mode != ModeProduction && appErr.Internal != nil {
		body.Detail = fmt.Sprintf("%+v", appErr.Internal)
	}
	return appErr.StatusCode, body
}
