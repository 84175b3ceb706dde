package handlers

import (
	"github.com/gin-gonic/gin"

	apperrors "invoicer/internal/errors"
	"invoicer/internal/middleware"
	"invoicer/internal/models"
	"invoicer/internal/validator"
)

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (string, error) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		return "", apperrors.ErrUnauthorized
	}
	return userID, nil
}

// currentUser returns the account loaded by the auth middleware.
func currentUser(c *gin.Context) (*models.User, error) {
	user, ok := middleware.CurrentUser(c)
	if !ok || user == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return user, nil
}

// respondWithError hands err to the error middleware, which renders the JSON
// envelope, and stops the handler chain.
func respondWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// bindJSON binds, trims and validates the request body. On failure it
// responds with the first validation message and returns false.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindWith(req, validator.JSON); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, validator.First(err)))
		return false
	}
	return true
}

// bindJSONDetailed is bindJSON for endpoints that report every failing field.
func bindJSONDetailed(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindWith(req, validator.JSON); err != nil {
		respondWithError(c, apperrors.WithDetails(apperrors.ErrInvalidInput, validator.Messages(err)))
		return false
	}
	return true
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Success bool     `json:"success" example:"false"`
	Code    string   `json:"code" example:"INVALID_INPUT"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// MessageResponse is a success envelope carrying only a message.
type MessageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message"`
}
