package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"invoicer/internal/auth"
	apperrors "invoicer/internal/errors"
	"invoicer/internal/models"
	"invoicer/internal/services"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userService  services.UserServicer
	tokens       *auth.TokenManager
	auditService services.AuditServicer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userService services.UserServicer, tokens *auth.TokenManager, auditService services.AuditServicer) *AuthHandler {
	return &AuthHandler{userService: userService, tokens: tokens, auditService: auditService}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required,min=3,max=50,single_line"`
	LastName  string `json:"lastName" binding:"required,min=3,max=50,single_line"`
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=4,max=150" trim:"-"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required" trim:"-"`
}

// ForgotPasswordRequest starts the password reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest redeems a reset token. The token may also be passed as
// the "token" query parameter.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password" binding:"required,min=4,max=150" trim:"-"`
}

// AuthResponse represents the authentication response with token
type AuthResponse struct {
	Success bool         `json:"success" example:"true"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

// Register handles user registration
// @Summary     Register a new user
// @Description Create an account and return a session token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     201 {object} AuthResponse "User registered and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input or duplicate email"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSONDetailed(c, &req) {
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), services.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       user.ID,
		Action:       models.ActionRegister,
		ResourceType: models.ResourceUser,
		ResourceID:   user.ID,
		IPAddress:    c.ClientIP(),
	})
	h.respondWithToken(c, http.StatusCreated, user)
}

// Login handles user login
// @Summary     Login user
// @Description Authenticate a user and get a token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} AuthResponse "User authenticated and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// ForgotPassword emails a password reset link
// @Summary     Request a password reset
// @Description Email a single-use reset link to the account owner
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body ForgotPasswordRequest true "Account email"
// @Success     200 {object} MessageResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "No account with that email"
// @Failure     500 {object} ErrorResponse "Email could not be sent"
// @Router      /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	email := models.NormalizeEmail(req.Email)
	if err := h.userService.RequestPasswordReset(c.Request.Context(), email); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Success: true,
		Message: "Password reset link sent to " + email,
	})
}

// ResetPassword sets a new password using a reset token
// @Summary     Reset password
// @Description Redeem a reset token, set a new password and return a session token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       token   query string               false "Reset token"
// @Param       request body  ResetPasswordRequest true  "New password"
// @Success     200 {object} AuthResponse
// @Failure     400 {object} ErrorResponse "Invalid input or token"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/reset-password [patch]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = strings.TrimSpace(c.Query("token"))
	}
	if token == "" {
		respondWithError(c, apperrors.ErrInvalidResetToken)
		return
	}

	user, err := h.userService.ResetPassword(c.Request.Context(), token, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       user.ID,
		Action:       models.ActionResetPassword,
		ResourceType: models.ResourceUser,
		ResourceID:   user.ID,
		IPAddress:    c.ClientIP(),
	})
	h.respondWithToken(c, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := h.tokens.Issue(user.Identity())
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	c.JSON(status, AuthResponse{Success: true, Token: token, User: user})
}
