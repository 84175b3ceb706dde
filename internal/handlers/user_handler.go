package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "invoicer/internal/errors"
	"invoicer/internal/models"
	"invoicer/internal/services"
	"invoicer/internal/validator"
)

// profileImageField is the multipart field carrying the uploaded image.
const profileImageField = "profilePicture"

// UserHandler handles requests on the caller's own account.
type UserHandler struct {
	userService  services.UserServicer
	auditService services.AuditServicer
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService services.UserServicer, auditService services.AuditServicer) *UserHandler {
	return &UserHandler{userService: userService, auditService: auditService}
}

// UpdateUserRequest holds the profile fields to change. Password is only
// declared so that attempts to change it can be rejected.
type UpdateUserRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=3,max=50,single_line"`
	LastName  *string `json:"lastName" binding:"omitempty,min=3,max=50,single_line"`
	Email     *string `json:"email" binding:"omitempty,email,max=255"`
	Password  *string `json:"password" swaggerignore:"true"`
}

// DeleteUserRequest confirms account deletion.
type DeleteUserRequest struct {
	Password string `json:"password" binding:"required" trim:"-"`
}

// UserResponse wraps the caller's account.
type UserResponse struct {
	Success bool         `json:"success" example:"true"`
	User    *models.User `json:"user"`
}

// Me returns the caller's profile
// @Summary     Get current user
// @Description Get the authenticated user's profile
// @Tags        user
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} UserResponse
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /user/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, UserResponse{Success: true, User: user})
}

// UpdateUser changes name and email
// @Summary     Update profile
// @Description Update first name, last name or email. Passwords are changed through the reset flow.
// @Tags        user
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdateUserRequest true "Fields to change"
// @Success     200 {object} UserResponse
// @Failure     400 {object} ErrorResponse "Invalid input, password supplied or email taken"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /user/update-user [patch]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateUserRequest
	bindErr := c.ShouldBindWith(&req, validator.JSON)
	if req.Password != nil {
		respondWithError(c, apperrors.ErrPasswordUpdate)
		return
	}
	if bindErr != nil {
		respondWithError(c, apperrors.WithDetails(apperrors.ErrInvalidInput, validator.Messages(bindErr)))
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, services.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       models.ActionUpdateUser,
		ResourceType: models.ResourceUser,
		ResourceID:   userID,
		IPAddress:    c.ClientIP(),
		Changes:      profileChanges(req),
	})
	c.JSON(http.StatusOK, UserResponse{Success: true, User: user})
}

// DeleteUser removes the caller's account and invoices
// @Summary     Delete account
// @Description Delete the authenticated account and every invoice it owns
// @Tags        user
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body DeleteUserRequest true "Password confirmation"
// @Success     200 {object} MessageResponse
// @Failure     400 {object} ErrorResponse "Invalid password"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /user/delete-user [post]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req DeleteUserRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), userID, req.Password); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       models.ActionDeleteUser,
		ResourceType: models.ResourceUser,
		ResourceID:   userID,
		IPAddress:    c.ClientIP(),
	})
	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "User deleted successfully"})
}

// UploadProfileImage stores a new profile image
// @Summary     Upload profile image
// @Description Store an image as the profile picture, replacing any previous one
// @Tags        user
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       profilePicture formData file true "Image file"
// @Success     200 {object} UserResponse
// @Failure     400 {object} ErrorResponse "Missing, unsupported or oversized image"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Storage failure"
// @Router      /user/upload-profile-image [post]
func (h *UserHandler) UploadProfileImage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	header, err := c.FormFile(profileImageField)
	if err != nil {
		respondWithError(c, apperrors.ErrNoImageUploaded)
		return
	}

	file, err := header.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrNoImageUploaded, err))
		return
	}
	defer file.Close()

	// Content type is sniffed rather than trusted from the part header.
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		respondWithError(c, apperrors.Wrap(apperrors.ErrNoImageUploaded, err))
		return
	}
	head = head[:n]
	if n == 0 {
		respondWithError(c, apperrors.ErrNoImageUploaded)
		return
	}

	user, err := h.userService.SetProfileImage(c.Request.Context(), userID, services.ImageUpload{
		Filename:    header.Filename,
		ContentType: http.DetectContentType(head),
		Size:        header.Size,
		Body:        io.MultiReader(bytes.NewReader(head), file),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       models.ActionUploadProfileImage,
		ResourceType: models.ResourceUser,
		ResourceID:   userID,
		IPAddress:    c.ClientIP(),
	})
	c.JSON(http.StatusOK, UserResponse{Success: true, User: user})
}

// DeleteProfileImage removes the profile image
// @Summary     Delete profile image
// @Tags        user
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} UserResponse
// @Failure     400 {object} ErrorResponse "No image to delete"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Storage failure"
// @Router      /user/delete-profile-image [post]
func (h *UserHandler) DeleteProfileImage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.DeleteProfileImage(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), services.AuditEntry{
		UserID:       userID,
		Action:       models.ActionDeleteProfileImage,
		ResourceType: models.ResourceUser,
		ResourceID:   userID,
		IPAddress:    c.ClientIP(),
	})
	c.JSON(http.StatusOK, UserResponse{Success: true, User: user})
}

func profileChanges(req UpdateUserRequest) map[string]interface{} {
	changes := map[string]interface{}{}
	if req.FirstName != nil {
		changes["firstName"] = *req.FirstName
	}
	if req.LastName != nil {
		changes["lastName"] = *req.LastName
	}
	if req.Email != nil {
		changes["email"] = *req.Email
	}
	return changes
}
