package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"

	"invoicer/internal/auth"
	apperrors "invoicer/internal/errors"
	"invoicer/internal/logger"
	"invoicer/internal/models"
	"invoicer/internal/notify"
	"invoicer/internal/storage"
)

// UserOptions tunes the account service.
type UserOptions struct {
	ResetTokenTTL  time.Duration
	MaxUploadBytes int64
}

// userService handles account-related business logic.
type userService struct {
	db       *gorm.DB
	store    storage.BlobStore
	notifier notify.Notifier
	opts     UserOptions
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB, store storage.BlobStore, notifier notify.Notifier, opts UserOptions) UserServicer {
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = auth.DefaultResetTTL
	}
	return &userService{db: db, store: store, notifier: notifier, opts: opts}
}

// CreateUser registers a new user. The password is always hashed here; a
// plaintext that happens to look like a bcrypt hash is still plaintext.
func (s *userService) CreateUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := models.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email and password are required")
	}

	firstName, lastName := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if !validName(firstName) || !validName(lastName) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, invalidNameMessage)
	}

	taken, err := s.emailTaken(ctx, email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.ErrDuplicateEmail
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  hash,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// Authenticate returns the user owning email if password matches. Unknown
// emails and wrong passwords are indistinguishable.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.VerifyPassword(password, user.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrUserNotFound, "User not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// UpdateProfile changes name and email. Passwords go through the reset flow.
func (s *userService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if !validName(user.FirstName) || !validName(user.LastName) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, invalidNameMessage)
	}
	if in.Email != nil {
		email := models.NormalizeEmail(*in.Email)
		if email != user.Email {
			taken, err := s.emailTaken(ctx, email, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apperrors.ErrDuplicateEmail
			}
			user.Email = email
		}
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, nil
}

// DeleteUser removes the account and every invoice it owns after confirming
// the password. The stored profile image is removed best-effort.
func (s *userService) DeleteUser(ctx context.Context, userID, password string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(password, user.Password) {
		return apperrors.ErrInvalidPassword
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&models.Invoice{}).Select("id").Where("user_id = ?", user.ID)
		if err := tx.Where("invoice_id IN (?)", owned).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Invoice{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if user.ProfilePicID != "" {
		s.discardImage(ctx, user.ProfilePicID)
	}
	return nil
}

// RequestPasswordReset stores a fresh reset token hash and emails the link.
// If the email cannot be sent the token is withdrawn again.
func (s *userService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	tok, err := auth.NewResetToken(s.opts.ResetTokenTTL)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.ResetPasswordToken = &tok.Hash
	user.ResetPasswordTokenExpire = &tok.ExpiresAt
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.notifier.PasswordReset(ctx, user, tok.Plain, s.opts.ResetTokenTTL); err != nil {
		user.ClearResetToken()
		if saveErr := s.db.WithContext(ctx).Save(user).Error; saveErr != nil {
			logger.Get().Errorw("failed to clear reset token", "user_id", user.ID, "error", saveErr)
		}
		return apperrors.Wrap(apperrors.ErrResetEmailFailed, err)
	}
	return nil
}

// ResetPassword redeems a reset token and sets a new password. Expired tokens
// are cleared so they cannot be retried.
func (s *userService) ResetPassword(ctx context.Context, token, password string) (*models.User, error) {
	if token == "" {
		return nil, apperrors.ErrInvalidResetToken
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("reset_password_token = ?", auth.HashResetToken(token)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidResetToken
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if user.ResetPasswordTokenExpire == nil || !time.Now().Before(*user.ResetPasswordTokenExpire) {
		user.ClearResetToken()
		if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil, apperrors.ErrInvalidResetToken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.Password = hash
	user.ClearResetToken()
	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// SetProfileImage stores a new profile image and replaces the previous one.
func (s *userService) SetProfileImage(ctx context.Context, userID string, upload ImageUpload) (*models.User, error) {
	if upload.Body == nil {
		return nil, apperrors.ErrNoImageUploaded
	}
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return nil, apperrors.ErrUnsupportedImage
	}
	if s.opts.MaxUploadBytes > 0 && upload.Size > s.opts.MaxUploadBytes {
		return nil, apperrors.ErrImageTooLarge
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	obj, err := s.store.Put(ctx, storage.ProfileImageKey(user.ID, upload.Filename), upload.ContentType, upload.Body, upload.Size)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailed, err)
	}

	previous := user.ProfilePicID
	user.ProfilePicURL = obj.URL
	user.ProfilePicID = obj.ID
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		s.discardImage(ctx, obj.ID)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if previous != "" {
		s.discardImage(ctx, previous)
	}
	return user, nil
}

// DeleteProfileImage removes the stored image and clears both image fields.
func (s *userService) DeleteProfileImage(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasProfileImage() {
		return nil, apperrors.ErrNoImageToDelete
	}

	if err := s.store.Delete(ctx, user.ProfilePicID); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrStorageDeleteFailed, err)
	}

	user.ProfilePicURL = ""
	user.ProfilePicID = ""
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, nil
}

func (s *userService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// emailTaken reports whether another account (not exceptID) uses email.
func (s *userService) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

func (s *userService) discardImage(ctx context.Context, id string) {
	if err := s.store.Delete(ctx, id); err != nil {
		logger.Get().Warnw("failed to delete profile image", "image_id", id, "error", err)
	}
}

const invalidNameMessage = "firstName and lastName must be 3 to 50 characters on a single line"

// validName enforces the account name rules on an already trimmed value.
// Names appear in email subjects, so control characters are refused.
func validName(s string) bool {
	return lengthBetween(s, 3, 50) && strings.IndexFunc(s, unicode.IsControl) < 0
}
