package models

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"invoicer/internal/auth"
)

// User represents a registered account. Deleting a user deletes every invoice
// it owns.
type User struct {
	Base
	FirstName                string     `gorm:"size:50;not null" json:"firstName"`
	LastName                 string     `gorm:"size:50;not null" json:"lastName"`
	Email                    string     `gorm:"uniqueIndex;not null" json:"email"`
	Password                 string     `gorm:"not null" json:"-"`
	ProfilePicURL            string     `json:"profilePicUrl,omitempty"`
	ProfilePicID             string     `json:"-"`
	ResetPasswordToken       *string    `gorm:"size:64;index" json:"-"`
	ResetPasswordTokenExpire *time.Time `json:"-"`
	Invoices                 []Invoice  `gorm:"foreignKey:UserID" json:"-"`
}

// BeforeSave normalizes the email and hashes a password set directly on the
// model. Values that already are bcrypt hashes are left untouched so re-saves
// never hash twice; the user service hashes new passwords itself.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	if u.Password != "" && !auth.IsHashed(u.Password) {
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return err
		}
		u.Password = hash
	}
	return nil
}

// HasProfileImage reports whether both image fields are set.
func (u *User) HasProfileImage() bool {
	return u.ProfilePicURL != "" && u.ProfilePicID != ""
}

// ClearResetToken drops any pending password reset.
func (u *User) ClearResetToken() {
	u.ResetPasswordToken = nil
	u.ResetPasswordTokenExpire = nil
}

// Identity returns the claims embedded in this user's session tokens.
func (u *User) Identity() auth.Identity {
	return auth.Identity{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
