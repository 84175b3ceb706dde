package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"invoicer/internal/auth"
	apperrors "invoicer/internal/errors"
	"invoicer/internal/models"
)

// Context keys set by Authenticate.
const (
	UserKey   = "user"
	UserIDKey = "userID"
)

// UserLookup resolves the account a token was issued for.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Authenticate verifies the bearer token and loads its account. Tokens whose
// account no longer exists are rejected even if their signature is valid.
func Authenticate(tokens *auth.TokenManager, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			abort(c, apperrors.ErrTokenMissing)
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			abort(c, err)
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				abort(c, apperrors.ErrStaleToken)
				return
			}
			abort(c, err)
			return
		}

		c.Set(UserKey, user)
		c.Set(UserIDKey, user.ID)
		c.Next()
	}
}

// CurrentUser returns the account attached by Authenticate.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// bearerToken extracts the token from "Bearer <token>". Anything else is
// treated as no token at all.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
