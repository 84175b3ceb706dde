package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	apperrors "invoicer/internal/errors"
	"invoicer/internal/logger"
)

// ErrorHandler returns a Gin middleware that renders the last error set on the
// Gin context as the JSON error envelope. It is the only place error
// responses are written. mode decides whether internal details are exposed.
func ErrorHandler(mode apperrors.Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		// Process the last error (most relevant in a middleware chain)
		err := c.Errors.Last().Err
		status, body := apperrors.Respond(err, mode)

		if status >= 500 {
			logger.Get().Errorw("request failed",
				"code", body.Code,
				"error", err.Error(),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
		}

		if c.Writer.Written() {
			return
		}
		c.JSON(status, body)
	}
}

// Recover turns a panic into an internal error for ErrorHandler to render.
func Recover() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		_ = c.Error(fmt.Errorf("panic: %v", recovered))
		c.Abort()
	})
}

// NotFound answers requests that match no route.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		abort(c, apperrors.WithMessage(apperrors.ErrRouteNotFound, "Invalid resource: "+c.Request.URL.Path))
	}
}
