package middleware

import (
	"github.com/gin-gonic/gin"

	"csrgive.com/app/internal/shared/apperr"
)

// RequireAdmin answers 401 without a user and 403 for non-admins.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			Fail(c, apperr.UnauthorizedErr("Authentication required."))
			return
		}
		if !u.IsAdmin() {
			Fail(c, apperr.ForbiddenErr("Admin access required."))
			return
		}
		c.Next()
	}
}
