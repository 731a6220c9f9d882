package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"csrgive.com/app/internal/shared/apperr"
)

// Recovery turns a handler panic into a 500 rendered by ErrorHandler, so it
// must sit inside ErrorHandler in the chain.
func Recovery(l *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		l.LogAttrs(c.Request.Context(), slog.LevelError, "panic",
			slog.String("request_id", GetRequestID(c)),
			slog.String("method", c.Request.Method),
			slog.String("route", c.FullPath()),
			slog.String("value", fmt.Sprint(recovered)),
			slog.String("stack", string(debug.Stack())),
		)
		Fail(c, apperr.Wrap(fmt.Errorf("recovered panic in %s %s: %v", c.Request.Method, c.FullPath(), recovered)))
	})
}
