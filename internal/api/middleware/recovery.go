package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a 500 reply carrying the request ID
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			requestID := c.GetString(RequestIDKey)
			logger.Error("Handler panicked",
				"component", "api",
				"request_id", requestID,
				"route", c.FullPath(),
				"panic", rec,
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":      "Internal server error",
				"code":       "INTERNAL_ERROR",
				"request_id": requestID,
			})
		}()
		c.Next()
	}
}
