package middleware

import (
	"github.com/gin-gonic/gin"

	"tadoif/internal/idgen"
)

// RequestIDKey is both the header and the gin context key
const RequestIDKey = "X-Request-ID"

const maxRequestIDLen = 64

// RequestID tags each request with a req_ ID, or with the caller's X-Request-ID
// when it is short printable ASCII
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDKey)
		if !validRequestID(requestID) {
			requestID = idgen.NewRequest()
		}
		c.Header(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)
		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
