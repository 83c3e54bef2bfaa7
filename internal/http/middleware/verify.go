package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/larkrelay/backend/internal/event"
)

// VerifyToken rejects requests whose header does not carry the shared
// verification token. Rejected requests never reach the handler.
func VerifyToken(header, expected string, l zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !event.Verify(c.Request.Header, header, expected) {
			l.Warn().
				Str("request_id", c.GetString(RequestIDHeader)).
				Str("client_ip", c.ClientIP()).
				Msg("webhook verification failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid verification token",
				},
			})
			return
		}
		c.Next()
	}
}
