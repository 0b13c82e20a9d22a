package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/security"
)

// BridgeTokenMiddleware rejects requests that do not carry the bridge token
// issued at startup. WebSocket clients cannot set headers, so the token is
// also accepted as a query parameter.
func BridgeTokenMiddleware(jwtSecret string, logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			auth := c.GetHeader("Authorization")
			token = strings.TrimPrefix(auth, "Bearer ")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bridge token"})
			return
		}
		if _, err := security.ValidateBridgeToken(token, jwtSecret); err != nil {
			logger.HTTP().Warn("Rejected event socket client", "error", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bridge token"})
			return
		}
		c.Next()
	}
}
