package middleware

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware restricts browser-originated requests to local origins.
// The embedded server only ever serves the web view of this process; the
// port is ephemeral, so origins are matched by host rather than listed.
func CORSMiddleware() gin.HandlerFunc {
	config := cors.Config{
		AllowOriginFunc: func(origin string) bool {
			for _, prefix := range []string{
				"http://localhost:",
				"http://127.0.0.1:",
				"http://[::1]:",
			} {
				if strings.HasPrefix(origin, prefix) {
					return true
				}
			}
			// WebViews loading bundled content report a file origin.
			return origin == "file://"
		},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
		},
		AllowCredentials: true,
		ExposeHeaders: []string{
			"Content-Type", "Cache-Control", "Connection",
		},
	}

	return cors.New(config)
}
