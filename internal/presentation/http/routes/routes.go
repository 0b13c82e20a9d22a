// Package routes provides HTTP route configuration for the embedded server.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/opentravelmate/bridge-go/internal/application/container"
	"github.com/opentravelmate/bridge-go/internal/presentation/http/handlers"
	"github.com/opentravelmate/bridge-go/internal/presentation/http/middleware"
	"github.com/opentravelmate/bridge-go/pkg/config"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(c *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Bridge scripts and extension bundles are plain static trees.
	r.Static("/native", config.NativeScriptsDir)
	r.Static("/extensions", config.ExtensionsDir)

	imageHandlers := handlers.NewImageHandlers(
		c.ImageCache, c.FetchPool, c.HTTPClient, c.Logger, c.Reporter)
	eventHandlers := handlers.NewEventHandlers(c.Bus, c.Logger)

	r.GET("/image/source/*source", imageHandlers.GetImage)

	bridge := r.Group("/bridge")
	bridge.Use(middleware.BridgeTokenMiddleware(c.TokenSecret, c.Logger))
	{
		bridge.GET("/events", eventHandlers.StreamEvents)
	}

	return r
}
