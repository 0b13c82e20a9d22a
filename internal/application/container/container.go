// Package container provides dependency injection for the bridge runtime.
package container

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/opentravelmate/bridge-go/internal/application/services/geolocation"
	"github.com/opentravelmate/bridge-go/internal/application/services/layout"
	"github.com/opentravelmate/bridge-go/internal/application/services/mapwidget"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/caching"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/messaging"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/report"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/security"
	"github.com/opentravelmate/bridge-go/internal/platform/native"
	"github.com/opentravelmate/bridge-go/internal/platform/uithread"
	"github.com/opentravelmate/bridge-go/internal/platform/workers"
	"github.com/opentravelmate/bridge-go/pkg/config"
)

// Platform bundles the native capabilities the host injects at startup.
type Platform struct {
	MapEngine        native.MapEngine
	LocationProvider native.LocationProvider
	// MainSurface is the web view's own native view, arranged full-window
	// by the layout engine. Optional.
	MainSurface native.View
}

// Container holds all application dependencies.
type Container struct {
	Logger   *logging.ChanneledLogger
	Reporter report.Listener

	UIThread   *uithread.Loop
	FetchPool  *workers.Pool
	HTTPClient *http.Client

	ImageCache *caching.DiskCache
	IconCache  *caching.IconCache
	Bus        *messaging.BridgeBus

	LayoutEngine       *layout.Engine
	MapController      *mapwidget.Controller
	GeolocationService *geolocation.Service

	// TokenSecret signs bridge tokens; BridgeToken is the token issued for
	// this process lifetime, handed to the web layer at startup.
	TokenSecret string
	BridgeToken string

	mu      sync.Mutex
	baseURL string
}

// NewContainer creates and wires all dependencies.
func NewContainer(platform Platform, logger *logging.ChanneledLogger, reporter report.Listener) (*Container, error) {
	imageCache, err := caching.NewDiskCache(config.ImageCacheDir, config.ImageCacheMaxBytes, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image cache: %w", err)
	}

	secret := config.BridgeTokenSecret
	if secret == "" {
		secret = ulid.Make().String()
	}
	token, err := security.IssueBridgeToken(secret, 365*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to issue bridge token: %w", err)
	}

	c := &Container{
		Logger:      logger,
		Reporter:    reporter,
		UIThread:    uithread.NewLoop(),
		FetchPool:   workers.NewPool(config.FetchWorkersMin),
		HTTPClient: &http.Client{
			Timeout:   config.FetchTimeout,
			Transport: &http.Transport{MaxConnsPerHost: config.FetchWorkersMax},
		},
		ImageCache:  imageCache,
		IconCache:   caching.NewIconCache(config.IconCacheCapacity),
		Bus:         messaging.NewBridgeBus(config.EventBufferSize, logger),
		TokenSecret: secret,
		BridgeToken: token,
	}

	c.LayoutEngine = layout.NewEngine(platform.MainSurface, logger)
	c.MapController = mapwidget.NewController(
		c.UIThread, platform.MapEngine, c.LayoutEngine, c.Bus,
		c.FetchPool, c.HTTPClient, c.IconCache, c.BaseURL,
		logger, reporter,
	)
	c.GeolocationService = geolocation.NewService(platform.LocationProvider, logger, reporter)

	logger.Startup().Info("Container initialized",
		"imageCacheDir", config.ImageCacheDir,
		"fetchWorkers", config.FetchWorkersMin)
	return c, nil
}

// SetBaseURL records the embedded server's origin once it listens.
func (c *Container) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = baseURL
}

// BaseURL returns the embedded server's origin.
func (c *Container) BaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL
}

// Shutdown releases every held resource.
func (c *Container) Shutdown() {
	c.Logger.Shutdown().Info("Shutting down container")
	c.UIThread.Stop()
	c.FetchPool.Shutdown()
	if err := c.ImageCache.Close(); err != nil {
		c.Logger.Shutdown().Warn("Failed to close image cache", "error", err.Error())
	}
}
