// Package startup assembles the bridge runtime and runs it to completion.
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/opentravelmate/bridge-go/internal/application/container"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/messaging"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/report"
	"github.com/opentravelmate/bridge-go/internal/presentation/bridge"
	"github.com/opentravelmate/bridge-go/internal/presentation/http/server"
)

// Runtime is the assembled bridge handed to the platform glue: the injected
// objects the script engine calls, plus the container for everything else.
type Runtime struct {
	Container   *container.Container
	Server      *server.Server
	WebView     *bridge.WebView
	Map         *bridge.Map
	Geolocation *bridge.Geolocation
}

// Assemble builds the full runtime and binds the embedded server's loopback
// port, without serving yet.
func Assemble(platform container.Platform, reporter report.Listener) (*Runtime, error) {
	setupLogging()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found -- config defaults will be used")
	}

	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if reporter == nil {
		reporter = report.ListenerFunc(func(recoverable bool, err error) {
			logger.System().Error("Unhandled exception", "recoverable", recoverable, "error", err.Error())
		})
	}

	// Exceptions also surface in the web layer as notifications. The
	// forwarder is bound to the bus once the container exists; reports made
	// during assembly only reach the wrapped listener.
	notifier := &notifyingReporter{next: reporter}

	appContainer, err := container.NewContainer(platform, logger, notifier)
	if err != nil {
		return nil, fmt.Errorf("failed to build container: %w", err)
	}
	notifier.bind(appContainer.Bus)

	httpServer := server.New(appContainer)
	if err := httpServer.Listen(); err != nil {
		appContainer.Shutdown()
		return nil, err
	}
	logger.Startup().Info("Bridge runtime assembled",
		"baseURL", appContainer.BaseURL())

	return &Runtime{
		Container:   appContainer,
		Server:      httpServer,
		WebView:     bridge.NewWebView(appContainer.LayoutEngine, appContainer.Bus, logger),
		Map:         bridge.NewMap(appContainer.MapController, logger),
		Geolocation: bridge.NewGeolocation(appContainer.GeolocationService, appContainer.Bus, logger),
	}, nil
}

// Initialize assembles the runtime, serves until SIGINT/SIGTERM and shuts
// down gracefully. The standalone binary's whole lifecycle lives here;
// embedding hosts use Assemble directly and drive the pieces themselves.
func Initialize(platform container.Platform) error {
	start := time.Now().UTC()

	runtime, err := Assemble(platform, nil)
	if err != nil {
		return err
	}
	logger := runtime.Container.Logger

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := runtime.Server.Start(); err != nil {
			logger.System().Error("Embedded server failed", "error", err.Error())
			runtime.Container.Reporter.OnException(false, err)
		}
	}()

	logger.Startup().Info("Bridge startup complete",
		"baseURL", runtime.Container.BaseURL(),
		"duration", time.Since(start))

	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	shutdownStart := time.Now()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := runtime.Server.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	}

	runtime.Container.Shutdown()
	logger.Shutdown().Info("Bridge shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))
	return nil
}

// notifyingReporter forwards every exception to the wrapped listener and,
// once bound, to the web layer over the event bus.
type notifyingReporter struct {
	mu   sync.Mutex
	next report.Listener
	bus  messaging.Publisher
}

func (r *notifyingReporter) bind(bus messaging.Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bus = bus
}

func (r *notifyingReporter) OnException(recoverable bool, err error) {
	r.next.OnException(recoverable, err)

	r.mu.Lock()
	bus := r.bus
	r.mu.Unlock()
	if bus == nil {
		return
	}
	fn := "show"
	if !recoverable {
		fn = "fatal"
	}
	bus.Publish("notification", fn, map[string]string{"message": err.Error()})
}

// setupLogging configures framework logging before the channeled logger
// exists.
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
