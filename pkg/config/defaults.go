// Package config provides centralized default values for the bridge runtime.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseInt(valStr, 10, 64); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server configuration. The server always binds a loopback ephemeral
	// port; only the timeouts are tunable.
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Web content roots served by the embedded server
	NativeScriptsDir string
	ExtensionsDir    string

	// Image proxy and caches
	ImageCacheDir      string
	ImageCacheMaxBytes int64
	IconCacheCapacity  int
	FetchTimeout       time.Duration
	FetchWorkersMin    int
	FetchWorkersMax    int

	// Bridge
	BridgeTokenSecret string
	SyncQueryTimeout  time.Duration
	MapReadyTimeout   time.Duration
	EventBufferSize   int

	// Map defaults
	DefaultMapZoom      float64
	DefaultMapLatitude  float64
	DefaultMapLongitude float64

	// Geolocation
	LocationUpdateMinTime     time.Duration
	LocationUpdateMinDistance float64
)

// Map widget constants. These mirror the web layer's pixel grid and are not
// tunable at runtime.
const (
	TileSizePx = 256

	InfoWindowMarginPx        = 10
	InfoWindowPaddingLeftPx   = 21
	InfoWindowPaddingRightPx  = 21
	InfoWindowPaddingTopPx    = 16
	InfoWindowPaddingBottomPx = 58

	MapButtonMarginRightPx = 5
	MapButtonMarginTopPx   = 5
	MapButtonWidthPx       = 48
	MapButtonHeightPx      = 48

	PanToBoundsPaddingPx = 10
)

// Location quality constants, in the units delivered by the platform
// location provider.
const (
	MaxFixAge                 = 2 * time.Minute
	AcceptableAccuracyM       = 100.0
	AccuracyDegradationMargin = 200.0
)

func init() {
	ServerReadTimeout = getEnvDuration("BRIDGE_SERVER_READ_TIMEOUT", 30*time.Second)
	ServerWriteTimeout = getEnvDuration("BRIDGE_SERVER_WRITE_TIMEOUT", 60*time.Second)
	ServerIdleTimeout = getEnvDuration("BRIDGE_SERVER_IDLE_TIMEOUT", 120*time.Second)

	NativeScriptsDir = getEnvString("BRIDGE_NATIVE_SCRIPTS_DIR", "web/native")
	ExtensionsDir = getEnvString("BRIDGE_EXTENSIONS_DIR", "web/extensions")

	ImageCacheDir = getEnvString("BRIDGE_IMAGE_CACHE_DIR", "cache/images")
	ImageCacheMaxBytes = getEnvInt64("BRIDGE_IMAGE_CACHE_MAX_BYTES", 20*1024*1024)
	IconCacheCapacity = getEnvInt("BRIDGE_ICON_CACHE_CAPACITY", 10)
	FetchTimeout = getEnvDuration("BRIDGE_FETCH_TIMEOUT", 30*time.Second)
	FetchWorkersMin = getEnvInt("BRIDGE_FETCH_WORKERS_MIN", 4)
	FetchWorkersMax = getEnvInt("BRIDGE_FETCH_WORKERS_MAX", 50)

	BridgeTokenSecret = getEnvString("BRIDGE_TOKEN_SECRET", "")
	SyncQueryTimeout = getEnvDuration("BRIDGE_SYNC_QUERY_TIMEOUT", 10*time.Second)
	MapReadyTimeout = getEnvDuration("BRIDGE_MAP_READY_TIMEOUT", 10*time.Second)
	EventBufferSize = getEnvInt("BRIDGE_EVENT_BUFFER_SIZE", 64)

	DefaultMapZoom = float64(getEnvInt("BRIDGE_MAP_DEFAULT_ZOOM", 13))
	DefaultMapLatitude = 49.6
	DefaultMapLongitude = 6.135

	LocationUpdateMinTime = getEnvDuration("BRIDGE_LOCATION_UPDATE_MIN_TIME", 5*time.Second)
	LocationUpdateMinDistance = float64(getEnvInt("BRIDGE_LOCATION_UPDATE_MIN_DISTANCE", 10))
}
