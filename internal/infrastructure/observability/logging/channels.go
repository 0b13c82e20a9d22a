// Package logging provides structured logging channels for the bridge
// runtime, one logical channel per subsystem.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Channel represents a logical logging channel for different system components
type Channel string

const (
	ChannelSystem   Channel = "system"
	ChannelStartup  Channel = "startup"
	ChannelShutdown Channel = "shutdown"

	ChannelHTTP        Channel = "http"
	ChannelCache       Channel = "cache"
	ChannelMedia       Channel = "media"
	ChannelLayout      Channel = "layout"
	ChannelMapWidget   Channel = "mapwidget"
	ChannelBridge      Channel = "bridge"
	ChannelGeolocation Channel = "geolocation"
)

// ChanneledLogger provides structured logging with multiple channels
type ChanneledLogger struct {
	channels map[Channel]*slog.Logger
	config   *LoggerConfig
	configMu sync.RWMutex
}

// LoggerConfig contains configuration options for the channeled logger
type LoggerConfig struct {
	OutputToFile    bool   `json:"outputToFile"`
	OutputToConsole bool   `json:"outputToConsole"`
	LogDirectory    string `json:"logDirectory"`

	JSONFormat      bool   `json:"jsonFormat"`
	IncludeSource   bool   `json:"includeSource"`
	TimestampFormat string `json:"timestampFormat"`

	DefaultLevel  slog.Level             `json:"defaultLevel"`
	ChannelLevels map[Channel]slog.Level `json:"channelLevels"`
}

// DefaultLoggerConfig returns a sensible default configuration
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: true,
		LogDirectory:    "logs",
		JSONFormat:      true,
		IncludeSource:   false,
		TimestampFormat: time.RFC3339,
		DefaultLevel:    slog.LevelInfo,
		ChannelLevels:   make(map[Channel]slog.Level),
	}
}

var allChannels = []Channel{
	ChannelSystem, ChannelStartup, ChannelShutdown,
	ChannelHTTP, ChannelCache, ChannelMedia,
	ChannelLayout, ChannelMapWidget, ChannelBridge, ChannelGeolocation,
}

// NewChanneledLogger creates a new channeled logger with the given configuration
func NewChanneledLogger(config *LoggerConfig) (*ChanneledLogger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}

	logger := &ChanneledLogger{
		channels: make(map[Channel]*slog.Logger),
		config:   config,
	}

	if config.OutputToFile {
		if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	for _, channel := range allChannels {
		channelLogger, err := logger.createChannelLogger(channel)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger for channel %s: %w", channel, err)
		}
		logger.channels[channel] = channelLogger
	}

	return logger, nil
}

func (cl *ChanneledLogger) createChannelLogger(channel Channel) (*slog.Logger, error) {
	cl.configMu.RLock()
	defer cl.configMu.RUnlock()

	level := cl.config.DefaultLevel
	if channelLevel, exists := cl.config.ChannelLevels[channel]; exists {
		level = channelLevel
	}

	var writers []io.Writer
	if cl.config.OutputToConsole {
		writers = append(writers, os.Stdout)
	}
	if cl.config.OutputToFile {
		filename := fmt.Sprintf("%s.log", string(channel))
		path := filepath.Join(cl.config.LogDirectory, filename)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		writers = append(writers, file)
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cl.config.IncludeSource,
	}

	var handler slog.Handler
	if cl.config.JSONFormat {
		handler = slog.NewJSONHandler(io.MultiWriter(writers...), opts)
	} else {
		handler = slog.NewTextHandler(io.MultiWriter(writers...), opts)
	}

	return slog.New(handler).With("channel", string(channel)), nil
}

func (cl *ChanneledLogger) channel(c Channel) *slog.Logger {
	if l, ok := cl.channels[c]; ok {
		return l
	}
	return slog.Default()
}

// System returns the logger for general system operations.
func (cl *ChanneledLogger) System() *slog.Logger { return cl.channel(ChannelSystem) }

// Startup returns the logger for application initialization.
func (cl *ChanneledLogger) Startup() *slog.Logger { return cl.channel(ChannelStartup) }

// Shutdown returns the logger for application teardown.
func (cl *ChanneledLogger) Shutdown() *slog.Logger { return cl.channel(ChannelShutdown) }

// HTTP returns the logger for the embedded HTTP server.
func (cl *ChanneledLogger) HTTP() *slog.Logger { return cl.channel(ChannelHTTP) }

// Cache returns the logger for cache operations.
func (cl *ChanneledLogger) Cache() *slog.Logger { return cl.channel(ChannelCache) }

// Media returns the logger for image decoding and filtering.
func (cl *ChanneledLogger) Media() *slog.Logger { return cl.channel(ChannelMedia) }

// Layout returns the logger for the HTML-to-native layout engine.
func (cl *ChanneledLogger) Layout() *slog.Logger { return cl.channel(ChannelLayout) }

// MapWidget returns the logger for the map controller.
func (cl *ChanneledLogger) MapWidget() *slog.Logger { return cl.channel(ChannelMapWidget) }

// Bridge returns the logger for injected bridge objects and the event bus.
func (cl *ChanneledLogger) Bridge() *slog.Logger { return cl.channel(ChannelBridge) }

// Geolocation returns the logger for the geolocation service.
func (cl *ChanneledLogger) Geolocation() *slog.Logger { return cl.channel(ChannelGeolocation) }
