package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/opentravelmate/bridge-go/internal/application/services/geolocation"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/messaging"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
)

// Geolocation is the injected object backing the web layer's positioning
// API. Results travel back asynchronously over the event bus, addressed by
// the callbacks id the web layer allocated for the request.
type Geolocation struct {
	service *geolocation.Service
	bus     messaging.Publisher
	logger  *logging.ChanneledLogger
}

// NewGeolocation creates the geolocation bridge object.
func NewGeolocation(service *geolocation.Service, bus messaging.Publisher, logger *logging.ChanneledLogger) *Geolocation {
	return &Geolocation{service: service, bus: bus, logger: logger}
}

// positionOptions is the wire form of position request options, durations
// in milliseconds as the W3C API specifies.
type positionOptions struct {
	EnableHighAccuracy bool  `json:"enableHighAccuracy"`
	Timeout            int64 `json:"timeout"`
	MaximumAge         int64 `json:"maximumAge"`
}

func (o positionOptions) toOptions() geolocation.Options {
	opts := geolocation.Options{
		EnableHighAccuracy: o.EnableHighAccuracy,
		Timeout:            time.Duration(o.Timeout) * time.Millisecond,
		MaximumAge:         time.Duration(o.MaximumAge) * time.Millisecond,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 24 * time.Hour
	}
	return opts
}

type positionEvent struct {
	CallbacksID string                     `json:"callbacksId"`
	Position    *geolocation.Position      `json:"position,omitempty"`
	Error       *geolocation.PositionError `json:"error,omitempty"`
}

// GetCurrentPosition resolves one position and publishes the result as a
// fireCurrentPositionEvent addressed to callbacksID.
func (g *Geolocation) GetCurrentPosition(callbacksID, optionsPayload string) error {
	opts, err := parseOptions(optionsPayload)
	if err != nil {
		return err
	}
	g.service.CurrentPosition(opts,
		func(p geolocation.Position) {
			g.bus.Publish("geolocation", "fireCurrentPositionEvent", positionEvent{
				CallbacksID: callbacksID, Position: &p,
			})
		},
		func(e geolocation.PositionError) {
			g.bus.Publish("geolocation", "fireCurrentPositionEvent", positionEvent{
				CallbacksID: callbacksID, Error: &e,
			})
		})
	return nil
}

// WatchPosition starts continuous delivery of fireWatchPositionEvent and
// returns the watch handle for ClearWatch.
func (g *Geolocation) WatchPosition(callbacksID, optionsPayload string) (int, error) {
	opts, err := parseOptions(optionsPayload)
	if err != nil {
		return 0, err
	}
	return g.service.WatchPosition(opts,
		func(p geolocation.Position) {
			g.bus.Publish("geolocation", "fireWatchPositionEvent", positionEvent{
				CallbacksID: callbacksID, Position: &p,
			})
		},
		func(e geolocation.PositionError) {
			g.bus.Publish("geolocation", "fireWatchPositionEvent", positionEvent{
				CallbacksID: callbacksID, Error: &e,
			})
		})
}

// ClearWatch stops a watch. Unknown handles are ignored.
func (g *Geolocation) ClearWatch(watchID int) {
	g.service.ClearWatch(watchID)
}

func parseOptions(optionsPayload string) (geolocation.Options, error) {
	var raw positionOptions
	if optionsPayload != "" {
		if err := json.Unmarshal([]byte(optionsPayload), &raw); err != nil {
			return geolocation.Options{}, fmt.Errorf("invalid position options: %w", err)
		}
	}
	return raw.toOptions(), nil
}
