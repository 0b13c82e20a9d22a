// Package bridge exposes the native objects injected into the web layer's
// script engine. Methods take and return JSON strings so the platform glue
// can forward calls without understanding the payloads.
package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/opentravelmate/bridge-go/internal/application/services/layout"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/messaging"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
	"github.com/opentravelmate/bridge-go/internal/platform/native"
)

// WebView is the injected object backing the web layer's main window: it
// receives layout notifications and relays page-level events.
type WebView struct {
	layout *layout.Engine
	bus    messaging.Publisher
	logger *logging.ChanneledLogger
}

// NewWebView creates the webview bridge object.
func NewWebView(layoutEngine *layout.Engine, bus messaging.Publisher, logger *logging.ChanneledLogger) *WebView {
	return &WebView{layout: layoutEngine, bus: bus, logger: logger}
}

// LayOut applies a measured layout snapshot: a JSON array of place-holder
// geometries in window pixels. Place-holders must already be registered by
// their widget builders; unknown ids are logged and skipped.
func (w *WebView) LayOut(payload string) error {
	var raws []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raws); err != nil {
		return fmt.Errorf("invalid layout payload: %w", err)
	}
	for _, raw := range raws {
		params, err := parseLayoutParams(raw)
		if err != nil {
			return err
		}
		if err := w.layout.UpdatePlaceHolder(params); err != nil {
			w.logger.Layout().Warn("Layout for unregistered place-holder", "id", params.ID)
		}
	}
	return nil
}

// BuildView registers a plain native view behind a place-holder, for
// widgets without a dedicated controller. The platform glue supplies the
// view instance.
func (w *WebView) BuildView(layoutPayload string, view native.View) error {
	params, err := parseLayoutParams([]byte(layoutPayload))
	if err != nil {
		return err
	}
	w.layout.AddPlaceHolder(params, view)
	return nil
}

// UpdateView repositions a view registered through BuildView.
func (w *WebView) UpdateView(layoutPayload string) error {
	params, err := parseLayoutParams([]byte(layoutPayload))
	if err != nil {
		return err
	}
	return w.layout.UpdatePlaceHolder(params)
}

// RemoveView unregisters the place-holder and returns its view so the glue
// can tear it down. Unknown ids return nil.
func (w *WebView) RemoveView(placeHolderID string) native.View {
	view, ok := w.layout.RemovePlaceHolder(placeHolderID)
	if !ok {
		return nil
	}
	return view
}

// Resize re-arranges every registered view for a new window size.
func (w *WebView) Resize(windowWidth, windowHeight int) {
	w.layout.Arrange(windowWidth, windowHeight)
}

// FireExternalEvent forwards a page-level event to the web layer's listeners.
func (w *WebView) FireExternalEvent(eventName, payload string) {
	w.bus.Publish("webview", "fireExternalEvent", externalEvent{
		Name:    eventName,
		Payload: json.RawMessage(payloadOrNull(payload)),
	})
}

type externalEvent struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

func payloadOrNull(payload string) string {
	if payload == "" || !json.Valid([]byte(payload)) {
		return "null"
	}
	return payload
}
