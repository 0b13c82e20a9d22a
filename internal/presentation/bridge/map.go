package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/opentravelmate/bridge-go/internal/application/services/mapwidget"
	"github.com/opentravelmate/bridge-go/internal/domain/geo"
	"github.com/opentravelmate/bridge-go/internal/domain/widget"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
	"github.com/opentravelmate/bridge-go/internal/platform/native"
)

// Map is the injected object backing the map widget.
type Map struct {
	controller *mapwidget.Controller
	logger     *logging.ChanneledLogger
}

// NewMap creates the map bridge object.
func NewMap(controller *mapwidget.Controller, logger *logging.ChanneledLogger) *Map {
	return &Map{controller: controller, logger: logger}
}

func parseLayoutParams(data []byte) (widget.LayoutParams, error) {
	return widget.LayoutParamsFromJSON(data)
}

// BuildView creates the native map behind a place-holder. The platform glue
// supplies the native view the map engine renders into.
func (m *Map) BuildView(layoutPayload string, view native.View) error {
	params, err := parseLayoutParams([]byte(layoutPayload))
	if err != nil {
		return err
	}
	m.controller.BuildView(params, view)
	return nil
}

// UpdateView repositions the map's place-holder.
func (m *Map) UpdateView(layoutPayload string) error {
	params, err := parseLayoutParams([]byte(layoutPayload))
	if err != nil {
		return err
	}
	return m.controller.UpdateView(params)
}

// RemoveView tears the map down.
func (m *Map) RemoveView(placeHolderID string) {
	m.controller.RemoveView(placeHolderID)
}

// PanTo recenters the map.
func (m *Map) PanTo(placeHolderID, latLngPayload string) error {
	var target geo.LatLng
	if err := json.Unmarshal([]byte(latLngPayload), &target); err != nil {
		return fmt.Errorf("invalid latlng payload: %w", err)
	}
	m.controller.PanTo(placeHolderID, target)
	return nil
}

// PanToBounds fits the given bounds into the viewport.
func (m *Map) PanToBounds(placeHolderID, boundsPayload string) error {
	var bounds geo.Bounds
	if err := json.Unmarshal([]byte(boundsPayload), &bounds); err != nil {
		return fmt.Errorf("invalid bounds payload: %w", err)
	}
	m.controller.PanToBounds(placeHolderID, bounds)
	return nil
}

// GetZoom returns the current zoom level.
func (m *Map) GetZoom(placeHolderID string) (float64, error) {
	return m.controller.Zoom(placeHolderID)
}

// GetBounds returns the visible bounds as JSON.
func (m *Map) GetBounds(placeHolderID string) (string, error) {
	bounds, err := m.controller.VisibleBounds(placeHolderID)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(bounds)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetMapType switches the base layer.
func (m *Map) SetMapType(placeHolderID, mapType string) {
	m.controller.SetMapType(placeHolderID, mapType)
}

// AddMarkers adds a JSON array of markers.
func (m *Map) AddMarkers(placeHolderID, markersPayload string) error {
	markers, err := widget.MarkersFromJSON([]byte(markersPayload))
	if err != nil {
		return err
	}
	m.controller.AddMarkers(placeHolderID, markers)
	return nil
}

// RemoveMarkers removes a JSON array of markers by id.
func (m *Map) RemoveMarkers(placeHolderID, markersPayload string) error {
	markers, err := widget.MarkersFromJSON([]byte(markersPayload))
	if err != nil {
		return err
	}
	m.controller.RemoveMarkers(placeHolderID, markers)
	return nil
}

// AddPolylines adds a JSON array of polylines.
func (m *Map) AddPolylines(placeHolderID, polylinesPayload string) error {
	polylines, err := widget.PolylinesFromJSON([]byte(polylinesPayload))
	if err != nil {
		return err
	}
	m.controller.AddPolylines(placeHolderID, polylines)
	return nil
}

// RemovePolylines removes a JSON array of polylines by id.
func (m *Map) RemovePolylines(placeHolderID, polylinesPayload string) error {
	polylines, err := widget.PolylinesFromJSON([]byte(polylinesPayload))
	if err != nil {
		return err
	}
	m.controller.RemovePolylines(placeHolderID, polylines)
	return nil
}

// AddPolygons adds a JSON array of polygons.
func (m *Map) AddPolygons(placeHolderID, polygonsPayload string) error {
	polygons, err := widget.PolygonsFromJSON([]byte(polygonsPayload))
	if err != nil {
		return err
	}
	m.controller.AddPolygons(placeHolderID, polygons)
	return nil
}

// RemovePolygons removes a JSON array of polygons by id.
func (m *Map) RemovePolygons(placeHolderID, polygonsPayload string) error {
	polygons, err := widget.PolygonsFromJSON([]byte(polygonsPayload))
	if err != nil {
		return err
	}
	m.controller.RemovePolygons(placeHolderID, polygons)
	return nil
}

// AddTileOverlay layers templated tiles over the map.
func (m *Map) AddTileOverlay(placeHolderID, overlayPayload string) error {
	overlay, err := widget.TileOverlayFromJSON([]byte(overlayPayload))
	if err != nil {
		return err
	}
	m.controller.AddTileOverlay(placeHolderID, overlay)
	return nil
}

// RemoveTileOverlay removes a tile overlay by id.
func (m *Map) RemoveTileOverlay(placeHolderID, overlayPayload string) error {
	overlay, err := widget.TileOverlayFromJSON([]byte(overlayPayload))
	if err != nil {
		return err
	}
	m.controller.RemoveTileOverlay(placeHolderID, overlay.ID)
	return nil
}

// ObserveTiles starts tile display and release events.
func (m *Map) ObserveTiles(placeHolderID string) {
	m.controller.ObserveTiles(placeHolderID)
}

// GetDisplayedTileCoordinates returns the displayed tile set as JSON.
func (m *Map) GetDisplayedTileCoordinates(placeHolderID string) (string, error) {
	tiles, err := m.controller.DisplayedTileCoordinates(placeHolderID)
	if err != nil {
		return "", err
	}
	if tiles == nil {
		tiles = []geo.TileCoordinates{}
	}
	data, err := json.Marshal(tiles)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ObserveMarkers starts marker click and info window click events.
func (m *Map) ObserveMarkers(placeHolderID string) {
	m.controller.ObserveMarkers(placeHolderID)
}

// ShowInfoWindow opens an info window over a marker. anchorPayload is an
// optional JSON point offsetting the window from the marker, in pixels.
func (m *Map) ShowInfoWindow(placeHolderID, markerPayload, content, anchorPayload string) error {
	marker, err := widget.MarkerFromJSON([]byte(markerPayload))
	if err != nil {
		return err
	}
	var anchor *widget.Point
	if anchorPayload != "" && anchorPayload != "null" {
		var point widget.Point
		if err := json.Unmarshal([]byte(anchorPayload), &point); err != nil {
			return fmt.Errorf("invalid anchor payload: %w", err)
		}
		anchor = &point
	}
	m.controller.ShowInfoWindow(placeHolderID, marker, content, anchor)
	return nil
}

// CloseInfoWindow closes any open info window.
func (m *Map) CloseInfoWindow(placeHolderID string) {
	m.controller.CloseInfoWindow(placeHolderID)
}

// AddMapButton stacks a button on the map.
func (m *Map) AddMapButton(placeHolderID, buttonPayload string) error {
	button, err := widget.MapButtonFromJSON([]byte(buttonPayload))
	if err != nil {
		return err
	}
	m.controller.AddMapButton(placeHolderID, button)
	return nil
}

// UpdateMapButton replaces a button's tooltip and icon.
func (m *Map) UpdateMapButton(placeHolderID, buttonPayload string) error {
	button, err := widget.MapButtonFromJSON([]byte(buttonPayload))
	if err != nil {
		return err
	}
	m.controller.UpdateMapButton(placeHolderID, button)
	return nil
}

// RemoveMapButton removes a button by id.
func (m *Map) RemoveMapButton(placeHolderID string, buttonID int) {
	m.controller.RemoveMapButton(placeHolderID, buttonID)
}
