package widget

import (
	"encoding/json"
	"fmt"

	"github.com/opentravelmate/bridge-go/internal/domain/geo"
)

// Polyline is a colored path drawn on the map, removable by id.
type Polyline struct {
	ID    int          `json:"id"`
	Path  []geo.LatLng `json:"path"`
	Color uint32       `json:"color"`
	Width int          `json:"width"`
}

// PolylinesFromJSON parses a JSON array of polylines.
func PolylinesFromJSON(data []byte) ([]Polyline, error) {
	var polylines []Polyline
	if err := json.Unmarshal(data, &polylines); err != nil {
		return nil, fmt.Errorf("invalid polylines payload: %w", err)
	}
	return polylines, nil
}

// Polygon is a filled shape drawn on the map, removable by id.
type Polygon struct {
	ID          int          `json:"id"`
	Path        []geo.LatLng `json:"path"`
	FillColor   uint32       `json:"fillColor"`
	StrokeColor uint32       `json:"strokeColor"`
	StrokeWidth int          `json:"strokeWidth"`
}

// PolygonsFromJSON parses a JSON array of polygons.
func PolygonsFromJSON(data []byte) ([]Polygon, error) {
	var polygons []Polygon
	if err := json.Unmarshal(data, &polygons); err != nil {
		return nil, fmt.Errorf("invalid polygons payload: %w", err)
	}
	return polygons, nil
}

// TileOverlay layers URL-templated raster tiles on the map. The pattern
// contains ${zoom}, ${x} and ${y} place-holders substituted per tile.
type TileOverlay struct {
	ID                    int     `json:"id"`
	ZIndex                float64 `json:"zIndex"`
	TileURLPattern        string  `json:"tileUrlPattern"`
	EnableGrayscaleFilter bool    `json:"enableGrayscaleFilter"`
}

// TileOverlayFromJSON parses a tile overlay.
func TileOverlayFromJSON(data []byte) (TileOverlay, error) {
	var overlay TileOverlay
	if err := json.Unmarshal(data, &overlay); err != nil {
		return TileOverlay{}, fmt.Errorf("invalid tile overlay payload: %w", err)
	}
	return overlay, nil
}

// MapButton is a button stacked in the map's top-right corner.
type MapButton struct {
	ID      int    `json:"id"`
	Tooltip string `json:"tooltip"`
	IconURL string `json:"iconUrl"`
}

// MapButtonFromJSON parses a map button.
func MapButtonFromJSON(data []byte) (MapButton, error) {
	var button MapButton
	if err := json.Unmarshal(data, &button); err != nil {
		return MapButton{}, fmt.Errorf("invalid map button payload: %w", err)
	}
	return button, nil
}
