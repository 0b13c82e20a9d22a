// Package geo provides the geographic primitives shared by the map widget:
// coordinates, bounds, slippy-map tiles and the Web-Mercator projection.
package geo

import "fmt"

// LatLng is a geographical point in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is a south-west / north-east bounding box.
type Bounds struct {
	SW LatLng `json:"sw"`
	NE LatLng `json:"ne"`
}

// TileCoordinates addresses one 256x256 tile of the slippy-map pyramid.
type TileCoordinates struct {
	Zoom int `json:"zoom"`
	X    int `json:"x"`
	Y    int `json:"y"`
}

// Key returns the identity key used to diff displayed tile sets.
func (t TileCoordinates) Key() string {
	return fmt.Sprintf("%d_%d_%d", t.Zoom, t.X, t.Y)
}

// CameraPosition is a map viewport: target center plus zoom level.
type CameraPosition struct {
	Target LatLng  `json:"target"`
	Zoom   float64 `json:"zoom"`
}
