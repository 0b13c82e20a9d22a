package widget

import (
	"encoding/json"
	"fmt"

	"github.com/opentravelmate/bridge-go/internal/domain/geo"
)

// Point is a pixel offset inside an icon.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dimension is a pixel size.
type Dimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IconKind discriminates the marker icon variants.
type IconKind int

const (
	IconNone IconKind = iota
	IconURL
	IconVector
)

// MarkerIcon is a tagged variant: either a bitmap referenced by URL or a
// vector path rendered natively. Kind selects which payload is meaningful.
type MarkerIcon struct {
	Kind   IconKind
	Anchor Point
	Size   Dimension

	// IconURL payload
	URL string

	// IconVector payload
	FillColor     string
	FillOpacity   float64
	Path          string
	Rotation      float64
	Scale         float64
	StrokeColor   string
	StrokeOpacity float64
	StrokeWidth   float64
}

type jsonMarkerIcon struct {
	Anchor Point     `json:"anchor"`
	Size   Dimension `json:"size"`

	URL *string `json:"url,omitempty"`

	FillColor     string  `json:"fillColor,omitempty"`
	FillOpacity   float64 `json:"fillOpacity,omitempty"`
	Path          *string `json:"path,omitempty"`
	Rotation      float64 `json:"rotation,omitempty"`
	Scale         float64 `json:"scale,omitempty"`
	StrokeColor   string  `json:"strokeColor,omitempty"`
	StrokeOpacity float64 `json:"strokeOpacity,omitempty"`
	StrokeWidth   float64 `json:"strokeWidth,omitempty"`
}

// MarshalJSON serializes the active variant only.
func (i MarkerIcon) MarshalJSON() ([]byte, error) {
	switch i.Kind {
	case IconURL:
		return json.Marshal(jsonMarkerIcon{Anchor: i.Anchor, Size: i.Size, URL: &i.URL})
	case IconVector:
		return json.Marshal(jsonMarkerIcon{
			Anchor: i.Anchor, Size: i.Size,
			FillColor: i.FillColor, FillOpacity: i.FillOpacity, Path: &i.Path,
			Rotation: i.Rotation, Scale: i.Scale,
			StrokeColor: i.StrokeColor, StrokeOpacity: i.StrokeOpacity, StrokeWidth: i.StrokeWidth,
		})
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON discriminates the variant on the presence of "url" or "path".
func (i *MarkerIcon) UnmarshalJSON(data []byte) error {
	var raw jsonMarkerIcon
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.URL != nil:
		*i = MarkerIcon{Kind: IconURL, Anchor: raw.Anchor, Size: raw.Size, URL: *raw.URL}
	case raw.Path != nil:
		*i = MarkerIcon{
			Kind: IconVector, Anchor: raw.Anchor, Size: raw.Size,
			FillColor: raw.FillColor, FillOpacity: raw.FillOpacity, Path: *raw.Path,
			Rotation: raw.Rotation, Scale: raw.Scale,
			StrokeColor: raw.StrokeColor, StrokeOpacity: raw.StrokeOpacity, StrokeWidth: raw.StrokeWidth,
		}
	default:
		return fmt.Errorf("marker icon with neither url nor path")
	}
	return nil
}

// Marker is a map marker. The id is caller-assigned and unique within a map
// session.
type Marker struct {
	ID       int         `json:"id"`
	Position geo.LatLng  `json:"position"`
	Title    string      `json:"title"`
	Icon     *MarkerIcon `json:"icon,omitempty"`
}

// MarkersFromJSON parses a JSON array of markers.
func MarkersFromJSON(data []byte) ([]Marker, error) {
	var markers []Marker
	if err := json.Unmarshal(data, &markers); err != nil {
		return nil, fmt.Errorf("invalid markers payload: %w", err)
	}
	return markers, nil
}

// MarkerFromJSON parses a single marker.
func MarkerFromJSON(data []byte) (Marker, error) {
	var marker Marker
	if err := json.Unmarshal(data, &marker); err != nil {
		return Marker{}, fmt.Errorf("invalid marker payload: %w", err)
	}
	return marker, nil
}
