// Package native declares the ports onto platform capabilities the bridge
// treats as opaque: the WebView, the map engine and the location provider.
// Implementations live in platform-specific glue outside this module's
// concern; tests substitute fakes.
package native

import (
	"time"

	"github.com/opentravelmate/bridge-go/internal/domain/geo"
	"github.com/opentravelmate/bridge-go/internal/domain/widget"
)

// View is a handle onto a native view instance positioned by the layout
// engine.
type View interface {
	// SetFrame moves and resizes the view inside its parent, in pixels.
	SetFrame(rect widget.PixelRect)
	// Frame returns the last applied pixel rectangle.
	Frame() widget.PixelRect
}

// MarkerHandle is a realized marker inside the map engine.
type MarkerHandle interface {
	Remove()
	ShowInfoWindow(content string)
}

// OverlayHandle is a realized polyline, polygon or tile overlay.
type OverlayHandle interface {
	Remove()
}

// MarkerOptions realizes a marker on a surface.
type MarkerOptions struct {
	Position geo.LatLng
	Title    string
	// Icon is the rendered icon bitmap encoded as raw RGBA, or nil for the
	// engine default pin.
	Icon *IconBitmap
	// AnchorU/AnchorV position the icon relative to the marker point, as
	// fractions of the icon size.
	AnchorU, AnchorV float64
	// Invisible markers carry info windows at custom anchor points.
	Invisible bool
}

// IconBitmap is a decoded icon handed to the map engine.
type IconBitmap struct {
	Width  int
	Height int
	RGBA   []byte
}

// PolylineOptions realizes a polyline on a surface.
type PolylineOptions struct {
	Path   []geo.LatLng
	Color  uint32
	Width  int
	ZIndex float64
}

// PolygonOptions realizes a polygon on a surface.
type PolygonOptions struct {
	Path        []geo.LatLng
	FillColor   uint32
	StrokeColor uint32
	StrokeWidth int
	ZIndex      float64
}

// TileProvider resolves a tile coordinate to the URL the engine fetches.
// An empty URL skips the tile.
type TileProvider func(tile geo.TileCoordinates) string

// TileOverlayOptions realizes a tile overlay on a surface.
type TileOverlayOptions struct {
	Provider TileProvider
	ZIndex   float64
}

// MapSurface is one live map instance. All methods must be called from the
// UI thread.
type MapSurface interface {
	Camera() geo.CameraPosition
	AnimateCamera(camera geo.CameraPosition)
	FitBounds(bounds geo.Bounds, paddingPx int)
	ScrollBy(dxPx, dyPx int)
	SetMapType(mapType string)

	AddMarker(opts MarkerOptions) MarkerHandle
	AddPolyline(opts PolylineOptions) OverlayHandle
	AddPolygon(opts PolygonOptions) OverlayHandle
	AddTileOverlay(opts TileOverlayOptions) OverlayHandle

	CloseInfoWindow()

	// SetOnCameraChange installs the camera-change listener; a second call
	// replaces the first, and nil detaches it.
	SetOnCameraChange(fn func(geo.CameraPosition))
	SetOnMarkerClick(fn func(MarkerHandle))
	SetOnInfoWindowClick(fn func(MarkerHandle))

	// Release frees the engine resources behind the surface. No method may
	// be called afterwards and installed listeners must stop firing.
	Release()
}

// SurfaceOptions configures a new map surface.
type SurfaceOptions struct {
	Camera geo.CameraPosition
}

// MapEngine creates map surfaces. Creation is asynchronous: the engine calls
// onReady on the UI thread once the surface is usable.
type MapEngine interface {
	CreateSurface(opts SurfaceOptions, view View, onReady func(MapSurface))
}

// Fix is one location measurement.
type Fix struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	AccuracyM float64
	Heading   float64
	SpeedMS   float64
	Provider  string
	Time      time.Time
}

// Location provider names, matching the platform's accuracy tiers.
const (
	ProviderGPS     = "gps"
	ProviderNetwork = "network"
)

// LocationProvider is the platform positioning capability.
type LocationProvider interface {
	// LastKnownFix returns the most recent fix of the given provider, or
	// nil when none exists.
	LastKnownFix(provider string) *Fix
	// Subscribe delivers fixes from the given provider until the returned
	// cancel function is called.
	Subscribe(provider string, minInterval time.Duration, minDistanceM float64, fn func(Fix)) (cancel func(), err error)
}
