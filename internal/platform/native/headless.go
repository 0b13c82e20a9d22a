package native

import (
	"errors"
	"sync"
	"time"

	"github.com/opentravelmate/bridge-go/internal/domain/geo"
	"github.com/opentravelmate/bridge-go/internal/domain/widget"
)

// The headless implementations back the standalone development binary,
// where no platform embeds the bridge. Views track their frames, the map
// engine reports ready immediately and records state without rendering,
// and the location provider has nothing to offer.

// HeadlessView is a frame-tracking view with no rendering.
type HeadlessView struct {
	mu    sync.Mutex
	frame widget.PixelRect
}

// NewHeadlessView creates a headless view.
func NewHeadlessView() *HeadlessView { return &HeadlessView{} }

// SetFrame records the frame.
func (v *HeadlessView) SetFrame(rect widget.PixelRect) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frame = rect
}

// Frame returns the recorded frame.
func (v *HeadlessView) Frame() widget.PixelRect {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame
}

// HeadlessMapEngine creates surfaces that are immediately ready.
type HeadlessMapEngine struct{}

// CreateSurface implements MapEngine.
func (HeadlessMapEngine) CreateSurface(opts SurfaceOptions, view View, onReady func(MapSurface)) {
	onReady(&headlessSurface{camera: opts.Camera})
}

type headlessSurface struct {
	camera         geo.CameraPosition
	mapType        string
	onCameraChange func(geo.CameraPosition)
}

// headlessHandle carries no state, but callers key maps by handle identity,
// so every handle must compare distinct. The padding byte keeps allocations
// from collapsing onto the runtime's shared zero-size address.
type headlessHandle struct{ _ byte }

func (*headlessHandle) Remove()               {}
func (*headlessHandle) ShowInfoWindow(string) {}

func (s *headlessSurface) Camera() geo.CameraPosition { return s.camera }

func (s *headlessSurface) AnimateCamera(camera geo.CameraPosition) {
	s.camera = camera
	if s.onCameraChange != nil {
		s.onCameraChange(camera)
	}
}

func (s *headlessSurface) FitBounds(bounds geo.Bounds, paddingPx int) {
	s.camera.Target = geo.LatLng{
		Lat: (bounds.SW.Lat + bounds.NE.Lat) / 2,
		Lng: (bounds.SW.Lng + bounds.NE.Lng) / 2,
	}
	if s.onCameraChange != nil {
		s.onCameraChange(s.camera)
	}
}

func (s *headlessSurface) ScrollBy(dxPx, dyPx int) {
	zoom := s.camera.Zoom
	x := geo.LngToTileX(zoom, s.camera.Target.Lng) + float64(dxPx)/256
	y := geo.LatToTileY(zoom, s.camera.Target.Lat) + float64(dyPx)/256
	s.camera.Target = geo.LatLng{Lat: geo.TileYToLat(zoom, y), Lng: geo.TileXToLng(zoom, x)}
	if s.onCameraChange != nil {
		s.onCameraChange(s.camera)
	}
}

func (s *headlessSurface) SetMapType(mapType string) { s.mapType = mapType }

func (s *headlessSurface) AddMarker(opts MarkerOptions) MarkerHandle      { return new(headlessHandle) }
func (s *headlessSurface) AddPolyline(opts PolylineOptions) OverlayHandle { return new(headlessHandle) }
func (s *headlessSurface) AddPolygon(opts PolygonOptions) OverlayHandle   { return new(headlessHandle) }
func (s *headlessSurface) AddTileOverlay(opts TileOverlayOptions) OverlayHandle {
	return new(headlessHandle)
}

func (s *headlessSurface) CloseInfoWindow() {}

func (s *headlessSurface) SetOnCameraChange(fn func(geo.CameraPosition)) { s.onCameraChange = fn }
func (s *headlessSurface) SetOnMarkerClick(fn func(MarkerHandle))        {}
func (s *headlessSurface) SetOnInfoWindowClick(fn func(MarkerHandle))    {}

func (s *headlessSurface) Release() { s.onCameraChange = nil }

// HeadlessLocationProvider has no positioning hardware.
type HeadlessLocationProvider struct{}

// LastKnownFix implements LocationProvider.
func (HeadlessLocationProvider) LastKnownFix(provider string) *Fix { return nil }

// Subscribe implements LocationProvider.
func (HeadlessLocationProvider) Subscribe(provider string, minInterval time.Duration, minDistanceM float64, fn func(Fix)) (func(), error) {
	return nil, errors.New("no location provider in headless mode")
}
