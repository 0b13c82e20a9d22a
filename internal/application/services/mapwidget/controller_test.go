package mapwidget

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/opentravelmate/bridge-go/internal/application/services/layout"
	"github.com/opentravelmate/bridge-go/internal/domain/geo"
	"github.com/opentravelmate/bridge-go/internal/domain/widget"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/caching"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/report"
	"github.com/opentravelmate/bridge-go/internal/platform/native"
	"github.com/opentravelmate/bridge-go/internal/platform/uithread"
	"github.com/opentravelmate/bridge-go/internal/platform/workers"
	"github.com/opentravelmate/bridge-go/pkg/config"
)

type fakeView struct {
	frame widget.PixelRect
}

func (v *fakeView) SetFrame(rect widget.PixelRect) { v.frame = rect }
func (v *fakeView) Frame() widget.PixelRect        { return v.frame }

type fakeMarkerHandle struct {
	surface    *fakeSurface
	opts       native.MarkerOptions
	removed    bool
	infoShown  string
	infoOpened int
}

func (h *fakeMarkerHandle) Remove() { h.removed = true }
func (h *fakeMarkerHandle) ShowInfoWindow(content string) {
	h.infoShown = content
	h.infoOpened++
}

type fakeOverlayHandle struct {
	removed bool
}

func (h *fakeOverlayHandle) Remove() { h.removed = true }

type fakeSurface struct {
	camera       geo.CameraPosition
	mapType      string
	markers      []*fakeMarkerHandle
	polylines    []*fakeOverlayHandle
	polygons     []*fakeOverlayHandle
	tileOverlays []*fakeOverlayHandle
	tileOpts     []native.TileOverlayOptions
	scrolls      [][2]int
	fitBounds    []geo.Bounds

	onCameraChange   func(geo.CameraPosition)
	onMarkerClick    func(native.MarkerHandle)
	onInfoWindowTap  func(native.MarkerHandle)
	infoWindowClosed int
	released         bool
}

func (s *fakeSurface) Camera() geo.CameraPosition              { return s.camera }
func (s *fakeSurface) AnimateCamera(camera geo.CameraPosition) { s.camera = camera }
func (s *fakeSurface) FitBounds(bounds geo.Bounds, paddingPx int) {
	s.fitBounds = append(s.fitBounds, bounds)
}
func (s *fakeSurface) ScrollBy(dxPx, dyPx int) { s.scrolls = append(s.scrolls, [2]int{dxPx, dyPx}) }
func (s *fakeSurface) SetMapType(mapType string) { s.mapType = mapType }

func (s *fakeSurface) AddMarker(opts native.MarkerOptions) native.MarkerHandle {
	h := &fakeMarkerHandle{surface: s, opts: opts}
	s.markers = append(s.markers, h)
	return h
}

func (s *fakeSurface) AddPolyline(opts native.PolylineOptions) native.OverlayHandle {
	h := &fakeOverlayHandle{}
	s.polylines = append(s.polylines, h)
	return h
}

func (s *fakeSurface) AddPolygon(opts native.PolygonOptions) native.OverlayHandle {
	h := &fakeOverlayHandle{}
	s.polygons = append(s.polygons, h)
	return h
}

func (s *fakeSurface) AddTileOverlay(opts native.TileOverlayOptions) native.OverlayHandle {
	h := &fakeOverlayHandle{}
	s.tileOverlays = append(s.tileOverlays, h)
	s.tileOpts = append(s.tileOpts, opts)
	return h
}

func (s *fakeSurface) CloseInfoWindow() { s.infoWindowClosed++ }

func (s *fakeSurface) SetOnCameraChange(fn func(geo.CameraPosition))     { s.onCameraChange = fn }
func (s *fakeSurface) SetOnMarkerClick(fn func(native.MarkerHandle))     { s.onMarkerClick = fn }
func (s *fakeSurface) SetOnInfoWindowClick(fn func(native.MarkerHandle)) { s.onInfoWindowTap = fn }

func (s *fakeSurface) Release() {
	s.released = true
	s.onCameraChange = nil
	s.onMarkerClick = nil
	s.onInfoWindowTap = nil
}

type fakeEngine struct {
	mu      sync.Mutex
	surface *fakeSurface
	onReady func(native.MapSurface)
}

func (e *fakeEngine) CreateSurface(opts native.SurfaceOptions, view native.View, onReady func(native.MapSurface)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.surface = &fakeSurface{camera: opts.Camera}
	e.onReady = onReady
}

// peek returns the created surface without firing readiness.
func (e *fakeEngine) peek() *fakeSurface {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface
}

// ready fires the engine's readiness callback.
func (e *fakeEngine) ready() *fakeSurface {
	e.mu.Lock()
	surface, onReady := e.surface, e.onReady
	e.mu.Unlock()
	onReady(surface)
	return surface
}

type recordedEvent struct {
	Module  string
	Fn      string
	Payload []byte
}

type fakeBus struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBus) Publish(module, fn string, payload any) {
	raw, _ := json.Marshal(payload)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{Module: module, Fn: fn, Payload: raw})
}

func (b *fakeBus) byFn(fn string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, ev := range b.events {
		if ev.Fn == fn {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	controller *Controller
	loop       *uithread.Loop
	engine     *fakeEngine
	bus        *fakeBus
	pool       *workers.Pool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToConsole = false
	logger, err := logging.NewChanneledLogger(cfg)
	if err != nil {
		t.Fatalf("NewChanneledLogger: %v", err)
	}

	loop := uithread.NewLoop()
	t.Cleanup(loop.Stop)
	pool := workers.NewPool(2)
	t.Cleanup(pool.Shutdown)

	engine := &fakeEngine{}
	bus := &fakeBus{}
	controller := NewController(
		loop, engine, layout.NewEngine(nil, logger), bus, pool,
		&http.Client{Timeout: time.Second},
		caching.NewIconCache(config.IconCacheCapacity),
		func() string { return "http://127.0.0.1:18080" },
		logger, report.Discard,
	)
	return &fixture{controller: controller, loop: loop, engine: engine, bus: bus, pool: pool}
}

// sync waits until every operation posted so far has executed.
func (f *fixture) sync(t *testing.T) {
	t.Helper()
	if _, err := uithread.Call(f.loop, 5*time.Second, func() struct{} { return struct{}{} }); err != nil {
		t.Fatalf("uithread sync: %v", err)
	}
}

func buildParams(id string, visible bool) widget.LayoutParams {
	return widget.LayoutParams{
		ID: id, X: 0, Y: 0, Width: 1, Height: 1,
		Visible: visible, WindowWidth: 512, WindowHeight: 512,
	}
}

func (f *fixture) buildReadyMap(t *testing.T, id string) *fakeSurface {
	t.Helper()
	view := &fakeView{frame: widget.PixelRect{Right: 512, Bottom: 512}}
	f.controller.BuildView(buildParams(id, true), view)
	f.sync(t)
	surface := f.engine.ready()
	f.sync(t)
	return surface
}

func TestOperationsQueueUntilSurfaceReady(t *testing.T) {
	f := newFixture(t)
	view := &fakeView{frame: widget.PixelRect{Right: 512, Bottom: 512}}
	f.controller.BuildView(buildParams("map1", true), view)
	f.sync(t)

	f.controller.SetMapType("map1", "satellite")
	f.controller.PanTo("map1", geo.LatLng{Lat: 48.85, Lng: 2.35})
	f.sync(t)

	surface := f.engine.peek()
	if surface.mapType != "" {
		t.Fatal("operation ran before surface was ready")
	}

	f.engine.ready()
	f.sync(t)
	if surface.mapType != "satellite" {
		t.Fatalf("mapType = %q, want satellite", surface.mapType)
	}
	if surface.camera.Target.Lat != 48.85 {
		t.Fatalf("camera target = %+v, want panned position", surface.camera.Target)
	}
}

func TestHiddenMapPostponesOperationsInOrder(t *testing.T) {
	f := newFixture(t)
	view := &fakeView{frame: widget.PixelRect{Right: 512, Bottom: 512}}
	f.controller.BuildView(buildParams("map1", false), view)
	f.sync(t)
	surface := f.engine.ready()
	f.sync(t)

	f.controller.SetMapType("map1", "satellite")
	f.controller.PanTo("map1", geo.LatLng{Lat: 1, Lng: 1})
	f.controller.PanTo("map1", geo.LatLng{Lat: 2, Lng: 2})
	f.sync(t)
	if surface.mapType != "" {
		t.Fatal("operation ran against a hidden map")
	}

	if err := f.controller.UpdateView(buildParams("map1", true)); err != nil {
		t.Fatalf("UpdateView: %v", err)
	}
	f.sync(t)

	if surface.mapType != "satellite" {
		t.Fatal("postponed operation not replayed on show")
	}
	// Last pan wins, proving FIFO replay.
	if surface.camera.Target.Lat != 2 {
		t.Fatalf("camera target = %+v, want the later pan", surface.camera.Target)
	}

	// Replay happens exactly once.
	surface.mapType = ""
	if err := f.controller.UpdateView(buildParams("map1", false)); err != nil {
		t.Fatalf("UpdateView: %v", err)
	}
	if err := f.controller.UpdateView(buildParams("map1", true)); err != nil {
		t.Fatalf("UpdateView: %v", err)
	}
	f.sync(t)
	if surface.mapType != "" {
		t.Fatal("postponed operations replayed twice")
	}
}

func TestDuplicateMarkerIDReplaces(t *testing.T) {
	f := newFixture(t)
	surface := f.buildReadyMap(t, "map1")

	f.controller.AddMarkers("map1", []widget.Marker{
		{ID: 7, Position: geo.LatLng{Lat: 1, Lng: 1}, Title: "first"},
	})
	f.controller.AddMarkers("map1", []widget.Marker{
		{ID: 7, Position: geo.LatLng{Lat: 2, Lng: 2}, Title: "second"},
	})
	f.sync(t)

	if len(surface.markers) != 2 {
		t.Fatalf("markers created = %d, want 2", len(surface.markers))
	}
	if !surface.markers[0].removed {
		t.Fatal("first marker with duplicate id not removed")
	}
	if surface.markers[1].opts.Title != "second" {
		t.Fatalf("surviving marker = %q, want second", surface.markers[1].opts.Title)
	}
}

func TestRemoveMarkersIgnoresUnknownIDs(t *testing.T) {
	f := newFixture(t)
	surface := f.buildReadyMap(t, "map1")

	f.controller.AddMarkers("map1", []widget.Marker{{ID: 1, Title: "a"}})
	f.controller.RemoveMarkers("map1", []widget.Marker{{ID: 1}, {ID: 99}})
	f.sync(t)

	if len(surface.markers) != 1 || !surface.markers[0].removed {
		t.Fatal("known marker not removed")
	}
}

func TestTileObservationPublishesDiffs(t *testing.T) {
	f := newFixture(t)
	surface := f.buildReadyMap(t, "map1")
	surface.camera = geo.CameraPosition{Target: geo.LatLng{Lat: 49.6, Lng: 6.135}, Zoom: 13}

	f.controller.ObserveTiles("map1")
	f.sync(t)

	displayed := f.bus.byFn("fireTileEvent")
	if len(displayed) != 1 {
		t.Fatalf("tile events = %d, want initial displayed event", len(displayed))
	}
	var ev tileEvent
	if err := json.Unmarshal(displayed[0].Payload, &ev); err != nil {
		t.Fatalf("unmarshal tile event: %v", err)
	}
	if ev.Type != TileEventDisplayed || len(ev.Tiles) == 0 {
		t.Fatalf("initial event = %+v", ev)
	}

	// A pan inside the same center tile stays silent.
	surface.onCameraChange(surface.camera)
	f.sync(t)
	if got := len(f.bus.byFn("fireTileEvent")); got != 1 {
		t.Fatalf("tile events after same-tile pan = %d, want 1", got)
	}

	// Crossing into another center tile publishes displayed and released.
	moved := surface.camera
	moved.Target.Lng += 0.1
	surface.onCameraChange(moved)
	f.sync(t)
	events := f.bus.byFn("fireTileEvent")
	if len(events) != 3 {
		t.Fatalf("tile events after center change = %d, want 3", len(events))
	}

	tiles, err := f.controller.DisplayedTileCoordinates("map1")
	if err != nil {
		t.Fatalf("DisplayedTileCoordinates: %v", err)
	}
	if len(tiles) != len(ev.Tiles) {
		t.Fatalf("displayed set size = %d, want %d", len(tiles), len(ev.Tiles))
	}
}

func TestGrayscaleTileOverlayRoutesThroughProxy(t *testing.T) {
	f := newFixture(t)
	surface := f.buildReadyMap(t, "map1")

	f.controller.AddTileOverlay("map1", widget.TileOverlay{
		ID:                    1,
		TileURLPattern:        "http://tile.example.com/${zoom}/${x}/${y}.png",
		EnableGrayscaleFilter: true,
	})
	f.controller.AddTileOverlay("map1", widget.TileOverlay{
		ID:             2,
		TileURLPattern: "http://tile.example.com/${zoom}/${x}/${y}.png",
	})
	f.sync(t)

	if len(surface.tileOpts) != 2 {
		t.Fatalf("tile overlays = %d, want 2", len(surface.tileOpts))
	}
	tile := geo.TileCoordinates{Zoom: 13, X: 4235, Y: 2810}

	proxied := surface.tileOpts[0].Provider(tile)
	if want := "http://127.0.0.1:18080/image/source/"; len(proxied) < len(want) || proxied[:len(want)] != want {
		t.Fatalf("grayscale tile URL = %q, want proxied", proxied)
	}
	if !containsAll(proxied, "13", "4235", "2810", "filter=grayscale") {
		t.Fatalf("grayscale tile URL = %q missing substitutions", proxied)
	}

	direct := surface.tileOpts[1].Provider(tile)
	if direct != "http://tile.example.com/13/4235/2810.png" {
		t.Fatalf("direct tile URL = %q", direct)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		found := false
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestMarkerClickPublishesEvent(t *testing.T) {
	f := newFixture(t)
	surface := f.buildReadyMap(t, "map1")

	f.controller.AddMarkers("map1", []widget.Marker{{ID: 3, Title: "poi"}})
	f.controller.ObserveMarkers("map1")
	f.sync(t)

	surface.onMarkerClick(surface.markers[0])
	f.sync(t)

	events := f.bus.byFn("fireMarkerEvent")
	if len(events) != 1 {
		t.Fatalf("marker events = %d, want 1", len(events))
	}
	var ev markerEvent
	if err := json.Unmarshal(events[0].Payload, &ev); err != nil {
		t.Fatalf("unmarshal marker event: %v", err)
	}
	if ev.Type != MarkerEventClick || ev.Marker.ID != 3 {
		t.Fatalf("marker event = %+v", ev)
	}
}

func TestShowInfoWindowWithAnchorUsesAuxiliaryMarker(t *testing.T) {
	f := newFixture(t)
	surface := f.buildReadyMap(t, "map1")
	surface.camera = geo.CameraPosition{Target: geo.LatLng{Lat: 49.6, Lng: 6.135}, Zoom: 13}

	marker := widget.Marker{ID: 1, Position: geo.LatLng{Lat: 49.6, Lng: 6.135}}
	f.controller.AddMarkers("map1", []widget.Marker{marker})
	f.controller.ShowInfoWindow("map1", marker, "hello", &widget.Point{X: 0, Y: -20})
	f.sync(t)

	if len(surface.markers) != 2 {
		t.Fatalf("markers = %d, want marker plus auxiliary", len(surface.markers))
	}
	aux := surface.markers[1]
	if !aux.opts.Invisible {
		t.Fatal("auxiliary marker should be invisible")
	}
	if aux.infoShown != "hello" {
		t.Fatalf("info window content = %q", aux.infoShown)
	}
	if aux.opts.Position.Lat <= marker.Position.Lat {
		t.Fatalf("anchor offset up should move position north, got %+v", aux.opts.Position)
	}

	f.controller.CloseInfoWindow("map1")
	f.sync(t)
	if !aux.removed {
		t.Fatal("auxiliary marker not removed on close")
	}
	if surface.infoWindowClosed != 1 {
		t.Fatal("surface info window not closed")
	}
}

func TestMapButtonStacking(t *testing.T) {
	f := newFixture(t)
	f.buildReadyMap(t, "map1")

	f.controller.AddMapButton("map1", widget.MapButton{ID: 1, Tooltip: "a"})
	f.controller.AddMapButton("map1", widget.MapButton{ID: 2, Tooltip: "b"})
	f.controller.RemoveMapButton("map1", 1)
	f.sync(t)

	events := f.bus.byFn("fireMapButtonsChangedEvent")
	if len(events) != 3 {
		t.Fatalf("button layout events = %d, want 3", len(events))
	}
	var ev mapButtonsChangedEvent
	if err := json.Unmarshal(events[2].Payload, &ev); err != nil {
		t.Fatalf("unmarshal button event: %v", err)
	}
	if len(ev.Buttons) != 1 || ev.Buttons[0].Button.ID != 2 {
		t.Fatalf("final stack = %+v", ev.Buttons)
	}
	// The surviving button moved up into the first slot.
	want := widget.PixelRect{
		Left:   512 - config.MapButtonMarginRightPx - config.MapButtonWidthPx,
		Top:    config.MapButtonMarginTopPx,
		Right:  512 - config.MapButtonMarginRightPx,
		Bottom: config.MapButtonMarginTopPx + config.MapButtonHeightPx,
	}
	if ev.Buttons[0].Rect != want {
		t.Fatalf("rect = %+v, want %+v", ev.Buttons[0].Rect, want)
	}

	f.controller.MapButtonClicked("map1", 2)
	f.sync(t)
	if got := len(f.bus.byFn("fireMapButtonClickEvent")); got != 1 {
		t.Fatalf("click events = %d, want 1", got)
	}
}

func TestRemoveViewStopsTileEvents(t *testing.T) {
	f := newFixture(t)
	surface := f.buildReadyMap(t, "map1")
	surface.camera = geo.CameraPosition{Target: geo.LatLng{Lat: 49.6, Lng: 6.135}, Zoom: 13}

	f.controller.ObserveTiles("map1")
	f.sync(t)
	before := len(f.bus.byFn("fireTileEvent"))
	listener := surface.onCameraChange

	f.controller.RemoveView("map1")
	f.sync(t)
	if !surface.released {
		t.Fatal("surface not released on RemoveView")
	}
	if surface.onCameraChange != nil {
		t.Fatal("camera listener still installed after RemoveView")
	}

	// An engine callback racing the removal finds the observer gone.
	moved := surface.camera
	moved.Target.Lng += 0.1
	listener(moved)
	f.sync(t)
	if got := len(f.bus.byFn("fireTileEvent")) - before; got != 0 {
		t.Fatalf("tile events after RemoveView = %d, want 0", got)
	}
}

func TestBuildViewReplacesExistingSession(t *testing.T) {
	f := newFixture(t)
	first := f.buildReadyMap(t, "map1")

	view := &fakeView{frame: widget.PixelRect{Right: 512, Bottom: 512}}
	f.controller.BuildView(buildParams("map1", true), view)
	f.sync(t)
	if !first.released {
		t.Fatal("replaced session's surface not released")
	}

	second := f.engine.ready()
	f.sync(t)
	f.controller.SetMapType("map1", "satellite")
	f.sync(t)
	if second.mapType != "satellite" {
		t.Fatalf("mapType = %q, want satellite on the replacement surface", second.mapType)
	}
	if first.mapType != "" {
		t.Fatal("operation reached the replaced surface")
	}
}

func TestReadyTimeoutAbandonsQueuedOperations(t *testing.T) {
	oldTimeout := config.MapReadyTimeout
	config.MapReadyTimeout = 30 * time.Millisecond
	defer func() { config.MapReadyTimeout = oldTimeout }()

	f := newFixture(t)
	view := &fakeView{frame: widget.PixelRect{Right: 512, Bottom: 512}}
	f.controller.BuildView(buildParams("map1", true), view)
	f.controller.SetMapType("map1", "satellite")
	f.sync(t)

	time.Sleep(100 * time.Millisecond)
	f.sync(t)

	// The engine reporting ready after the deadline must not replay the
	// abandoned queue.
	surface := f.engine.ready()
	f.sync(t)
	if surface.mapType != "" {
		t.Fatal("queued operation ran after readiness timeout")
	}
	if !surface.released {
		t.Fatal("late surface not released")
	}

	zoom, err := f.controller.Zoom("map1")
	if err != nil {
		t.Fatalf("Zoom: %v", err)
	}
	if zoom != config.DefaultMapZoom {
		t.Fatalf("zoom = %v, want default for the abandoned map", zoom)
	}
}

func TestSyncQueriesFallBackBeforeReady(t *testing.T) {
	f := newFixture(t)
	view := &fakeView{frame: widget.PixelRect{Right: 512, Bottom: 512}}
	f.controller.BuildView(buildParams("map1", true), view)
	f.sync(t)

	zoom, err := f.controller.Zoom("map1")
	if err != nil {
		t.Fatalf("Zoom: %v", err)
	}
	if zoom != config.DefaultMapZoom {
		t.Fatalf("zoom = %v, want default %v", zoom, config.DefaultMapZoom)
	}
}

func TestVisibleBoundsMatchesProjection(t *testing.T) {
	f := newFixture(t)
	surface := f.buildReadyMap(t, "map1")
	surface.camera = geo.CameraPosition{Target: geo.LatLng{Lat: 49.6, Lng: 6.135}, Zoom: 13}

	bounds, err := f.controller.VisibleBounds("map1")
	if err != nil {
		t.Fatalf("VisibleBounds: %v", err)
	}
	want := geo.BoundsAround(surface.camera, 512, 512)
	if bounds != want {
		t.Fatalf("bounds = %+v, want %+v", bounds, want)
	}
	if bounds.SW.Lat >= bounds.NE.Lat || bounds.SW.Lng >= bounds.NE.Lng {
		t.Fatalf("degenerate bounds %+v", bounds)
	}
}
