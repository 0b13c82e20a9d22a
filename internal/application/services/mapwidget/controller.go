package mapwidget

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/opentravelmate/bridge-go/internal/application/services/layout"
	"github.com/opentravelmate/bridge-go/internal/domain/geo"
	"github.com/opentravelmate/bridge-go/internal/domain/widget"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/caching"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/messaging"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/report"
	"github.com/opentravelmate/bridge-go/internal/platform/native"
	"github.com/opentravelmate/bridge-go/internal/platform/uithread"
	"github.com/opentravelmate/bridge-go/internal/platform/workers"
	"github.com/opentravelmate/bridge-go/pkg/config"
)

const (
	polylineZIndex = 2000
	polygonZIndex  = 1000
)

// Tile and marker event types delivered to the web layer.
const (
	TileEventDisplayed = "TILES_DISPLAYED"
	TileEventReleased  = "TILES_RELEASED"
	MarkerEventClick   = "CLICK"
)

// Controller manages every live map place-holder. Public methods are safe
// to call from any goroutine; all surface work crosses the UI thread, and
// operations against hidden or not-yet-ready maps queue per session.
type Controller struct {
	loop     *uithread.Loop
	engine   native.MapEngine
	layout   *layout.Engine
	bus      messaging.Publisher
	loader   *iconLoader
	baseURL  func() string
	logger   *logging.ChanneledLogger
	reporter report.Listener

	mu       sync.Mutex
	sessions map[string]*session
}

// NewController wires a map controller. baseURL resolves the embedded
// server's origin for tile URL rewriting; it is a function because the
// ephemeral port is only known once the server listens.
func NewController(
	loop *uithread.Loop,
	engine native.MapEngine,
	layoutEngine *layout.Engine,
	bus messaging.Publisher,
	pool *workers.Pool,
	client *http.Client,
	iconCache *caching.IconCache,
	baseURL func() string,
	logger *logging.ChanneledLogger,
	reporter report.Listener,
) *Controller {
	return &Controller{
		loop:    loop,
		engine:  engine,
		layout:  layoutEngine,
		bus:     bus,
		baseURL: baseURL,
		loader: &iconLoader{
			pool:     pool,
			client:   client,
			cache:    iconCache,
			logger:   logger,
			reporter: reporter,
		},
		logger:   logger,
		reporter: reporter,
		sessions: make(map[string]*session),
	}
}

// BuildView registers the place-holder with the layout engine and starts
// the asynchronous surface creation. Operations submitted before the engine
// reports readiness queue up and replay in order.
func (c *Controller) BuildView(params widget.LayoutParams, view native.View) {
	c.layout.AddPlaceHolder(params, view)

	s := newSession(params.ID, view, params.Visible)
	c.mu.Lock()
	if old, exists := c.sessions[params.ID]; exists {
		// Session state is UI-thread-owned, so teardown crosses the loop.
		c.loop.Post(old.close)
		c.logger.MapWidget().Warn("Replacing existing map session", "id", params.ID)
	}
	c.sessions[params.ID] = s
	c.mu.Unlock()

	opts := native.SurfaceOptions{Camera: geo.CameraPosition{
		Target: geo.LatLng{Lat: config.DefaultMapLatitude, Lng: config.DefaultMapLongitude},
		Zoom:   config.DefaultMapZoom,
	}}

	// On readiness timeout the session is abandoned entirely. Queued
	// operations must not run against an engine that reports ready late.
	readyTimer := time.AfterFunc(config.MapReadyTimeout, func() {
		err := fmt.Errorf("map surface %q not ready after %s", params.ID, config.MapReadyTimeout)
		c.logger.MapWidget().Error("Map readiness timeout", "id", params.ID)
		c.reporter.OnException(true, err)
		c.loop.Post(func() {
			c.mu.Lock()
			abandoned := c.sessions[params.ID] == s
			if abandoned {
				delete(c.sessions, params.ID)
			}
			c.mu.Unlock()
			if abandoned {
				s.close()
			}
		})
	})

	c.loop.Post(func() {
		c.engine.CreateSurface(opts, view, func(surface native.MapSurface) {
			readyTimer.Stop()
			c.loop.Post(func() {
				s.setSurface(surface)
				c.logger.MapWidget().Info("Map surface ready", "id", params.ID)
			})
		})
	})
}

// UpdateView applies new layout params to the place-holder. A transition to
// visible replays the session's postponed operations.
func (c *Controller) UpdateView(params widget.LayoutParams) error {
	if err := c.layout.UpdatePlaceHolder(params); err != nil {
		return err
	}
	c.withSession(params.ID, func(s *session) {
		s.setVisible(params.Visible)
		c.publishButtonLayout(s)
	})
	return nil
}

// RemoveView tears the session down and unregisters the place-holder.
func (c *Controller) RemoveView(placeHolderID string) {
	c.mu.Lock()
	s, ok := c.sessions[placeHolderID]
	delete(c.sessions, placeHolderID)
	c.mu.Unlock()
	if ok {
		c.loop.Post(s.close)
	}
	c.layout.RemovePlaceHolder(placeHolderID)
}

// PanTo animates the camera to a new center, keeping the current zoom.
func (c *Controller) PanTo(placeHolderID string, target geo.LatLng) {
	c.sessionOp(placeHolderID, func(s *session) {
		camera := s.surface.Camera()
		camera.Target = target
		s.surface.AnimateCamera(camera)
	})
}

// PanToBounds moves and zooms the camera so the bounds fit the viewport.
func (c *Controller) PanToBounds(placeHolderID string, bounds geo.Bounds) {
	c.sessionOp(placeHolderID, func(s *session) {
		s.surface.FitBounds(bounds, config.PanToBoundsPaddingPx)
	})
}

// Zoom returns the current zoom level, or the configured default when the
// surface is not ready yet.
func (c *Controller) Zoom(placeHolderID string) (float64, error) {
	return uithread.Call(c.loop, config.SyncQueryTimeout, func() float64 {
		s := c.session(placeHolderID)
		if s == nil || s.surface == nil {
			return config.DefaultMapZoom
		}
		return s.surface.Camera().Zoom
	})
}

// VisibleBounds returns the bounds of the current viewport.
func (c *Controller) VisibleBounds(placeHolderID string) (geo.Bounds, error) {
	return uithread.Call(c.loop, config.SyncQueryTimeout, func() geo.Bounds {
		s := c.session(placeHolderID)
		if s == nil || s.surface == nil {
			return geo.Bounds{}
		}
		frame := s.view.Frame()
		return geo.BoundsAround(s.surface.Camera(), frame.WidthPx(), frame.HeightPx())
	})
}

// SetMapType switches the base layer rendering.
func (c *Controller) SetMapType(placeHolderID, mapType string) {
	c.sessionOp(placeHolderID, func(s *session) {
		s.surface.SetMapType(mapType)
	})
}

// AddMarkers realizes markers on the map. A marker id already in use
// replaces the existing marker. Icons resolve asynchronously; the marker
// appears once its icon is ready.
func (c *Controller) AddMarkers(placeHolderID string, markers []widget.Marker) {
	for _, marker := range markers {
		marker := marker
		c.sessionOp(placeHolderID, func(s *session) {
			if marker.Icon == nil {
				c.realizeMarker(s, marker, nil)
				return
			}
			icon := *marker.Icon
			c.loader.load(s.ctx, icon, func(bitmap *native.IconBitmap) {
				c.withSession(placeHolderID, func(s *session) {
					s.do(func() { c.realizeMarker(s, marker, bitmap) })
				})
			})
		})
	}
}

// realizeMarker adds the marker to the surface, replacing any marker that
// already carries the same id. Runs on the UI thread with a ready surface.
func (c *Controller) realizeMarker(s *session, marker widget.Marker, bitmap *native.IconBitmap) {
	if old, ok := s.markers[marker.ID]; ok {
		old.handle.Remove()
		delete(s.handleIDs, old.handle)
		c.logger.MapWidget().Warn("Replacing marker with duplicate id",
			"id", s.id, "markerId", marker.ID)
	}

	opts := native.MarkerOptions{
		Position: marker.Position,
		Title:    marker.Title,
		Icon:     bitmap,
	}
	if marker.Icon != nil && bitmap != nil {
		if w, h := marker.Icon.Size.Width, marker.Icon.Size.Height; w > 0 && h > 0 {
			opts.AnchorU = marker.Icon.Anchor.X / float64(w)
			opts.AnchorV = marker.Icon.Anchor.Y / float64(h)
		}
	}
	handle := s.surface.AddMarker(opts)
	s.markers[marker.ID] = &markerEntry{marker: marker, handle: handle}
	s.handleIDs[handle] = marker.ID
}

// RemoveMarkers removes markers by id. Unknown ids are ignored.
func (c *Controller) RemoveMarkers(placeHolderID string, markers []widget.Marker) {
	for _, marker := range markers {
		markerID := marker.ID
		c.sessionOp(placeHolderID, func(s *session) {
			entry, ok := s.markers[markerID]
			if !ok {
				return
			}
			entry.handle.Remove()
			delete(s.markers, markerID)
			delete(s.handleIDs, entry.handle)
		})
	}
}

// AddPolylines draws polylines above every polygon.
func (c *Controller) AddPolylines(placeHolderID string, polylines []widget.Polyline) {
	for _, polyline := range polylines {
		polyline := polyline
		c.sessionOp(placeHolderID, func(s *session) {
			if old, ok := s.polylines[polyline.ID]; ok {
				old.Remove()
			}
			s.polylines[polyline.ID] = s.surface.AddPolyline(native.PolylineOptions{
				Path:   polyline.Path,
				Color:  polyline.Color,
				Width:  polyline.Width,
				ZIndex: polylineZIndex,
			})
		})
	}
}

// RemovePolylines removes polylines by id.
func (c *Controller) RemovePolylines(placeHolderID string, polylines []widget.Polyline) {
	for _, polyline := range polylines {
		polylineID := polyline.ID
		c.sessionOp(placeHolderID, func(s *session) {
			if handle, ok := s.polylines[polylineID]; ok {
				handle.Remove()
				delete(s.polylines, polylineID)
			}
		})
	}
}

// AddPolygons draws polygons above tile overlays and below polylines.
func (c *Controller) AddPolygons(placeHolderID string, polygons []widget.Polygon) {
	for _, polygon := range polygons {
		polygon := polygon
		c.sessionOp(placeHolderID, func(s *session) {
			if old, ok := s.polygons[polygon.ID]; ok {
				old.Remove()
			}
			s.polygons[polygon.ID] = s.surface.AddPolygon(native.PolygonOptions{
				Path:        polygon.Path,
				FillColor:   polygon.FillColor,
				StrokeColor: polygon.StrokeColor,
				StrokeWidth: polygon.StrokeWidth,
				ZIndex:      polygonZIndex,
			})
		})
	}
}

// RemovePolygons removes polygons by id.
func (c *Controller) RemovePolygons(placeHolderID string, polygons []widget.Polygon) {
	for _, polygon := range polygons {
		polygonID := polygon.ID
		c.sessionOp(placeHolderID, func(s *session) {
			if handle, ok := s.polygons[polygonID]; ok {
				handle.Remove()
				delete(s.polygons, polygonID)
			}
		})
	}
}

// AddTileOverlay layers URL-templated tiles on the map. Overlays with the
// grayscale filter enabled route their tiles through the image proxy.
func (c *Controller) AddTileOverlay(placeHolderID string, overlay widget.TileOverlay) {
	c.sessionOp(placeHolderID, func(s *session) {
		if old, ok := s.tiles[overlay.ID]; ok {
			old.Remove()
		}
		s.tiles[overlay.ID] = s.surface.AddTileOverlay(native.TileOverlayOptions{
			Provider: c.tileProvider(overlay),
			ZIndex:   overlay.ZIndex,
		})
	})
}

// RemoveTileOverlay removes a tile overlay by id.
func (c *Controller) RemoveTileOverlay(placeHolderID string, overlayID int) {
	c.sessionOp(placeHolderID, func(s *session) {
		if handle, ok := s.tiles[overlayID]; ok {
			handle.Remove()
			delete(s.tiles, overlayID)
		}
	})
}

// tileProvider resolves the overlay's URL pattern per tile, rewriting the
// URL through the image proxy when the grayscale filter is on.
func (c *Controller) tileProvider(overlay widget.TileOverlay) native.TileProvider {
	return func(tile geo.TileCoordinates) string {
		resolved := strings.NewReplacer(
			"${zoom}", fmt.Sprintf("%d", tile.Zoom),
			"${x}", fmt.Sprintf("%d", tile.X),
			"${y}", fmt.Sprintf("%d", tile.Y),
		).Replace(overlay.TileURLPattern)
		if !overlay.EnableGrayscaleFilter {
			return resolved
		}
		return c.baseURL() + "/image/source/" + url.PathEscape(resolved) + "?filter=grayscale"
	}
}

// ObserveTiles starts publishing tile display and release events for the
// place-holder. The initial displayed set is published immediately.
func (c *Controller) ObserveTiles(placeHolderID string) {
	c.sessionOp(placeHolderID, func(s *session) {
		if s.observer != nil {
			return
		}
		s.observer = newTileObserver()
		c.installCameraListener(s)
		c.updateTiles(s, s.surface.Camera())
	})
}

// DisplayedTileCoordinates returns the currently displayed tile set.
func (c *Controller) DisplayedTileCoordinates(placeHolderID string) ([]geo.TileCoordinates, error) {
	return uithread.Call(c.loop, config.SyncQueryTimeout, func() []geo.TileCoordinates {
		s := c.session(placeHolderID)
		if s == nil || s.observer == nil {
			return nil
		}
		return s.observer.current()
	})
}

func (c *Controller) installCameraListener(s *session) {
	s.surface.SetOnCameraChange(func(camera geo.CameraPosition) {
		c.loop.Post(func() {
			if s.observer != nil {
				c.updateTiles(s, camera)
			}
		})
	})
}

func (c *Controller) updateTiles(s *session, camera geo.CameraPosition) {
	frame := s.view.Frame()
	displayed, released := s.observer.update(camera, frame.WidthPx(), frame.HeightPx())
	if len(displayed) > 0 {
		c.bus.Publish("map", "fireTileEvent", tileEvent{
			PlaceHolderID: s.id, Type: TileEventDisplayed, Tiles: displayed,
		})
	}
	if len(released) > 0 {
		c.bus.Publish("map", "fireTileEvent", tileEvent{
			PlaceHolderID: s.id, Type: TileEventReleased, Tiles: released,
		})
	}
}

type tileEvent struct {
	PlaceHolderID string                `json:"placeHolderId"`
	Type          string                `json:"type"`
	Tiles         []geo.TileCoordinates `json:"tiles"`
}

// ObserveMarkers starts publishing marker click and info window click
// events for the place-holder.
func (c *Controller) ObserveMarkers(placeHolderID string) {
	c.sessionOp(placeHolderID, func(s *session) {
		if s.observing {
			return
		}
		s.observing = true
		s.surface.SetOnMarkerClick(func(handle native.MarkerHandle) {
			c.loop.Post(func() {
				markerID, ok := s.handleIDs[handle]
				if !ok {
					return
				}
				c.bus.Publish("map", "fireMarkerEvent", markerEvent{
					PlaceHolderID: s.id, Type: MarkerEventClick,
					Marker: s.markers[markerID].marker,
				})
			})
		})
		s.surface.SetOnInfoWindowClick(func(handle native.MarkerHandle) {
			c.loop.Post(func() {
				markerID, ok := s.handleIDs[handle]
				if !ok {
					return
				}
				c.bus.Publish("map", "fireInfoWindowClickEvent", infoWindowEvent{
					PlaceHolderID: s.id, MarkerID: markerID,
				})
			})
		})
	})
}

type markerEvent struct {
	PlaceHolderID string        `json:"placeHolderId"`
	Type          string        `json:"type"`
	Marker        widget.Marker `json:"marker"`
}

type infoWindowEvent struct {
	PlaceHolderID string `json:"placeHolderId"`
	MarkerID      int    `json:"markerId"`
}

// ShowInfoWindow opens an info window over a marker and scrolls the camera
// so the window is fully visible. A non-nil anchor offsets the window from
// the marker position by the given pixels, realized through an invisible
// auxiliary marker.
func (c *Controller) ShowInfoWindow(placeHolderID string, marker widget.Marker, content string, anchor *widget.Point) {
	c.sessionOp(placeHolderID, func(s *session) {
		if s.auxMarker != nil {
			s.auxMarker.Remove()
			s.auxMarker = nil
		}

		camera := s.surface.Camera()
		position := marker.Position

		var target native.MarkerHandle
		if anchor != nil {
			position = offsetPosition(camera, marker.Position, anchor.X, anchor.Y)
			s.auxMarker = s.surface.AddMarker(native.MarkerOptions{
				Position:  position,
				Invisible: true,
			})
			target = s.auxMarker
		} else if entry, ok := s.markers[marker.ID]; ok {
			target = entry.handle
		} else {
			c.logger.MapWidget().Warn("Info window requested for unknown marker",
				"id", s.id, "markerId", marker.ID)
			return
		}

		target.ShowInfoWindow(content)

		frame := s.view.Frame()
		windowW, windowH := measureInfoWindow(content)
		dx, dy := infoWindowScroll(camera, position, frame.WidthPx(), frame.HeightPx(), windowW, windowH)
		if dx != 0 || dy != 0 {
			s.surface.ScrollBy(dx, dy)
		}
	})
}

// CloseInfoWindow closes any open info window.
func (c *Controller) CloseInfoWindow(placeHolderID string) {
	c.sessionOp(placeHolderID, func(s *session) {
		if s.auxMarker != nil {
			s.auxMarker.Remove()
			s.auxMarker = nil
		}
		s.surface.CloseInfoWindow()
	})
}

// AddMapButton stacks a new button in the map's top-right corner.
func (c *Controller) AddMapButton(placeHolderID string, button widget.MapButton) {
	c.withSession(placeHolderID, func(s *session) {
		s.buttons.add(button)
		c.publishButtonLayout(s)
	})
}

// UpdateMapButton replaces a button's tooltip and icon, keeping its slot.
func (c *Controller) UpdateMapButton(placeHolderID string, button widget.MapButton) {
	c.withSession(placeHolderID, func(s *session) {
		if !s.buttons.update(button) {
			c.logger.MapWidget().Warn("Update for unknown map button",
				"id", s.id, "buttonId", button.ID)
			return
		}
		c.publishButtonLayout(s)
	})
}

// RemoveMapButton removes a button; the buttons below shift up.
func (c *Controller) RemoveMapButton(placeHolderID string, buttonID int) {
	c.withSession(placeHolderID, func(s *session) {
		if !s.buttons.remove(buttonID) {
			return
		}
		c.publishButtonLayout(s)
	})
}

// MapButtonClicked publishes a button click to the web layer. Platform glue
// calls this when the user taps a rendered button.
func (c *Controller) MapButtonClicked(placeHolderID string, buttonID int) {
	c.withSession(placeHolderID, func(s *session) {
		if _, ok := s.buttons.get(buttonID); !ok {
			return
		}
		c.bus.Publish("map", "fireMapButtonClickEvent", mapButtonClickEvent{
			PlaceHolderID: s.id, ButtonID: buttonID,
		})
	})
}

// publishButtonLayout emits the full button stack with pixel rectangles so
// the rendering side can (re)place every button.
func (c *Controller) publishButtonLayout(s *session) {
	frame := s.view.Frame()
	rects := s.buttons.rects(frame.WidthPx(), frame.HeightPx())

	placed := make([]placedMapButton, 0, len(s.buttons.order))
	for _, id := range s.buttons.order {
		placed = append(placed, placedMapButton{
			Button: s.buttons.buttons[id],
			Rect:   rects[id],
		})
	}
	c.bus.Publish("map", "fireMapButtonsChangedEvent", mapButtonsChangedEvent{
		PlaceHolderID: s.id, Buttons: placed,
	})
}

type placedMapButton struct {
	Button widget.MapButton `json:"button"`
	Rect   widget.PixelRect `json:"rect"`
}

type mapButtonsChangedEvent struct {
	PlaceHolderID string            `json:"placeHolderId"`
	Buttons       []placedMapButton `json:"buttons"`
}

type mapButtonClickEvent struct {
	PlaceHolderID string `json:"placeHolderId"`
	ButtonID      int    `json:"buttonId"`
}

// session looks a session up; UI thread only.
func (c *Controller) session(placeHolderID string) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[placeHolderID]
}

// withSession posts op to the UI thread against the named session.
func (c *Controller) withSession(placeHolderID string, op func(*session)) {
	c.loop.Post(func() {
		s := c.session(placeHolderID)
		if s == nil {
			c.logger.MapWidget().Warn("Operation on unknown map place-holder", "id", placeHolderID)
			return
		}
		op(s)
	})
}

// sessionOp posts op through the session's visibility and readiness gates.
func (c *Controller) sessionOp(placeHolderID string, op func(*session)) {
	c.withSession(placeHolderID, func(s *session) {
		s.do(func() { op(s) })
	})
}
