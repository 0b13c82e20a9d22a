// Package mapwidget drives native map surfaces on behalf of the web layer:
// camera, markers, overlays, tile observation, info windows and map buttons.
package mapwidget

import (
	"context"

	"github.com/opentravelmate/bridge-go/internal/domain/widget"
	"github.com/opentravelmate/bridge-go/internal/platform/native"
)

// session is the per-place-holder state of one live map. All fields are
// owned by the UI thread; the controller only ever touches them from posted
// closures.
type session struct {
	id   string
	view native.View

	// surface stays nil until the map engine reports readiness. Operations
	// arriving before that queue up and replay once, in order.
	surface    native.MapSurface
	whenReady  []func()
	readyFired bool

	// Operations arriving while the place-holder is hidden queue up and
	// replay once, in order, when it becomes visible again.
	visible   bool
	postponed []func()

	markers   map[int]*markerEntry
	handleIDs map[native.MarkerHandle]int
	polylines map[int]native.OverlayHandle
	polygons  map[int]native.OverlayHandle
	tiles     map[int]native.OverlayHandle
	auxMarker native.MarkerHandle
	buttons   *buttonStack
	observer  *tileObserver
	observing bool

	// ctx scopes the session's background downloads; cancelled on removal.
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

type markerEntry struct {
	marker widget.Marker
	handle native.MarkerHandle
}

func newSession(id string, view native.View, visible bool) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		id:        id,
		view:      view,
		visible:   visible,
		markers:   make(map[int]*markerEntry),
		handleIDs: make(map[native.MarkerHandle]int),
		polylines: make(map[int]native.OverlayHandle),
		polygons:  make(map[int]native.OverlayHandle),
		tiles:     make(map[int]native.OverlayHandle),
		buttons:   newButtonStack(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// do runs op now when the session is visible and the surface is ready, and
// queues it otherwise. Queued operations keep their submission order.
func (s *session) do(op func()) {
	if !s.visible {
		s.postponed = append(s.postponed, op)
		return
	}
	if s.surface == nil {
		s.whenReady = append(s.whenReady, op)
		return
	}
	op()
}

// setVisible applies a visibility transition. Becoming visible replays the
// postponed queue exactly once; operations still lacking a ready surface
// re-queue onto the ready gate.
func (s *session) setVisible(visible bool) {
	wasVisible := s.visible
	s.visible = visible
	if visible && !wasVisible {
		queued := s.postponed
		s.postponed = nil
		for _, op := range queued {
			s.do(op)
		}
	}
}

// setSurface opens the one-shot ready gate and replays the ready queue. A
// surface arriving after close is released straight away.
func (s *session) setSurface(surface native.MapSurface) {
	if s.closed {
		surface.Release()
		return
	}
	if s.readyFired {
		return
	}
	s.readyFired = true
	s.surface = surface
	queued := s.whenReady
	s.whenReady = nil
	for _, op := range queued {
		s.do(op)
	}
}

// close cancels the session's background work, drops queued operations,
// detaches the surface listeners and releases the surface. Event closures
// already posted find the observer gone and stay silent.
func (s *session) close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.postponed = nil
	s.whenReady = nil
	s.observer = nil
	s.observing = false
	s.markers = nil
	s.handleIDs = nil
	if s.surface != nil {
		s.surface.SetOnCameraChange(nil)
		s.surface.SetOnMarkerClick(nil)
		s.surface.SetOnInfoWindowClick(nil)
		s.surface.Release()
		s.surface = nil
	}
}
