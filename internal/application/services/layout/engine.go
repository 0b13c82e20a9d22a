// Package layout positions native views over their HTML place-holders.
package layout

import (
	"fmt"
	"sync"

	"github.com/opentravelmate/bridge-go/internal/domain/widget"
	"github.com/opentravelmate/bridge-go/internal/infrastructure/observability/logging"
	"github.com/opentravelmate/bridge-go/internal/platform/native"
)

// Engine tracks every registered place-holder and projects its fractional
// layout into pixel frames whenever the window geometry is (re)applied. The
// main web surface always spans the full window and sits behind the native
// widgets, so it is arranged first.
type Engine struct {
	mu sync.Mutex

	mainSurface  native.View
	entries      map[string]*entry
	order        []string
	windowWidth  int
	windowHeight int

	logger *logging.ChanneledLogger
}

type entry struct {
	params widget.LayoutParams
	view   native.View
}

// NewEngine creates a layout engine. mainSurface may be nil when the host
// positions the web surface itself.
func NewEngine(mainSurface native.View, logger *logging.ChanneledLogger) *Engine {
	return &Engine{
		mainSurface: mainSurface,
		entries:     make(map[string]*entry),
		logger:      logger,
	}
}

// AddPlaceHolder registers a native view under the place-holder id carried
// by params and positions it immediately. Registering an id twice replaces
// the previous view.
func (e *Engine) AddPlaceHolder(params widget.LayoutParams, view native.View) {
	e.mu.Lock()
	defer e.mu.Unlock()

	params = e.clamped(params)
	if _, exists := e.entries[params.ID]; exists {
		e.logger.Layout().Warn("Replacing already registered place-holder", "id", params.ID)
	} else {
		e.order = append(e.order, params.ID)
	}
	e.entries[params.ID] = &entry{params: params, view: view}

	e.adoptWindowLocked(params)
	e.applyLocked(e.entries[params.ID])
}

// UpdatePlaceHolder applies new layout params to an already registered
// place-holder.
func (e *Engine) UpdatePlaceHolder(params widget.LayoutParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.entries[params.ID]
	if !ok {
		return fmt.Errorf("no place-holder registered under %q", params.ID)
	}
	ent.params = e.clamped(params)
	e.adoptWindowLocked(params)
	e.applyLocked(ent)
	return nil
}

// RemovePlaceHolder unregisters the place-holder and returns its view so the
// caller can tear it down. The second result is false for unknown ids.
func (e *Engine) RemovePlaceHolder(id string) (native.View, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.entries[id]
	if !ok {
		return nil, false
	}
	delete(e.entries, id)
	for i, existing := range e.order {
		if existing == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return ent.view, true
}

// FindByPlaceHolderID returns the view registered under id.
func (e *Engine) FindByPlaceHolderID(id string) (native.View, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.entries[id]
	if !ok {
		return nil, false
	}
	return ent.view, true
}

// Params returns a copy of the layout params registered under id.
func (e *Engine) Params(id string) (widget.LayoutParams, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.entries[id]
	if !ok {
		return widget.LayoutParams{}, false
	}
	return ent.params, true
}

// Arrange applies the given window size to every registered view, main
// surface first, in registration order.
func (e *Engine) Arrange(windowWidth, windowHeight int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.windowWidth = windowWidth
	e.windowHeight = windowHeight

	if e.mainSurface != nil {
		e.mainSurface.SetFrame(widget.PixelRect{Right: windowWidth, Bottom: windowHeight})
	}
	for _, id := range e.order {
		e.applyLocked(e.entries[id])
	}
}

// WindowSize returns the last arranged window geometry.
func (e *Engine) WindowSize() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.windowWidth, e.windowHeight
}

func (e *Engine) adoptWindowLocked(params widget.LayoutParams) {
	// Layout payloads carry the window size the web layer measured; the
	// first one seen seeds the geometry before any explicit Arrange.
	if e.windowWidth == 0 && params.WindowWidth > 0 {
		e.windowWidth = params.WindowWidth
		e.windowHeight = params.WindowHeight
	}
}

func (e *Engine) applyLocked(ent *entry) {
	if e.windowWidth <= 0 || e.windowHeight <= 0 {
		return
	}
	if !ent.params.Visible {
		ent.view.SetFrame(widget.PixelRect{})
		return
	}
	ent.view.SetFrame(ent.params.PixelRectIn(e.windowWidth, e.windowHeight))
}

// clamped forces the fractional rectangle into the unit square. Out-of-range
// payloads come from mid-scroll measurements in the web layer; they are
// logged and corrected rather than rejected.
func (e *Engine) clamped(params widget.LayoutParams) widget.LayoutParams {
	orig := params
	params.X = clamp01(params.X)
	params.Y = clamp01(params.Y)
	params.Width = clamp01(params.Width)
	params.Height = clamp01(params.Height)
	if params.X+params.Width > 1 {
		params.Width = 1 - params.X
	}
	if params.Y+params.Height > 1 {
		params.Height = 1 - params.Y
	}
	changed := params.X != orig.X || params.Y != orig.Y ||
		params.Width != orig.Width || params.Height != orig.Height
	if changed && e.logger != nil {
		e.logger.Layout().Warn("Clamped out-of-range layout params",
			"id", orig.ID, "x", orig.X, "y", orig.Y, "width", orig.Width, "height", orig.Height)
	}
	return params
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
