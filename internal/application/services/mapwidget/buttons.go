package mapwidget

import (
	"github.com/opentravelmate/bridge-go/internal/domain/widget"
	"github.com/opentravelmate/bridge-go/pkg/config"
)

// buttonStack lays the map's buttons out as a vertical stack anchored to the
// top-right corner of the map frame. Removal closes gaps, so the remaining
// buttons shift up.
type buttonStack struct {
	order   []int
	buttons map[int]widget.MapButton
}

func newButtonStack() *buttonStack {
	return &buttonStack{buttons: make(map[int]widget.MapButton)}
}

// add registers a button. A re-used id replaces the definition but keeps the
// original stack slot.
func (b *buttonStack) add(button widget.MapButton) {
	if _, ok := b.buttons[button.ID]; !ok {
		b.order = append(b.order, button.ID)
	}
	b.buttons[button.ID] = button
}

// update replaces the definition of a known button. Unknown ids are ignored.
func (b *buttonStack) update(button widget.MapButton) bool {
	if _, ok := b.buttons[button.ID]; !ok {
		return false
	}
	b.buttons[button.ID] = button
	return true
}

// remove drops a button and closes its gap.
func (b *buttonStack) remove(buttonID int) bool {
	if _, ok := b.buttons[buttonID]; !ok {
		return false
	}
	delete(b.buttons, buttonID)
	for i, id := range b.order {
		if id == buttonID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// get returns a button by id.
func (b *buttonStack) get(buttonID int) (widget.MapButton, bool) {
	button, ok := b.buttons[buttonID]
	return button, ok
}

// rects returns the pixel rectangle of every button inside a map frame of
// the given size, keyed by button id.
func (b *buttonStack) rects(mapWidthPx, mapHeightPx int) map[int]widget.PixelRect {
	rects := make(map[int]widget.PixelRect, len(b.order))
	for i, id := range b.order {
		top := config.MapButtonMarginTopPx + i*(config.MapButtonHeightPx+config.MapButtonMarginTopPx)
		rects[id] = widget.PixelRect{
			Left:   mapWidthPx - config.MapButtonMarginRightPx - config.MapButtonWidthPx,
			Top:    top,
			Right:  mapWidthPx - config.MapButtonMarginRightPx,
			Bottom: top + config.MapButtonHeightPx,
		}
	}
	return rects
}
