package mapwidget

import (
	"math"

	"github.com/opentravelmate/bridge-go/internal/domain/geo"
)

// tileObserver tracks which tiles the web layer should consider displayed.
// The displayed set is the viewport's tile range plus a one-tile margin on
// every side; recomputation is gated on the camera's center tile changing,
// so small pans inside one tile stay silent.
type tileObserver struct {
	centerKey string
	displayed map[string]geo.TileCoordinates
}

func newTileObserver() *tileObserver {
	return &tileObserver{displayed: make(map[string]geo.TileCoordinates)}
}

// update recomputes the displayed set for the camera and viewport. It
// returns the newly displayed and newly released tiles; both are nil when
// the center tile did not change.
func (o *tileObserver) update(camera geo.CameraPosition, viewportWidthPx, viewportHeightPx int) (displayed, released []geo.TileCoordinates) {
	zoom := int(math.Round(camera.Zoom))
	centerX := geo.LngToTileX(camera.Zoom, camera.Target.Lng)
	centerY := geo.LatToTileY(camera.Zoom, camera.Target.Lat)

	center := geo.TileCoordinates{Zoom: zoom, X: int(math.Floor(centerX)), Y: int(math.Floor(centerY))}
	if center.Key() == o.centerKey {
		return nil, nil
	}
	o.centerKey = center.Key()

	halfW := float64(viewportWidthPx/2) / 256
	halfH := float64(viewportHeightPx/2) / 256

	xMin := int(math.Floor(centerX-halfW)) - 1
	xMax := int(math.Floor(centerX+halfW)) + 1
	yMin := int(math.Floor(centerY-halfH)) - 1
	yMax := int(math.Floor(centerY+halfH)) + 1

	next := make(map[string]geo.TileCoordinates)
	for x := xMin; x <= xMax; x++ {
		for y := yMin; y <= yMax; y++ {
			tile := geo.TileCoordinates{Zoom: zoom, X: x, Y: y}
			next[tile.Key()] = tile
		}
	}

	for key, tile := range next {
		if _, ok := o.displayed[key]; !ok {
			displayed = append(displayed, tile)
		}
	}
	for key, tile := range o.displayed {
		if _, ok := next[key]; !ok {
			released = append(released, tile)
		}
	}
	o.displayed = next
	return displayed, released
}

// current returns the displayed tile set.
func (o *tileObserver) current() []geo.TileCoordinates {
	tiles := make([]geo.TileCoordinates, 0, len(o.displayed))
	for _, tile := range o.displayed {
		tiles = append(tiles, tile)
	}
	return tiles
}
