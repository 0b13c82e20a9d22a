package mapwidget

import (
	"math"
	"testing"

	"github.com/opentravelmate/bridge-go/internal/domain/geo"
)

func TestTileObserverAddsOneTileMargin(t *testing.T) {
	o := newTileObserver()
	camera := geo.CameraPosition{Target: geo.LatLng{Lat: 49.6, Lng: 6.135}, Zoom: 13}

	displayed, released := o.update(camera, 512, 512)
	if released != nil {
		t.Fatalf("initial update released %d tiles", len(released))
	}

	centerX := int(math.Floor(geo.LngToTileX(13, 6.135)))
	centerY := int(math.Floor(geo.LatToTileY(13, 49.6)))

	// Viewport spans one tile each side of center; plus the one-tile margin
	// the range is 5x5 around the center.
	seen := make(map[string]bool)
	for _, tile := range displayed {
		seen[tile.Key()] = true
		if tile.Zoom != 13 {
			t.Fatalf("tile at zoom %d", tile.Zoom)
		}
		if tile.X < centerX-2 || tile.X > centerX+2 || tile.Y < centerY-2 || tile.Y > centerY+2 {
			t.Fatalf("tile %s outside margin range around %d_%d", tile.Key(), centerX, centerY)
		}
	}
	if len(seen) != len(displayed) {
		t.Fatal("duplicate tiles in displayed set")
	}
	if !seen[geo.TileCoordinates{Zoom: 13, X: centerX, Y: centerY}.Key()] {
		t.Fatal("center tile missing from displayed set")
	}
}

func TestTileObserverGatesOnCenterTile(t *testing.T) {
	o := newTileObserver()
	camera := geo.CameraPosition{Target: geo.LatLng{Lat: 49.6, Lng: 6.135}, Zoom: 13}
	o.update(camera, 512, 512)

	// Nudging the camera inside the same tile changes nothing.
	camera.Target.Lng += 0.001
	displayed, released := o.update(camera, 512, 512)
	if displayed != nil || released != nil {
		t.Fatalf("same-tile update produced %d displayed, %d released", len(displayed), len(released))
	}

	// Crossing a tile boundary slides the window by one column.
	camera.Target.Lng += 360.0 / math.Pow(2, 13)
	displayed, released = o.update(camera, 512, 512)
	if len(displayed) != 5 || len(released) != 5 {
		t.Fatalf("slide produced %d displayed, %d released, want 5 and 5", len(displayed), len(released))
	}
}
