package mapwidget

import (
	"math"

	"github.com/fogleman/gg"
	"github.com/opentravelmate/bridge-go/internal/domain/geo"
	"github.com/opentravelmate/bridge-go/pkg/config"
)

// measureInfoWindow returns the pixel size of an info window for the given
// text content: the rendered text extent plus the window chrome paddings.
func measureInfoWindow(content string) (widthPx, heightPx int) {
	dc := gg.NewContext(1, 1)
	textW, textH := dc.MeasureString(content)
	widthPx = int(math.Ceil(textW)) + config.InfoWindowPaddingLeftPx + config.InfoWindowPaddingRightPx
	heightPx = int(math.Ceil(textH)) + config.InfoWindowPaddingTopPx + config.InfoWindowPaddingBottomPx
	return widthPx, heightPx
}

// infoWindowScroll computes the camera scroll, in pixels, that brings an
// info window of the given size fully into the viewport with its margin.
// The window sits centered above the anchor position. The scroll moves the
// camera only; zoom never changes for this adjustment.
func infoWindowScroll(camera geo.CameraPosition, anchor geo.LatLng, viewportWidthPx, viewportHeightPx, windowWidthPx, windowHeightPx int) (dxPx, dyPx int) {
	centerX := geo.LngToTileX(camera.Zoom, camera.Target.Lng)
	centerY := geo.LatToTileY(camera.Zoom, camera.Target.Lat)
	anchorX := geo.LngToTileX(camera.Zoom, anchor.Lng)
	anchorY := geo.LatToTileY(camera.Zoom, anchor.Lat)

	// Anchor position on screen, in viewport pixels.
	screenX := (anchorX-centerX)*config.TileSizePx + float64(viewportWidthPx)/2
	screenY := (anchorY-centerY)*config.TileSizePx + float64(viewportHeightPx)/2

	left := screenX - float64(windowWidthPx)/2
	right := screenX + float64(windowWidthPx)/2
	top := screenY - float64(windowHeightPx)
	bottom := screenY

	margin := float64(config.InfoWindowMarginPx)

	// Scrolling the camera by (dx, dy) moves screen content by (-dx, -dy).
	var dx, dy float64
	if left < margin {
		dx = left - margin
	} else if right > float64(viewportWidthPx)-margin {
		dx = right - (float64(viewportWidthPx) - margin)
	}
	if top < margin {
		dy = top - margin
	} else if bottom > float64(viewportHeightPx)-margin {
		dy = bottom - (float64(viewportHeightPx) - margin)
	}
	return int(math.Round(dx)), int(math.Round(dy))
}

// offsetPosition shifts a geographic position by a pixel offset at the
// camera's zoom level. Custom info window anchors are expressed this way.
func offsetPosition(camera geo.CameraPosition, position geo.LatLng, offsetXPx, offsetYPx float64) geo.LatLng {
	x := geo.LngToTileX(camera.Zoom, position.Lng) + offsetXPx/config.TileSizePx
	y := geo.LatToTileY(camera.Zoom, position.Lat) + offsetYPx/config.TileSizePx
	return geo.LatLng{
		Lat: geo.TileYToLat(camera.Zoom, y),
		Lng: geo.TileXToLng(camera.Zoom, x),
	}
}
