package geo

import "math"

// Web-Mercator projection between world coordinates and tile coordinates.
// The reference unit is one tile: a point at tile coordinate (x, y) sits
// x tiles from the anti-meridian and y tiles from the north edge of the
// projection at the given zoom level.

// LngToTileX returns the fractional tile X coordinate of a longitude.
func LngToTileX(zoom float64, lng float64) float64 {
	return math.Pow(2, zoom) * (lng + 180) / 360
}

// LatToTileY returns the fractional tile Y coordinate of a latitude.
func LatToTileY(zoom float64, lat float64) float64 {
	return math.Pow(2, zoom-1) * (1 - math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))/math.Pi)
}

// TileXToLng returns the longitude of a fractional tile X coordinate.
func TileXToLng(zoom float64, x float64) float64 {
	return x*360/math.Pow(2, zoom) - 180
}

// TileYToLat returns the latitude of a fractional tile Y coordinate.
func TileYToLat(zoom float64, y float64) float64 {
	return math.Atan(math.Exp(math.Pi*(1-2*y/math.Pow(2, zoom))))*360/math.Pi - 90
}

// BoundsAround derives the visible bounds of a viewport of the given pixel
// size centered on camera, assuming 256px tiles.
func BoundsAround(camera CameraPosition, viewportWidthPx, viewportHeightPx int) Bounds {
	centerX := LngToTileX(camera.Zoom, camera.Target.Lng)
	centerY := LatToTileY(camera.Zoom, camera.Target.Lat)

	halfW := float64(viewportWidthPx/2) / 256
	halfH := float64(viewportHeightPx/2) / 256

	return Bounds{
		SW: LatLng{
			Lat: TileYToLat(camera.Zoom, centerY+halfH),
			Lng: TileXToLng(camera.Zoom, centerX-halfW),
		},
		NE: LatLng{
			Lat: TileYToLat(camera.Zoom, centerY-halfH),
			Lng: TileXToLng(camera.Zoom, centerX+halfW),
		},
	}
}
