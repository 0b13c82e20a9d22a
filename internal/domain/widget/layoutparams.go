// Package widget holds the data model exchanged between the web layer and
// the native widget controllers.
package widget

import (
	"encoding/json"
	"fmt"
)

// LayoutParams positions a native widget relative to its HTML place-holder.
// X, Y, Width and Height are fractions of the container in [0, 1]; the web
// layer measures the place-holder's pixel rectangle and the window size, and
// the normalization happens once here, so native positioning is independent
// of device density.
type LayoutParams struct {
	ID               string            `json:"id"`
	X                float64           `json:"x"`
	Y                float64           `json:"y"`
	Width            float64           `json:"width"`
	Height           float64           `json:"height"`
	Visible          bool              `json:"visible"`
	AdditionalParams map[string]string `json:"additionalParameters"`
	WindowWidth      int               `json:"windowWidth"`
	WindowHeight     int               `json:"windowHeight"`
}

type jsonLayoutParams struct {
	ID               string            `json:"id"`
	X                float64           `json:"x"`
	Y                float64           `json:"y"`
	Width            float64           `json:"width"`
	Height           float64           `json:"height"`
	Visible          bool              `json:"visible"`
	AdditionalParams map[string]string `json:"additionalParameters"`
	WindowWidth      int               `json:"windowWidth"`
	WindowHeight     int               `json:"windowHeight"`
}

// LayoutParamsFromJSON parses the web layer's pixel-geometry payload and
// normalizes the rectangle by the window size.
func LayoutParamsFromJSON(data []byte) (LayoutParams, error) {
	var raw jsonLayoutParams
	if err := json.Unmarshal(data, &raw); err != nil {
		return LayoutParams{}, fmt.Errorf("invalid layout params: %w", err)
	}
	if raw.ID == "" {
		return LayoutParams{}, fmt.Errorf("layout params without place-holder id")
	}
	if raw.WindowWidth <= 0 || raw.WindowHeight <= 0 {
		return LayoutParams{}, fmt.Errorf("layout params for %q with window size %dx%d", raw.ID, raw.WindowWidth, raw.WindowHeight)
	}
	return LayoutParams{
		ID:               raw.ID,
		X:                raw.X / float64(raw.WindowWidth),
		Y:                raw.Y / float64(raw.WindowHeight),
		Width:            raw.Width / float64(raw.WindowWidth),
		Height:           raw.Height / float64(raw.WindowHeight),
		Visible:          raw.Visible,
		AdditionalParams: raw.AdditionalParams,
		WindowWidth:      raw.WindowWidth,
		WindowHeight:     raw.WindowHeight,
	}, nil
}

// PixelRect is a rectangle in parent pixels.
type PixelRect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the rectangle width in pixels.
func (r PixelRect) WidthPx() int { return r.Right - r.Left }

// Height returns the rectangle height in pixels.
func (r PixelRect) HeightPx() int { return r.Bottom - r.Top }

// PixelRectIn projects the fractional rectangle into a parent of the given
// pixel size.
func (p LayoutParams) PixelRectIn(parentWidth, parentHeight int) PixelRect {
	return PixelRect{
		Left:   int(roundHalfUp(p.X * float64(parentWidth))),
		Top:    int(roundHalfUp(p.Y * float64(parentHeight))),
		Right:  int(roundHalfUp((p.X + p.Width) * float64(parentWidth))),
		Bottom: int(roundHalfUp((p.Y + p.Height) * float64(parentHeight))),
	}
}

func roundHalfUp(v float64) float64 {
	if v < 0 {
		return -roundHalfUp(-v)
	}
	return float64(int64(v + 0.5))
}
