package media

import (
	"testing"

	"github.com/opentravelmate/bridge-go/internal/domain/widget"
)

func TestDecodeIconScalesToTargetSize(t *testing.T) {
	data := encodePNG(t, colorfulImage())

	bm, err := DecodeIcon(data, 16, 16)
	if err != nil {
		t.Fatalf("DecodeIcon: %v", err)
	}
	if bm.Width != 16 || bm.Height != 16 {
		t.Fatalf("bitmap = %dx%d", bm.Width, bm.Height)
	}
	if len(bm.RGBA) != 16*16*4 {
		t.Fatalf("pixel buffer = %d bytes", len(bm.RGBA))
	}
}

func TestDecodeIconKeepsMatchingSize(t *testing.T) {
	data := encodePNG(t, colorfulImage())

	bm, err := DecodeIcon(data, 8, 8)
	if err != nil {
		t.Fatalf("DecodeIcon: %v", err)
	}
	if bm.Width != 8 || bm.Height != 8 {
		t.Fatalf("bitmap = %dx%d", bm.Width, bm.Height)
	}
}

func TestDecodeIconRejectsGarbage(t *testing.T) {
	if _, err := DecodeIcon([]byte("not an image"), 8, 8); err == nil {
		t.Fatal("garbage input should fail")
	}
}

func vectorIcon(path string) widget.MarkerIcon {
	return widget.MarkerIcon{
		Kind:          widget.IconVector,
		Path:          path,
		Size:          widget.Dimension{Width: 32, Height: 32},
		FillColor:     "#ff0000",
		FillOpacity:   1,
		StrokeColor:   "#000000",
		StrokeOpacity: 1,
		StrokeWidth:   1,
		Scale:         1,
	}
}

func TestRenderVectorIconDrawsFilledShape(t *testing.T) {
	bm, err := RenderVectorIcon(vectorIcon("M4,4 L28,4 L16,28 Z"))
	if err != nil {
		t.Fatalf("RenderVectorIcon: %v", err)
	}
	if bm.Width != 32 || bm.Height != 32 {
		t.Fatalf("bitmap = %dx%d", bm.Width, bm.Height)
	}

	// The triangle covers the center of the canvas; the pixel there must be
	// opaque and predominantly red.
	center := (16*32 + 16) * 4
	r, a := bm.RGBA[center], bm.RGBA[center+3]
	if a == 0 || r < 0x80 {
		t.Fatalf("center pixel r=%d a=%d", r, a)
	}

	// The top-left corner is outside the path and stays transparent.
	if bm.RGBA[3] != 0 {
		t.Fatalf("corner alpha = %d", bm.RGBA[3])
	}
}

func TestRenderVectorIconRelativeAndCurveCommands(t *testing.T) {
	bm, err := RenderVectorIcon(vectorIcon("m4,16 l8,-8 h8 v8 q4,4 0,8 c-4,4 -8,4 -12,0 z"))
	if err != nil {
		t.Fatalf("RenderVectorIcon: %v", err)
	}
	if bm.Width != 32 || bm.Height != 32 {
		t.Fatalf("bitmap = %dx%d", bm.Width, bm.Height)
	}
}

func TestRenderVectorIconErrors(t *testing.T) {
	badColor := vectorIcon("M0,0 L10,10 Z")
	badColor.FillColor = "notacolor"
	if _, err := RenderVectorIcon(badColor); err == nil {
		t.Fatal("invalid fill color should fail")
	}

	if _, err := RenderVectorIcon(vectorIcon("M0,0 X10,10")); err == nil {
		t.Fatal("unsupported path command should fail")
	}

	noSize := vectorIcon("M0,0 Z")
	noSize.Size = widget.Dimension{}
	if _, err := RenderVectorIcon(noSize); err == nil {
		t.Fatal("zero size should fail")
	}

	urlIcon := widget.MarkerIcon{Kind: widget.IconURL, URL: "http://example.com/pin.png"}
	if _, err := RenderVectorIcon(urlIcon); err == nil {
		t.Fatal("url icon should fail")
	}
}
