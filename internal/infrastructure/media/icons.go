package media

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/opentravelmate/bridge-go/internal/platform/native"
)

// DecodeIcon decodes downloaded icon bytes and scales them to the target
// pixel size.
func DecodeIcon(data []byte, widthPx, heightPx int) (*native.IconBitmap, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode marker icon: %w", err)
	}
	if b := img.Bounds(); b.Dx() != widthPx || b.Dy() != heightPx {
		img = imaging.Resize(img, widthPx, heightPx, imaging.Lanczos)
	}
	return ToBitmap(img), nil
}

// ToBitmap converts a decoded image into the raw RGBA form handed to the
// map engine.
func ToBitmap(img image.Image) *native.IconBitmap {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	return &native.IconBitmap{
		Width:  b.Dx(),
		Height: b.Dy(),
		RGBA:   nrgba.Pix,
	}
}
