// Package media provides image decoding, filtering and rasterization for the
// proxy and the marker icon pipeline.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Format is an image container format recognized by the proxy.
type Format int

const (
	FormatUnknown Format = iota
	FormatPNG
	FormatJPEG
	FormatWebP
)

// jpegQuality matches the legacy re-encode quality.
const jpegQuality = 70

// Sniff detects the image format from magic bytes.
func Sniff(data []byte) Format {
	switch {
	case len(data) > 4 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G':
		return FormatPNG
	case len(data) > 2 && data[0] == 0xFF && data[1] == 0xD8:
		return FormatJPEG
	case len(data) > 12 && data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P':
		return FormatWebP
	}
	return FormatUnknown
}

// ContentType returns the MIME type served for a format. Unknown formats are
// served as opaque bytes.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	}
	return "application/octet-stream"
}

// Grayscale desaturates the image, preserving luminance and alpha, and
// re-encodes it in its original format. When the format cannot be determined
// a raw NRGBA pixel buffer is returned instead, content type
// application/octet-stream.
func Grayscale(data []byte) ([]byte, string, error) {
	format := Sniff(data)
	img, err := decode(data, format)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image for grayscale filter: %w", err)
	}

	gray := imaging.Grayscale(img)

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		err = png.Encode(&buf, gray)
	case FormatJPEG:
		err = jpeg.Encode(&buf, gray, &jpeg.Options{Quality: jpegQuality})
	case FormatWebP:
		err = webp.Encode(&buf, gray, &webp.Options{Quality: jpegQuality})
	default:
		// No encodable container; hand back the raw pixel buffer.
		return gray.Pix, FormatUnknown.ContentType(), nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to re-encode grayscale image: %w", err)
	}
	return buf.Bytes(), format.ContentType(), nil
}

func decode(data []byte, format Format) (image.Image, error) {
	switch format {
	case FormatPNG:
		return png.Decode(bytes.NewReader(data))
	case FormatJPEG:
		return jpeg.Decode(bytes.NewReader(data))
	case FormatWebP:
		return webp.Decode(bytes.NewReader(data))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}
