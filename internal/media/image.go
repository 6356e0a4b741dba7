// Package media provides input image handling for generation requests.
// Uploaded images arrive as PNG, JPEG, or WebP and are normalized to an
// opaque RGB PNG before being handed to the inference runtime.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	// Register decoders for the accepted upload formats.
	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

// ErrInvalidImage is returned when the uploaded bytes cannot be decoded
// as any supported image format.
var ErrInvalidImage = errors.New("media: invalid image")

// NormalizeImage decodes an uploaded image and re-encodes it as an opaque
// RGB PNG. Transparency is flattened against black, matching the behavior
// of an RGB conversion in common imaging libraries.
func NormalizeImage(data []byte) ([]byte, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := src.Bounds()
	rgb := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgb, rgb.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.Draw(rgb, rgb.Bounds(), src, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgb); err != nil {
		return nil, fmt.Errorf("media: encode %s image as png: %w", format, err)
	}

	return buf.Bytes(), nil
}

// Dimensions returns the pixel dimensions of an encoded image without
// decoding the full pixel data.
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return cfg.Width, cfg.Height, nil
}
