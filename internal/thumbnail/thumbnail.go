// Package thumbnail renders the solid-color key image shown on the button.
package thumbnail

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	stdcolor "image/color"
	"image/draw"
	"image/png"

	"github.com/dokzlo13/deckcolor/internal/color"
)

// DefaultSize is the key image edge length of a standard Stream Deck key.
const DefaultSize = 72

// ErrInvalidSize is returned for non-positive dimensions.
var ErrInvalidSize = errors.New("invalid thumbnail size")

// Render returns a PNG of the given size filled with c at full opacity.
// The output is deterministic for equal inputs.
func Render(c color.RGB, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	fill := stdcolor.NRGBA{R: uint8(c.R()), G: uint8(c.G()), B: uint8(c.B()), A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: fill}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL wraps PNG bytes in the data URL form accepted by setImage.
func DataURL(pngData []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
}

// RenderDataURL renders a square thumbnail and returns it as a data URL.
func RenderDataURL(c color.RGB, size int) (string, error) {
	data, err := Render(c, size, size)
	if err != nil {
		return "", err
	}
	return DataURL(data), nil
}
