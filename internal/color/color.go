// Package color holds the RGB value that flows from the picker to the lights
// and the helpers that format it for the button title.
package color

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is an 8-bit-per-channel color. It marshals as a JSON array [r, g, b],
// which is the shape used by the host settings, the picker output and the
// Home Assistant rgb_color field.
type RGB [3]int

// Black is the color of a freshly created button.
var Black = RGB{0, 0, 0}

// InvalidColorError reports a channel outside 0-255.
type InvalidColorError struct {
	Channel string
	Value   int
}

func (e *InvalidColorError) Error() string {
	return fmt.Sprintf("invalid color: channel %s = %d, want 0-255", e.Channel, e.Value)
}

var channelNames = [3]string{"r", "g", "b"}

// Validate returns an *InvalidColorError for the first out-of-range channel.
func (c RGB) Validate() error {
	for i, v := range c {
		if v < 0 || v > 255 {
			return &InvalidColorError{Channel: channelNames[i], Value: v}
		}
	}
	return nil
}

// R returns the red channel.
func (c RGB) R() int { return c[0] }

// G returns the green channel.
func (c RGB) G() int { return c[1] }

// B returns the blue channel.
func (c RGB) B() int { return c[2] }

// Colorful converts to a go-colorful color for color-space math.
func (c RGB) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c[0]) / 255.0,
		G: float64(c[1]) / 255.0,
		B: float64(c[2]) / 255.0,
	}
}

// Hex returns "#RRGGBB" in uppercase. The color must be valid.
func (c RGB) Hex() string {
	return strings.ToUpper(c.Colorful().Hex())
}

// String implements fmt.Stringer.
func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c[0], c[1], c[2])
}

// ParseHex parses "#RRGGBB" (case-insensitive).
func ParseHex(s string) (RGB, error) {
	cf, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("failed to parse hex color %q: %w", s, err)
	}
	r, g, b := cf.RGB255()
	return RGB{int(r), int(g), int(b)}, nil
}

// UnmarshalJSON accepts exactly three integer channels in 0-255. An
// out-of-range channel yields an *InvalidColorError. null leaves c unchanged.
func (c *RGB) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	v, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseJSON parses a JSON array of exactly three integers in 0-255.
func ParseJSON(data []byte) (RGB, error) {
	var raw []json.Number
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(string(data))))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return RGB{}, fmt.Errorf("failed to decode color: %w", err)
	}
	if dec.More() {
		return RGB{}, fmt.Errorf("unexpected data after color array")
	}
	if len(raw) != 3 {
		return RGB{}, fmt.Errorf("color must have 3 channels, got %d", len(raw))
	}

	var c RGB
	for i, n := range raw {
		v, err := n.Int64()
		if err != nil {
			return RGB{}, fmt.Errorf("channel %s is not an integer: %s", channelNames[i], n.String())
		}
		if v < 0 || v > 255 {
			return RGB{}, &InvalidColorError{Channel: channelNames[i], Value: int(v)}
		}
		c[i] = int(v)
	}
	return c, nil
}
