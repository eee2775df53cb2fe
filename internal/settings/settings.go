// Package settings defines the per-button settings record and the stores that
// persist it.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dokzlo13/deckcolor/internal/color"
)

// ButtonState is the persisted record of one button instance. Field names
// match the settings object the property inspector edits.
type ButtonState struct {
	ColorRGB  color.RGB `json:"colorRgb"`
	ColorHex  string    `json:"colorHex"`
	IsDown    bool      `json:"isDown"`
	LongPress bool      `json:"longPress"`
	Delay     Millis    `json:"delay,omitempty"`
	ShowValue string    `json:"showValue,omitempty"`
	Lights    string    `json:"lights,omitempty"`
	URL       string    `json:"url,omitempty"`
	Token     string    `json:"token,omitempty"`
}

// SetColor stores c and its hex form together.
func (s *ButtonState) SetColor(c color.RGB) {
	s.ColorRGB = c
	s.ColorHex = c.Hex()
}

// Display returns the parsed showValue.
func (s ButtonState) Display() color.ShowValue {
	return color.ParseShowValue(s.ShowValue)
}

// Title returns the button title for the stored color.
func (s ButtonState) Title() string {
	return color.Title(s.Display(), s.ColorRGB, s.ColorHex)
}

// Defaults fill settings the user has not set on a button.
type Defaults struct {
	Delay     time.Duration
	ShowValue string
	Lights    string
	URL       string
	Token     string
}

// WithDefaults returns a copy with empty fields taken from d.
func (s ButtonState) WithDefaults(d Defaults) ButtonState {
	if s.Delay <= 0 {
		s.Delay = Millis(d.Delay / time.Millisecond)
	}
	if s.ShowValue == "" {
		s.ShowValue = d.ShowValue
	}
	if strings.TrimSpace(s.Lights) == "" {
		s.Lights = d.Lights
	}
	if s.URL == "" {
		s.URL = d.URL
	}
	if s.Token == "" {
		s.Token = d.Token
	}
	return s
}

// Millis is a delay in milliseconds. The property inspector sends it either
// as a number or as the string typed into a text field.
type Millis int

// Duration converts to time.Duration.
func (m Millis) Duration() time.Duration {
	return time.Duration(m) * time.Millisecond
}

// UnmarshalJSON accepts 200, 200.0, "200" and "".
func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*m = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid delay %q: %w", s, err)
	}
	if f < 0 {
		f = 0
	}
	*m = Millis(f)
	return nil
}

// Store loads and saves ButtonState by button context. The press logic
// depends only on this interface.
type Store interface {
	Load(ctx context.Context, id string) (ButtonState, error)
	Save(ctx context.Context, id string, state ButtonState) error
}
