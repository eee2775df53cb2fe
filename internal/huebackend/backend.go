// Package huebackend sends picked colors to a Philips Hue bridge (v1 API)
// instead of Home Assistant.
package huebackend

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/amimof/huego"

	"github.com/dokzlo13/deckcolor/internal/color"
	"github.com/dokzlo13/deckcolor/internal/hass"
)

// Backend drives lights on one bridge. Light identifiers are the numeric
// v1 light ids ("1", "2", ...). The per-button url and token are ignored;
// the bridge comes from configuration.
type Backend struct {
	bridge *huego.Bridge
}

// New creates a Backend for the bridge at address using the given username.
func New(address, username string) *Backend {
	return &Backend{bridge: huego.New(address, username)}
}

// Name identifies the backend in logs and the ledger.
func (b *Backend) Name() string {
	return "hue"
}

// TurnOn sets one light to rgb. Black turns the light off.
func (b *Backend) TurnOn(ctx context.Context, _, _, lightID string, rgb color.RGB) error {
	id, err := strconv.Atoi(lightID)
	if err != nil {
		return &hass.DispatchError{EntityID: lightID, Err: fmt.Errorf("invalid hue light id: %w", err)}
	}

	if _, err := b.bridge.SetLightStateContext(ctx, id, StateFor(rgb)); err != nil {
		return &hass.DispatchError{EntityID: lightID, Err: err}
	}
	return nil
}

// StateFor converts an RGB color to a Hue light state in CIE xy plus
// brightness.
func StateFor(rgb color.RGB) huego.State {
	if rgb == color.Black {
		return huego.State{On: false}
	}

	x, y, lum := rgb.Colorful().Xyy()
	bri := int(math.Round(lum*253)) + 1
	if bri > 254 {
		bri = 254
	}

	return huego.State{
		On:  true,
		Bri: uint8(bri),
		Xy:  []float32{float32(x), float32(y)},
	}
}
