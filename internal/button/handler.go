// Package button implements the color button: short press picks and sends a
// new color, long press re-sends the stored one.
//
// Press classification is a two-state machine driven by two independent
// triggers, key-up and the long-press timer. Both re-read the persisted
// isDown flag before acting, so whichever arrives second becomes a no-op.
// All methods must be called from the single event loop.
package button

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deckcolor/internal/color"
	"github.com/dokzlo13/deckcolor/internal/dispatch"
	"github.com/dokzlo13/deckcolor/internal/hass"
	"github.com/dokzlo13/deckcolor/internal/ledger"
	"github.com/dokzlo13/deckcolor/internal/settings"
	"github.com/dokzlo13/deckcolor/internal/thumbnail"
)

// DefaultDelay is the long-press threshold when neither the button nor the
// configuration sets one.
const DefaultDelay = 200 * time.Millisecond

// Handler reacts to host events for every instance of the color action.
type Handler struct {
	deps Deps
	opts Options
}

// New creates a Handler.
func New(deps Deps, opts Options) *Handler {
	if opts.Defaults.Delay <= 0 {
		opts.Defaults.Delay = DefaultDelay
	}
	if opts.ThumbnailSize <= 0 {
		opts.ThumbnailSize = thumbnail.DefaultSize
	}
	return &Handler{deps: deps, opts: opts}
}

// OnWillAppear fills missing settings from defaults, clears press flags left
// over from a previous session and redraws the key.
func (h *Handler) OnWillAppear(ctx context.Context, id string, rawSettings json.RawMessage) {
	st, ok := h.decode(id, rawSettings)
	if !ok {
		var err error
		if st, err = h.deps.Store.Load(ctx, id); err != nil {
			log.Error().Err(err).Str("button", id).Msg("Failed to load settings")
			return
		}
	}
	st = st.WithDefaults(h.opts.Defaults)
	st.IsDown = false
	st.LongPress = false
	if st.ColorHex == "" {
		st.ColorHex = st.ColorRGB.Hex()
	}

	if err := h.deps.Store.Save(ctx, id, st); err != nil {
		log.Warn().Err(err).Str("button", id).Msg("Failed to save settings")
	}

	log.Debug().Str("button", id).Str("color", st.ColorHex).Msg("Button appeared")
	h.redraw(ctx, id, st)
}

// OnWillDisappear is a no-op for persisted state; the host keeps settings
// until the button is removed from the profile.
func (h *Handler) OnWillDisappear(_ context.Context, id string) {
	log.Debug().Str("button", id).Msg("Button disappeared")
}

// OnDidReceiveSettings records settings changed in the property inspector and
// redraws the key, since showValue may have changed.
func (h *Handler) OnDidReceiveSettings(ctx context.Context, id string, rawSettings json.RawMessage) {
	st, ok := h.decode(id, rawSettings)
	if !ok {
		return
	}
	st = st.WithDefaults(h.opts.Defaults)

	if r, ok := h.deps.Store.(Rememberer); ok {
		r.Remember(id, st)
	} else if err := h.deps.Store.Save(ctx, id, st); err != nil {
		log.Warn().Err(err).Str("button", id).Msg("Failed to save settings")
	}

	h.redraw(ctx, id, st)
}

// OnKeyDown marks the key as held and arms the long-press timer.
func (h *Handler) OnKeyDown(ctx context.Context, id string) {
	st, err := h.load(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("button", id).Msg("Failed to load settings")
		return
	}

	st.IsDown = true
	if err := h.deps.Store.Save(ctx, id, st); err != nil {
		log.Warn().Err(err).Str("button", id).Msg("Failed to save settings")
	}

	delay := st.Delay.Duration()
	log.Debug().Str("button", id).Dur("delay", delay).Msg("Key down")

	h.deps.Loop.After(delay, id, func() {
		h.OnLongPressTimer(ctx, id)
	})
}

// OnLongPressTimer fires delay after key-down. If the key is still held the
// press becomes a long press and the stored color is re-sent.
func (h *Handler) OnLongPressTimer(ctx context.Context, id string) {
	st, err := h.load(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("button", id).Msg("Failed to load settings")
		return
	}
	if !st.IsDown || st.LongPress {
		return
	}

	st.LongPress = true
	if err := h.deps.Store.Save(ctx, id, st); err != nil {
		log.Warn().Err(err).Str("button", id).Msg("Failed to save settings")
	}

	log.Info().Str("button", id).Str("color", st.ColorRGB.Hex()).Msg("Long press, re-sending stored color")
	h.deps.Dispatcher.Dispatch(ctx, id, st.ColorRGB, dispatch.SourceReplay, target(st))
}

// OnKeyUp releases the key. A release before the timer fired is a short
// press and starts the picker; a release after a long press only clears the
// flag.
func (h *Handler) OnKeyUp(ctx context.Context, id string) {
	st, err := h.load(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("button", id).Msg("Failed to load settings")
		return
	}

	st.IsDown = false
	if st.LongPress {
		st.LongPress = false
		if err := h.deps.Store.Save(ctx, id, st); err != nil {
			log.Warn().Err(err).Str("button", id).Msg("Failed to save settings")
		}
		log.Debug().Str("button", id).Msg("Long press released")
		return
	}

	// Persist the release before the picker runs so a late timer sees it.
	if err := h.deps.Store.Save(ctx, id, st); err != nil {
		log.Warn().Err(err).Str("button", id).Msg("Failed to save settings")
	}

	log.Debug().Str("button", id).Msg("Short press, opening color picker")
	h.deps.Loop.Await(id, func() func() {
		rgb, err := h.deps.Picker.Pick(ctx)
		return func() {
			h.applyPicked(ctx, id, rgb, err)
		}
	})
}

// applyPicked runs on the loop once the picker has exited.
func (h *Handler) applyPicked(ctx context.Context, id string, rgb color.RGB, pickErr error) {
	if pickErr != nil {
		log.Warn().Err(pickErr).Str("button", id).Msg("Color picker failed, keeping current color")
		return
	}

	st, err := h.load(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("button", id).Msg("Failed to load settings")
		return
	}

	h.deps.Dispatcher.Dispatch(ctx, id, rgb, dispatch.SourcePick, target(st))

	st.SetColor(rgb)
	h.redraw(ctx, id, st)

	if err := h.deps.Store.Save(ctx, id, st); err != nil {
		log.Warn().Err(err).Str("button", id).Msg("Failed to save settings")
	}

	if h.deps.Recorder != nil {
		if err := h.deps.Recorder.Append(ledger.EventColorPicked, "", string(dispatch.SourcePick), id, map[string]any{
			"color": st.ColorHex,
			"rgb":   []int{rgb.R(), rgb.G(), rgb.B()},
		}); err != nil {
			log.Warn().Err(err).Str("button", id).Msg("Failed to record picked color")
		}
	}
}

func (h *Handler) load(ctx context.Context, id string) (settings.ButtonState, error) {
	st, err := h.deps.Store.Load(ctx, id)
	if err != nil {
		return st, err
	}
	return st.WithDefaults(h.opts.Defaults), nil
}

func (h *Handler) decode(id string, raw json.RawMessage) (settings.ButtonState, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return settings.ButtonState{}, false
	}
	st, colorErr, err := settings.Decode(raw)
	if err != nil {
		log.Warn().Err(err).Str("button", id).Msg("Ignoring malformed settings")
		return st, false
	}
	if colorErr != nil {
		log.Error().Err(colorErr).Str("button", id).Str("color", st.ColorHex).Msg("Invalid stored color, replaced")
	}
	return st, true
}

func (h *Handler) redraw(ctx context.Context, id string, st settings.ButtonState) {
	if err := h.deps.Display.SetTitle(ctx, id, st.Title()); err != nil {
		log.Warn().Err(err).Str("button", id).Msg("Failed to set title")
	}

	image, err := thumbnail.RenderDataURL(st.ColorRGB, h.opts.ThumbnailSize)
	if err != nil {
		log.Warn().Err(err).Str("button", id).Msg("Failed to render thumbnail")
		return
	}
	if err := h.deps.Display.SetImage(ctx, id, image); err != nil {
		log.Warn().Err(err).Str("button", id).Msg("Failed to set image")
	}
}

func target(st settings.ButtonState) dispatch.Target {
	return dispatch.Target{
		URL:    st.URL,
		Token:  st.Token,
		Lights: hass.ParseLights(st.Lights),
	}
}
