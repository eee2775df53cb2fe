package app

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deckcolor/internal/button"
	"github.com/dokzlo13/deckcolor/internal/config"
	"github.com/dokzlo13/deckcolor/internal/eventbus"
	"github.com/dokzlo13/deckcolor/internal/settings"
	"github.com/dokzlo13/deckcolor/internal/state"
	"github.com/dokzlo13/deckcolor/internal/streamdeck"
)

// PluginService owns the host connection and routes its events through the
// bus to the button handler.
type PluginService struct {
	cfg        *config.Config
	bus        *eventbus.Bus
	mirror     *state.TypedStore[settings.ButtonState]
	picker     button.Picker
	dispatcher button.Dispatcher
	recorder   button.Recorder

	conn      *streamdeck.Conn
	store     *settings.HostStore
	handler   *button.Handler
	connected atomic.Bool

	// hostLogs mirrors warnings and errors into the host log once connected.
	hostLogs bool
}

// NewPluginService creates a PluginService. Nothing is connected until Start.
func NewPluginService(
	cfg *config.Config,
	bus *eventbus.Bus,
	mirror *state.TypedStore[settings.ButtonState],
	picker button.Picker,
	dispatcher button.Dispatcher,
	recorder button.Recorder,
) *PluginService {
	return &PluginService{
		cfg:        cfg,
		bus:        bus,
		mirror:     mirror,
		picker:     picker,
		dispatcher: dispatcher,
		recorder:   recorder,
		hostLogs:   true,
	}
}

// Start registers with the host and begins reading events in the background.
// onFatalError is called once the connection ends, with nil on a clean close.
func (s *PluginService) Start(ctx context.Context, params streamdeck.Params, onFatalError func(error)) error {
	conn, err := streamdeck.Dial(ctx, params.Port, params.RegisterEvent, params.PluginUUID)
	if err != nil {
		return err
	}
	s.conn = conn
	s.store = settings.NewHostStore(conn, s.mirror)

	s.handler = button.New(button.Deps{
		Store:      s.store,
		Picker:     s.picker,
		Dispatcher: s.dispatcher,
		Display:    conn,
		Loop:       busLoop{bus: s.bus},
		Recorder:   s.recorder,
	}, button.Options{
		Defaults: settings.Defaults{
			Delay:     s.cfg.Button.Delay.Duration(),
			ShowValue: s.cfg.Button.ShowValue,
			Lights:    s.cfg.DefaultLights(),
			URL:       s.cfg.HomeAssistant.URL,
			Token:     s.cfg.HomeAssistant.Token,
		},
		ThumbnailSize: s.cfg.Button.ThumbnailSize,
	})
	s.subscribe(ctx)

	if s.hostLogs {
		log.Logger = log.Logger.Hook(streamdeck.NewLogHook(conn, zerolog.WarnLevel))
	}
	s.connected.Store(true)

	go func() {
		err := conn.Run(ctx, s.route)
		s.connected.Store(false)
		onFatalError(err)
	}()

	return nil
}

// Connected reports whether the host connection is up.
func (s *PluginService) Connected() bool {
	return s.connected.Load()
}

// Close closes the host connection.
func (s *PluginService) Close() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// route turns host messages into bus events. Handlers run on the bus, never
// on the reader goroutine.
func (s *PluginService) route(ev streamdeck.InboundEvent) {
	switch ev.Event {
	case streamdeck.EventWillAppear,
		streamdeck.EventWillDisappear,
		streamdeck.EventKeyDown,
		streamdeck.EventKeyUp,
		streamdeck.EventDidReceiveSettings:
		s.bus.Publish(eventbus.Event{
			Type:    eventbus.EventType(ev.Event),
			Context: ev.Context,
			Payload: ev.Payload,
		})
	default:
		log.Debug().Str("event", ev.Event).Str("context", ev.Context).Msg("Ignoring host event")
	}
}

// subscribe wires bus events to the button handler.
func (s *PluginService) subscribe(ctx context.Context) {
	s.bus.Subscribe(eventbus.EventTypeWillAppear, func(e eventbus.Event) {
		s.handler.OnWillAppear(ctx, e.Context, payloadSettings(e))
	})
	s.bus.Subscribe(eventbus.EventTypeWillDisappear, func(e eventbus.Event) {
		s.handler.OnWillDisappear(ctx, e.Context)
		s.store.Forget(e.Context)
	})
	s.bus.Subscribe(eventbus.EventTypeDidReceiveSettings, func(e eventbus.Event) {
		s.handler.OnDidReceiveSettings(ctx, e.Context, payloadSettings(e))
	})
	s.bus.Subscribe(eventbus.EventTypeKeyDown, func(e eventbus.Event) {
		s.handler.OnKeyDown(ctx, e.Context)
	})
	s.bus.Subscribe(eventbus.EventTypeKeyUp, func(e eventbus.Event) {
		s.handler.OnKeyUp(ctx, e.Context)
	})

	// Continuations posted by busLoop
	s.bus.Subscribe(eventbus.EventTypeLongPressTimer, eventbus.RunCallback)
	s.bus.Subscribe(eventbus.EventTypeColorPicked, eventbus.RunCallback)
}

func payloadSettings(e eventbus.Event) json.RawMessage {
	p, err := streamdeck.ParseKeyPayload(e.Payload)
	if err != nil {
		log.Warn().Err(err).Str("event", string(e.Type)).Str("context", e.Context).Msg("Malformed event payload")
		return nil
	}
	return p.Settings
}
