package app

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deckcolor/internal/config"
	"github.com/dokzlo13/deckcolor/internal/db"
	"github.com/dokzlo13/deckcolor/internal/dispatch"
	"github.com/dokzlo13/deckcolor/internal/eventbus"
	"github.com/dokzlo13/deckcolor/internal/hass"
	"github.com/dokzlo13/deckcolor/internal/huebackend"
	"github.com/dokzlo13/deckcolor/internal/ledger"
	"github.com/dokzlo13/deckcolor/internal/picker"
	"github.com/dokzlo13/deckcolor/internal/script"
	"github.com/dokzlo13/deckcolor/internal/settings"
	"github.com/dokzlo13/deckcolor/internal/state"
	"github.com/dokzlo13/deckcolor/internal/streamdeck"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger
	Store  *state.Store
	Mirror *state.TypedStore[settings.ButtonState]
	Bus    *eventbus.Bus

	// Color pipeline
	Backend    dispatch.Backend
	Script     *script.Script
	Dispatcher *dispatch.Dispatcher
	Picker     *picker.Picker

	// High-level services
	Plugin  *PluginService
	Cleanup *CleanupService
	Health  *HealthService

	closeBackend func()
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Ledger = ledger.New(database.DB)
	s.Store = state.NewStore(database.DB)
	s.Mirror = state.NewTypedStore[settings.ButtonState](s.Store, settings.Kind)
	if ids, err := s.Mirror.IDs(); err == nil && len(ids) > 0 {
		log.Info().Str("kind", s.Mirror.Kind()).Int("buttons", len(ids)).Msg("Loaded mirrored button settings")
	}

	s.Backend, s.closeBackend, err = newBackend(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	opts := []dispatch.Option{dispatch.WithRecorder(s.Ledger)}
	switch cfg.Backend {
	case config.BackendHue:
		opts = append(opts, dispatch.WithTimeout(cfg.Hue.Timeout.Duration()))
	default:
		opts = append(opts, dispatch.WithTimeout(cfg.HomeAssistant.Timeout.Duration()))
	}

	if cfg.Script != "" {
		s.Script, err = script.Load(cfg.Script)
		if err != nil {
			s.Close()
			return nil, err
		}
		opts = append(opts, dispatch.WithTransformer(s.Script))
	}
	s.Dispatcher = dispatch.New(s.Backend, opts...)

	s.Picker = picker.New(cfg.Picker.Path, filepath.Dir(cfg.Picker.Path), cfg.Picker.Timeout.Duration())
	log.Info().Str("path", s.Picker.Path()).Dur("timeout", cfg.Picker.Timeout.Duration()).Msg("Color picker configured")

	// One worker keeps every handler on a single event loop
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())
	if cfg.EventBus.GetWorkers() != 1 {
		log.Warn().Int("workers", cfg.EventBus.GetWorkers()).Msg("Event bus has more than one worker, button handlers may race")
	}

	s.Plugin = NewPluginService(cfg, s.Bus, s.Mirror, s.Picker, s.Dispatcher, s.Ledger)
	s.Cleanup = NewCleanupService(cfg, s.Ledger)
	s.Health = NewHealthService(cfg, s.Plugin.Connected)

	return s, nil
}

// newBackend builds the configured light backend.
func newBackend(cfg *config.Config) (dispatch.Backend, func(), error) {
	switch cfg.Backend {
	case config.BackendHue:
		log.Info().Str("bridge", cfg.Hue.Bridge).Msg("Using Hue bridge backend")
		return huebackend.New(cfg.Hue.Bridge, cfg.Hue.Token), func() {}, nil
	default:
		httpClient := &http.Client{Timeout: cfg.HomeAssistant.Timeout.Duration()}
		b := hass.NewBackend(httpClient, cfg.HomeAssistant.RateLimitRPS)
		log.Info().
			Str("url", cfg.HomeAssistant.URL).
			Float64("rate_limit_rps", cfg.HomeAssistant.RateLimitRPS).
			Msg("Using Home Assistant backend")
		return b, b.Close, nil
	}
}

// Start connects to the host and starts all background services.
// The onFatalError callback is called when the host connection ends.
func (s *Services) Start(ctx context.Context, params streamdeck.Params, onFatalError func(error)) error {
	if err := s.Plugin.Start(ctx, params, onFatalError); err != nil {
		return err
	}

	s.Cleanup.Start(ctx)
	s.Health.Start(ctx)

	return nil
}

// ClearState clears the mirrored button settings.
func (s *Services) ClearState() error {
	return s.Mirror.Clear()
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
	defer cancel()

	if s.Bus != nil {
		s.Bus.Close(ctx)
	}
	if s.Dispatcher != nil {
		s.Dispatcher.Wait(ctx)
	}
	if s.Plugin != nil {
		s.Plugin.Close()
	}
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Script != nil {
		s.Script.Close()
	}
	if s.closeBackend != nil {
		s.closeBackend()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
