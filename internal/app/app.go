package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deckcolor/internal/config"
	"github.com/dokzlo13/deckcolor/internal/streamdeck"
)

// App is the main application container that manages all services and their lifecycle.
type App struct {
	cfg      *config.Config
	params   streamdeck.Params
	services *Services
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a new App instance with all services initialized but not started.
func New(cfg *config.Config, params streamdeck.Params) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		params:   params,
		services: services,
	}, nil
}

// Start connects to the Stream Deck host and starts all services.
// The provided context is used for cancellation.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	// Fatal error handler - cancels the app context to trigger shutdown
	onFatalError := func(err error) {
		if err != nil {
			log.Error().Err(err).Msg("Fatal error, initiating shutdown")
		}
		a.cancel()
	}

	if err := a.services.Start(a.ctx, a.params, onFatalError); err != nil {
		return err
	}

	log.Info().
		Str("plugin_uuid", a.params.PluginUUID).
		Str("platform", a.params.Info.Application.Platform).
		Str("host_version", a.params.Info.Application.Version).
		Msg("deckcolor started")
	return nil
}

// Stop gracefully shuts down all services.
func (a *App) Stop() error {
	log.Info().Msg("Shutting down...")

	if a.cancel != nil {
		a.cancel()
	}

	if a.services != nil {
		return a.services.Stop()
	}

	return nil
}

// Wait blocks until the application context is cancelled.
func (a *App) Wait() {
	if a.ctx != nil {
		<-a.ctx.Done()
	}
}

// ClearSettings drops the mirrored button settings.
// The host's own copy is untouched and is replayed on the next willAppear.
func (a *App) ClearSettings() error {
	if a.services != nil {
		return a.services.ClearState()
	}
	return nil
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
