package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deckcolor/internal/app"
	"github.com/dokzlo13/deckcolor/internal/config"
	"github.com/dokzlo13/deckcolor/internal/streamdeck"
)

func main() {
	// Support both -c and --config for config path
	defaultConfig := filepath.Join(pluginDir(), "config.yaml")
	var configPath string
	flag.StringVar(&configPath, "config", defaultConfig, "Path to configuration file")
	flag.StringVar(&configPath, "c", defaultConfig, "Path to configuration file (shorthand)")
	resetState := flag.Bool("reset-state", false, "Clear mirrored button settings on startup")
	params, rawInfo := streamdeck.RegisterFlags(flag.CommandLine)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logging
	setupLogging(cfg.Log.GetLevel(), cfg.Log.UseJSON, cfg.Log.Colors)

	if err := params.Finish(*rawInfo); err != nil {
		log.Fatal().Err(err).Msg("Invalid launch arguments")
	}

	log.Info().Str("config", configPath).Int("port", params.Port).Msg("Starting deckcolor")

	// Create application
	application, err := app.New(cfg, *params)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	// Handle reset state flag
	if *resetState {
		log.Info().Msg("Clearing mirrored button settings (--reset-state)")
		if err := application.ClearSettings(); err != nil {
			log.Warn().Err(err).Msg("Failed to clear button settings")
		}
	}

	// Create context that cancels on shutdown signal
	ctx := app.SignalContext()

	// Start the application
	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	// Wait for shutdown
	application.Wait()

	// Graceful shutdown
	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

// pluginDir is the directory holding the executable, where the host unpacks
// the plugin.
func pluginDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
