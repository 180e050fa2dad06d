package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/streamscore/go/internal/config"
	"github.com/mcdev12/streamscore/go/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := loadConfig(os.Stderr)

	services, err := setupServices(cfg, clockwork.NewRealClock())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	server := setupServer(cfg, services)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go services.Gateway.Start(ctx)

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("node_id", cfg.NodeID).
			Bool("relay", cfg.RelayEnabled()).
			Msg("scoreboard server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// WebSocket connections are hijacked, so Shutdown doesn't wait for them;
	// cancelling ctx makes the connection manager close them.
	cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("scoreboard server shutdown complete")
}

// loadConfig sets up logging before reading the environment so that config
// warnings honor LOG_LEVEL and LOG_FORMAT
func loadConfig(w io.Writer) config.Config {
	dotenvErr := config.LoadDotEnv()
	logging.SetupWriter(w, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	if dotenvErr != nil {
		log.Debug().Err(dotenvErr).Msg("could not load .env file")
	}
	return config.FromEnv()
}
