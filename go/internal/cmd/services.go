package main

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/streamscore/go/internal/config"
	"github.com/mcdev12/streamscore/go/internal/gateway"
	"github.com/mcdev12/streamscore/go/internal/health"
	"github.com/mcdev12/streamscore/go/internal/metrics"
	"github.com/mcdev12/streamscore/go/internal/relay"
	"github.com/mcdev12/streamscore/go/internal/scoreboard"
	"github.com/mcdev12/streamscore/go/internal/sports"
	"github.com/mcdev12/streamscore/go/internal/views"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Store    *scoreboard.Store
	Presets  *sports.Registry
	Gateway  *gateway.Service
	Relay    *relay.Relay
	Views    *views.Handler
	Health   *health.Checker
	Registry *prometheus.Registry
}

func setupServices(cfg config.Config, clock clockwork.Clock) (*Services, error) {
	// Presets → Store → Gateway (listener) → Relay (listener)

	presets := sports.NewDefaultRegistry()
	if cfg.SportPresetsFile != "" {
		if err := presets.LoadFile(cfg.SportPresetsFile); err != nil {
			return nil, fmt.Errorf("load sport presets: %w", err)
		}
		log.Info().Str("path", cfg.SportPresetsFile).Int("presets", len(presets.All())).Msg("loaded sport presets")
	}

	registry := metrics.NewRegistry()
	store := scoreboard.NewStore(clock)
	store.AddListener(metrics.NewStoreMetrics(registry))

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.ConnectionConfig.MaxMessageSize = cfg.WSMaxMessageBytes
	gatewayConfig.ConnectionConfig.PingInterval = cfg.WSPingInterval
	gatewayConfig.ConnectionConfig.ReadTimeout = cfg.WSReadTimeout
	gatewayConfig.ConnectionConfig.WriteTimeout = cfg.WSWriteTimeout
	gatewayConfig.ConnectionConfig.SendBufferSize = cfg.WSSendBuffer
	gatewayService := gateway.NewService(gatewayConfig, store, presets, clock, metrics.NewWebSocketMetrics(registry))

	services := &Services{
		Store:    store,
		Presets:  presets,
		Gateway:  gatewayService,
		Views:    views.NewHandler(),
		Registry: registry,
	}

	if cfg.RelayEnabled() {
		relayConfig := relay.DefaultConfig()
		relayConfig.URL = cfg.NATSURL
		relayConfig.SubjectPrefix = cfg.NATSSubjectPrefix
		relayConfig.NodeID = cfg.NodeID

		r, err := relay.Connect(relayConfig, store, clock)
		if err != nil {
			return nil, fmt.Errorf("create relay: %w", err)
		}
		if err := r.Start(); err != nil {
			r.Close()
			return nil, fmt.Errorf("start relay: %w", err)
		}
		services.Relay = r
		services.Health = health.NewChecker(store, gatewayService, r)
	} else {
		services.Health = health.NewChecker(store, gatewayService, nil)
	}

	return services, nil
}

// Close releases resources that outlive the HTTP server
func (s *Services) Close() {
	if s.Relay != nil {
		s.Relay.Close()
	}
}
