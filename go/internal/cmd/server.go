package main

import (
	"fmt"
	"net/http"

	"github.com/mcdev12/streamscore/go/internal/config"
	"github.com/mcdev12/streamscore/go/internal/metrics"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(cfg config.Config, services *Services) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: setupHandler(cfg, services),
	}
}

func setupHandler(cfg config.Config, services *Services) http.Handler {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPut,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	// Register views, sync channel and state API
	services.Views.RegisterRoutes(mux)
	services.Gateway.RegisterRoutes(mux)

	mux.Handle("/metrics", metrics.Handler(services.Registry))
	mux.Handle("/health", services.Health)

	// Wrap with CORS
	handler := c.Handler(mux)

	return h2c.NewHandler(handler, &http2.Server{})
}
