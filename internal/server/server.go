// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/skaginn3x/tfc-console/internal/alert"
	"github.com/skaginn3x/tfc-console/internal/dbus"
)

// Config holds server configuration.
type Config struct {
	Addr      string
	Transport dbus.Transport
	Alerts    *alert.Center
}

// Routes builds the router over the given bus transport.
func Routes(cfg Config) http.Handler {
	configs := dbus.NewConfigs(cfg.Transport)
	ruler := dbus.NewRuler(cfg.Transport)
	h := NewHandler(configs, ruler, cfg.Alerts)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/v1/processes", h.ListProcesses)
	r.Get("/v1/processes/{service}/configs", h.ListConfigs)
	r.Get("/v1/processes/{service}/configs/*", h.GetConfig)
	r.Put("/v1/processes/{service}/configs/*", h.PutConfig)

	r.Get("/v1/signals", h.ListSignals)
	r.Get("/v1/slots", h.ListSlots)
	r.Get("/v1/connections", h.ListConnections)
	r.Get("/v1/signals/{name}/candidates", h.ListCandidates)
	r.Post("/v1/connections", h.Connect)
	r.Delete("/v1/connections/{slot}", h.Disconnect)

	r.Get("/v1/alerts", h.ListAlerts)
	r.Method(http.MethodGet, "/v1/events", NewEventsHandler(cfg.Alerts, cfg.Transport))

	return r
}

// Run starts the HTTP server with all routes registered and shuts it
// down when ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	log.Printf("starting server on %s", cfg.Addr)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: Routes(cfg),
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
