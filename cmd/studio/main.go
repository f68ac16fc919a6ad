// The studio binary is the local desktop backend. It owns the embedded
// document store and serves the loopback API the UI shell consumes.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sonoreport/internal/platform/config"
	"sonoreport/internal/platform/httpserver"
	"sonoreport/internal/platform/logger"
	"sonoreport/internal/studio"
)

func main() {
	cfg := config.StudioFromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := studio.Boot(ctx, cfg, log)
	if err != nil {
		log.Error("boot failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	studio.NewHandler(app).Register(router)

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("studio backend listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
