// The server binary runs the cloud-side license service: account issuance,
// login, device binding, and the scheduled expiry prune.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"sonoreport/internal/identity"
	"sonoreport/internal/license"
	licensehandler "sonoreport/internal/license/handler"
	"sonoreport/internal/platform/config"
	"sonoreport/internal/platform/httpserver"
	"sonoreport/internal/platform/logger"
)

func main() {
	cfg := config.ServerFromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var identityStore identity.Store
	var subStore license.SubscriptionStore
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
		identityStore = identity.NewPostgresStore(db)
		subStore = license.NewPostgresSubscriptionStore(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		identityStore = identity.NewInMemoryStore()
		subStore = license.NewInMemorySubscriptionStore()
	}

	var revoked license.RevocationList = license.NoopRevocationList{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("parse redis URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Error("ping redis", "error", err)
			os.Exit(1)
		}
		revoked = license.NewRedisRevocationList(client)
	}

	var events license.EventPublisher = license.NoopEventPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := license.NewKafkaEventPublisher(cfg.KafkaBrokers, "sonoreport.licenses", log)
		if err != nil {
			log.Error("kafka publisher", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		events = publisher
	}

	tokens := identity.NewTokenService(cfg.JWTSigningKey, "sonoreport")
	identities, err := identity.NewService(identityStore, tokens)
	if err != nil {
		log.Error("identity service", "error", err)
		os.Exit(1)
	}
	licenses, err := license.NewService(subStore, identities, revoked, events, log, cfg.LicenseDuration, cfg.MaxDevices)
	if err != nil {
		log.Error("license service", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	licensehandler.New(licenses, identities, cfg.AdminToken, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("license service listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	go runPruneLoop(ctx, licenses, cfg.PruneInterval, log)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// runPruneLoop flips lapsed subscriptions on a fixed schedule. One pass runs
// immediately at startup so a long-stopped deployment catches up.
func runPruneLoop(ctx context.Context, licenses *license.Service, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := licenses.PruneExpiredLicenses(ctx); err != nil {
			log.Error("prune expired licenses", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
