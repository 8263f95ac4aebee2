// Command server runs the lead intake and distribution backend.
//
// Startup order: env + config, logging, tracing, database, services, HTTP.
// Shutdown order is the reverse, with one extra step: in-flight webhook
// dispatches are drained before the process exits so accepted leads get
// their delivery result recorded.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-leads-backend/internal/config"
	"github.com/tbourn/go-leads-backend/internal/dispatch"
	"github.com/tbourn/go-leads-backend/internal/geo"
	httpapi "github.com/tbourn/go-leads-backend/internal/http"
	"github.com/tbourn/go-leads-backend/internal/observability"
	"github.com/tbourn/go-leads-backend/internal/repo"
	"github.com/tbourn/go-leads-backend/internal/services"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	godotenv.Load()
	cfg := config.MustLoad()

	setupLogging(cfg)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	var resolver geo.Resolver
	if cfg.GeoBaseURL != "" {
		resolver = geo.NewHTTPResolver(cfg.GeoBaseURL, cfg.GeoTimeout)
	}

	leadSvc := &services.LeadService{
		DB:           db,
		Usage:        &services.UsageService{DB: db},
		Dispatcher:   dispatch.NewDispatcher(cfg.WebhookTimeout),
		Geo:          resolver,
		DispatchWait: cfg.DispatchDrain,
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, leadSvc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// Let detached webhook dispatches finish and record their results.
	leadSvc.Close()

	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	log.Info().Msg("bye")
}

// setupLogging sets the global zerolog level and output format.
func setupLogging(cfg config.Config) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
