package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"qaboard/internal/auth"
	"qaboard/internal/config"
	"qaboard/internal/db"
	"qaboard/internal/flash"
	"qaboard/internal/handlers"
	"qaboard/internal/logger"
	"qaboard/internal/models"
	"qaboard/internal/service"
	"qaboard/web"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogPretty)

	if cfg.DBDriver == "sqlite" || cfg.DBDriver == "sqlite3" {
		// Create data dir for DB
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0755); err != nil {
			log.Fatal().Err(err).Msg("could not create data dir")
		}
	}

	dbc, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("could not open database")
	}
	defer dbc.Close()

	if err := db.Migrate(context.Background(), dbc); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	tpls, err := web.Templates()
	if err != nil {
		log.Fatal().Err(err).Msg("could not parse templates")
	}

	sessions := auth.NewManager(dbc, cfg.SessionTTL, cfg.SecureCookies)
	h := handlers.New(
		service.New(models.NewStore(dbc)),
		sessions,
		flash.New(cfg.SessionSecret, cfg.SecureCookies),
		tpls,
	)

	c := cron.New()
	if _, err := c.AddFunc("@every 1h", func() {
		n, err := sessions.PurgeExpired(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("session purge failed")
			return
		}
		log.Debug().Int64("purged", n).Msg("expired sessions purged")
	}); err != nil {
		log.Fatal().Err(err).Msg("could not schedule session purge")
	}
	c.Start()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("driver", cfg.DBDriver).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	<-c.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
