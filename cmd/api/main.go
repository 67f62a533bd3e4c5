package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"suppletrack/internal/adapters/auth/jwtauth"
	"suppletrack/internal/adapters/resync"
	pg "suppletrack/internal/adapters/storage/postgres"
	"suppletrack/internal/config"
	"suppletrack/internal/platform/logger"
	"suppletrack/internal/ports/auth"
	"suppletrack/internal/router"
)

func main() {
	log := logger.NewFromEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", map[string]any{"err": err.Error()})
		os.Exit(1)
	}

	var db *sql.DB
	if cfg.DatabaseDSN != "" {
		db, err = pg.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Error("db open failed", map[string]any{"err": err.Error()})
			os.Exit(1)
		}
		defer db.Close()
	}

	var verifier auth.AuthVerifier // nil = modo dev (X-Debug-User-ID)
	if cfg.JWTSecret != "" {
		verifier = jwtauth.New(cfg.JWTSecret)
	}

	app := router.New(router.Options{
		AuthVerifier:       verifier,
		DB:                 db,
		Log:                log,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Pase inicial: al arrancar no se confía en nada previo, se deriva
	// el conjunto de wake-ups desde cero.
	if _, err := app.Scheduler.Reschedule(context.Background()); err != nil {
		log.Error("initial reschedule failed", map[string]any{"err": err.Error()})
	}

	job := resync.New(app.Scheduler, cfg.ResyncEvery, log)
	if err := job.Start(); err != nil {
		log.Error("resync job start failed", map[string]any{"err": err.Error()})
		os.Exit(1)
	}
	defer job.Stop()

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      app.Handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": cfg.HTTPAddr})
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error("server error", map[string]any{"err": err.Error()})
			os.Exit(1)
		}
	case sig := <-stop:
		log.Info("shutting down", map[string]any{"signal": sig.String()})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("shutdown error", map[string]any{"err": err.Error()})
		}
	}
}
