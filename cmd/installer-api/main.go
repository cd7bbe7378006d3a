package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/edvin/siteinstaller/internal/api"
	"github.com/edvin/siteinstaller/internal/api/handler"
	"github.com/edvin/siteinstaller/internal/config"
	"github.com/edvin/siteinstaller/internal/db"
	"github.com/edvin/siteinstaller/internal/history"
	"github.com/edvin/siteinstaller/internal/installer"
	"github.com/edvin/siteinstaller/internal/logging"
	"github.com/edvin/siteinstaller/internal/metrics"
	"github.com/edvin/siteinstaller/internal/mysql"
)

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before reading the environment")
	migrateFlag := flag.Bool("migrate", false, "Run history database migrations before starting")
	flag.Parse()

	// A missing .env is fine; real environment variables always win.
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if err := os.MkdirAll(cfg.StagingDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.StagingDir).Msg("failed to create staging directory")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dc, err := mysql.DriverConfig(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure mysql")
	}
	mysqlPool, err := mysql.Open(logger, dc)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open mysql pool")
	}
	defer mysqlPool.Close()
	metrics.RegisterMySQLPoolMetrics(prometheus.DefaultRegisterer, mysqlPool.DB())

	checks := map[string]api.Pinger{"mysql": mysqlPool}

	var recorder interface {
		history.Recorder
		history.Lister
	} = history.NopRecorder{}

	if cfg.HistoryDatabaseURL != "" {
		if *migrateFlag {
			logger.Info().Msg("running history database migrations")
			if err := db.RunMigrations(cfg.HistoryDatabaseURL); err != nil {
				logger.Fatal().Err(err).Msg("migration failed")
			}
		}

		historyPool, err := db.NewHistoryPool(ctx, cfg.HistoryDatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to history database")
		}
		defer historyPool.Close()
		metrics.RegisterHistoryPoolMetrics(prometheus.DefaultRegisterer, historyPool)

		recorder = history.NewPGRecorder(historyPool)
		checks["history"] = historyPool
		logger.Info().Msg("provision history enabled")
	}

	pipeline := installer.New(installer.Config{
		StagingDir:      cfg.StagingDir,
		ExportRoot:      cfg.ExportRoot,
		MaxExtractBytes: cfg.MaxExtractBytes,
	},
		installer.WithLogger(logger),
		installer.WithRecorder(recorder),
	)

	srv := api.NewServer(logger, cfg, api.Deps{
		Batcher:  pipeline,
		Sessions: func() handler.Session { return mysqlPool.Session() },
		History:  recorder,
		Checks:   checks,
	})

	// Batches run for as long as they need, so there is no write timeout.
	httpServer := &http.Server{
		Addr:              cfg.HTTPListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if cfg.MetricsListenAddr != "" {
		metricsServer := metrics.NewServer(cfg.MetricsListenAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer metricsServer.Close()
	}

	go func() {
		logger.Info().
			Str("addr", cfg.HTTPListenAddr).
			Str("staging_dir", cfg.StagingDir).
			Str("export_root", cfg.ExportRoot).
			Msg("starting installer API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server, waiting for running batches")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown did not complete")
	}
}
