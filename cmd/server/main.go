// Package main is the entry point for the Helix trading-signal service.
// It wires the single sqlite database, the repositories, the scan
// pipeline and the HTTP API, then runs until a shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/helixtrade/helix/internal/analysis"
	"github.com/helixtrade/helix/internal/backtest"
	"github.com/helixtrade/helix/internal/backup"
	"github.com/helixtrade/helix/internal/cache"
	"github.com/helixtrade/helix/internal/clients"
	"github.com/helixtrade/helix/internal/config"
	"github.com/helixtrade/helix/internal/database"
	"github.com/helixtrade/helix/internal/fusion"
	"github.com/helixtrade/helix/internal/modules/alerts"
	"github.com/helixtrade/helix/internal/modules/backtests"
	"github.com/helixtrade/helix/internal/modules/papertrading"
	"github.com/helixtrade/helix/internal/modules/portfolio"
	"github.com/helixtrade/helix/internal/modules/settings"
	"github.com/helixtrade/helix/internal/modules/signals"
	"github.com/helixtrade/helix/internal/notify"
	"github.com/helixtrade/helix/internal/risk"
	"github.com/helixtrade/helix/internal/scheduler"
	"github.com/helixtrade/helix/internal/server"
	"github.com/helixtrade/helix/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	log.Info().Str("data_dir", cfg.DataDir).Int("port", cfg.Port).Msg("Helix starting")

	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileStandard,
		Name:    "helix",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Repositories and substrate
	settingsRepo := settings.NewRepository(db.Conn(), log)
	signalRepo := signals.NewRepository(db.Conn(), log)
	portfolioRepo := portfolio.NewRepository(db.Conn(), log)
	paperRepo := papertrading.NewRepository(db.Conn(), log)
	backtestRepo := backtests.NewRepository(db.Conn(), log)
	alertRepo := alerts.NewRepository(db.Conn(), log)
	dataCache := cache.New(db.Conn(), log)

	// External collaborators. Vendor clients register themselves at build
	// time; absent ones leave their factors out of fusion. Each price
	// vendor has its own token bucket.
	stockLimiter := clients.NewRateLimiter(4, 1)  // 4 vendor calls per second
	cryptoLimiter := clients.NewRateLimiter(4, 1) // 4 vendor calls per second
	ext := clients.Registered()
	prices := clients.NewPriceProvider(ext.StockPrices, ext.CryptoPrices, dataCache, stockLimiter, cryptoLimiter, log)

	// Services
	mlService := analysis.NewMLService(ext.ML, log)
	accuracy := analysis.NewAccuracyTracker(signalRepo, prices, log)
	weightLearner := fusion.NewWeightLearner(signalRepo, dataCache, log)
	riskManager := risk.NewManager(alertRepo, log)
	paperEngine := papertrading.NewEngine(paperRepo, log, papertrading.Options{})
	backtestEngine := backtest.NewEngine(log)
	walkForward := backtest.NewWalkForward(backtestEngine, log)

	var notifier clients.Notifier = ext.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(log)
	}

	pipeline := scheduler.NewPipeline(scheduler.PipelineDeps{
		Settings:     settingsRepo,
		Signals:      signalRepo,
		Cache:        dataCache,
		Prices:       prices,
		ML:           mlService,
		Weights:      weightLearner,
		Accuracy:     accuracy,
		Paper:        paperEngine,
		Market:       ext.Market,
		Fundamentals: ext.Fundamentals,
		News:         ext.News,
		Social:       ext.Social,
		Sentiment:    ext.Sentiment,
		Notifier:     notifier,
		NotifyDest:   cfg.NotifierChat,
	}, log)

	// Background jobs
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.ScanSchedule, &scheduler.ScanJob{Pipeline: pipeline}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register scan job")
	}
	if err := sched.AddJob("0 15 * * * *", &scheduler.CacheCleanupJob{Cache: dataCache, Log: log}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache cleanup job")
	}
	if cfg.BackupBucket != "" {
		uploader, err := backup.NewUploader(context.Background(), cfg.DatabasePath(), cfg.BackupBucket, cfg.BackupPrefix, log)
		if err != nil {
			log.Error().Err(err).Msg("Backup disabled: AWS configuration failed")
		} else if err := sched.AddJob("0 30 2 * * *", &scheduler.BackupJob{Uploader: uploader}); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}
	sched.Start()

	// HTTP API
	srv := server.New(server.Config{
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
		Log:         log,
		Signals:     signalRepo,
		Settings:    settingsRepo,
		Portfolio:   portfolioRepo,
		Paper:       paperEngine,
		PaperRepo:   paperRepo,
		Backtests:   backtestRepo,
		Alerts:      alertRepo,
		Risk:        riskManager,
		Prices:      prices,
		Pipeline:    pipeline,
		Backtest:    backtestEngine,
		WalkForward: walkForward,
		ML:          mlService,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	pipeline.Stop()
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Helix stopped")
}
