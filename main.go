package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/DERNOISenzo/cryptoarenaai-sub000/config"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/api"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/engine"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/external"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/learning"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/market"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/notify"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/risk"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/scanner"
	"github.com/DERNOISenzo/cryptoarenaai-sub000/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.LoggingConfig)
	logger.Info().Msg("starting analysis service")

	// Database is optional: without it the service still analyzes and scans,
	// but learning, persistence and the daily-loss gate are disabled.
	var repo *storage.Repository
	var db *storage.DB
	if cfg.DatabaseConfig.Enabled {
		db, err = storage.NewDB(storage.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()

		if err := db.RunMigrations(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
		repo = storage.NewRepository(db)
	}

	client := market.NewClient(market.ClientConfig{
		BaseURL:        cfg.MarketConfig.BaseURL,
		RequestsPerSec: cfg.MarketConfig.RequestsPerSecond,
		RequestTimeout: time.Duration(cfg.MarketConfig.TimeoutSeconds) * time.Second,
	}, logger)

	var data market.DataSource = client
	if cfg.RedisConfig.Enabled {
		data = market.NewCachedSource(client, market.CacheConfig{
			Enabled:   true,
			Address:   cfg.RedisConfig.Address,
			Password:  cfg.RedisConfig.Password,
			DB:        cfg.RedisConfig.DB,
			CandleTTL: time.Duration(cfg.MarketConfig.CandleTTLSeconds) * time.Second,
			TickerTTL: time.Duration(cfg.MarketConfig.TickerTTLSeconds) * time.Second,
		}, logger)
	}

	// The kline stream wraps the data source so analyze and scan reads hit a
	// warm window for tracked symbols instead of the REST round trip.
	if cfg.StreamConfig.Enabled {
		klineStream := market.NewStream(market.StreamConfig{
			URL:        cfg.StreamConfig.URL,
			Symbols:    cfg.StreamConfig.Symbols,
			Timeframes: cfg.StreamConfig.Timeframes,
			WindowSize: cfg.StreamConfig.WindowSize,
		}, logger)
		klineStream.Start()
		defer klineStream.Stop()
		data = market.NewStreamSource(klineStream, data)
	}

	var adjuster *external.Adjuster
	if cfg.ExternalConfig.Enabled {
		providers := external.NewHTTPProviders(external.ProviderConfig{
			EventsURL:       cfg.ExternalConfig.EventsURL,
			FundamentalsURL: cfg.ExternalConfig.FundamentalsURL,
			NewsURL:         cfg.ExternalConfig.NewsURL,
			Timeout:         time.Duration(cfg.ExternalConfig.TimeoutSeconds) * time.Second,
		})
		adjuster = external.NewAdjuster(providers, providers, providers,
			time.Duration(cfg.ExternalConfig.TimeoutSeconds)*time.Second, logger)
	}

	policy := engine.ForceDirection
	if cfg.EngineConfig.AllowNeutral {
		policy = engine.AllowNeutral
	}
	var losses engine.LossTracker
	if repo != nil {
		losses = repo
	}
	analysisEngine := engine.New(data, risk.NewSizer(logger), adjuster, losses, engine.Config{
		Policy:             policy,
		DefaultCapital:     cfg.EngineConfig.DefaultCapital,
		DefaultRiskPercent: cfg.EngineConfig.DefaultRiskPercent,
		MaxDailyLoss:       cfg.EngineConfig.MaxDailyLoss,
	}, logger)

	marketScanner := scanner.New(data, analysisEngine, scanner.Config{
		Enabled:           cfg.ScannerConfig.Enabled,
		Interval:          cfg.ScannerConfig.ScanInterval(),
		Workers:           cfg.ScannerConfig.Workers,
		MaxSymbols:        cfg.ScannerConfig.MaxSymbols,
		MaxResults:        cfg.ScannerConfig.MaxResults,
		ScoreThreshold:    cfg.ScannerConfig.ScoreThreshold,
		ReferenceSymbol:   cfg.ScannerConfig.ReferenceSymbol,
		QuoteAsset:        cfg.ScannerConfig.QuoteAsset,
		SafetyMovePercent: cfg.ScannerConfig.SafetyMovePercent,
	}, logger)
	notifier := notify.NewManager(cfg.NotifyConfig.Enabled, logger)
	notifier.AddNotifier(notify.NewWebhookNotifier(notify.WebhookConfig{
		Enabled: cfg.NotifyConfig.Enabled,
		URL:     cfg.NotifyConfig.WebhookURL,
		Timeout: time.Duration(cfg.NotifyConfig.TimeoutSeconds) * time.Second,
	}))

	marketScanner.OnResult(func(result *scanner.ScanResult) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, opp := range result.Opportunities {
			if repo != nil {
				rec := &storage.SignalRecord{
					Symbol:     opp.Symbol,
					Direction:  string(opp.Direction),
					EntryPrice: opp.Signal.Entry,
					StopLoss:   opp.Signal.StopLoss,
					TP1:        opp.Signal.TP1,
					TP2:        opp.Signal.TP2,
					TP3:        opp.Signal.TP3,
					Confidence: opp.Confidence,
					Horizon:    string(opp.Signal.Horizon),
					Rationale:  opp.Rationale,
				}
				if err := repo.SaveSignal(ctx, rec); err != nil {
					logger.Warn().Err(err).Str("symbol", opp.Symbol).Msg("persisting signal failed")
				}
			}
			if opp.Confidence >= cfg.NotifyConfig.ConfidenceThreshold {
				_ = notifier.SendSignal(ctx, opp.Symbol, string(opp.Direction),
					opp.Signal.Entry, opp.Signal.StopLoss, opp.Signal.TP1, opp.Confidence, opp.Rationale)
			}
		}
	})
	marketScanner.Start()
	defer marketScanner.Stop()

	var learner *learning.Engine
	if repo != nil {
		learner = learning.NewEngine(repo, repo, logger)
		if cfg.LearningConfig.Enabled {
			go runLearningLoop(learner, cfg.LearningConfig, logger)
		}
	}

	var apiLearner api.Learner
	var apiParams api.ParamsStore
	var health func(ctx context.Context) error
	if repo != nil {
		apiLearner = learner
		apiParams = repo
		health = repo.HealthCheck
	}
	server := api.NewServer(api.ServerConfig{
		Port:           cfg.ServerConfig.Port,
		ProductionMode: cfg.ServerConfig.ProductionMode,
		AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
	}, analysisEngine, marketScanner, apiLearner, apiParams, health, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("API server failed")
		}
	}()

	// Wait for shutdown signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
}

// runLearningLoop periodically reruns the learning pass for the configured
// users.
func runLearningLoop(learner *learning.Engine, cfg config.LearningConfig, logger zerolog.Logger) {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		for _, userID := range cfg.Users {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			report, err := learner.Run(ctx, userID)
			cancel()
			if err != nil {
				logger.Error().Err(err).Str("user", userID).Msg("scheduled learning pass failed")
				continue
			}
			logger.Info().Str("user", userID).Bool("applied", report.Applied).Msg("scheduled learning pass done")
		}
	}
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.JSONFormat {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
