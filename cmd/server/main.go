// Package main provides the entry point for the CME level-retracement
// trading engine server: it wires configuration, logging, persistence,
// one or more strategy instances, the ingest dispatcher, the broker
// adapter, and the HTTP ingest/metrics surface, then runs until a
// shutdown signal arrives.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bingolead/retracement-engine/internal/api"
	"github.com/bingolead/retracement-engine/internal/broker"
	"github.com/bingolead/retracement-engine/internal/config"
	"github.com/bingolead/retracement-engine/internal/dispatch"
	"github.com/bingolead/retracement-engine/internal/persistence"
	"github.com/bingolead/retracement-engine/internal/strategy"
)

func main() {
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(err)
	}

	logger := setupLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting retracement engine",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("paperTrading", cfg.PaperTrading),
		zap.Int("strategies", len(cfg.Strategies)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := persistence.Open(cfg.Persistence.DSN, logger)
	if err != nil {
		logger.Fatal("failed to open persistence store", zap.Error(err))
	}
	defer store.Close()

	brokerAdapter, stopBroker := buildBrokerAdapter(ctx, cfg, logger)
	if stopBroker != nil {
		defer stopBroker()
	}

	metrics := api.NewMetrics()
	meteredStore := api.WrapStore(store, metrics)

	strategies := buildStrategies(ctx, cfg, brokerAdapter, meteredStore, logger)
	if len(strategies) == 0 {
		logger.Fatal("no strategies configured")
	}

	dispatcher := dispatch.New(strategies, logger)
	httpServer := api.NewServer(logger, cfg.Server.Host, cfg.Server.Port, dispatcher, metrics)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error("ingest server error", zap.Error(err))
		}
	}()

	logger.Info("engine started", zap.String("webhook", "/webhook"), zap.String("metrics", "/metrics"))

	<-sigChan
	logger.Info("shutdown signal received")
	cancel()

	for _, s := range strategies {
		if err := s.SaveState(context.Background()); err != nil {
			logger.Error("failed to save strategy state on shutdown", zap.String("strategy", s.Name()), zap.Error(err))
		}
		s.PrintTradeStats()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", zap.Error(err))
	}

	logger.Info("engine stopped")
}

// buildStrategies constructs one LevelRetracementStrategy per configured
// definition, loading its static ladder and any previously persisted
// state before it can see its first bar.
func buildStrategies(ctx context.Context, cfg *config.Config, adapter broker.Adapter, store strategy.PersistenceStore, logger *zap.Logger) []*strategy.LevelRetracementStrategy {
	var out []*strategy.LevelRetracementStrategy
	for _, def := range cfg.Strategies {
		if cfg.IsLongOnlyTrade && !def.IsTradingLong {
			logger.Info("skipping short strategy, IS_LONG_ONLY_TRADE is set", zap.String("strategy", def.Name))
			continue
		}

		stratCfg, levels, err := def.BuildStrategyConfig()
		if err != nil {
			logger.Error("skipping invalid strategy definition", zap.String("strategy", def.Name), zap.Error(err))
			continue
		}

		s, err := strategy.New(stratCfg, adapter, store, logger)
		if err != nil {
			logger.Error("failed to construct strategy", zap.String("strategy", def.Name), zap.Error(err))
			continue
		}
		s.LoadLevels(levels)

		if _, err := s.LoadState(ctx); err != nil {
			logger.Error("failed to load saved strategy state", zap.String("strategy", def.Name), zap.Error(err))
		}

		out = append(out, s)
	}
	return out
}

// buildBrokerAdapter returns the live Tradovate adapter when credentials
// are configured, falling back to the in-memory paper-trading adapter
// otherwise (the teacher's --paper flag, expressed as an interface
// choice instead of a boolean threaded through a live client).
func buildBrokerAdapter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (broker.Adapter, func()) {
	if cfg.PaperTrading || cfg.Tradovate.Username == "" {
		logger.Info("paper trading mode: using in-memory broker adapter")
		return broker.NewNoopAdapter(logger), nil
	}

	cred := broker.Credential{
		Name:       cfg.Tradovate.Username,
		Password:   cfg.Tradovate.Password,
		AppID:      cfg.Tradovate.AppID,
		AppVersion: cfg.Tradovate.AppVersion,
		CID:        cfg.Tradovate.CID,
		Sec:        cfg.Tradovate.Secret,
	}
	adapter, err := broker.NewTradovateAdapter(ctx, cfg.Tradovate.APIURL, cfg.Tradovate.Symbol, cred, cfg.Tradovate.RefreshInterval, logger)
	if err != nil {
		logger.Fatal("failed to initialize Tradovate adapter", zap.Error(err))
	}
	return adapter, adapter.Stop
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
