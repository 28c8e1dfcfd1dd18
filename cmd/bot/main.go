package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ailabhub/tres-guard/internal/bot"
	"github.com/ailabhub/tres-guard/internal/config"
	"github.com/ailabhub/tres-guard/internal/consts"
	"github.com/ailabhub/tres-guard/internal/health"
	"github.com/ailabhub/tres-guard/internal/store"
	"github.com/ailabhub/tres-guard/internal/telegram"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	envErr := godotenv.Load()

	logLevel := flag.String("log-level", "", "Logging level (debug, info, warn, error)")
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if *logLevel == "" {
		*logLevel = cfg.LogLevel
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	slog.SetDefault(logger)

	if envErr != nil {
		slog.Warn("No .env file loaded", "error", envErr)
	}
	if errors.Is(err, config.ErrMissingToken) {
		slog.Error("TELEGRAM_BOT_TOKEN environment variable is not set")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to load config", "error", err, "path", *configPath)
		os.Exit(1)
	}

	var s store.Store
	if cfg.RedisURL != "" {
		rs, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		slog.Info("Connected to Redis")
		s = rs
	} else {
		slog.Warn("REDIS_URL is not set, state is kept in memory and lost on restart")
		s = store.NewMemStore()
	}

	client, err := telegram.New(logger, cfg.Token, telegram.Config{
		RateLimit: cfg.RateLimit,
		Timeout:   cfg.RequestTimeout,
	})
	if err != nil {
		slog.Error("Failed to create Telegram client", "error", err)
		os.Exit(1)
	}

	guard := bot.New(logger, client, s, &bot.Config{
		Workers:       cfg.Workers,
		Keywords:      cfg.Keywords,
		ChartTriggers: cfg.ChartTriggers,
		AdminCacheTTL: cfg.AdminCacheTTL,
		JanitorPeriod: cfg.Janitor.Period,
		EphemeralTTL:  cfg.Janitor.TTL,
	})
	guard.Start(ctx)

	var server *http.Server
	if cfg.Health.Enabled {
		server = health.NewServer(cfg.Health.Addr, consts.BotName)
		go func() {
			slog.Info("Health server listening", "addr", cfg.Health.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Health server failed", "error", err)
			}
		}()
	}

	// Wait for interrupt signal to gracefully shutdown the bot
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down bot...")
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down health server", "error", err)
		}
		shutdownCancel()
	}
	cancel()
	guard.Stop()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "", "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		fmt.Printf("Invalid log level: %s. Defaulting to info.\n", level)
		return slog.LevelInfo
	}
}
