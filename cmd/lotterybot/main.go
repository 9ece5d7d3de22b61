package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/susu3304/lotterybot/internal/api"
	"github.com/susu3304/lotterybot/internal/bot"
	"github.com/susu3304/lotterybot/internal/config"
	"github.com/susu3304/lotterybot/internal/db"
	"github.com/susu3304/lotterybot/internal/filestore"
	"github.com/susu3304/lotterybot/internal/lottery"
	"github.com/susu3304/lotterybot/internal/metrics"
	"github.com/susu3304/lotterybot/internal/sqlitestore"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Init("lotterybot", true, false, io.Discard).Fatalf("Failed to load config: %v", err)
	}

	var logFile io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Init("lotterybot", true, false, io.Discard).Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logFile = f
	}
	defer logger.Init("lotterybot", cfg.LogVerbose, false, logFile).Close()

	template, err := config.LoadPrizeTemplate(cfg.TemplateFile)
	if err != nil {
		logger.Fatalf("Failed to load prize template: %v", err)
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", cfg.Store, err)
	}
	defer closeStore()

	manager := lottery.NewManager(store, template,
		lottery.WithMetrics(metrics.NewLotteryMetrics(prometheus.DefaultRegisterer)),
	)
	restoreState(ctx, manager)

	// Initialize Discord bot
	discordBot, err := bot.New(cfg.DiscordToken, manager, cfg.FlushInterval)
	if err != nil {
		logger.Fatalf("Failed to create discord bot: %v", err)
	}
	if err := discordBot.Start(); err != nil {
		logger.Fatalf("Failed to start discord bot: %v", err)
	}

	// Start API server
	var apiServer *api.API
	if cfg.WebEnabled() {
		apiServer = api.New(cfg, manager, prometheus.DefaultGatherer)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Errorf("API server error: %v", err)
			}
		}()
	} else {
		logger.Warning("DISCORD_CLIENT_ID/DISCORD_CLIENT_SECRET not set, web API disabled")
	}

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if apiServer != nil {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("API server shutdown: %v", err)
		}
	}
	if err := discordBot.Stop(); err != nil {
		logger.Errorf("Discord session close: %v", err)
	}
	if err := manager.Flush(shutdownCtx); err != nil {
		logger.Errorf("Final flush failed: %v", err)
	}
}

// restoreState loads the saved lottery state. A missing or unreadable state
// is logged and the bot starts empty.
func restoreState(ctx context.Context, m *lottery.Manager) {
	err := m.Restore(ctx)
	switch {
	case err == nil:
	case errors.Is(err, lottery.ErrNoSnapshot):
		logger.Info("No saved lottery state, starting empty")
	default:
		logger.Errorf("Failed to restore lottery state, starting empty: %v", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (lottery.Store, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(ctx); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return database, database.Close, nil
	case config.StoreSQLite:
		s, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return filestore.New(cfg.DataFile), func() {}, nil
	}
}
