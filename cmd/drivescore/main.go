package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/drivescore/internal/api"
	"github.com/MikeSquared-Agency/drivescore/internal/braking"
	"github.com/MikeSquared-Agency/drivescore/internal/cache"
	"github.com/MikeSquared-Agency/drivescore/internal/config"
	"github.com/MikeSquared-Agency/drivescore/internal/hermes"
	"github.com/MikeSquared-Agency/drivescore/internal/pipeline"
	"github.com/MikeSquared-Agency/drivescore/internal/scoring"
	"github.com/MikeSquared-Agency/drivescore/internal/session"
	"github.com/MikeSquared-Agency/drivescore/internal/slack"
	"github.com/MikeSquared-Agency/drivescore/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("drivescore starting", "port", cfg.Port, "store", cfg.StoreDriver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session store
	db, err := store.Open(ctx, store.Options{
		Driver:      cfg.StoreDriver,
		Path:        cfg.StorePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		slog.Error("failed to open session store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("session store ready", "driver", cfg.StoreDriver)

	table, err := scoring.ParsePercentileTable(cfg.PercentileTable)
	if err != nil {
		slog.Error("invalid PERCENTILE_TABLE", "error", err)
		os.Exit(1)
	}

	scores := scoring.NewAggregator(table, slog.Default(), time.Now)
	sessions := session.NewAggregator(ctx, db, scores, slog.Default(),
		session.WithMinDuration(cfg.MinSessionSecs),
	)

	opts := []pipeline.Option{
		pipeline.WithQueueSize(cfg.QueueSize),
		pipeline.WithDetector(braking.NewDetector(cfg.BrakeThreshold, cfg.BrakeCooldown, cfg.BrakingWindow)),
	}

	// NATS/Hermes (optional; the HTTP API accepts samples too)
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		opts = append(opts, pipeline.WithPublisher(hermesClient))
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, events will not be published")
	}

	// Redis state snapshots (optional)
	if rdb := cache.Connect(cfg.RedisAddr, cfg.RedisPassword); rdb != nil {
		snapshots := cache.NewSnapshots(rdb)
		defer snapshots.Close()
		opts = append(opts, pipeline.WithCache(snapshots))
		slog.Info("redis snapshot cache ready", "addr", cfg.RedisAddr)
	}

	// Slack poster (optional)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		opts = append(opts, pipeline.WithNotifier(slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())))
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	}

	p := pipeline.New(sessions, scores, db, slog.Default(), opts...)
	p.Restore(ctx)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		p.Run(ctx)
	}()

	if hermesClient != nil {
		if err := hermesClient.SubscribeSamples(p); err != nil {
			slog.Error("failed to subscribe to sample subjects", "error", err)
			os.Exit(1)
		}
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, p, slog.Default())
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("drivescore ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown error", "error", err)
	}

	// Stop the pipeline and let queued work finish before the store closes.
	cancel()
	<-runDone
	slog.Info("drivescore stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
