package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"queuecast/internal/config"
	"queuecast/internal/constants"
	"queuecast/internal/history"
	"queuecast/internal/retry"
	"queuecast/internal/service"
	"queuecast/internal/store"
	"queuecast/internal/tracing"
	"queuecast/pkg/circuitbreaker"
	"queuecast/pkg/media"
	"queuecast/pkg/publisher"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("queuecast %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting queuecast")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	tracingManager := tracing.NewTracingManager(tracing.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	docStore, err := store.New(cfg.Storage.DataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize document store: %w", err)
	}

	mediaStore, err := media.NewStore(
		cfg.Media.CacheDir,
		cfg.Media.MaxFileSizeMB,
		time.Duration(cfg.Media.DownloadTimeoutSec)*time.Second,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize media store: %w", err)
	}

	// The history database sometimes takes a moment to become writable on
	// network volumes; retry initialization with backoff.
	var historyStore *history.Store
	if cfg.Storage.HistoryDBPath != "" {
		backoff := retry.NewBackoff(retry.BackoffConfig{
			InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
			MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
			Multiplier:   2.0,
			MaxAttempts:  cfg.Retry.MaxAttempts,
			Jitter:       true,
		})

		err = backoff.Retry(ctx, func() error {
			var initErr error
			historyStore, initErr = history.New(cfg.Storage.HistoryDBPath)
			if initErr != nil {
				logger.Warnf("Failed to initialize history database: %v", initErr)
			}
			return initErr
		})
		if err != nil {
			return fmt.Errorf("failed to initialize history database after retries: %w", err)
		}
		defer historyStore.Close()
	} else {
		logger.Info("Publish history database not configured, auditing disabled")
	}

	gatewayClient := publisher.NewClient(publisher.ClientConfig{
		BaseURL: cfg.Gateway.APIBaseURL,
		APIKey:  os.Getenv("QUEUECAST_GATEWAY_API_KEY"),
		Timeout: time.Duration(cfg.Gateway.TimeoutSec) * time.Second,
	})
	gatewayPublisher := publisher.WithBreaker(gatewayClient,
		circuitbreaker.New("gateway", constants.DefaultBreakerMaxFailures,
			time.Duration(constants.DefaultBreakerCooldownSec)*time.Second, logger))

	var recorder service.PublishRecorder
	if historyStore != nil {
		recorder = historyStore
	}
	scheduler := service.NewScheduler(docStore, mediaStore, gatewayPublisher, recorder, logger)

	publishLoop := service.NewPublishLoop(scheduler,
		time.Duration(cfg.Scheduler.TickIntervalSec)*time.Second, logger)
	if err := publishLoop.Start(ctx); err != nil {
		return fmt.Errorf("failed to start publish loop: %w", err)
	}
	defer publishLoop.Stop()

	var pruner service.HistoryPruner
	if historyStore != nil {
		pruner = historyStore
	}
	cleanup := service.NewCleanupScheduler(mediaStore, pruner,
		cfg.RetentionDays, cfg.Scheduler.CleanupIntervalHours, logger)
	go cleanup.Start(ctx)

	server := NewServer(cfg, scheduler, mediaStore, historyStore, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}
