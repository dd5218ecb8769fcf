package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finx/internal/advisor"
	"finx/internal/amqp"
	"finx/internal/backend"
	"finx/internal/cache"
	"finx/internal/cli"
	"finx/internal/config"
	apphttp "finx/internal/http"
	"finx/internal/log"
	"finx/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	// Storage backend
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	opts := []services.Option{services.WithLogger(logger)}
	readyChecks := map[string]apphttp.ReadyCheck{"storage": store.Ready}

	// Events are optional; without AMQP_URL the export worker is simply not fed.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		opts = append(opts, services.WithPublisher(amqpClient))
		readyChecks["amqp"] = func(context.Context) error {
			if !amqpClient.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}
		logger.Info("AMQP publisher enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	if cfg.AdvisorEnabled() {
		chat, err := advisor.NewClient(advisor.Config{
			BaseURL:     cfg.AdvisorBaseURL,
			APIKey:      cfg.AdvisorAPIKey,
			Model:       cfg.AdvisorModel,
			Temperature: cfg.AdvisorTemperature,
			MaxTokens:   cfg.AdvisorMaxTokens,
			Timeout:     cfg.AdvisorTimeout,
		})
		if err != nil {
			logger.Error("Failed to initialize advisor client", log.FieldError, err)
			os.Exit(1)
		}
		opts = append(opts, services.WithChatModel(chat))
		logger.Info("Advisor enabled", "model", cfg.AdvisorModel)
	}

	projections := cache.NewProjectionCache(cfg.ProjectionCacheSize, cfg.ProjectionCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(projections)
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()
	opts = append(opts, services.WithProjectionCache(projections))

	svc, err := services.NewFinanceService(ctx, store.Store, opts...)
	if err != nil {
		logger.Error("Failed to initialize finance service", log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RequestsPerMinute: cfg.RateLimit,
		ReadyChecks:       readyChecks,
		Logger:            logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting finx server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
