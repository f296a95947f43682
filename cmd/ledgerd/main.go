package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"threepl/internal/amqp"
	"threepl/internal/cache"
	"threepl/internal/cli"
	apphttp "threepl/internal/http"
	"threepl/internal/log"
	"threepl/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	cat, variant, err := cli.LoadCatalog(cfg)
	if err != nil {
		logger.Error("Failed to load catalog", log.FieldError, err, log.FieldVariant, cfg.Variant)
		os.Exit(1)
	}

	store, closer, err := cli.OpenStore(cfg)
	if err != nil {
		logger.Error("Failed to open ledger store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := cli.SeedLedger(ctx, cfg, store, variant, logger); err != nil {
		logger.Error("Failed to seed ledger", log.FieldError, err)
		os.Exit(1)
	}

	metrics := cache.NewMetrics(cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager()
	caches.Register(metrics)

	opts := []services.Option{
		services.WithCache(metrics),
		services.WithLogger(logger),
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Reports are best effort; the API still serves metrics.
			logger.Warn("AMQP unavailable, report export disabled", log.FieldError, err)
		} else {
			defer client.Close()
			opts = append(opts, services.WithPublisher(client))
		}
	}

	svc, err := services.NewLedgerService(store, variant, cat.Freight, opts...)
	if err != nil {
		logger.Error("Failed to build ledger service", log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 35 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledgerd",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			log.FieldVariant, variant.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		caches.Start(log.WithLogger(gctx, logger), time.Minute)
		<-gctx.Done()
		caches.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
