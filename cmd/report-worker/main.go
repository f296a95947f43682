package main

import (
	"context"
	"errors"
	"os"

	"threepl/internal/amqp"
	"threepl/internal/cli"
	"threepl/internal/log"
	"threepl/internal/worker"
)

const seenReports = 1024

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the report worker",
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()
	ctx = log.WithLogger(ctx, logger)

	w := worker.NewReportWorker(logger, seenReports, nil)
	logger.Info("Starting report-worker",
		log.FieldOperation, log.OpStartup,
		"queue", cfg.AMQPQueue)

	if err := client.ConsumeReports(ctx, w.HandleReportMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
}
