package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/nafstore/internal/backend"
	"github.com/OFFIS-RIT/nafstore/internal/config"
	"github.com/OFFIS-RIT/nafstore/internal/queue"
	"github.com/OFFIS-RIT/nafstore/internal/storage"
	"github.com/OFFIS-RIT/nafstore/pkg/assembler"
	"github.com/OFFIS-RIT/nafstore/pkg/logger"
	"github.com/OFFIS-RIT/nafstore/pkg/logger/console"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

func main() {
	cfg, err := config.Load(viper.New(), os.Getenv("NAFSTORE_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Format: cfg.LogFormat,
	})
	logger.Init(consoleLogger)

	be, err := backend.Open(ctx, cfg.Store, cfg.Worker.LockTTL, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("Failed to open store", "err", err)
	}
	defer be.Close()

	opts := []assembler.Option{assembler.WithDefaults(cfg.NAF.Lang, cfg.NAF.Version)}
	if cfg.Store.AppendOnly {
		opts = append(opts, assembler.WithAppendOnly())
	}
	processor := &queue.Processor{
		Assembler:  assembler.New(be.Store, opts...),
		Locker:     be.Locker,
		FetchTries: cfg.Worker.FetchTries,
	}

	if cfg.S3.Bucket != "" {
		bucket, err := storage.NewBucket(ctx, cfg.S3)
		if err != nil {
			logger.Fatal("Failed to create S3 client", "err", err)
		}
		processor.Source = bucket
	}

	conn, err := queue.Init(cfg.RabbitMQ)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queues := queue.Queues()
	if err := queue.SetupQueues(ch, queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	// One consumer channel with prefetch 1 delivers a single message at a
	// time across all queues.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	deliveries, err := queue.Deliveries(ctx, consumerCh, queues)
	if err != nil {
		logger.Fatal("Failed to start consuming", "err", err)
	}
	logger.Info("Listening for messages", "queues", queues)

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case d := <-deliveries:
				startTime := time.Now()
				logger.Debug("Received message", "queue", d.Queue)

				if err := processor.Process(ctx, d.Queue, d.Body); err != nil {
					logger.Error("Error processing message", "queue", d.Queue, "err", err)
					queue.HandleProcessingError(consumerCh, d.Delivery, d.Queue, cfg.Worker.MaxRetries, err)
					continue
				}
				if err := d.Ack(false); err != nil {
					logger.Error("Failed to ack message", "err", err)
				}
				logger.Info("Message processed", "queue", d.Queue, "duration", time.Since(startTime))
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}
