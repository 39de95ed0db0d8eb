package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/growshare/marketplace/internal/bootstrap"
	"github.com/growshare/marketplace/internal/domain/outbox"
	infraRedis "github.com/growshare/marketplace/internal/infrastructure/redis"
	"github.com/growshare/marketplace/internal/repository/postgres"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "growshare-worker", "growshare_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)
	streamProducer := infraRedis.NewStreamProducer(app.Redis)

	workerCfg := app.Config.Worker
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.NotificationStream,
		workerCfg.ConsumerGroup,
		app.Config.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group (may already exist)")
	}

	app.Logger.Info().
		Str("stream", infraRedis.NotificationStream).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", app.Config.InstanceID).
		Msg("Worker started, listening for messages...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Outbox publisher: drains committed entries into Redis Streams.
	g.Go(func() error {
		return runOutboxPublisher(gCtx, app.Logger, txManager, outboxRepo, streamProducer, workerCfg.OutboxPollInterval, app)
	})

	// 2. Notification dispatcher: consumes the stream and hands events to
	// delivery channels.
	g.Go(func() error {
		return runNotificationDispatcher(gCtx, app.Logger, consumer, app)
	})

	// 3. Idempotency key janitor.
	g.Go(func() error {
		return runIdempotencyCleanup(gCtx, app.Logger, idempotencyRepo, workerCfg.IdempotencyTTL)
	})

	// 4. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}

// streamFor routes outbox events: reconciliation flags go to the operator
// review stream, everything else to notification dispatch.
func streamFor(eventType string) string {
	if eventType == outbox.EventReconciliationNeeded {
		return infraRedis.ReconciliationStream
	}
	return infraRedis.NotificationStream
}

func runOutboxPublisher(
	ctx context.Context,
	logger zerolog.Logger,
	txManager *postgres.TxManager,
	outboxRepo *postgres.OutboxRepository,
	streamProducer *infraRedis.StreamProducer,
	pollInterval time.Duration,
	app *bootstrap.App,
) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			entries, err := outboxRepo.GetPending(txCtx, 50)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				stream := streamFor(entry.EventType)
				if err := streamProducer.Publish(
					ctx, stream, entry.AggregateID.String(), entry.EventType, entry.Payload,
				); err != nil {
					logger.Error().Err(err).Str("outbox_id", entry.ID.String()).Msg("Failed to publish outbox event")
					outboxRepo.MarkFailed(txCtx, entry.ID)
					app.Metrics.WorkerMessagesProcessed.WithLabelValues(stream, "publish_error").Inc()
					continue
				}
				outboxRepo.MarkPublished(txCtx, entry.ID)
				app.Metrics.WorkerMessagesProcessed.WithLabelValues(stream, "published").Inc()
			}
			return nil
		})
		if err != nil {
			logger.Error().Err(err).Msg("Outbox publisher error")
		}
	}
}

func runNotificationDispatcher(
	ctx context.Context,
	logger zerolog.Logger,
	consumer *infraRedis.StreamConsumer,
	app *bootstrap.App,
) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := consumer.Read(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read from stream")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				start := time.Now()
				aggregateID, _ := msg.Values["aggregate_id"].(string)
				eventType, _ := msg.Values["event_type"].(string)

				lock := infraRedis.NewDistributedLock(app.Redis, "dispatch:"+msg.ID, app.Config.Payment.LockTTL)
				acquired, err := lock.Acquire(ctx)
				if err != nil || !acquired {
					logger.Warn().Str("message_id", msg.ID).Msg("Could not acquire lock, skipping")
					continue
				}

				// In-app notifications are already persisted by the API;
				// this is where email and push fan-out would hook in.
				logger.Info().
					Str("aggregate_id", aggregateID).
					Str("event_type", eventType).
					Msg("Dispatched event")

				app.Metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.NotificationStream, "success").Inc()
				app.Metrics.WorkerProcessingDuration.WithLabelValues(infraRedis.NotificationStream).Observe(time.Since(start).Seconds())

				lock.Release(ctx)
				consumer.Ack(ctx, msg.ID)
			}
		}
	}
}

func runIdempotencyCleanup(
	ctx context.Context,
	logger zerolog.Logger,
	idempotencyRepo *postgres.IdempotencyRepository,
	interval time.Duration,
) error {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		removed, err := idempotencyRepo.Cleanup(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Idempotency cleanup error")
			continue
		}
		if removed > 0 {
			logger.Info().Int64("removed", removed).Msg("Cleaned up expired idempotency keys")
		}
	}
}
