// Package usecase implements the delivery outbox business logic: the publish
// batch job and the operator-facing outbox operations.
package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	adsdomain "github.com/allisson/conversions/internal/ads/domain"
	"github.com/allisson/conversions/internal/ads/mapper"
	"github.com/allisson/conversions/internal/database"
	"github.com/allisson/conversions/internal/metrics"
	"github.com/allisson/conversions/internal/outbox/domain"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

// Config holds publisher configuration.
type Config struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// DeliveryRepository defines the outbox operations the publisher needs.
type DeliveryRepository interface {
	FetchPending(ctx context.Context, limit int) ([]*domain.Delivery, error)
	MarkDelivered(ctx context.Context, eventID string, platform outcomedomain.Platform, response string) error
	MarkFailed(ctx context.Context, eventID string, platform outcomedomain.Platform, message string) error
	MoveToDeadLetter(ctx context.Context, maxRetries int) (int64, error)
}

// WriterRegistry resolves a write port per platform.
// Satisfied by ads/domain.Registry.
type WriterRegistry interface {
	Writer(platform outcomedomain.Platform) adsdomain.AdsWritePort
}

// UseCase defines the interface for the publisher.
type UseCase interface {
	Start(ctx context.Context) error
	Execute(ctx context.Context, batchSize int) (int, error)
}

// PublisherUseCase drains pending deliveries to the platform write ports.
type PublisherUseCase struct {
	config       Config
	txManager    database.TxManager
	deliveryRepo DeliveryRepository
	writers      WriterRegistry
	metrics      metrics.BusinessMetrics
	logger       *slog.Logger
}

// NewPublisherUseCase creates a new PublisherUseCase.
func NewPublisherUseCase(
	config Config,
	txManager database.TxManager,
	deliveryRepo DeliveryRepository,
	writers WriterRegistry,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *PublisherUseCase {
	return &PublisherUseCase{
		config:       config,
		txManager:    txManager,
		deliveryRepo: deliveryRepo,
		writers:      writers,
		metrics:      businessMetrics,
		logger:       logger,
	}
}

// Start runs publish cycles on the configured interval until the context is done.
// The core does not assume any particular scheduler; this loop is one possible
// external trigger.
func (uc *PublisherUseCase) Start(ctx context.Context) error {
	if uc.logger != nil {
		uc.logger.Info("starting outcome delivery publisher",
			slog.Duration("interval", uc.config.Interval),
			slog.Int("batch_size", uc.config.BatchSize),
		)
	}

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if uc.logger != nil {
				uc.logger.Info("stopping outcome delivery publisher")
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := uc.Execute(ctx, uc.config.BatchSize); err != nil {
				if uc.logger != nil {
					uc.logger.Error("publish cycle failed", slog.Any("error", err))
				}
			}
		}
	}
}

// Execute runs one publish cycle: promote exhausted rows to dead_letter, fetch
// a bounded pending batch, map and send each row, record the result. It
// returns the number of successful sends; skips and failures never count.
// Per-row errors are swallowed so one bad row never crashes the batch.
func (uc *PublisherUseCase) Execute(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = uc.config.BatchSize
	}

	processed := 0
	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		// Dead-letter promotion runs before the fetch so no row past the
		// retry ceiling is attempted in the cycle that demotes it.
		moved, err := uc.deliveryRepo.MoveToDeadLetter(ctx, uc.config.MaxRetries)
		if err != nil {
			return err
		}
		if moved > 0 {
			if uc.logger != nil {
				uc.logger.Warn("deliveries moved to dead letter", slog.Int64("count", moved))
			}
			uc.recordMetric(ctx, "dead_letter", moved)
		}

		deliveries, err := uc.deliveryRepo.FetchPending(ctx, batchSize)
		if err != nil {
			return err
		}
		if len(deliveries) == 0 {
			return nil
		}

		if uc.logger != nil {
			uc.logger.Info("publishing deliveries", slog.Int("count", len(deliveries)))
		}

		for _, delivery := range deliveries {
			if uc.publishDelivery(ctx, delivery) {
				processed++
			}
		}

		return nil
	})
	if err != nil {
		return processed, err
	}

	return processed, nil
}

// publishDelivery sends one row to its platform; reports whether the send succeeded.
func (uc *PublisherUseCase) publishDelivery(ctx context.Context, delivery *domain.Delivery) bool {
	writer := uc.writers.Writer(delivery.Platform)
	if writer == nil {
		// Deployment misconfiguration, not a data error: the row stays
		// pending without a retry increment and shows up in status/health.
		if uc.logger != nil {
			uc.logger.Warn("no writer registered for platform",
				slog.String("platform", delivery.Platform.String()),
				slog.String("event_id", delivery.EventID),
			)
		}
		return false
	}

	var event outcomedomain.OutcomeEvent
	if err := json.Unmarshal([]byte(delivery.Payload), &event); err != nil {
		uc.markFailed(ctx, delivery, "invalid payload: "+err.Error())
		return false
	}

	payload := mapper.ForPlatform(delivery.Platform, &event)

	response, err := writer.SendEvent(ctx, payload)
	if err != nil {
		if uc.logger != nil {
			uc.logger.Error("failed to send event",
				slog.String("platform", delivery.Platform.String()),
				slog.String("event_id", delivery.EventID),
				slog.Int("retry_count", delivery.RetryCount),
				slog.Any("error", err),
			)
		}
		uc.markFailed(ctx, delivery, err.Error())
		return false
	}

	responseJSON, marshalErr := json.Marshal(response)
	if marshalErr != nil {
		responseJSON = []byte("{}")
	}

	if err := uc.deliveryRepo.MarkDelivered(ctx, delivery.EventID, delivery.Platform, string(responseJSON)); err != nil {
		if uc.logger != nil {
			uc.logger.Error("failed to mark delivery as delivered",
				slog.String("event_id", delivery.EventID),
				slog.Any("error", err),
			)
		}
		return false
	}

	uc.recordMetric(ctx, "delivered", 1)
	return true
}

// markFailed records a transient failure and the failure metric.
func (uc *PublisherUseCase) markFailed(ctx context.Context, delivery *domain.Delivery, message string) {
	if err := uc.deliveryRepo.MarkFailed(ctx, delivery.EventID, delivery.Platform, message); err != nil {
		if uc.logger != nil {
			uc.logger.Error("failed to mark delivery as failed",
				slog.String("event_id", delivery.EventID),
				slog.Any("error", err),
			)
		}
		return
	}
	uc.recordMetric(ctx, "failed", 1)
}

// recordMetric records a delivery operation metric when metrics are enabled.
func (uc *PublisherUseCase) recordMetric(ctx context.Context, status string, count int64) {
	if uc.metrics == nil {
		return
	}
	for i := int64(0); i < count; i++ {
		uc.metrics.RecordOperation(ctx, "outbox", "publish", status)
	}
}
