package usecase

import (
	"context"
	"time"

	"github.com/allisson/conversions/internal/outbox/domain"
)

// OpsDeliveryRepository defines the outbox operations the operator surface needs.
type OpsDeliveryRepository interface {
	StatusSummary(ctx context.Context) ([]domain.StatusCount, error)
	ReplayFailed(ctx context.Context, platform string) (int64, error)
	ReplayDeadLetter(ctx context.Context, platform string, limit int) (int64, error)
	PurgeDelivered(ctx context.Context, olderThan time.Time) (int64, error)
	CountsSince(ctx context.Context, since time.Time) (*domain.HealthCounts, error)
}

// InsightCounter reports recent insight-row activity for the health command.
type InsightCounter interface {
	CountRowsSince(ctx context.Context, since time.Time) (int64, error)
}

// HealthReport aggregates the operational picture printed by `ads health`.
type HealthReport struct {
	ActiveAccounts  []string
	InsightRows24h  int64
	OutcomeCounts   map[domain.DeliveryStatus]int64
	DeadLetterCount int64
}

// OpsUseCase implements the operator-facing outbox commands.
type OpsUseCase struct {
	deliveryRepo   OpsDeliveryRepository
	insightCounter InsightCounter
	activeAccounts []string
}

// NewOpsUseCase creates a new OpsUseCase. insightCounter may be nil when the
// read-side sync is not deployed.
func NewOpsUseCase(
	deliveryRepo OpsDeliveryRepository,
	insightCounter InsightCounter,
	activeAccounts []string,
) *OpsUseCase {
	return &OpsUseCase{
		deliveryRepo:   deliveryRepo,
		insightCounter: insightCounter,
		activeAccounts: activeAccounts,
	}
}

// Status aggregates counts and retry statistics per (platform, status).
func (uc *OpsUseCase) Status(ctx context.Context) ([]domain.StatusCount, error) {
	return uc.deliveryRepo.StatusSummary(ctx)
}

// ReplayFailed resets pending rows with a non-zero retry count back to fresh
// pending. The caller re-dispatches a publish run afterwards.
func (uc *OpsUseCase) ReplayFailed(ctx context.Context, platform string) (int64, error) {
	return uc.deliveryRepo.ReplayFailed(ctx, platform)
}

// ReplayDeadLetter resets dead-lettered rows to fresh pending.
func (uc *OpsUseCase) ReplayDeadLetter(ctx context.Context, platform string, limit int) (int64, error) {
	return uc.deliveryRepo.ReplayDeadLetter(ctx, platform, limit)
}

// PurgeDelivered hard-deletes delivered rows older than the given number of days.
func (uc *OpsUseCase) PurgeDelivered(ctx context.Context, days int) (int64, error) {
	olderThan := time.Now().AddDate(0, 0, -days)
	return uc.deliveryRepo.PurgeDelivered(ctx, olderThan)
}

// Health builds the operational report: active accounts, last-24h insight rows
// and last-24h outcome delivery counts by status.
func (uc *OpsUseCase) Health(ctx context.Context) (*HealthReport, error) {
	since := time.Now().Add(-24 * time.Hour)

	report := &HealthReport{
		ActiveAccounts: uc.activeAccounts,
		OutcomeCounts:  make(map[domain.DeliveryStatus]int64),
	}

	counts, err := uc.deliveryRepo.CountsSince(ctx, since)
	if err != nil {
		return nil, err
	}
	report.OutcomeCounts = counts.ByStatus

	// The dead-letter warning covers the whole table, not just the last day:
	// a stuck row from last week still needs an operator.
	summary, err := uc.deliveryRepo.StatusSummary(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range summary {
		if row.Status == domain.DeliveryStatusDeadLetter {
			report.DeadLetterCount += row.Count
		}
	}

	if uc.insightCounter != nil {
		insightRows, err := uc.insightCounter.CountRowsSince(ctx, since)
		if err != nil {
			return nil, err
		}
		report.InsightRows24h = insightRows
	}

	return report, nil
}
