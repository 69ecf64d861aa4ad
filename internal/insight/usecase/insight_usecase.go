// Package usecase implements the read-side sync: pulling campaign structure
// and spend insights from the advertising platforms into local storage.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	adsdomain "github.com/allisson/conversions/internal/ads/domain"
	"github.com/allisson/conversions/internal/database"
	"github.com/allisson/conversions/internal/insight/domain"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

// InsightRepository is the persistence contract for the read-side sync.
type InsightRepository interface {
	UpsertCampaigns(ctx context.Context, campaigns []domain.Campaign) error
	UpsertAdSets(ctx context.Context, adSets []domain.AdSet) error
	UpsertAds(ctx context.Context, ads []domain.Ad) error
	UpsertInsightRows(ctx context.Context, rows []domain.InsightRow) error
}

// ReaderRegistry resolves the read port for a platform, nil when the platform
// has no configured credentials.
type ReaderRegistry interface {
	Reader(platform outcomedomain.Platform) adsdomain.AdsReadPort
}

// UseCase is the interface for the read-side sync operations.
type UseCase interface {
	SyncCampaigns(ctx context.Context, platforms []outcomedomain.Platform) error
	SyncInsights(ctx context.Context, platforms []outcomedomain.Platform, dateRange domain.DateRange) error
}

// InsightUseCase implements UseCase on top of the platform read ports.
type InsightUseCase struct {
	txManager  database.TxManager
	repository InsightRepository
	registry   ReaderRegistry
	accounts   map[outcomedomain.Platform]string
	logger     *slog.Logger
}

// NewInsightUseCase creates a new InsightUseCase. accounts maps each platform
// to the ad account the sync should pull from.
func NewInsightUseCase(
	txManager database.TxManager,
	repository InsightRepository,
	registry ReaderRegistry,
	accounts map[outcomedomain.Platform]string,
	logger *slog.Logger,
) *InsightUseCase {
	return &InsightUseCase{
		txManager:  txManager,
		repository: repository,
		registry:   registry,
		accounts:   accounts,
		logger:     logger,
	}
}

// SyncCampaigns pulls the campaign/ad-set/ad structure from each requested
// platform concurrently and upserts it. Platforms without a configured reader
// or account are skipped with a warning rather than failing the run.
func (i *InsightUseCase) SyncCampaigns(ctx context.Context, platforms []outcomedomain.Platform) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for _, platform := range platforms {
		reader, accountID, ok := i.resolve(platform, "sync-campaigns")
		if !ok {
			continue
		}

		group.Go(func() error {
			return i.syncPlatformCampaigns(groupCtx, reader, accountID)
		})
	}

	return group.Wait()
}

func (i *InsightUseCase) syncPlatformCampaigns(ctx context.Context, reader adsdomain.AdsReadPort, accountID string) error {
	platform := reader.Platform()

	campaigns, err := reader.ListCampaigns(ctx, accountID)
	if err != nil {
		i.logError("campaign-sync-list-error", platform, err)
		return err
	}

	adSets, err := reader.ListAdSets(ctx, accountID)
	if err != nil {
		i.logError("campaign-sync-list-error", platform, err)
		return err
	}

	ads, err := reader.ListAds(ctx, accountID)
	if err != nil {
		i.logError("campaign-sync-list-error", platform, err)
		return err
	}

	err = i.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := i.repository.UpsertCampaigns(txCtx, campaigns); err != nil {
			return err
		}
		if err := i.repository.UpsertAdSets(txCtx, adSets); err != nil {
			return err
		}
		return i.repository.UpsertAds(txCtx, ads)
	})
	if err != nil {
		return err
	}

	if i.logger != nil {
		i.logger.Info("campaign-sync-completed",
			slog.String("platform", platform.String()),
			slog.Int("campaigns", len(campaigns)),
			slog.Int("ad_sets", len(adSets)),
			slog.Int("ads", len(ads)),
		)
	}
	return nil
}

// SyncInsights pulls spend/performance rows at every level from each requested
// platform concurrently and upserts them.
func (i *InsightUseCase) SyncInsights(ctx context.Context, platforms []outcomedomain.Platform, dateRange domain.DateRange) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for _, platform := range platforms {
		reader, accountID, ok := i.resolve(platform, "sync-insights")
		if !ok {
			continue
		}

		group.Go(func() error {
			return i.syncPlatformInsights(groupCtx, reader, accountID, dateRange)
		})
	}

	return group.Wait()
}

func (i *InsightUseCase) syncPlatformInsights(
	ctx context.Context,
	reader adsdomain.AdsReadPort,
	accountID string,
	dateRange domain.DateRange,
) error {
	platform := reader.Platform()
	levels := []domain.InsightLevel{domain.InsightLevelCampaign, domain.InsightLevelAdSet, domain.InsightLevelAd}

	var total int
	for _, level := range levels {
		rows, err := reader.FetchInsights(ctx, accountID, level, dateRange, nil)
		if err != nil {
			if i.logger != nil {
				i.logger.Error("insight-sync-fetch-error",
					slog.String("platform", platform.String()),
					slog.String("level", string(level)),
					slog.Any("error", err),
				)
			}
			return err
		}

		for idx := range rows {
			if rows[idx].ID == uuid.Nil {
				rows[idx].ID = uuid.New()
			}
		}

		err = i.txManager.WithTx(ctx, func(txCtx context.Context) error {
			return i.repository.UpsertInsightRows(txCtx, rows)
		})
		if err != nil {
			return err
		}
		total += len(rows)
	}

	if i.logger != nil {
		i.logger.Info("insight-sync-completed",
			slog.String("platform", platform.String()),
			slog.Int("rows", total),
			slog.String("since", dateRange.Since.Format(time.DateOnly)),
			slog.String("until", dateRange.Until.Format(time.DateOnly)),
		)
	}
	return nil
}

func (i *InsightUseCase) resolve(platform outcomedomain.Platform, operation string) (adsdomain.AdsReadPort, string, bool) {
	reader := i.registry.Reader(platform)
	if reader == nil {
		i.logSkip("platform-reader-not-configured", platform, operation)
		return nil, "", false
	}

	accountID, ok := i.accounts[platform]
	if !ok || accountID == "" {
		i.logSkip("platform-account-not-configured", platform, operation)
		return nil, "", false
	}
	return reader, accountID, true
}

func (i *InsightUseCase) logError(message string, platform outcomedomain.Platform, err error) {
	if i.logger != nil {
		i.logger.Error(message, slog.String("platform", platform.String()), slog.Any("error", err))
	}
}

func (i *InsightUseCase) logSkip(message string, platform outcomedomain.Platform, operation string) {
	if i.logger != nil {
		i.logger.Warn(message,
			slog.String("platform", platform.String()),
			slog.String("operation", operation),
		)
	}
}
