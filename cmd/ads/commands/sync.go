package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	insightdomain "github.com/allisson/conversions/internal/insight/domain"
	insightusecase "github.com/allisson/conversions/internal/insight/usecase"
	outboxusecase "github.com/allisson/conversions/internal/outbox/usecase"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

// RunSyncCampaigns pulls the campaign/ad-set/ad structure from the requested
// platforms into local storage. An empty platform list means all platforms.
//
// Requirements: Database must be migrated and platform credentials configured.
func RunSyncCampaigns(
	ctx context.Context,
	useCase insightusecase.UseCase,
	logger *slog.Logger,
	out io.Writer,
	platformNames []string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	platforms, err := outcomedomain.ParsePlatforms(platformNames)
	if err != nil {
		return fmt.Errorf("failed to parse platforms: %w", err)
	}

	logger.Info("syncing campaign structure", slog.Any("platforms", platforms))

	if err := useCase.SyncCampaigns(ctx, platforms); err != nil {
		return fmt.Errorf("failed to sync campaigns: %w", err)
	}

	outputSyncResult(out, "campaigns", platforms, format)
	logger.Info("campaign sync completed")
	return nil
}

// RunSyncInsights pulls daily spend insights for the last N days from the
// requested platforms. An empty platform list means all platforms.
func RunSyncInsights(
	ctx context.Context,
	useCase insightusecase.UseCase,
	logger *slog.Logger,
	out io.Writer,
	platformNames []string,
	days int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if days <= 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	platforms, err := outcomedomain.ParsePlatforms(platformNames)
	if err != nil {
		return fmt.Errorf("failed to parse platforms: %w", err)
	}

	now := time.Now().UTC()
	dateRange := insightdomain.DateRange{
		Since: now.AddDate(0, 0, -days),
		Until: now,
	}

	logger.Info("syncing insights",
		slog.Any("platforms", platforms),
		slog.Int("days", days),
	)

	if err := useCase.SyncInsights(ctx, platforms, dateRange); err != nil {
		return fmt.Errorf("failed to sync insights: %w", err)
	}

	outputSyncResult(out, "insights", platforms, format)
	logger.Info("insight sync completed")
	return nil
}

// RunPublishOutcomes executes a single publish cycle, draining up to batchSize
// pending deliveries to the platform write ports.
func RunPublishOutcomes(
	ctx context.Context,
	publisher outboxusecase.UseCase,
	logger *slog.Logger,
	out io.Writer,
	batchSize int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("publishing pending outcomes", slog.Int("batch_size", batchSize))

	published, err := publisher.Execute(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("failed to publish outcomes: %w", err)
	}

	if format == "json" {
		writeJSON(out, map[string]interface{}{"published": published})
	} else {
		fmt.Fprintf(out, "Published %d outcome delivery(ies)\n", published)
	}

	logger.Info("publish completed", slog.Int("published", published))
	return nil
}

// outputSyncResult prints a sync confirmation in the requested format.
func outputSyncResult(out io.Writer, kind string, platforms []outcomedomain.Platform, format string) {
	names := make([]string, len(platforms))
	for i, platform := range platforms {
		names[i] = string(platform)
	}

	if format == "json" {
		writeJSON(out, map[string]interface{}{
			"synced":    kind,
			"platforms": names,
		})
		return
	}
	fmt.Fprintf(out, "Synced %s for platforms: %v\n", kind, names)
}

// writeJSON marshals the value with indentation and writes it to out.
func writeJSON(out io.Writer, value interface{}) {
	jsonBytes, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fmt.Fprintf(out, "failed to marshal JSON: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(jsonBytes))
}
