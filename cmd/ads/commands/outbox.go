package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/allisson/conversions/internal/outbox/domain"
	outboxusecase "github.com/allisson/conversions/internal/outbox/usecase"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

// OpsUseCase defines the operator-facing outbox operations the CLI needs.
type OpsUseCase interface {
	Status(ctx context.Context) ([]domain.StatusCount, error)
	ReplayFailed(ctx context.Context, platform string) (int64, error)
	ReplayDeadLetter(ctx context.Context, platform string, limit int) (int64, error)
	PurgeDelivered(ctx context.Context, days int) (int64, error)
	Health(ctx context.Context) (*outboxusecase.HealthReport, error)
}

// RunOutboxStatus prints delivery counts and retry statistics per platform
// and status.
//
// Requirements: Database must be migrated and accessible.
func RunOutboxStatus(
	ctx context.Context,
	ops OpsUseCase,
	logger *slog.Logger,
	out io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	summary, err := ops.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to load outbox status: %w", err)
	}

	if format == "json" {
		rows := make([]map[string]interface{}, len(summary))
		for i, row := range summary {
			rows[i] = map[string]interface{}{
				"platform":    string(row.Platform),
				"status":      string(row.Status),
				"count":       row.Count,
				"avg_retries": row.AvgRetries,
				"max_retries": row.MaxRetries,
			}
		}
		writeJSON(out, map[string]interface{}{"statuses": rows})
		return nil
	}

	writer := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "PLATFORM\tSTATUS\tCOUNT\tAVG RETRIES\tMAX RETRIES")
	for _, row := range summary {
		fmt.Fprintf(writer, "%s\t%s\t%d\t%.2f\t%d\n",
			row.Platform, row.Status, row.Count, row.AvgRetries, row.MaxRetries)
	}
	return writer.Flush()
}

// RunOutboxReplayFailed resets pending deliveries with a non-zero retry count
// back to fresh pending, then runs one publish cycle to re-dispatch them.
func RunOutboxReplayFailed(
	ctx context.Context,
	ops OpsUseCase,
	publisher outboxusecase.UseCase,
	logger *slog.Logger,
	out io.Writer,
	platform string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if err := validatePlatformFilter(platform); err != nil {
		return err
	}

	logger.Info("replaying failed deliveries", slog.String("platform", platform))

	replayed, err := ops.ReplayFailed(ctx, platform)
	if err != nil {
		return fmt.Errorf("failed to replay failed deliveries: %w", err)
	}

	published := 0
	if replayed > 0 && publisher != nil {
		published, err = publisher.Execute(ctx, 0)
		if err != nil {
			return fmt.Errorf("failed to publish replayed deliveries: %w", err)
		}
	}

	outputReplayResult(out, replayed, published, format)
	logger.Info("replay completed",
		slog.Int64("replayed", replayed),
		slog.Int("published", published),
	)
	return nil
}

// RunOutboxReplayDeadLetter resets up to limit dead-lettered deliveries to
// fresh pending, then runs one publish cycle to re-dispatch them.
func RunOutboxReplayDeadLetter(
	ctx context.Context,
	ops OpsUseCase,
	publisher outboxusecase.UseCase,
	logger *slog.Logger,
	out io.Writer,
	platform string,
	limit int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if err := validatePlatformFilter(platform); err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("limit must be zero or a positive number, got: %d", limit)
	}

	logger.Info("replaying dead-lettered deliveries",
		slog.String("platform", platform),
		slog.Int("limit", limit),
	)

	replayed, err := ops.ReplayDeadLetter(ctx, platform, limit)
	if err != nil {
		return fmt.Errorf("failed to replay dead-lettered deliveries: %w", err)
	}

	published := 0
	if replayed > 0 && publisher != nil {
		published, err = publisher.Execute(ctx, 0)
		if err != nil {
			return fmt.Errorf("failed to publish replayed deliveries: %w", err)
		}
	}

	outputReplayResult(out, replayed, published, format)
	logger.Info("replay completed",
		slog.Int64("replayed", replayed),
		slog.Int("published", published),
	)
	return nil
}

// RunOutboxPurgeDelivered hard-deletes delivered rows older than the given
// number of days.
func RunOutboxPurgeDelivered(
	ctx context.Context,
	ops OpsUseCase,
	logger *slog.Logger,
	out io.Writer,
	days int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	logger.Info("purging delivered rows", slog.Int("days", days))

	purged, err := ops.PurgeDelivered(ctx, days)
	if err != nil {
		return fmt.Errorf("failed to purge delivered rows: %w", err)
	}

	if format == "json" {
		writeJSON(out, map[string]interface{}{"purged": purged, "days": days})
	} else {
		fmt.Fprintf(out, "Purged %d delivered row(s) older than %d day(s)\n", purged, days)
	}

	logger.Info("purge completed", slog.Int64("purged", purged))
	return nil
}

// validatePlatformFilter accepts an empty filter (all platforms) or a known
// platform name.
func validatePlatformFilter(platform string) error {
	if platform == "" {
		return nil
	}
	if _, err := outcomedomain.ParsePlatform(platform); err != nil {
		return fmt.Errorf("failed to parse platform: %w", err)
	}
	return nil
}

// outputReplayResult prints a replay confirmation in the requested format.
func outputReplayResult(out io.Writer, replayed int64, published int, format string) {
	if format == "json" {
		writeJSON(out, map[string]interface{}{
			"replayed":  replayed,
			"published": published,
		})
		return
	}
	fmt.Fprintf(out, "Replayed %d delivery(ies), published %d\n", replayed, published)
}
