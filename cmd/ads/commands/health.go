package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/allisson/conversions/internal/outbox/domain"
)

// RunHealth prints the operational report: active platform accounts, insight
// rows synced in the last 24 hours, outcome delivery counts by status and the
// total dead-letter backlog.
//
// Requirements: Database must be migrated and accessible.
func RunHealth(
	ctx context.Context,
	ops OpsUseCase,
	logger *slog.Logger,
	out io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	report, err := ops.Health(ctx)
	if err != nil {
		return fmt.Errorf("failed to build health report: %w", err)
	}

	if format == "json" {
		counts := make(map[string]int64, len(report.OutcomeCounts))
		for status, count := range report.OutcomeCounts {
			counts[string(status)] = count
		}
		writeJSON(out, map[string]interface{}{
			"active_accounts":   report.ActiveAccounts,
			"insight_rows_24h":  report.InsightRows24h,
			"outcome_counts":    counts,
			"dead_letter_count": report.DeadLetterCount,
		})
	} else {
		outputHealthText(out, report.ActiveAccounts, report.InsightRows24h, report.OutcomeCounts, report.DeadLetterCount)
	}

	logger.Info("health report generated",
		slog.Int64("dead_letter_count", report.DeadLetterCount),
	)
	return nil
}

// outputHealthText prints the report in human-readable text format.
func outputHealthText(
	out io.Writer,
	accounts []string,
	insightRows int64,
	counts map[domain.DeliveryStatus]int64,
	deadLetter int64,
) {
	active := "none"
	if len(accounts) > 0 {
		active = strings.Join(accounts, ", ")
	}
	fmt.Fprintf(out, "Active accounts: %s\n", active)
	fmt.Fprintf(out, "Insight rows synced (24h): %d\n", insightRows)
	fmt.Fprintln(out, "Outcome deliveries (24h):")
	for _, status := range []domain.DeliveryStatus{
		domain.DeliveryStatusPending,
		domain.DeliveryStatusDelivered,
		domain.DeliveryStatusDeadLetter,
	} {
		fmt.Fprintf(out, "  %s: %d\n", status, counts[status])
	}
	fmt.Fprintf(out, "Dead-letter backlog (total): %d\n", deadLetter)
	if deadLetter > 0 {
		fmt.Fprintln(out, "WARNING: dead-lettered deliveries require operator attention")
	}
}
