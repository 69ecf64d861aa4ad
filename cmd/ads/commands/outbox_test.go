package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/allisson/conversions/internal/outbox/domain"
	outboxusecase "github.com/allisson/conversions/internal/outbox/usecase"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

// fakeOps implements OpsUseCase with canned responses.
type fakeOps struct {
	summary        []domain.StatusCount
	replayed       int64
	purged         int64
	report         *outboxusecase.HealthReport
	platformFilter string
	limit          int
	purgeDays      int
	err            error
}

func (f *fakeOps) Status(_ context.Context) ([]domain.StatusCount, error) {
	return f.summary, f.err
}

func (f *fakeOps) ReplayFailed(_ context.Context, platform string) (int64, error) {
	f.platformFilter = platform
	return f.replayed, f.err
}

func (f *fakeOps) ReplayDeadLetter(_ context.Context, platform string, limit int) (int64, error) {
	f.platformFilter = platform
	f.limit = limit
	return f.replayed, f.err
}

func (f *fakeOps) PurgeDelivered(_ context.Context, days int) (int64, error) {
	f.purgeDays = days
	return f.purged, f.err
}

func (f *fakeOps) Health(_ context.Context) (*outboxusecase.HealthReport, error) {
	return f.report, f.err
}

func TestRunOutboxStatus(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	summary := []domain.StatusCount{
		{Platform: outcomedomain.PlatformMeta, Status: domain.DeliveryStatusPending, Count: 4, AvgRetries: 1.5, MaxRetries: 3},
		{Platform: outcomedomain.PlatformSnap, Status: domain.DeliveryStatusDelivered, Count: 10},
	}

	t.Run("text-output", func(t *testing.T) {
		ops := &fakeOps{summary: summary}
		var out bytes.Buffer

		err := RunOutboxStatus(ctx, ops, logger, &out, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "PLATFORM")
		require.Contains(t, out.String(), "meta")
		require.Contains(t, out.String(), "pending")
		require.Contains(t, out.String(), "1.50")
	})

	t.Run("json-output", func(t *testing.T) {
		ops := &fakeOps{summary: summary}
		var out bytes.Buffer

		err := RunOutboxStatus(ctx, ops, logger, &out, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"platform": "snap"`)
		require.Contains(t, out.String(), `"count": 10`)
	})

	t.Run("status-error", func(t *testing.T) {
		ops := &fakeOps{err: errors.New("boom")}
		err := RunOutboxStatus(ctx, ops, logger, &bytes.Buffer{}, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to load outbox status")
	})
}

func TestRunOutboxReplayFailed(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("replays-and-publishes", func(t *testing.T) {
		ops := &fakeOps{replayed: 5}
		publisher := &fakePublisher{published: 5}
		var out bytes.Buffer

		err := RunOutboxReplayFailed(ctx, ops, publisher, logger, &out, "meta", "text")

		require.NoError(t, err)
		require.Equal(t, "meta", ops.platformFilter)
		require.Contains(t, out.String(), "Replayed 5 delivery(ies), published 5")
	})

	t.Run("skips-publish-when-nothing-replayed", func(t *testing.T) {
		ops := &fakeOps{replayed: 0}
		publisher := &fakePublisher{published: 9}
		var out bytes.Buffer

		err := RunOutboxReplayFailed(ctx, ops, publisher, logger, &out, "", "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Replayed 0 delivery(ies), published 0")
	})

	t.Run("unknown-platform", func(t *testing.T) {
		ops := &fakeOps{}
		err := RunOutboxReplayFailed(ctx, ops, &fakePublisher{}, logger, &bytes.Buffer{}, "bing", "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to parse platform")
	})
}

func TestRunOutboxReplayDeadLetter(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("passes-limit", func(t *testing.T) {
		ops := &fakeOps{replayed: 2}
		publisher := &fakePublisher{published: 2}
		var out bytes.Buffer

		err := RunOutboxReplayDeadLetter(ctx, ops, publisher, logger, &out, "tiktok", 100, "json")

		require.NoError(t, err)
		require.Equal(t, "tiktok", ops.platformFilter)
		require.Equal(t, 100, ops.limit)
		require.Contains(t, out.String(), `"replayed": 2`)
	})

	t.Run("negative-limit", func(t *testing.T) {
		err := RunOutboxReplayDeadLetter(ctx, &fakeOps{}, &fakePublisher{}, logger, &bytes.Buffer{}, "", -1, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "limit must be zero or a positive number")
	})
}

func TestRunOutboxPurgeDelivered(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("text-output", func(t *testing.T) {
		ops := &fakeOps{purged: 7}
		var out bytes.Buffer

		err := RunOutboxPurgeDelivered(ctx, ops, logger, &out, 30, "text")

		require.NoError(t, err)
		require.Equal(t, 30, ops.purgeDays)
		require.Contains(t, out.String(), "Purged 7 delivered row(s) older than 30 day(s)")
	})

	t.Run("invalid-days", func(t *testing.T) {
		err := RunOutboxPurgeDelivered(ctx, &fakeOps{}, logger, &bytes.Buffer{}, -1, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "days must be a positive number")
	})
}
