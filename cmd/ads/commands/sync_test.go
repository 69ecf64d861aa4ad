package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	insightdomain "github.com/allisson/conversions/internal/insight/domain"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

// fakeInsightUseCase records the platforms and ranges it was called with.
type fakeInsightUseCase struct {
	campaignPlatforms []outcomedomain.Platform
	insightPlatforms  []outcomedomain.Platform
	dateRange         insightdomain.DateRange
	err               error
}

func (f *fakeInsightUseCase) SyncCampaigns(_ context.Context, platforms []outcomedomain.Platform) error {
	f.campaignPlatforms = platforms
	return f.err
}

func (f *fakeInsightUseCase) SyncInsights(
	_ context.Context,
	platforms []outcomedomain.Platform,
	dateRange insightdomain.DateRange,
) error {
	f.insightPlatforms = platforms
	f.dateRange = dateRange
	return f.err
}

// fakePublisher returns a fixed publish count.
type fakePublisher struct {
	published int
	batchSize int
	started   bool
	err       error
}

func (f *fakePublisher) Start(_ context.Context) error {
	f.started = true
	return f.err
}

func (f *fakePublisher) Execute(_ context.Context, batchSize int) (int, error) {
	f.batchSize = batchSize
	return f.published, f.err
}

func TestRunSyncCampaigns(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("all-platforms-by-default", func(t *testing.T) {
		useCase := &fakeInsightUseCase{}
		var out bytes.Buffer

		err := RunSyncCampaigns(ctx, useCase, logger, &out, nil, "text")

		require.NoError(t, err)
		require.Equal(t, outcomedomain.AllPlatforms(), useCase.campaignPlatforms)
		require.Contains(t, out.String(), "Synced campaigns")
	})

	t.Run("single-platform-json", func(t *testing.T) {
		useCase := &fakeInsightUseCase{}
		var out bytes.Buffer

		err := RunSyncCampaigns(ctx, useCase, logger, &out, []string{"meta"}, "json")

		require.NoError(t, err)
		require.Equal(t, []outcomedomain.Platform{outcomedomain.PlatformMeta}, useCase.campaignPlatforms)
		require.Contains(t, out.String(), `"synced": "campaigns"`)
		require.Contains(t, out.String(), `"meta"`)
	})

	t.Run("unknown-platform", func(t *testing.T) {
		useCase := &fakeInsightUseCase{}
		err := RunSyncCampaigns(ctx, useCase, logger, &bytes.Buffer{}, []string{"bing"}, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to parse platforms")
	})

	t.Run("invalid-format", func(t *testing.T) {
		useCase := &fakeInsightUseCase{}
		err := RunSyncCampaigns(ctx, useCase, logger, &bytes.Buffer{}, nil, "yaml")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid format")
	})

	t.Run("sync-error", func(t *testing.T) {
		useCase := &fakeInsightUseCase{err: errors.New("boom")}
		err := RunSyncCampaigns(ctx, useCase, logger, &bytes.Buffer{}, nil, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to sync campaigns")
	})
}

func TestRunSyncInsights(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("date-range-covers-lookback", func(t *testing.T) {
		useCase := &fakeInsightUseCase{}
		var out bytes.Buffer

		err := RunSyncInsights(ctx, useCase, logger, &out, []string{"snap"}, 7, "text")

		require.NoError(t, err)
		require.Equal(t, []outcomedomain.Platform{outcomedomain.PlatformSnap}, useCase.insightPlatforms)
		require.False(t, useCase.dateRange.Since.IsZero())
		require.False(t, useCase.dateRange.Until.IsZero())
		days := useCase.dateRange.Until.Sub(useCase.dateRange.Since).Hours() / 24
		require.InDelta(t, 7, days, 0.01)
	})

	t.Run("invalid-days", func(t *testing.T) {
		useCase := &fakeInsightUseCase{}
		err := RunSyncInsights(ctx, useCase, logger, &bytes.Buffer{}, nil, 0, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "days must be a positive number")
	})
}

func TestRunPublishOutcomes(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("text-output", func(t *testing.T) {
		publisher := &fakePublisher{published: 3}
		var out bytes.Buffer

		err := RunPublishOutcomes(ctx, publisher, logger, &out, 50, "text")

		require.NoError(t, err)
		require.Equal(t, 50, publisher.batchSize)
		require.Contains(t, out.String(), "Published 3 outcome delivery(ies)")
	})

	t.Run("json-output", func(t *testing.T) {
		publisher := &fakePublisher{published: 2}
		var out bytes.Buffer

		err := RunPublishOutcomes(ctx, publisher, logger, &out, 0, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"published": 2`)
	})

	t.Run("publish-error", func(t *testing.T) {
		publisher := &fakePublisher{err: errors.New("boom")}
		err := RunPublishOutcomes(ctx, publisher, logger, &bytes.Buffer{}, 0, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to publish outcomes")
	})
}
