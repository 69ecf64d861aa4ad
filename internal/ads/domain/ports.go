// Package domain defines the external platform boundary: write/read ports and
// the startup registry that resolves a port per platform.
package domain

import (
	"context"

	insightdomain "github.com/allisson/conversions/internal/insight/domain"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

// Payload is one mapped, platform-specific event body.
type Payload map[string]any

// AdsWritePort sends mapped outcome events to one platform's conversions API.
// Implementations own transport-level retry and timeout; a returned error
// means the send should be retried by a later publish cycle.
type AdsWritePort interface {
	// Platform identifies which platform this port writes to.
	Platform() outcomedomain.Platform

	// SendEvent sends one mapped event and returns the platform confirmation body.
	SendEvent(ctx context.Context, payload Payload) (map[string]any, error)

	// SendEventBatch sends multiple mapped events in one request where the
	// platform supports it and returns per-event results.
	SendEventBatch(ctx context.Context, payloads []Payload) ([]map[string]any, error)

	// ValidateEvent performs a dry-run validation where the platform supports
	// it; platforms without a dry-run endpoint report a local check.
	ValidateEvent(ctx context.Context, payload Payload) (map[string]any, error)
}

// AdsReadPort pulls campaign structure and spend metrics from one platform.
type AdsReadPort interface {
	// Platform identifies which platform this port reads from.
	Platform() outcomedomain.Platform

	ListCampaigns(ctx context.Context, accountID string) ([]insightdomain.Campaign, error)
	ListAdSets(ctx context.Context, accountID string) ([]insightdomain.AdSet, error)
	ListAds(ctx context.Context, accountID string) ([]insightdomain.Ad, error)
	FetchInsights(
		ctx context.Context,
		accountID string,
		level insightdomain.InsightLevel,
		dateRange insightdomain.DateRange,
		fields []string,
	) ([]insightdomain.InsightRow, error)
}
