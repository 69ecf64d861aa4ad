package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	adsdomain "github.com/allisson/conversions/internal/ads/domain"
	"github.com/allisson/conversions/internal/errors"
	insightdomain "github.com/allisson/conversions/internal/insight/domain"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

const (
	snapTrackingBaseURL  = "https://tr.snapchat.com/v3"
	snapMarketingBaseURL = "https://adsapi.snapchat.com/v1"
)

// SnapClient implements the write and read ports for the Snap Conversions API
// and Marketing API.
type SnapClient struct {
	transport        *transport
	trackingBaseURL  string
	marketingBaseURL string
	pixelID          string
	accessToken      string
}

// NewSnapClient creates a new SnapClient.
func NewSnapClient(config Config, pixelID, accessToken string, logger *slog.Logger) *SnapClient {
	return &SnapClient{
		transport:        newTransport(config, logger),
		trackingBaseURL:  snapTrackingBaseURL,
		marketingBaseURL: snapMarketingBaseURL,
		pixelID:          pixelID,
		accessToken:      accessToken,
	}
}

// Platform identifies this client as the Snap port.
func (c *SnapClient) Platform() outcomedomain.Platform {
	return outcomedomain.PlatformSnap
}

// SendEvent sends one mapped event to the pixel's conversion endpoint.
func (c *SnapClient) SendEvent(ctx context.Context, payload adsdomain.Payload) (map[string]any, error) {
	return c.send(ctx, []adsdomain.Payload{payload}, false)
}

// SendEventBatch sends multiple mapped events in one request.
func (c *SnapClient) SendEventBatch(ctx context.Context, payloads []adsdomain.Payload) ([]map[string]any, error) {
	response, err := c.send(ctx, payloads, false)
	if err != nil {
		return nil, err
	}
	results := make([]map[string]any, len(payloads))
	for i := range results {
		results[i] = response
	}
	return results, nil
}

// ValidateEvent dry-runs one event against Snap's validation endpoint.
func (c *SnapClient) ValidateEvent(ctx context.Context, payload adsdomain.Payload) (map[string]any, error) {
	return c.send(ctx, []adsdomain.Payload{payload}, true)
}

// send posts events to the Conversions API.
func (c *SnapClient) send(ctx context.Context, payloads []adsdomain.Payload, validate bool) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/%s/events", c.trackingBaseURL, c.pixelID)
	if validate {
		endpoint += "/validate"
	}
	endpoint += "?access_token=" + url.QueryEscape(c.accessToken)

	response, err := c.transport.doJSON(ctx, http.MethodPost, endpoint, nil, map[string]any{
		"data": payloads,
	})
	if err != nil {
		return nil, errors.Wrap(err, "snap send failed")
	}
	return response, nil
}

// ListCampaigns lists the ad account's campaigns.
func (c *SnapClient) ListCampaigns(ctx context.Context, accountID string) ([]insightdomain.Campaign, error) {
	response, err := c.get(ctx, fmt.Sprintf("adaccounts/%s/campaigns", accountID))
	if err != nil {
		return nil, err
	}

	var campaigns []insightdomain.Campaign
	for _, wrapper := range objectList(response, "campaigns") {
		object, ok := wrapper["campaign"].(map[string]any)
		if !ok {
			continue
		}
		campaigns = append(campaigns, insightdomain.Campaign{
			Platform:   outcomedomain.PlatformSnap,
			AccountID:  accountID,
			ExternalID: stringField(object, "id"),
			Name:       stringField(object, "name"),
			Status:     stringField(object, "status"),
			Objective:  stringField(object, "objective"),
		})
	}
	return campaigns, nil
}

// ListAdSets lists the ad account's ad squads (Snap's ad set equivalent).
func (c *SnapClient) ListAdSets(ctx context.Context, accountID string) ([]insightdomain.AdSet, error) {
	response, err := c.get(ctx, fmt.Sprintf("adaccounts/%s/adsquads", accountID))
	if err != nil {
		return nil, err
	}

	var adSets []insightdomain.AdSet
	for _, wrapper := range objectList(response, "adsquads") {
		object, ok := wrapper["adsquad"].(map[string]any)
		if !ok {
			continue
		}
		adSets = append(adSets, insightdomain.AdSet{
			Platform:           outcomedomain.PlatformSnap,
			AccountID:          accountID,
			ExternalID:         stringField(object, "id"),
			CampaignExternalID: stringField(object, "campaign_id"),
			Name:               stringField(object, "name"),
			Status:             stringField(object, "status"),
		})
	}
	return adSets, nil
}

// ListAds lists the ad account's ads.
func (c *SnapClient) ListAds(ctx context.Context, accountID string) ([]insightdomain.Ad, error) {
	response, err := c.get(ctx, fmt.Sprintf("adaccounts/%s/ads", accountID))
	if err != nil {
		return nil, err
	}

	var ads []insightdomain.Ad
	for _, wrapper := range objectList(response, "ads") {
		object, ok := wrapper["ad"].(map[string]any)
		if !ok {
			continue
		}
		ads = append(ads, insightdomain.Ad{
			Platform:        outcomedomain.PlatformSnap,
			AccountID:       accountID,
			ExternalID:      stringField(object, "id"),
			AdSetExternalID: stringField(object, "ad_squad_id"),
			Name:            stringField(object, "name"),
			Status:          stringField(object, "status"),
		})
	}
	return ads, nil
}

// FetchInsights pulls daily stats at the given level.
func (c *SnapClient) FetchInsights(
	ctx context.Context,
	accountID string,
	level insightdomain.InsightLevel,
	dateRange insightdomain.DateRange,
	fields []string,
) ([]insightdomain.InsightRow, error) {
	params := url.Values{
		"granularity": {"DAY"},
		"start_time":  {dateRange.Since.Format(time.RFC3339)},
		"end_time":    {dateRange.Until.Format(time.RFC3339)},
	}

	response, err := c.get(ctx, fmt.Sprintf("adaccounts/%s/stats?%s", accountID, params.Encode()))
	if err != nil {
		return nil, err
	}

	var insights []insightdomain.InsightRow
	for _, wrapper := range objectList(response, "timeseries_stats") {
		object, ok := wrapper["timeseries_stat"].(map[string]any)
		if !ok {
			continue
		}
		entityID := stringField(object, "id")
		for _, point := range objectList(object, "timeseries") {
			stats, ok := point["stats"].(map[string]any)
			if !ok {
				continue
			}
			date, _ := time.Parse(time.RFC3339, stringField(point, "start_time"))
			insights = append(insights, insightdomain.InsightRow{
				ID:          uuid.Must(uuid.NewV7()),
				Platform:    outcomedomain.PlatformSnap,
				AccountID:   accountID,
				Level:       level,
				EntityID:    entityID,
				Date:        date,
				Impressions: int64(floatField(stats, "impressions")),
				Clicks:      int64(floatField(stats, "swipes")),
				// Snap reports spend in micro-currency.
				Spend:    floatField(stats, "spend") / 1e6,
				Currency: stringField(object, "currency"),
			})
		}
	}
	return insights, nil
}

// get performs an authenticated Marketing API GET.
func (c *SnapClient) get(ctx context.Context, path string) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/%s", c.marketingBaseURL, path)
	headers := map[string]string{"Authorization": "Bearer " + c.accessToken}
	response, err := c.transport.doJSON(ctx, http.MethodGet, endpoint, headers, nil)
	if err != nil {
		return nil, errors.Wrap(err, "snap read failed")
	}
	return response, nil
}
