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

const tiktokBaseURL = "https://business-api.tiktok.com/open_api/v1.3"

// TikTokClient implements the write and read ports for the TikTok Events API
// and Business API.
type TikTokClient struct {
	transport   *transport
	baseURL     string
	pixelCode   string
	accessToken string
}

// NewTikTokClient creates a new TikTokClient.
func NewTikTokClient(config Config, pixelCode, accessToken string, logger *slog.Logger) *TikTokClient {
	return &TikTokClient{
		transport:   newTransport(config, logger),
		baseURL:     tiktokBaseURL,
		pixelCode:   pixelCode,
		accessToken: accessToken,
	}
}

// Platform identifies this client as the TikTok port.
func (c *TikTokClient) Platform() outcomedomain.Platform {
	return outcomedomain.PlatformTikTok
}

// SendEvent sends one mapped event to the Events API.
func (c *TikTokClient) SendEvent(ctx context.Context, payload adsdomain.Payload) (map[string]any, error) {
	return c.send(ctx, []adsdomain.Payload{payload})
}

// SendEventBatch sends multiple mapped events in one request.
func (c *TikTokClient) SendEventBatch(ctx context.Context, payloads []adsdomain.Payload) ([]map[string]any, error) {
	response, err := c.send(ctx, payloads)
	if err != nil {
		return nil, err
	}
	results := make([]map[string]any, len(payloads))
	for i := range results {
		results[i] = response
	}
	return results, nil
}

// ValidateEvent reports a local shape check; TikTok has no dry-run endpoint.
func (c *TikTokClient) ValidateEvent(_ context.Context, payload adsdomain.Payload) (map[string]any, error) {
	if _, ok := payload["event"]; !ok {
		return nil, errors.New("tiktok payload missing event field")
	}
	return map[string]any{"valid": true, "checked": "local"}, nil
}

// send posts events to the Events API track endpoint.
func (c *TikTokClient) send(ctx context.Context, payloads []adsdomain.Payload) (map[string]any, error) {
	body := map[string]any{
		"event_source":    "web",
		"event_source_id": c.pixelCode,
		"data":            payloads,
	}
	headers := map[string]string{"Access-Token": c.accessToken}

	response, err := c.transport.doJSON(ctx, http.MethodPost, c.baseURL+"/event/track/", headers, body)
	if err != nil {
		return nil, errors.Wrap(err, "tiktok send failed")
	}

	// TikTok wraps errors in a 200 envelope with a non-zero code.
	if code := floatField(response, "code"); code != 0 {
		return nil, errors.New(fmt.Sprintf("tiktok api error: code=%v message=%s",
			code, stringField(response, "message")))
	}
	return response, nil
}

// ListCampaigns lists the advertiser's campaigns.
func (c *TikTokClient) ListCampaigns(ctx context.Context, accountID string) ([]insightdomain.Campaign, error) {
	response, err := c.get(ctx, "campaign/get/", url.Values{"advertiser_id": {accountID}})
	if err != nil {
		return nil, err
	}

	var campaigns []insightdomain.Campaign
	for _, object := range dataList(response) {
		campaigns = append(campaigns, insightdomain.Campaign{
			Platform:   outcomedomain.PlatformTikTok,
			AccountID:  accountID,
			ExternalID: stringField(object, "campaign_id"),
			Name:       stringField(object, "campaign_name"),
			Status:     stringField(object, "operation_status"),
			Objective:  stringField(object, "objective_type"),
		})
	}
	return campaigns, nil
}

// ListAdSets lists the advertiser's ad groups (TikTok's ad set equivalent).
func (c *TikTokClient) ListAdSets(ctx context.Context, accountID string) ([]insightdomain.AdSet, error) {
	response, err := c.get(ctx, "adgroup/get/", url.Values{"advertiser_id": {accountID}})
	if err != nil {
		return nil, err
	}

	var adSets []insightdomain.AdSet
	for _, object := range dataList(response) {
		adSets = append(adSets, insightdomain.AdSet{
			Platform:           outcomedomain.PlatformTikTok,
			AccountID:          accountID,
			ExternalID:         stringField(object, "adgroup_id"),
			CampaignExternalID: stringField(object, "campaign_id"),
			Name:               stringField(object, "adgroup_name"),
			Status:             stringField(object, "operation_status"),
		})
	}
	return adSets, nil
}

// ListAds lists the advertiser's ads.
func (c *TikTokClient) ListAds(ctx context.Context, accountID string) ([]insightdomain.Ad, error) {
	response, err := c.get(ctx, "ad/get/", url.Values{"advertiser_id": {accountID}})
	if err != nil {
		return nil, err
	}

	var ads []insightdomain.Ad
	for _, object := range dataList(response) {
		ads = append(ads, insightdomain.Ad{
			Platform:        outcomedomain.PlatformTikTok,
			AccountID:       accountID,
			ExternalID:      stringField(object, "ad_id"),
			AdSetExternalID: stringField(object, "adgroup_id"),
			Name:            stringField(object, "ad_name"),
			Status:          stringField(object, "operation_status"),
		})
	}
	return ads, nil
}

// FetchInsights pulls daily reports at the given level.
func (c *TikTokClient) FetchInsights(
	ctx context.Context,
	accountID string,
	level insightdomain.InsightLevel,
	dateRange insightdomain.DateRange,
	fields []string,
) ([]insightdomain.InsightRow, error) {
	var dimension, dataLevel string
	switch level {
	case insightdomain.InsightLevelCampaign:
		dimension, dataLevel = "campaign_id", "AUCTION_CAMPAIGN"
	case insightdomain.InsightLevelAdSet:
		dimension, dataLevel = "adgroup_id", "AUCTION_ADGROUP"
	case insightdomain.InsightLevelAd:
		dimension, dataLevel = "ad_id", "AUCTION_AD"
	}

	params := url.Values{
		"advertiser_id": {accountID},
		"report_type":   {"BASIC"},
		"data_level":    {dataLevel},
		"dimensions":    {fmt.Sprintf(`["%s","stat_time_day"]`, dimension)},
		"start_date":    {dateRange.Since.Format("2006-01-02")},
		"end_date":      {dateRange.Until.Format("2006-01-02")},
	}

	response, err := c.get(ctx, "report/integrated/get/", params)
	if err != nil {
		return nil, err
	}

	var insights []insightdomain.InsightRow
	for _, object := range dataList(response) {
		dimensions, _ := object["dimensions"].(map[string]any)
		metrics, _ := object["metrics"].(map[string]any)
		if dimensions == nil || metrics == nil {
			continue
		}
		date, _ := time.Parse("2006-01-02 15:04:05", stringField(dimensions, "stat_time_day"))
		insights = append(insights, insightdomain.InsightRow{
			ID:          uuid.Must(uuid.NewV7()),
			Platform:    outcomedomain.PlatformTikTok,
			AccountID:   accountID,
			Level:       level,
			EntityID:    stringField(dimensions, dimension),
			Date:        date,
			Impressions: int64(floatField(metrics, "impressions")),
			Clicks:      int64(floatField(metrics, "clicks")),
			Spend:       floatField(metrics, "spend"),
			Conversions: int64(floatField(metrics, "conversion")),
			Currency:    stringField(metrics, "currency"),
		})
	}
	return insights, nil
}

// get performs an authenticated Business API GET.
func (c *TikTokClient) get(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, path, params.Encode())
	headers := map[string]string{"Access-Token": c.accessToken}

	response, err := c.transport.doJSON(ctx, http.MethodGet, endpoint, headers, nil)
	if err != nil {
		return nil, errors.Wrap(err, "tiktok read failed")
	}
	if code := floatField(response, "code"); code != 0 {
		return nil, errors.New(fmt.Sprintf("tiktok api error: code=%v message=%s",
			code, stringField(response, "message")))
	}
	return response, nil
}

// dataList unwraps TikTok's {data: {list: [...]}} envelope.
func dataList(response map[string]any) []map[string]any {
	data, ok := response["data"].(map[string]any)
	if !ok {
		return nil
	}
	return objectList(data, "list")
}
