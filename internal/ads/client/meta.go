package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	adsdomain "github.com/allisson/conversions/internal/ads/domain"
	"github.com/allisson/conversions/internal/errors"
	insightdomain "github.com/allisson/conversions/internal/insight/domain"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

const metaBaseURL = "https://graph.facebook.com/v18.0"

// MetaClient implements the write and read ports for the Meta Conversions API
// and Marketing API.
type MetaClient struct {
	transport   *transport
	baseURL     string
	pixelID     string
	accessToken string
}

// NewMetaClient creates a new MetaClient.
func NewMetaClient(config Config, pixelID, accessToken string, logger *slog.Logger) *MetaClient {
	return &MetaClient{
		transport:   newTransport(config, logger),
		baseURL:     metaBaseURL,
		pixelID:     pixelID,
		accessToken: accessToken,
	}
}

// Platform identifies this client as the Meta port.
func (c *MetaClient) Platform() outcomedomain.Platform {
	return outcomedomain.PlatformMeta
}

// SendEvent sends one mapped event to the pixel's events edge.
func (c *MetaClient) SendEvent(ctx context.Context, payload adsdomain.Payload) (map[string]any, error) {
	return c.send(ctx, []adsdomain.Payload{payload}, "")
}

// SendEventBatch sends multiple mapped events in one request.
func (c *MetaClient) SendEventBatch(ctx context.Context, payloads []adsdomain.Payload) ([]map[string]any, error) {
	response, err := c.send(ctx, payloads, "")
	if err != nil {
		return nil, err
	}
	results := make([]map[string]any, len(payloads))
	for i := range results {
		results[i] = response
	}
	return results, nil
}

// ValidateEvent dry-runs one event using a test event code; Meta processes it
// without attributing conversions.
func (c *MetaClient) ValidateEvent(ctx context.Context, payload adsdomain.Payload) (map[string]any, error) {
	return c.send(ctx, []adsdomain.Payload{payload}, "TEST"+uuid.NewString()[:8])
}

// send posts events to the Conversions API.
func (c *MetaClient) send(ctx context.Context, payloads []adsdomain.Payload, testEventCode string) (map[string]any, error) {
	body := map[string]any{
		"data":         payloads,
		"access_token": c.accessToken,
	}
	if testEventCode != "" {
		body["test_event_code"] = testEventCode
	}

	endpoint := fmt.Sprintf("%s/%s/events", c.baseURL, c.pixelID)
	response, err := c.transport.doJSON(ctx, http.MethodPost, endpoint, nil, body)
	if err != nil {
		return nil, errors.Wrap(err, "meta send failed")
	}
	return response, nil
}

// ListCampaigns lists the account's campaigns.
func (c *MetaClient) ListCampaigns(ctx context.Context, accountID string) ([]insightdomain.Campaign, error) {
	response, err := c.get(ctx, fmt.Sprintf("act_%s/campaigns", accountID), url.Values{
		"fields": {"id,name,status,objective"},
	})
	if err != nil {
		return nil, err
	}

	var campaigns []insightdomain.Campaign
	for _, object := range objectList(response, "data") {
		campaigns = append(campaigns, insightdomain.Campaign{
			Platform:   outcomedomain.PlatformMeta,
			AccountID:  accountID,
			ExternalID: stringField(object, "id"),
			Name:       stringField(object, "name"),
			Status:     stringField(object, "status"),
			Objective:  stringField(object, "objective"),
		})
	}
	return campaigns, nil
}

// ListAdSets lists the account's ad sets.
func (c *MetaClient) ListAdSets(ctx context.Context, accountID string) ([]insightdomain.AdSet, error) {
	response, err := c.get(ctx, fmt.Sprintf("act_%s/adsets", accountID), url.Values{
		"fields": {"id,name,status,campaign_id"},
	})
	if err != nil {
		return nil, err
	}

	var adSets []insightdomain.AdSet
	for _, object := range objectList(response, "data") {
		adSets = append(adSets, insightdomain.AdSet{
			Platform:           outcomedomain.PlatformMeta,
			AccountID:          accountID,
			ExternalID:         stringField(object, "id"),
			CampaignExternalID: stringField(object, "campaign_id"),
			Name:               stringField(object, "name"),
			Status:             stringField(object, "status"),
		})
	}
	return adSets, nil
}

// ListAds lists the account's ads.
func (c *MetaClient) ListAds(ctx context.Context, accountID string) ([]insightdomain.Ad, error) {
	response, err := c.get(ctx, fmt.Sprintf("act_%s/ads", accountID), url.Values{
		"fields": {"id,name,status,adset_id"},
	})
	if err != nil {
		return nil, err
	}

	var ads []insightdomain.Ad
	for _, object := range objectList(response, "data") {
		ads = append(ads, insightdomain.Ad{
			Platform:        outcomedomain.PlatformMeta,
			AccountID:       accountID,
			ExternalID:      stringField(object, "id"),
			AdSetExternalID: stringField(object, "adset_id"),
			Name:            stringField(object, "name"),
			Status:          stringField(object, "status"),
		})
	}
	return ads, nil
}

// FetchInsights pulls daily spend metrics at the given level.
func (c *MetaClient) FetchInsights(
	ctx context.Context,
	accountID string,
	level insightdomain.InsightLevel,
	dateRange insightdomain.DateRange,
	fields []string,
) ([]insightdomain.InsightRow, error) {
	if len(fields) == 0 {
		fields = []string{"impressions", "clicks", "spend", "actions", "account_currency"}
	}

	timeRange := fmt.Sprintf(`{"since":"%s","until":"%s"}`,
		dateRange.Since.Format("2006-01-02"), dateRange.Until.Format("2006-01-02"))

	response, err := c.get(ctx, fmt.Sprintf("act_%s/insights", accountID), url.Values{
		"level":          {string(level)},
		"time_range":     {timeRange},
		"time_increment": {"1"},
		"fields":         {strings.Join(fields, ",")},
	})
	if err != nil {
		return nil, err
	}

	var insights []insightdomain.InsightRow
	for _, object := range objectList(response, "data") {
		date, _ := time.Parse("2006-01-02", stringField(object, "date_start"))
		insights = append(insights, insightdomain.InsightRow{
			ID:          uuid.Must(uuid.NewV7()),
			Platform:    outcomedomain.PlatformMeta,
			AccountID:   accountID,
			Level:       level,
			EntityID:    entityIDForLevel(object, level),
			Date:        date,
			Impressions: int64(floatField(object, "impressions")),
			Clicks:      int64(floatField(object, "clicks")),
			Spend:       floatField(object, "spend"),
			Currency:    stringField(object, "account_currency"),
		})
	}
	return insights, nil
}

// get performs an authenticated Graph API GET.
func (c *MetaClient) get(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	params.Set("access_token", c.accessToken)
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, path, params.Encode())
	response, err := c.transport.doJSON(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "meta read failed")
	}
	return response, nil
}

// entityIDForLevel picks the entity id field matching the insight level.
func entityIDForLevel(object map[string]any, level insightdomain.InsightLevel) string {
	switch level {
	case insightdomain.InsightLevelCampaign:
		return stringField(object, "campaign_id")
	case insightdomain.InsightLevelAdSet:
		return stringField(object, "adset_id")
	case insightdomain.InsightLevelAd:
		return stringField(object, "ad_id")
	default:
		return ""
	}
}
