package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
	"github.com/allisson/conversions/internal/testutil"
)

func TestForSnapPurchase(t *testing.T) {
	event := testutil.BuildOutcomeEvent(t)

	payload := ForSnap(event)

	assert.Equal(t, "PURCHASE", payload["event_name"])
	assert.Equal(t, "WEB", payload["action_source"])
	assert.Equal(t, event.OccurredAt.Unix(), payload["event_time"])
	assert.Equal(t, event.EventID, payload["event_id"])
	assert.Equal(t, "https://shop.example.com/checkout", payload["page_url"])

	userData, ok := payload["user_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a1b2c3", userData["em"], "snap identifiers are scalars, not arrays")
	assert.Equal(t, "203.0.113.7", userData["ip_address"])
	assert.Equal(t, "Mozilla/5.0", userData["user_agent"])

	customData, ok := payload["custom_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 100.0, customData["price"])
	assert.Equal(t, "USD", customData["currency"])
}

func TestForSnapRefundKeepsSign(t *testing.T) {
	event := testutil.BuildOutcomeEvent(t)
	event.OutcomeType = outcomedomain.OutcomeRefund
	value := outcomedomain.NewMoney(50, "USD")
	event.Value = &value

	payload := ForSnap(event)

	assert.Equal(t, "CUSTOM_EVENT_3", payload["event_name"])
	assert.Equal(t, "OFFLINE", payload["action_source"])

	customData := payload["custom_data"].(map[string]any)
	assert.Equal(t, 50.0, customData["price"], "snap refunds keep the positive amount")
}

func TestForSnapEventNames(t *testing.T) {
	tests := []struct {
		outcomeType  outcomedomain.OutcomeType
		eventName    string
		actionSource string
	}{
		{outcomedomain.OutcomeDealWon, "PURCHASE", "website"},
		{outcomedomain.OutcomeDealLost, "CUSTOM_EVENT_2", "website"},
		{outcomedomain.OutcomeLeadQualified, "SIGN_UP", "website"},
		{outcomedomain.OutcomeLeadDisqualified, "CUSTOM_EVENT_1", "website"},
		{outcomedomain.OutcomeRetentionD7, "SUBSCRIBE", "website"},
		{outcomedomain.OutcomeRetentionD30, "SUBSCRIBE", "website"},
		{outcomedomain.OutcomeLtvUpdate, "PURCHASE", "website"},
	}

	for _, tt := range tests {
		t.Run(string(tt.outcomeType), func(t *testing.T) {
			event := testutil.BuildOutcomeEvent(t)
			event.OutcomeType = tt.outcomeType

			payload := ForSnap(event)
			assert.Equal(t, tt.eventName, payload["event_name"])
			assert.Equal(t, tt.actionSource, payload["action_source"])
		})
	}
}

func TestForSnapLtvUpdateCarriesPredictedLtv(t *testing.T) {
	event := testutil.BuildOutcomeEvent(t)
	event.OutcomeType = outcomedomain.OutcomeLtvUpdate

	payload := ForSnap(event)

	customData := payload["custom_data"].(map[string]any)
	assert.Equal(t, 100.0, customData["predicted_ltv"])
	assert.Equal(t, 100.0, customData["price"])
}
