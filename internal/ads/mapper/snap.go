package mapper

import (
	"github.com/allisson/conversions/internal/ads/domain"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

// ForSnap maps an outcome event to the Snap Conversions API payload shape.
// Numeric value always nests under custom_data.price with custom_data.currency;
// refunds ride on CUSTOM_EVENT_3/OFFLINE instead of a negated sign.
func ForSnap(event *outcomedomain.OutcomeEvent) domain.Payload {
	userData := map[string]any{}
	if em := event.Identifier(outcomedomain.IdentifierEmail); em != "" {
		userData["em"] = em
	}
	if ph := event.Identifier(outcomedomain.IdentifierPhone); ph != "" {
		userData["ph"] = ph
	}
	if extID := event.Identifier(outcomedomain.IdentifierExternalID); extID != "" {
		userData["external_id"] = extID
	}
	if event.ClickIDs.SnapClickID != "" {
		userData["click_id"] = event.ClickIDs.SnapClickID
	}
	if event.ClickIDs.SnapCookie1 != "" {
		userData["uuid_c1"] = event.ClickIDs.SnapCookie1
	}
	if event.ClientIP != "" {
		userData["ip_address"] = event.ClientIP
	}
	if event.ClientUserAgent != "" {
		userData["user_agent"] = event.ClientUserAgent
	}

	customData := map[string]any{}
	if event.Value != nil {
		customData["price"] = event.Value.Amount
		customData["currency"] = event.Value.Currency
	}

	var eventName, actionSource string
	switch event.OutcomeType {
	case outcomedomain.OutcomePurchase:
		eventName, actionSource = "PURCHASE", "WEB"
	case outcomedomain.OutcomeDealWon:
		eventName, actionSource = "PURCHASE", "website"
	case outcomedomain.OutcomeRefund:
		eventName, actionSource = "CUSTOM_EVENT_3", "OFFLINE"
	case outcomedomain.OutcomeDealLost:
		eventName, actionSource = "CUSTOM_EVENT_2", "website"
	case outcomedomain.OutcomeLeadQualified:
		eventName, actionSource = "SIGN_UP", "website"
	case outcomedomain.OutcomeRetentionD7, outcomedomain.OutcomeRetentionD30:
		eventName, actionSource = "SUBSCRIBE", "website"
	case outcomedomain.OutcomeLtvUpdate:
		eventName, actionSource = "PURCHASE", "website"
		if event.Value != nil {
			customData["predicted_ltv"] = event.Value.Amount
		}
	case outcomedomain.OutcomeLeadDisqualified:
		eventName, actionSource = "CUSTOM_EVENT_1", "website"
	default:
		eventName, actionSource = "CUSTOM_EVENT_1", "website"
	}

	payload := domain.Payload{
		"event_name":    eventName,
		"action_source": actionSource,
		"event_time":    event.OccurredAt.Unix(),
		"event_id":      event.EventID,
		"user_data":     userData,
		"custom_data":   customData,
	}
	if event.EventSourceURL != "" {
		payload["page_url"] = event.EventSourceURL
	}

	return payload
}
