package mapper

import (
	"github.com/allisson/conversions/internal/ads/domain"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

// ForTikTok maps an outcome event to the TikTok Events API payload shape.
// TikTok names the event field "event" (not "event_name") and mirrors Meta's
// sign convention: refunds carry a negated value.
func ForTikTok(event *outcomedomain.OutcomeEvent) domain.Payload {
	user := map[string]any{}
	if em := event.Identifier(outcomedomain.IdentifierEmail); em != "" {
		user["email"] = em
	}
	if ph := event.Identifier(outcomedomain.IdentifierPhone); ph != "" {
		user["phone"] = ph
	}
	if extID := event.Identifier(outcomedomain.IdentifierExternalID); extID != "" {
		user["external_id"] = extID
	}
	if event.ClickIDs.TikTokTtclid != "" {
		user["ttclid"] = event.ClickIDs.TikTokTtclid
	}
	if event.ClickIDs.TikTokTtp != "" {
		user["ttp"] = event.ClickIDs.TikTokTtp
	}
	if event.ClientIP != "" {
		user["ip"] = event.ClientIP
	}
	if event.ClientUserAgent != "" {
		user["user_agent"] = event.ClientUserAgent
	}

	properties := map[string]any{}
	if event.Value != nil {
		value := *event.Value
		if event.OutcomeType == outcomedomain.OutcomeRefund {
			value = value.Negate()
		}
		properties["value"] = value.Amount
		properties["currency"] = value.Currency
	}

	var eventName string
	switch event.OutcomeType {
	case outcomedomain.OutcomePurchase, outcomedomain.OutcomeDealWon, outcomedomain.OutcomeRefund:
		eventName = "CompletePayment"
	case outcomedomain.OutcomeLeadQualified:
		eventName = "SubmitForm"
	case outcomedomain.OutcomeRetentionD7, outcomedomain.OutcomeRetentionD30:
		eventName = "Subscribe"
	case outcomedomain.OutcomeLeadDisqualified,
		outcomedomain.OutcomeDealLost,
		outcomedomain.OutcomeLtvUpdate:
		// No TikTok taxonomy entry; carried as a custom event named after the
		// outcome type.
		eventName = event.OutcomeType.String()
	default:
		eventName = event.OutcomeType.String()
	}

	payload := domain.Payload{
		"event":      eventName,
		"event_time": event.OccurredAt.Unix(),
		"event_id":   event.EventID,
		"user":       user,
		"properties": properties,
	}
	if event.EventSourceURL != "" {
		payload["page"] = map[string]any{"url": event.EventSourceURL}
	}

	return payload
}
