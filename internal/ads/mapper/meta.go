package mapper

import (
	"github.com/allisson/conversions/internal/ads/domain"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

const (
	metaActionSourceWebsite = "website"
	metaActionSourceSystem  = "system_generated"

	// metaLeadEventSource labels CRM-originated lead events on the Meta side.
	metaLeadEventSource = "in_house_crm"
)

// metaCRMEventName resolves the CRM-lead event name: the crmStage verbatim
// when provided, otherwise a fixed default per outcome type.
func metaCRMEventName(event *outcomedomain.OutcomeEvent) string {
	if event.CRMStage != "" {
		return event.CRMStage
	}
	switch event.OutcomeType {
	case outcomedomain.OutcomeLeadQualified:
		return "Marketing Qualified Lead"
	case outcomedomain.OutcomeDealWon:
		return "Converted"
	case outcomedomain.OutcomeDealLost:
		return "Lost"
	default:
		return event.OutcomeType.String()
	}
}

// ForMeta maps an outcome event to the Meta Conversions API payload shape.
//
// Lead-id presence alone selects the CRM-lead branch, regardless of outcome
// type: is_crm_lead, action_source system_generated and the crm event source
// fields replace the e-commerce taxonomy.
func ForMeta(event *outcomedomain.OutcomeEvent) domain.Payload {
	userData := map[string]any{}
	if em := event.Identifier(outcomedomain.IdentifierEmail); em != "" {
		userData["em"] = []string{em}
	}
	if ph := event.Identifier(outcomedomain.IdentifierPhone); ph != "" {
		userData["ph"] = []string{ph}
	}
	if extID := event.Identifier(outcomedomain.IdentifierExternalID); extID != "" {
		userData["external_id"] = []string{extID}
	}
	if event.ClickIDs.MetaFbc != "" {
		userData["fbc"] = event.ClickIDs.MetaFbc
	}
	if event.ClickIDs.MetaFbp != "" {
		userData["fbp"] = event.ClickIDs.MetaFbp
	}
	if event.ClientIP != "" {
		userData["client_ip_address"] = event.ClientIP
	}
	if event.ClientUserAgent != "" {
		userData["client_user_agent"] = event.ClientUserAgent
	}

	customData := map[string]any{}
	payload := domain.Payload{
		"event_time":  event.OccurredAt.Unix(),
		"event_id":    event.EventID,
		"user_data":   userData,
		"custom_data": customData,
	}
	if event.EventSourceURL != "" {
		payload["event_source_url"] = event.EventSourceURL
	}

	if event.LeadID != "" {
		payload["event_name"] = metaCRMEventName(event)
		payload["action_source"] = metaActionSourceSystem
		payload["is_crm_lead"] = true
		userData["lead_id"] = event.LeadID
		customData["event_source"] = "crm"
		customData["lead_event_source"] = metaLeadEventSource
		return payload
	}

	payload["action_source"] = metaActionSourceWebsite

	switch event.OutcomeType {
	case outcomedomain.OutcomePurchase, outcomedomain.OutcomeDealWon, outcomedomain.OutcomeLtvUpdate:
		payload["event_name"] = "Purchase"
		if event.Value != nil {
			customData["value"] = event.Value.Amount
			customData["currency"] = event.Value.Currency
		}
	case outcomedomain.OutcomeRefund:
		payload["event_name"] = "Purchase"
		if event.Value != nil {
			negated := event.Value.Negate()
			customData["value"] = negated.Amount
			customData["currency"] = negated.Currency
		}
	case outcomedomain.OutcomeLeadQualified:
		payload["event_name"] = "Lead"
	case outcomedomain.OutcomeRetentionD7, outcomedomain.OutcomeRetentionD30:
		payload["event_name"] = "Subscribe"
	case outcomedomain.OutcomeLeadDisqualified, outcomedomain.OutcomeDealLost:
		// No standard Meta event for these outside the CRM branch; carried as
		// a custom event named after the outcome type.
		payload["event_name"] = event.OutcomeType.String()
	default:
		payload["event_name"] = event.OutcomeType.String()
	}

	return payload
}
