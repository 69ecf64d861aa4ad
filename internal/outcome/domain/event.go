package domain

import "time"

// ClickIDs carries the per-platform click-ID and cookie metadata captured at
// ingestion time. All fields are optional.
type ClickIDs struct {
	MetaFbc      string `json:"meta_fbc,omitempty"`
	MetaFbp      string `json:"meta_fbp,omitempty"`
	SnapClickID  string `json:"snap_click_id,omitempty"`
	SnapCookie1  string `json:"snap_cookie1,omitempty"`
	TikTokTtclid string `json:"tiktok_ttclid,omitempty"`
	TikTokTtp    string `json:"tiktok_ttp,omitempty"`
}

// OutcomeEvent is the canonical, platform-agnostic representation of one
// business signal plus its hashed identifiers and click metadata.
// It is constructed once by ingestion and never mutated afterwards; the outbox
// store fans it out per platform and the mapper reads it.
type OutcomeEvent struct {
	// EventID is the deterministic idempotency key shared across all target
	// platforms for the same logical event.
	EventID         string             `json:"event_id"`
	OutcomeType     OutcomeType        `json:"outcome_type"`
	OccurredAt      time.Time          `json:"occurred_at"`
	Identifiers     []HashedIdentifier `json:"identifiers"`
	TargetPlatforms []Platform         `json:"target_platforms"`
	Value           *Money             `json:"value,omitempty"`
	CRMStage        string             `json:"crm_stage,omitempty"`
	Score           *int               `json:"score,omitempty"`
	LeadID          string             `json:"lead_id,omitempty"`
	OrderID         string             `json:"order_id,omitempty"`
	ClickIDs        ClickIDs           `json:"click_ids"`
	ClientIP        string             `json:"client_ip,omitempty"`
	ClientUserAgent string             `json:"client_user_agent,omitempty"`
	EventSourceURL  string             `json:"event_source_url,omitempty"`
}

// Identifier returns the hashed value for the given identifier type, or an
// empty string if the event does not carry it.
func (e *OutcomeEvent) Identifier(identifierType string) string {
	for _, id := range e.Identifiers {
		if id.Type == identifierType {
			return id.HashedValue
		}
	}
	return ""
}
