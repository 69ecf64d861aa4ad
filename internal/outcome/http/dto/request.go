// Package dto defines the request/response payloads of the outcome endpoints.
package dto

import (
	usecase "github.com/allisson/conversions/internal/outcome/usecase"
)

// ComputeOutcomeRequest is the body of POST /v1/outcomes.
type ComputeOutcomeRequest struct {
	CustomerID      string   `json:"customer_id"`
	OutcomeType     string   `json:"outcome_type"`
	OccurredAt      string   `json:"occurred_at"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	Value           *float64 `json:"value,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	CRMStage        string   `json:"crm_stage,omitempty"`
	Score           *int     `json:"score,omitempty"`
	LeadID          string   `json:"lead_id,omitempty"`
	OrderID         string   `json:"order_id,omitempty"`
	Platforms       []string `json:"platforms,omitempty"`
	MetaFbc         string   `json:"meta_fbc,omitempty"`
	MetaFbp         string   `json:"meta_fbp,omitempty"`
	SnapClickID     string   `json:"snap_click_id,omitempty"`
	SnapCookie1     string   `json:"snap_cookie1,omitempty"`
	TikTokTtclid    string   `json:"tiktok_ttclid,omitempty"`
	TikTokTtp       string   `json:"tiktok_ttp,omitempty"`
	ClientIP        string   `json:"client_ip,omitempty"`
	ClientUserAgent string   `json:"client_user_agent,omitempty"`
	EventSourceURL  string   `json:"event_source_url,omitempty"`
}

// ToInput converts the request into the use-case input. When the caller omits
// client network fields, the values observed on the HTTP request are used.
func (r *ComputeOutcomeRequest) ToInput(clientIP, userAgent string) usecase.ComputeOutcomeInput {
	input := usecase.ComputeOutcomeInput{
		CustomerID:      r.CustomerID,
		OutcomeType:     r.OutcomeType,
		OccurredAt:      r.OccurredAt,
		Email:           r.Email,
		Phone:           r.Phone,
		Value:           r.Value,
		Currency:        r.Currency,
		CRMStage:        r.CRMStage,
		Score:           r.Score,
		LeadID:          r.LeadID,
		OrderID:         r.OrderID,
		Platforms:       r.Platforms,
		MetaFbc:         r.MetaFbc,
		MetaFbp:         r.MetaFbp,
		SnapClickID:     r.SnapClickID,
		SnapCookie1:     r.SnapCookie1,
		TikTokTtclid:    r.TikTokTtclid,
		TikTokTtp:       r.TikTokTtp,
		ClientIP:        r.ClientIP,
		ClientUserAgent: r.ClientUserAgent,
		EventSourceURL:  r.EventSourceURL,
	}
	if input.ClientIP == "" {
		input.ClientIP = clientIP
	}
	if input.ClientUserAgent == "" {
		input.ClientUserAgent = userAgent
	}
	return input
}
