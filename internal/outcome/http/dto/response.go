package dto

import (
	"time"

	outboxdomain "github.com/allisson/conversions/internal/outbox/domain"
	"github.com/allisson/conversions/internal/outcome/domain"
	usecase "github.com/allisson/conversions/internal/outcome/usecase"
)

// ComputeOutcomeResponse is the body returned by POST /v1/outcomes. Delivery is
// asynchronous, so the endpoint only confirms the event was queued.
type ComputeOutcomeResponse struct {
	EventID     string   `json:"event_id"`
	OutcomeType string   `json:"outcome_type"`
	OccurredAt  string   `json:"occurred_at"`
	Platforms   []string `json:"platforms"`
	Status      string   `json:"status"`
}

// MapEventToComputeResponse builds the queued confirmation for an accepted event.
func MapEventToComputeResponse(event *domain.OutcomeEvent) ComputeOutcomeResponse {
	platforms := make([]string, 0, len(event.TargetPlatforms))
	for _, platform := range event.TargetPlatforms {
		platforms = append(platforms, platform.String())
	}
	return ComputeOutcomeResponse{
		EventID:     event.EventID,
		OutcomeType: event.OutcomeType.String(),
		OccurredAt:  event.OccurredAt.Format(time.RFC3339),
		Platforms:   platforms,
		Status:      "queued",
	}
}

// DeliveryResponse is one outbox row in the status endpoint response.
type DeliveryResponse struct {
	EventID    string  `json:"event_id"`
	Platform   string  `json:"platform"`
	Status     string  `json:"status"`
	RetryCount int     `json:"retry_count"`
	LastError  *string `json:"last_error,omitempty"`
	OccurredAt string  `json:"occurred_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// StatusCountResponse is one (platform, status) aggregate in the status endpoint response.
type StatusCountResponse struct {
	Platform   string  `json:"platform"`
	Status     string  `json:"status"`
	Count      int64   `json:"count"`
	AvgRetries float64 `json:"avg_retries"`
	MaxRetries int     `json:"max_retries"`
}

// StatusOverviewResponse is the body returned by GET /v1/outcomes/status.
type StatusOverviewResponse struct {
	Recent  []DeliveryResponse    `json:"recent"`
	Summary []StatusCountResponse `json:"summary"`
}

// MapOverviewToResponse builds the status endpoint response.
func MapOverviewToResponse(overview *usecase.StatusOverview) StatusOverviewResponse {
	response := StatusOverviewResponse{
		Recent:  make([]DeliveryResponse, 0, len(overview.Recent)),
		Summary: make([]StatusCountResponse, 0, len(overview.Summary)),
	}
	for _, delivery := range overview.Recent {
		response.Recent = append(response.Recent, mapDelivery(delivery))
	}
	for _, count := range overview.Summary {
		response.Summary = append(response.Summary, StatusCountResponse{
			Platform:   count.Platform.String(),
			Status:     string(count.Status),
			Count:      count.Count,
			AvgRetries: count.AvgRetries,
			MaxRetries: count.MaxRetries,
		})
	}
	return response
}

func mapDelivery(delivery *outboxdomain.Delivery) DeliveryResponse {
	return DeliveryResponse{
		EventID:    delivery.EventID,
		Platform:   delivery.Platform.String(),
		Status:     string(delivery.Status),
		RetryCount: delivery.RetryCount,
		LastError:  delivery.LastError,
		OccurredAt: delivery.OccurredAt.Format(time.RFC3339),
		UpdatedAt:  delivery.UpdatedAt.Format(time.RFC3339),
	}
}
