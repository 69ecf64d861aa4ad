// Package usecase implements the outcome ingestion business logic: validating
// incoming signals, building canonical outcome events and fanning them out to
// the delivery outbox.
package usecase

import (
	"context"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/conversions/internal/database"
	apperrors "github.com/allisson/conversions/internal/errors"
	outboxdomain "github.com/allisson/conversions/internal/outbox/domain"
	"github.com/allisson/conversions/internal/outcome/domain"
	"github.com/allisson/conversions/internal/outcome/service"
	appValidation "github.com/allisson/conversions/internal/validation"
)

// ComputeOutcomeInput carries one incoming business signal.
type ComputeOutcomeInput struct {
	CustomerID      string   `json:"customer_id"`
	OutcomeType     string   `json:"outcome_type"`
	OccurredAt      string   `json:"occurred_at"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone"`
	Value           *float64 `json:"value"`
	Currency        string   `json:"currency"`
	CRMStage        string   `json:"crm_stage"`
	Score           *int     `json:"score"`
	LeadID          string   `json:"lead_id"`
	OrderID         string   `json:"order_id"`
	Platforms       []string `json:"platforms"`
	MetaFbc         string   `json:"meta_fbc"`
	MetaFbp         string   `json:"meta_fbp"`
	SnapClickID     string   `json:"snap_click_id"`
	SnapCookie1     string   `json:"snap_cookie1"`
	TikTokTtclid    string   `json:"tiktok_ttclid"`
	TikTokTtp       string   `json:"tiktok_ttp"`
	ClientIP        string   `json:"client_ip"`
	ClientUserAgent string   `json:"client_user_agent"`
	EventSourceURL  string   `json:"event_source_url"`
}

// StatusOverview summarizes recent delivery activity for the status endpoint.
type StatusOverview struct {
	Recent  []*outboxdomain.Delivery
	Summary []outboxdomain.StatusCount
}

// UseCase defines the interface for outcome ingestion operations.
type UseCase interface {
	ComputeCustomerOutcome(ctx context.Context, input ComputeOutcomeInput) (*domain.OutcomeEvent, error)
	StatusOverview(ctx context.Context, limit int) (*StatusOverview, error)
}

// DeliveryRepository defines the outbox operations the ingestion side needs.
type DeliveryRepository interface {
	Enqueue(ctx context.Context, event *domain.OutcomeEvent) error
	StatusSummary(ctx context.Context) ([]outboxdomain.StatusCount, error)
	RecentDeliveries(ctx context.Context, limit int) ([]*outboxdomain.Delivery, error)
}

// OutcomeUseCase handles outcome ingestion.
type OutcomeUseCase struct {
	txManager       database.TxManager
	deliveryRepo    DeliveryRepository
	hasher          *service.Hasher
	eventIDGen      *service.EventIDGenerator
	defaultCurrency string
}

// NewOutcomeUseCase creates a new OutcomeUseCase.
func NewOutcomeUseCase(
	txManager database.TxManager,
	deliveryRepo DeliveryRepository,
	hasher *service.Hasher,
	eventIDGen *service.EventIDGenerator,
	defaultCurrency string,
) *OutcomeUseCase {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &OutcomeUseCase{
		txManager:       txManager,
		deliveryRepo:    deliveryRepo,
		hasher:          hasher,
		eventIDGen:      eventIDGen,
		defaultCurrency: defaultCurrency,
	}
}

// validateComputeOutcomeInput validates the signal's structural fields.
// Enum and timestamp parsing happen afterwards and carry their own errors.
func (uc *OutcomeUseCase) validateComputeOutcomeInput(input ComputeOutcomeInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.CustomerID,
			validation.Required.Error("customer_id is required"),
			appValidation.NotBlank,
		),
		validation.Field(&input.OutcomeType,
			validation.Required.Error("outcome_type is required"),
		),
		validation.Field(&input.OccurredAt,
			validation.Required.Error("occurred_at is required"),
		),
		validation.Field(&input.Email,
			appValidation.Email,
		),
		validation.Field(&input.Score,
			validation.Min(0).Error("score must be between 0 and 100"),
			validation.Max(100).Error("score must be between 0 and 100"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// ComputeCustomerOutcome validates and normalizes an incoming signal, builds
// the canonical outcome event and enqueues one pending delivery per target
// platform in a single transaction. The ingestion never waits for platform
// delivery; callers surface the deterministic event id and a queued status.
func (uc *OutcomeUseCase) ComputeCustomerOutcome(
	ctx context.Context,
	input ComputeOutcomeInput,
) (*domain.OutcomeEvent, error) {
	if err := uc.validateComputeOutcomeInput(input); err != nil {
		return nil, err
	}

	outcomeType, err := domain.ParseOutcomeType(input.OutcomeType)
	if err != nil {
		return nil, err
	}

	occurredAt, err := time.Parse(time.RFC3339, input.OccurredAt)
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrInvalidOccurredAt, err.Error())
	}
	// Normalize to UTC so event-id derivation is timezone-stable.
	occurredAt = occurredAt.UTC()

	platforms, err := domain.ParsePlatforms(input.Platforms)
	if err != nil {
		return nil, err
	}

	var identifiers []domain.HashedIdentifier
	if input.Email != "" {
		identifiers = append(identifiers,
			domain.NewHashedIdentifier(domain.IdentifierEmail, uc.hasher.HashEmail(input.Email)))
	}
	if input.Phone != "" {
		identifiers = append(identifiers,
			domain.NewHashedIdentifier(domain.IdentifierPhone, uc.hasher.HashPhone(input.Phone)))
	}
	if input.CustomerID != "" {
		identifiers = append(identifiers,
			domain.NewHashedIdentifier(domain.IdentifierExternalID, uc.hasher.HashExternalID(input.CustomerID)))
	}

	// platforms[0] is the canonical id-derivation input; the id itself is
	// shared across every target platform for this logical event.
	eventID := uc.eventIDGen.Generate(platforms[0], input.CustomerID, outcomeType, occurredAt, input.OrderID)

	event := &domain.OutcomeEvent{
		EventID:         eventID,
		OutcomeType:     outcomeType,
		OccurredAt:      occurredAt,
		Identifiers:     identifiers,
		TargetPlatforms: platforms,
		CRMStage:        input.CRMStage,
		Score:           input.Score,
		LeadID:          input.LeadID,
		OrderID:         input.OrderID,
		ClickIDs: domain.ClickIDs{
			MetaFbc:      input.MetaFbc,
			MetaFbp:      input.MetaFbp,
			SnapClickID:  input.SnapClickID,
			SnapCookie1:  input.SnapCookie1,
			TikTokTtclid: input.TikTokTtclid,
			TikTokTtp:    input.TikTokTtp,
		},
		ClientIP:        input.ClientIP,
		ClientUserAgent: input.ClientUserAgent,
		EventSourceURL:  input.EventSourceURL,
	}

	if input.Value != nil {
		currency := input.Currency
		if currency == "" {
			currency = uc.defaultCurrency
		}
		value := domain.NewMoney(*input.Value, currency)
		event.Value = &value
	}

	// Fan-out happens inside one transaction: either every platform row is
	// enqueued or none is.
	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		return uc.deliveryRepo.Enqueue(ctx, event)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to enqueue outcome deliveries")
	}

	return event, nil
}

// StatusOverview returns recent deliveries plus the per-(platform, status) histogram.
func (uc *OutcomeUseCase) StatusOverview(ctx context.Context, limit int) (*StatusOverview, error) {
	recent, err := uc.deliveryRepo.RecentDeliveries(ctx, limit)
	if err != nil {
		return nil, err
	}
	summary, err := uc.deliveryRepo.StatusSummary(ctx)
	if err != nil {
		return nil, err
	}
	return &StatusOverview{Recent: recent, Summary: summary}, nil
}
