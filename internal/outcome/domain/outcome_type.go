// Package domain defines the core outcome domain entities and types.
package domain

import (
	"fmt"

	"github.com/allisson/conversions/internal/errors"
)

// OutcomeType represents a business-level customer signal reported to ad platforms.
type OutcomeType string

const (
	OutcomeLeadQualified    OutcomeType = "LEAD_QUALIFIED"
	OutcomeLeadDisqualified OutcomeType = "LEAD_DISQUALIFIED"
	OutcomeDealWon          OutcomeType = "DEAL_WON"
	OutcomeDealLost         OutcomeType = "DEAL_LOST"
	OutcomePurchase         OutcomeType = "PURCHASE"
	OutcomeRefund           OutcomeType = "REFUND"
	OutcomeRetentionD7      OutcomeType = "RETENTION_D7"
	OutcomeRetentionD30     OutcomeType = "RETENTION_D30"
	OutcomeLtvUpdate        OutcomeType = "LTV_UPDATE"
)

// Domain-specific errors for outcome operations.
var (
	// ErrUnknownOutcomeType indicates the outcome type string is not part of the closed enum.
	ErrUnknownOutcomeType = errors.Wrap(errors.ErrInvalidInput, "unknown outcome type")

	// ErrUnknownPlatform indicates the platform string is not part of the closed enum.
	ErrUnknownPlatform = errors.Wrap(errors.ErrInvalidInput, "unknown platform")

	// ErrInvalidOccurredAt indicates the occurred_at timestamp could not be parsed.
	ErrInvalidOccurredAt = errors.Wrap(errors.ErrInvalidInput, "invalid occurred_at timestamp")
)

// ParseOutcomeType converts a string to an OutcomeType.
// Unknown values fail fast; there is no silent fallback.
func ParseOutcomeType(value string) (OutcomeType, error) {
	switch OutcomeType(value) {
	case OutcomeLeadQualified,
		OutcomeLeadDisqualified,
		OutcomeDealWon,
		OutcomeDealLost,
		OutcomePurchase,
		OutcomeRefund,
		OutcomeRetentionD7,
		OutcomeRetentionD30,
		OutcomeLtvUpdate:
		return OutcomeType(value), nil
	default:
		return "", errors.Wrap(ErrUnknownOutcomeType, fmt.Sprintf("value: %q", value))
	}
}

// IsPositive classifies the outcome: qualified/won/purchase/retention/ltv are
// positive signals, disqualified/lost/refund are negative.
func (t OutcomeType) IsPositive() bool {
	switch t {
	case OutcomeLeadQualified, OutcomeDealWon, OutcomePurchase,
		OutcomeRetentionD7, OutcomeRetentionD30, OutcomeLtvUpdate:
		return true
	case OutcomeLeadDisqualified, OutcomeDealLost, OutcomeRefund:
		return false
	default:
		return false
	}
}

// String returns the wire value of the outcome type.
func (t OutcomeType) String() string {
	return string(t)
}
