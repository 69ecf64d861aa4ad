package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/allisson/conversions/internal/outcome/domain"
)

// eventIDTimeLayout formats occurred-at timestamps to second precision.
// Callers are responsible for normalizing timestamps to a single zone first.
const eventIDTimeLayout = "2006-01-02T15:04:05"

// EventIDGenerator derives deterministic idempotency keys for outcome events.
// Any single component change, including the presence or absence of the order
// id, yields a different key.
type EventIDGenerator struct{}

// NewEventIDGenerator creates a new EventIDGenerator.
func NewEventIDGenerator() *EventIDGenerator {
	return &EventIDGenerator{}
}

// Generate builds the idempotency key from the ordered component list
// [platform, customerID, outcomeType, occurredAt, orderID?] joined with "|"
// and returns the SHA-256 hex digest of the join.
func (g *EventIDGenerator) Generate(
	platform domain.Platform,
	customerID string,
	outcomeType domain.OutcomeType,
	occurredAt time.Time,
	orderID string,
) string {
	components := []string{
		platform.String(),
		customerID,
		outcomeType.String(),
		occurredAt.Format(eventIDTimeLayout),
	}
	if orderID != "" {
		components = append(components, orderID)
	}

	digest := sha256.Sum256([]byte(strings.Join(components, "|")))
	return hex.EncodeToString(digest[:])
}
