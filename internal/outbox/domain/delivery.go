// Package domain defines the delivery outbox entities and the delivery state machine.
package domain

import (
	"fmt"
	"time"

	"github.com/allisson/conversions/internal/errors"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

// DeliveryStatus represents the delivery state of one (event, platform) row.
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusDelivered  DeliveryStatus = "delivered"
	DeliveryStatusDeadLetter DeliveryStatus = "dead_letter"
)

// ErrIllegalTransition indicates a delivery state transition that the state
// machine does not allow.
var ErrIllegalTransition = errors.New("illegal delivery status transition")

// Delivery is one persisted outbox row: a single outcome event targeted at a
// single platform. Rows are exclusively mutated through the delivery
// repository methods; no other component writes them.
type Delivery struct {
	EventID           string
	Platform          outcomedomain.Platform
	Status            DeliveryStatus
	RetryCount        int
	LastError         *string
	HashedIdentifiers []outcomedomain.HashedIdentifier
	ClickIDs          outcomedomain.ClickIDs
	Payload           string
	PlatformResponse  *string
	OccurredAt        time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// MarkDelivered transitions a pending delivery to delivered (terminal).
func (d *Delivery) MarkDelivered(response string) error {
	if d.Status != DeliveryStatusPending {
		return errors.Wrap(ErrIllegalTransition, fmt.Sprintf("%s -> delivered", d.Status))
	}
	d.Status = DeliveryStatusDelivered
	d.PlatformResponse = &response
	return nil
}

// MarkFailed records a transient send failure: the row stays pending with the
// retry count incremented and the error message stored.
func (d *Delivery) MarkFailed(message string) error {
	if d.Status != DeliveryStatusPending {
		return errors.Wrap(ErrIllegalTransition, fmt.Sprintf("%s -> pending (failure)", d.Status))
	}
	d.RetryCount++
	d.LastError = &message
	return nil
}

// MoveToDeadLetter transitions a pending delivery that exhausted its retry
// budget to dead_letter. Only operator replay revives it.
func (d *Delivery) MoveToDeadLetter() error {
	if d.Status != DeliveryStatusPending {
		return errors.Wrap(ErrIllegalTransition, fmt.Sprintf("%s -> dead_letter", d.Status))
	}
	d.Status = DeliveryStatusDeadLetter
	return nil
}

// Replay resets a dead-lettered or previously-failed row back to fresh pending:
// status pending, retry count zero, last error cleared.
func (d *Delivery) Replay() error {
	switch d.Status {
	case DeliveryStatusPending, DeliveryStatusDeadLetter:
		d.Status = DeliveryStatusPending
		d.RetryCount = 0
		d.LastError = nil
		return nil
	default:
		return errors.Wrap(ErrIllegalTransition, fmt.Sprintf("%s -> pending (replay)", d.Status))
	}
}

// StatusCount aggregates delivery counts and retry statistics per (platform, status).
type StatusCount struct {
	Platform   outcomedomain.Platform
	Status     DeliveryStatus
	Count      int64
	AvgRetries float64
	MaxRetries int
}

// HealthCounts summarizes last-24h delivery activity for the health command.
type HealthCounts struct {
	ByStatus   map[DeliveryStatus]int64
	DeadLetter int64
}
