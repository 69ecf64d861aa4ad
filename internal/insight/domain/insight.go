// Package domain defines the read-side campaign structure and insight entities.
package domain

import (
	"time"

	"github.com/google/uuid"

	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

// InsightLevel selects the aggregation level of an insight pull.
type InsightLevel string

const (
	InsightLevelCampaign InsightLevel = "campaign"
	InsightLevelAdSet    InsightLevel = "adset"
	InsightLevelAd       InsightLevel = "ad"
)

// DateRange bounds an insight pull, inclusive on both ends.
type DateRange struct {
	Since time.Time
	Until time.Time
}

// Campaign is one advertising campaign as reported by a platform.
type Campaign struct {
	Platform   outcomedomain.Platform
	AccountID  string
	ExternalID string
	Name       string
	Status     string
	Objective  string
}

// AdSet is one ad set (ad group) within a campaign.
type AdSet struct {
	Platform           outcomedomain.Platform
	AccountID          string
	ExternalID         string
	CampaignExternalID string
	Name               string
	Status             string
}

// Ad is one ad within an ad set.
type Ad struct {
	Platform         outcomedomain.Platform
	AccountID        string
	ExternalID       string
	AdSetExternalID  string
	Name             string
	Status           string
}

// InsightRow is one spend/performance data point for one entity on one date.
type InsightRow struct {
	ID          uuid.UUID
	Platform    outcomedomain.Platform
	AccountID   string
	Level       InsightLevel
	EntityID    string
	Date        time.Time
	Impressions int64
	Clicks      int64
	Spend       float64
	Conversions int64
	Currency    string
}
