package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/conversions/internal/database"
	"github.com/allisson/conversions/internal/insight/domain"
)

// MySQLInsightRepository handles campaign/insight persistence for MySQL.
type MySQLInsightRepository struct {
	db *sql.DB
}

// NewMySQLInsightRepository creates a new MySQLInsightRepository.
func NewMySQLInsightRepository(db *sql.DB) *MySQLInsightRepository {
	return &MySQLInsightRepository{
		db: db,
	}
}

// UpsertCampaigns inserts or updates campaigns keyed by (platform, external_id).
func (r *MySQLInsightRepository) UpsertCampaigns(ctx context.Context, campaigns []domain.Campaign) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO ad_campaigns (platform, account_id, external_id, name, status, objective, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW())
			  ON DUPLICATE KEY UPDATE name = VALUES(name), status = VALUES(status),
			                          objective = VALUES(objective), updated_at = NOW()`

	for _, campaign := range campaigns {
		_, err := querier.ExecContext(ctx, query,
			campaign.Platform.String(), campaign.AccountID, campaign.ExternalID,
			campaign.Name, campaign.Status, campaign.Objective)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpsertAdSets inserts or updates ad sets keyed by (platform, external_id).
func (r *MySQLInsightRepository) UpsertAdSets(ctx context.Context, adSets []domain.AdSet) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO ad_sets (platform, account_id, external_id, campaign_external_id, name, status, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW())
			  ON DUPLICATE KEY UPDATE campaign_external_id = VALUES(campaign_external_id),
			                          name = VALUES(name), status = VALUES(status), updated_at = NOW()`

	for _, adSet := range adSets {
		_, err := querier.ExecContext(ctx, query,
			adSet.Platform.String(), adSet.AccountID, adSet.ExternalID,
			adSet.CampaignExternalID, adSet.Name, adSet.Status)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpsertAds inserts or updates ads keyed by (platform, external_id).
func (r *MySQLInsightRepository) UpsertAds(ctx context.Context, ads []domain.Ad) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO ads (platform, account_id, external_id, ad_set_external_id, name, status, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW())
			  ON DUPLICATE KEY UPDATE ad_set_external_id = VALUES(ad_set_external_id),
			                          name = VALUES(name), status = VALUES(status), updated_at = NOW()`

	for _, ad := range ads {
		_, err := querier.ExecContext(ctx, query,
			ad.Platform.String(), ad.AccountID, ad.ExternalID,
			ad.AdSetExternalID, ad.Name, ad.Status)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpsertInsightRows inserts or updates insight data points keyed by
// (platform, account_id, level, entity_id, date).
func (r *MySQLInsightRepository) UpsertInsightRows(ctx context.Context, rows []domain.InsightRow) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO ad_insights
			  (id, platform, account_id, level, entity_id, date, impressions, clicks, spend, conversions, currency, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
			  ON DUPLICATE KEY UPDATE impressions = VALUES(impressions), clicks = VALUES(clicks),
			                          spend = VALUES(spend), conversions = VALUES(conversions),
			                          currency = VALUES(currency), updated_at = NOW()`

	for _, row := range rows {
		_, err := querier.ExecContext(ctx, query,
			row.ID, row.Platform.String(), row.AccountID, string(row.Level), row.EntityID,
			row.Date, row.Impressions, row.Clicks, row.Spend, row.Conversions, row.Currency)
		if err != nil {
			return err
		}
	}
	return nil
}

// CountRowsSince counts insight rows updated after since, for the health command.
func (r *MySQLInsightRepository) CountRowsSince(ctx context.Context, since time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	err := querier.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ad_insights WHERE updated_at >= ?`, since).Scan(&count)
	return count, err
}
