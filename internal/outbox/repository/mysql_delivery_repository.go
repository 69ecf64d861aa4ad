package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/allisson/conversions/internal/database"
	"github.com/allisson/conversions/internal/errors"
	"github.com/allisson/conversions/internal/outbox/domain"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

// MySQLDeliveryRepository handles delivery outbox persistence for MySQL.
// Requires MySQL 8.0+ for FOR UPDATE SKIP LOCKED.
type MySQLDeliveryRepository struct {
	db *sql.DB
}

// NewMySQLDeliveryRepository creates a new MySQLDeliveryRepository.
func NewMySQLDeliveryRepository(db *sql.DB) *MySQLDeliveryRepository {
	return &MySQLDeliveryRepository{
		db: db,
	}
}

// Enqueue inserts one pending row per target platform for the event.
// INSERT IGNORE keeps re-ingestion idempotent on the (event_id, platform) key.
func (r *MySQLDeliveryRepository) Enqueue(ctx context.Context, event *outcomedomain.OutcomeEvent) error {
	querier := database.GetTx(ctx, r.db)

	identifiersJSON, err := json.Marshal(event.Identifiers)
	if err != nil {
		return errors.Wrap(err, "failed to marshal hashed identifiers")
	}
	clickIDsJSON, err := json.Marshal(event.ClickIDs)
	if err != nil {
		return errors.Wrap(err, "failed to marshal click ids")
	}
	payloadJSON, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event payload")
	}

	query := `INSERT IGNORE INTO outcome_deliveries
			  (event_id, platform, status, retry_count, hashed_identifiers, click_ids, payload, occurred_at, created_at, updated_at)
			  VALUES (?, ?, ?, 0, ?, ?, ?, ?, NOW(), NOW())`

	for _, platform := range event.TargetPlatforms {
		_, err := querier.ExecContext(ctx, query,
			event.EventID, platform.String(), domain.DeliveryStatusPending,
			identifiersJSON, clickIDsJSON, payloadJSON, event.OccurredAt)
		if err != nil {
			return err
		}
	}

	return nil
}

// FetchPending retrieves up to limit pending rows in stable FIFO order,
// claiming them with FOR UPDATE SKIP LOCKED.
func (r *MySQLDeliveryRepository) FetchPending(ctx context.Context, limit int) ([]*domain.Delivery, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT event_id, platform, status, retry_count, last_error, hashed_identifiers,
			         click_ids, payload, platform_response, occurred_at, created_at, updated_at
			  FROM outcome_deliveries
			  WHERE status = ?
			  ORDER BY created_at ASC, event_id ASC, platform ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.DeliveryStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var deliveries []*domain.Delivery
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, delivery)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return deliveries, nil
}

// MarkDelivered transitions a row to delivered and stores the platform response.
func (r *MySQLDeliveryRepository) MarkDelivered(
	ctx context.Context,
	eventID string,
	platform outcomedomain.Platform,
	response string,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outcome_deliveries
			  SET status = ?, platform_response = ?, updated_at = NOW()
			  WHERE event_id = ? AND platform = ? AND status = ?`

	_, err := querier.ExecContext(ctx, query,
		domain.DeliveryStatusDelivered, response, eventID, platform.String(), domain.DeliveryStatusPending)
	return err
}

// MarkFailed records a transient failure on a pending row.
func (r *MySQLDeliveryRepository) MarkFailed(
	ctx context.Context,
	eventID string,
	platform outcomedomain.Platform,
	message string,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outcome_deliveries
			  SET retry_count = retry_count + 1, last_error = ?, updated_at = NOW()
			  WHERE event_id = ? AND platform = ? AND status = ?`

	_, err := querier.ExecContext(ctx, query,
		message, eventID, platform.String(), domain.DeliveryStatusPending)
	return err
}

// MoveToDeadLetter transitions pending rows past the retry ceiling to dead_letter.
func (r *MySQLDeliveryRepository) MoveToDeadLetter(ctx context.Context, maxRetries int) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outcome_deliveries
			  SET status = ?, updated_at = NOW()
			  WHERE status = ? AND retry_count > ?`

	result, err := querier.ExecContext(ctx, query,
		domain.DeliveryStatusDeadLetter, domain.DeliveryStatusPending, maxRetries)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ReplayFailed resets pending rows with a non-zero retry count back to fresh pending.
func (r *MySQLDeliveryRepository) ReplayFailed(ctx context.Context, platform string) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outcome_deliveries
			  SET retry_count = 0, last_error = NULL, updated_at = NOW()
			  WHERE status = ? AND retry_count > 0 AND (? = '' OR platform = ?)`

	result, err := querier.ExecContext(ctx, query, domain.DeliveryStatusPending, platform, platform)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ReplayDeadLetter resets dead-lettered rows to fresh pending.
func (r *MySQLDeliveryRepository) ReplayDeadLetter(ctx context.Context, platform string, limit int) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	// MySQL cannot reference the updated table in a subquery directly; the
	// derived table works around it.
	query := `UPDATE outcome_deliveries d
			  JOIN (
			      SELECT event_id, platform FROM outcome_deliveries
			      WHERE status = ? AND (? = '' OR platform = ?)
			      ORDER BY created_at ASC
			      LIMIT ?) candidates
			  ON d.event_id = candidates.event_id AND d.platform = candidates.platform
			  SET d.status = ?, d.retry_count = 0, d.last_error = NULL, d.updated_at = NOW()`

	result, err := querier.ExecContext(ctx, query,
		domain.DeliveryStatusDeadLetter, platform, platform, limit, domain.DeliveryStatusPending)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PurgeDelivered hard-deletes delivered rows older than the horizon.
func (r *MySQLDeliveryRepository) PurgeDelivered(ctx context.Context, olderThan time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outcome_deliveries WHERE status = ? AND updated_at < ?`

	result, err := querier.ExecContext(ctx, query, domain.DeliveryStatusDelivered, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// StatusSummary aggregates counts and retry statistics per (platform, status).
func (r *MySQLDeliveryRepository) StatusSummary(ctx context.Context) ([]domain.StatusCount, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT platform, status, COUNT(*), COALESCE(AVG(retry_count), 0), COALESCE(MAX(retry_count), 0)
			  FROM outcome_deliveries
			  GROUP BY platform, status
			  ORDER BY platform, status`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var summary []domain.StatusCount
	for rows.Next() {
		var row domain.StatusCount
		var platform string
		if err := rows.Scan(&platform, &row.Status, &row.Count, &row.AvgRetries, &row.MaxRetries); err != nil {
			return nil, err
		}
		row.Platform = outcomedomain.Platform(platform)
		summary = append(summary, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summary, nil
}

// CountsSince returns delivery counts by status for rows created after since.
func (r *MySQLDeliveryRepository) CountsSince(ctx context.Context, since time.Time) (*domain.HealthCounts, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT status, COUNT(*) FROM outcome_deliveries WHERE created_at >= ? GROUP BY status`

	rows, err := querier.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	counts := &domain.HealthCounts{ByStatus: make(map[domain.DeliveryStatus]int64)}
	for rows.Next() {
		var status domain.DeliveryStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts.ByStatus[status] = count
		if status == domain.DeliveryStatusDeadLetter {
			counts.DeadLetter = count
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// RecentDeliveries returns the most recently updated rows for the status endpoint.
func (r *MySQLDeliveryRepository) RecentDeliveries(ctx context.Context, limit int) ([]*domain.Delivery, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT event_id, platform, status, retry_count, last_error, hashed_identifiers,
			         click_ids, payload, platform_response, occurred_at, created_at, updated_at
			  FROM outcome_deliveries
			  ORDER BY updated_at DESC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var deliveries []*domain.Delivery
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, delivery)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return deliveries, nil
}
