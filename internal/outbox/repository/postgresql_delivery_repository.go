// Package repository provides data persistence implementations for delivery outbox rows.
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

// PostgreSQLDeliveryRepository handles delivery outbox persistence for PostgreSQL.
type PostgreSQLDeliveryRepository struct {
	db *sql.DB
}

// NewPostgreSQLDeliveryRepository creates a new PostgreSQLDeliveryRepository.
func NewPostgreSQLDeliveryRepository(db *sql.DB) *PostgreSQLDeliveryRepository {
	return &PostgreSQLDeliveryRepository{
		db: db,
	}
}

// Enqueue inserts one pending row per target platform for the event.
// The composite key (event_id, platform) makes re-ingestion of the same
// logical signal a no-op, including for already-delivered rows.
func (r *PostgreSQLDeliveryRepository) Enqueue(ctx context.Context, event *outcomedomain.OutcomeEvent) error {
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

	query := `INSERT INTO outcome_deliveries
			  (event_id, platform, status, retry_count, hashed_identifiers, click_ids, payload, occurred_at, created_at, updated_at)
			  VALUES ($1, $2, $3, 0, $4, $5, $6, $7, NOW(), NOW())
			  ON CONFLICT (event_id, platform) DO NOTHING`

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

// FetchPending retrieves up to limit pending rows across all platforms in
// stable FIFO order. Rows are claimed with FOR UPDATE SKIP LOCKED so
// overlapping publish cycles never double-send the same row.
func (r *PostgreSQLDeliveryRepository) FetchPending(ctx context.Context, limit int) ([]*domain.Delivery, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT event_id, platform, status, retry_count, last_error, hashed_identifiers,
			         click_ids, payload, platform_response, occurred_at, created_at, updated_at
			  FROM outcome_deliveries
			  WHERE status = $1
			  ORDER BY created_at ASC, event_id ASC, platform ASC
			  LIMIT $2
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
func (r *PostgreSQLDeliveryRepository) MarkDelivered(
	ctx context.Context,
	eventID string,
	platform outcomedomain.Platform,
	response string,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outcome_deliveries
			  SET status = $1, platform_response = $2, updated_at = NOW()
			  WHERE event_id = $3 AND platform = $4 AND status = $5`

	_, err := querier.ExecContext(ctx, query,
		domain.DeliveryStatusDelivered, response, eventID, platform.String(), domain.DeliveryStatusPending)
	return err
}

// MarkFailed records a transient failure: the row stays pending, retry_count
// is incremented and the error message stored.
func (r *PostgreSQLDeliveryRepository) MarkFailed(
	ctx context.Context,
	eventID string,
	platform outcomedomain.Platform,
	message string,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outcome_deliveries
			  SET retry_count = retry_count + 1, last_error = $1, updated_at = NOW()
			  WHERE event_id = $2 AND platform = $3 AND status = $4`

	_, err := querier.ExecContext(ctx, query,
		message, eventID, platform.String(), domain.DeliveryStatusPending)
	return err
}

// MoveToDeadLetter transitions pending rows past the retry ceiling to
// dead_letter and returns how many rows were moved.
func (r *PostgreSQLDeliveryRepository) MoveToDeadLetter(ctx context.Context, maxRetries int) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outcome_deliveries
			  SET status = $1, updated_at = NOW()
			  WHERE status = $2 AND retry_count > $3`

	result, err := querier.ExecContext(ctx, query,
		domain.DeliveryStatusDeadLetter, domain.DeliveryStatusPending, maxRetries)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ReplayFailed resets pending rows with a non-zero retry count back to fresh
// pending (retry_count zero, last_error cleared). An empty platform matches all.
func (r *PostgreSQLDeliveryRepository) ReplayFailed(ctx context.Context, platform string) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outcome_deliveries
			  SET retry_count = 0, last_error = NULL, updated_at = NOW()
			  WHERE status = $1 AND retry_count > 0 AND ($2 = '' OR platform = $2)`

	result, err := querier.ExecContext(ctx, query, domain.DeliveryStatusPending, platform)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ReplayDeadLetter resets dead-lettered rows to fresh pending.
// An empty platform matches all; limit bounds the number of rows revived.
func (r *PostgreSQLDeliveryRepository) ReplayDeadLetter(ctx context.Context, platform string, limit int) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outcome_deliveries
			  SET status = $1, retry_count = 0, last_error = NULL, updated_at = NOW()
			  WHERE (event_id, platform) IN (
			      SELECT event_id, platform FROM outcome_deliveries
			      WHERE status = $2 AND ($3 = '' OR platform = $3)
			      ORDER BY created_at ASC
			      LIMIT $4)`

	result, err := querier.ExecContext(ctx, query,
		domain.DeliveryStatusPending, domain.DeliveryStatusDeadLetter, platform, limit)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PurgeDelivered hard-deletes delivered rows older than the horizon and
// returns how many rows were removed. No other status is ever purged.
func (r *PostgreSQLDeliveryRepository) PurgeDelivered(ctx context.Context, olderThan time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outcome_deliveries WHERE status = $1 AND updated_at < $2`

	result, err := querier.ExecContext(ctx, query, domain.DeliveryStatusDelivered, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// StatusSummary aggregates counts and retry statistics per (platform, status).
func (r *PostgreSQLDeliveryRepository) StatusSummary(ctx context.Context) ([]domain.StatusCount, error) {
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
func (r *PostgreSQLDeliveryRepository) CountsSince(ctx context.Context, since time.Time) (*domain.HealthCounts, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT status, COUNT(*) FROM outcome_deliveries WHERE created_at >= $1 GROUP BY status`

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
func (r *PostgreSQLDeliveryRepository) RecentDeliveries(ctx context.Context, limit int) ([]*domain.Delivery, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT event_id, platform, status, retry_count, last_error, hashed_identifiers,
			         click_ids, payload, platform_response, occurred_at, created_at, updated_at
			  FROM outcome_deliveries
			  ORDER BY updated_at DESC
			  LIMIT $1`

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

// scanDelivery scans one delivery row including its JSON columns.
func scanDelivery(rows *sql.Rows) (*domain.Delivery, error) {
	var delivery domain.Delivery
	var platform string
	var identifiersJSON, clickIDsJSON []byte

	err := rows.Scan(&delivery.EventID, &platform, &delivery.Status, &delivery.RetryCount,
		&delivery.LastError, &identifiersJSON, &clickIDsJSON, &delivery.Payload,
		&delivery.PlatformResponse, &delivery.OccurredAt, &delivery.CreatedAt, &delivery.UpdatedAt)
	if err != nil {
		return nil, err
	}

	delivery.Platform = outcomedomain.Platform(platform)

	if len(identifiersJSON) > 0 {
		if err := json.Unmarshal(identifiersJSON, &delivery.HashedIdentifiers); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal hashed identifiers")
		}
	}
	if len(clickIDsJSON) > 0 {
		if err := json.Unmarshal(clickIDsJSON, &delivery.ClickIDs); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal click ids")
		}
	}

	return &delivery, nil
}
