// Package ledger persists the per-business-key audit and idempotency state
// for every integration attempt. The ledger is the system of record for
// "did we already send this" decisions and for operator retriggers.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/omnilogix/freight-bridge/internal/model"
)

var (
	// ErrNotFound is returned when no attempt exists for a business key.
	ErrNotFound = errors.New("attempt record not found")
)

// Ledger is the Postgres-backed attempt store. Kind scopes rows per event
// pipeline so the same order number can flow through several integrations.
type Ledger struct {
	db *sql.DB
}

// New creates a Ledger over the given database handle.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Lookup fetches the attempt row for a business key within a pipeline kind.
func (l *Ledger) Lookup(ctx context.Context, kind string, key model.BusinessKey) (*model.AttemptRecord, error) {
	query := `SELECT order_no, discriminator, status, event_time, housebill, reference_no,
	                 request_payload, response_payload, secondary_payload, secondary_response,
	                 error_message, retry_count, reset_count, last_updated_by, last_updated_at
	          FROM integration_attempts
	          WHERE kind = $1 AND order_no = $2 AND discriminator = $3`

	stmt, err := l.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare attempt select: %w", err)
	}
	defer stmt.Close()

	var rec model.AttemptRecord
	err = stmt.QueryRowContext(ctx, kind, key.OrderNo, key.Discriminator).Scan(
		&rec.OrderNo, &rec.Discriminator, &rec.Status, &rec.EventTime, &rec.Housebill,
		&rec.ReferenceNo, &rec.RequestPayload, &rec.ResponsePayload, &rec.SecondaryPayload,
		&rec.SecondaryResponse, &rec.ErrorMessage, &rec.RetryCount, &rec.ResetCount,
		&rec.LastUpdatedBy, &rec.LastUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attempt %s for kind %s: %w", key, kind, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query attempt: %w", err)
	}

	return &rec, nil
}

// RecordOutcome upserts the attempt row for rec's business key. The update
// is last-write-wins; callers decide beforehand whether writing is allowed
// (a stale duplicate never reaches this method).
func (l *Ledger) RecordOutcome(ctx context.Context, kind string, rec *model.AttemptRecord) error {
	query := `INSERT INTO integration_attempts
	            (kind, order_no, discriminator, status, event_time, housebill, reference_no,
	             request_payload, response_payload, secondary_payload, secondary_response,
	             error_message, retry_count, last_updated_by, last_updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
	          ON CONFLICT (kind, order_no, discriminator) DO UPDATE SET
	            status = EXCLUDED.status,
	            event_time = EXCLUDED.event_time,
	            housebill = EXCLUDED.housebill,
	            reference_no = EXCLUDED.reference_no,
	            request_payload = EXCLUDED.request_payload,
	            response_payload = EXCLUDED.response_payload,
	            secondary_payload = EXCLUDED.secondary_payload,
	            secondary_response = EXCLUDED.secondary_response,
	            error_message = EXCLUDED.error_message,
	            retry_count = EXCLUDED.retry_count,
	            last_updated_by = EXCLUDED.last_updated_by,
	            last_updated_at = NOW()`

	stmt, err := l.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare attempt upsert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, kind, rec.OrderNo, rec.Discriminator, rec.Status,
		rec.EventTime, rec.Housebill, rec.ReferenceNo, rec.RequestPayload, rec.ResponsePayload,
		rec.SecondaryPayload, rec.SecondaryResponse, rec.ErrorMessage, rec.RetryCount,
		rec.LastUpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to upsert attempt %s: %w", rec.Key(), err)
	}

	return nil
}

// MarkDuplicate increments the reset count of an existing row and records the
// duplicate message. Status and payloads stay untouched so a completed Sent
// row keeps its audit trail.
func (l *Ledger) MarkDuplicate(ctx context.Context, kind string, key model.BusinessKey, message string) error {
	query := `UPDATE integration_attempts
	          SET reset_count = reset_count + 1,
	              error_message = $4,
	              last_updated_by = 'duplicate-detector',
	              last_updated_at = NOW()
	          WHERE kind = $1 AND order_no = $2 AND discriminator = $3`

	stmt, err := l.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare duplicate update: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, kind, key.OrderNo, key.Discriminator, message)
	if err != nil {
		return fmt.Errorf("failed to mark duplicate %s: %w", key, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("attempt %s for kind %s: %w", key, kind, ErrNotFound)
	}

	return nil
}

// PromoteFailed flips Failed rows whose retry count still equals the
// configured threshold back to Ready, bumping the count so the promotion
// happens automatically at most once per failure. It returns the promoted
// business keys so callers can requeue them.
func (l *Ledger) PromoteFailed(ctx context.Context, kind string, threshold int) ([]model.BusinessKey, error) {
	query := `UPDATE integration_attempts
	          SET status = $1,
	              retry_count = retry_count + 1,
	              last_updated_by = 'retry-promoter',
	              last_updated_at = NOW()
	          WHERE kind = $2 AND status = $3 AND retry_count = $4
	          RETURNING order_no, discriminator`

	stmt, err := l.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare promotion update: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, model.StatusReady, kind, model.StatusFailed, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to promote failed attempts: %w", err)
	}
	defer rows.Close()

	var keys []model.BusinessKey
	for rows.Next() {
		var key model.BusinessKey
		if err := rows.Scan(&key.OrderNo, &key.Discriminator); err != nil {
			return nil, fmt.Errorf("failed to scan promoted key: %w", err)
		}
		keys = append(keys, key)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return keys, nil
}

// LookupSentByHousebill fetches the most recent Sent attempt of a pipeline
// kind for a housebill. The cost flow uses this to confirm a shipment was
// registered by this bridge before booking charges against it.
func (l *Ledger) LookupSentByHousebill(ctx context.Context, kind, housebill string) (*model.AttemptRecord, error) {
	query := `SELECT order_no, discriminator, status, event_time, housebill, reference_no,
	                 request_payload, response_payload, secondary_payload, secondary_response,
	                 error_message, retry_count, reset_count, last_updated_by, last_updated_at
	          FROM integration_attempts
	          WHERE kind = $1 AND housebill = $2 AND status = $3
	          ORDER BY last_updated_at DESC
	          LIMIT 1`

	stmt, err := l.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare housebill select: %w", err)
	}
	defer stmt.Close()

	var rec model.AttemptRecord
	err = stmt.QueryRowContext(ctx, kind, housebill, model.StatusSent).Scan(
		&rec.OrderNo, &rec.Discriminator, &rec.Status, &rec.EventTime, &rec.Housebill,
		&rec.ReferenceNo, &rec.RequestPayload, &rec.ResponsePayload, &rec.SecondaryPayload,
		&rec.SecondaryResponse, &rec.ErrorMessage, &rec.RetryCount, &rec.ResetCount,
		&rec.LastUpdatedBy, &rec.LastUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no sent attempt for housebill %s in kind %s: %w", housebill, kind, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query attempt by housebill: %w", err)
	}

	return &rec, nil
}

// ListByOrder fetches every attempt row of an order across pipeline kinds,
// for the operator lookup endpoint.
func (l *Ledger) ListByOrder(ctx context.Context, orderNo string) ([]model.AttemptRecord, error) {
	query := `SELECT order_no, discriminator, status, event_time, housebill, reference_no,
	                 request_payload, response_payload, secondary_payload, secondary_response,
	                 error_message, retry_count, reset_count, last_updated_by, last_updated_at
	          FROM integration_attempts
	          WHERE order_no = $1
	          ORDER BY last_updated_at DESC`

	stmt, err := l.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare order select: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, orderNo)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var recs []model.AttemptRecord
	for rows.Next() {
		var rec model.AttemptRecord
		err := rows.Scan(
			&rec.OrderNo, &rec.Discriminator, &rec.Status, &rec.EventTime, &rec.Housebill,
			&rec.ReferenceNo, &rec.RequestPayload, &rec.ResponsePayload, &rec.SecondaryPayload,
			&rec.SecondaryResponse, &rec.ErrorMessage, &rec.RetryCount, &rec.ResetCount,
			&rec.LastUpdatedBy, &rec.LastUpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		recs = append(recs, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return recs, nil
}

// Retrigger resets a single attempt to Ready regardless of its retry count.
// Used by the manual operator endpoint after the automatic promotion budget
// is spent. Rows already Ready match too, so the endpoint can be retried
// when enqueueing the resubmission failed.
func (l *Ledger) Retrigger(ctx context.Context, kind string, key model.BusinessKey, operator string) error {
	query := `UPDATE integration_attempts
	          SET status = $1,
	              retry_count = retry_count + 1,
	              last_updated_by = $5,
	              last_updated_at = NOW()
	          WHERE kind = $2 AND order_no = $3 AND discriminator = $4 AND status IN ($6, $1)`

	stmt, err := l.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare retrigger update: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, model.StatusReady, kind, key.OrderNo, key.Discriminator, operator, model.StatusFailed)
	if err != nil {
		return fmt.Errorf("failed to retrigger attempt %s: %w", key, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no failed attempt %s for kind %s: %w", key, kind, ErrNotFound)
	}

	return nil
}
