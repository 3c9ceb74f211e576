package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/omnilogix/freight-bridge/internal/model"
)

// DocumentStore persists the multi-stage delivery state of shipment
// documents, keyed by (order no, document type). Readiness of the upstream
// tables is tracked as a JSON map so the checker can wait for all of them.
type DocumentStore struct {
	db *sql.DB
}

// NewDocumentStore creates a DocumentStore over the given database handle.
func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Get fetches the document record for an order and document type.
func (s *DocumentStore) Get(ctx context.Context, orderNo, docType string) (*model.DocumentRecord, error) {
	query := `SELECT order_no, doc_type, status, file_extension, bill_to, housebill, reference_no,
	                 table_statuses, payload, response, message, retry_count, created_at,
	                 last_updated_by, last_updated_at
	          FROM document_status
	          WHERE order_no = $1 AND doc_type = $2`

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare document select: %w", err)
	}
	defer stmt.Close()

	rec, err := scanDocument(stmt.QueryRowContext(ctx, orderNo, docType))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s/%s: %w", orderNo, docType, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	return rec, nil
}

// Save upserts the full document record.
func (s *DocumentStore) Save(ctx context.Context, rec *model.DocumentRecord) error {
	statuses, err := json.Marshal(rec.TableStatuses)
	if err != nil {
		return fmt.Errorf("failed to encode table statuses: %w", err)
	}

	query := `INSERT INTO document_status
	            (order_no, doc_type, status, file_extension, bill_to, housebill, reference_no,
	             table_statuses, payload, response, message, retry_count, created_at,
	             last_updated_by, last_updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), $13, NOW())
	          ON CONFLICT (order_no, doc_type) DO UPDATE SET
	            status = EXCLUDED.status,
	            file_extension = EXCLUDED.file_extension,
	            bill_to = EXCLUDED.bill_to,
	            housebill = EXCLUDED.housebill,
	            reference_no = EXCLUDED.reference_no,
	            table_statuses = EXCLUDED.table_statuses,
	            payload = EXCLUDED.payload,
	            response = EXCLUDED.response,
	            message = EXCLUDED.message,
	            retry_count = EXCLUDED.retry_count,
	            last_updated_by = EXCLUDED.last_updated_by,
	            last_updated_at = NOW()`

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare document upsert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, rec.OrderNo, rec.DocType, rec.Status, rec.FileExtension,
		rec.BillTo, rec.Housebill, rec.ReferenceNo, statuses, rec.Payload, rec.Response,
		rec.Message, rec.RetryCount, rec.LastUpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s/%s: %w", rec.OrderNo, rec.DocType, err)
	}

	return nil
}

// ListByStatus fetches documents in the given delivery state, oldest first,
// for the readiness checker sweep.
func (s *DocumentStore) ListByStatus(ctx context.Context, status model.AttemptStatus, limit int) ([]model.DocumentRecord, error) {
	query := `SELECT order_no, doc_type, status, file_extension, bill_to, housebill, reference_no,
	                 table_statuses, payload, response, message, retry_count, created_at,
	                 last_updated_by, last_updated_at
	          FROM document_status
	          WHERE status = $1
	          ORDER BY created_at ASC
	          LIMIT $2`

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare document list: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var recs []model.DocumentRecord
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return recs, nil
}

// Delete removes a document record. Used when the customer profile behind a
// pending delivery disappears.
func (s *DocumentStore) Delete(ctx context.Context, orderNo, docType string) error {
	stmt, err := s.db.PrepareContext(ctx, `DELETE FROM document_status WHERE order_no = $1 AND doc_type = $2`)
	if err != nil {
		return fmt.Errorf("failed to prepare document delete: %w", err)
	}
	defer stmt.Close()

	if _, err = stmt.ExecContext(ctx, orderNo, docType); err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", orderNo, docType, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.DocumentRecord, error) {
	var rec model.DocumentRecord
	var statuses []byte
	err := row.Scan(
		&rec.OrderNo, &rec.DocType, &rec.Status, &rec.FileExtension, &rec.BillTo,
		&rec.Housebill, &rec.ReferenceNo, &statuses, &rec.Payload, &rec.Response,
		&rec.Message, &rec.RetryCount, &rec.CreatedAt, &rec.LastUpdatedBy, &rec.LastUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.TableStatuses = model.TableStatuses{}
	if len(statuses) > 0 {
		if err := json.Unmarshal(statuses, &rec.TableStatuses); err != nil {
			return nil, fmt.Errorf("failed to decode table statuses: %w", err)
		}
	}
	return &rec, nil
}
