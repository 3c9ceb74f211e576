package refstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/omnilogix/freight-bridge/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no rows. Callers treat
	// this as "shipment out of scope", not as a transient failure.
	ErrNotFound = errors.New("reference record not found")
)

// Store provides read-only lookups against the replicated reference tables.
// The pipeline never writes these tables; they are owned upstream. An
// optional allow list restricts customer profile lookups to named bill-to
// numbers; an empty list serves every profiled customer.
type Store struct {
	db        *sql.DB
	allowList []string
}

// New creates a Store over the given database handle.
func New(db *sql.DB, allowList ...string) *Store {
	return &Store{db: db, allowList: allowList}
}

func (s *Store) allowed(billTo string) bool {
	if len(s.allowList) == 0 {
		return true
	}
	for _, allowed := range s.allowList {
		if allowed == billTo {
			return true
		}
	}
	return false
}

// GetShipmentHeader fetches the header row for an order. Quotes (ShipQuote
// other than "S") are filtered out at the query.
func (s *Store) GetShipmentHeader(ctx context.Context, orderNo string) (*model.ShipmentHeader, error) {
	query := `SELECT order_no, bill_to, housebill, ship_quote
	          FROM shipment_header
	          WHERE order_no = $1 AND ship_quote = 'S'`

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare header select: %w", err)
	}
	defer stmt.Close()

	var header model.ShipmentHeader
	err = stmt.QueryRowContext(ctx, orderNo).Scan(
		&header.OrderNo, &header.BillTo, &header.Housebill, &header.ShipQuote,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("shipment header for order %s: %w", orderNo, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query shipment header: %w", err)
	}

	return &header, nil
}

// GetCustomerProfile fetches the integration configuration for a bill-to number.
func (s *Store) GetCustomerProfile(ctx context.Context, billTo string) (*model.CustomerProfile, error) {
	if !s.allowed(billTo) {
		return nil, fmt.Errorf("bill-to %s is not on the customer allow list: %w", billTo, ErrNotFound)
	}

	query := `SELECT bill_to, name, transmit_cost, allowed_milestones, milestone_mapping, document_api_key
	          FROM customer_profile
	          WHERE bill_to = $1`

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare customer select: %w", err)
	}
	defer stmt.Close()

	var profile model.CustomerProfile
	var milestones, mapping []byte
	var apiKey sql.NullString
	err = stmt.QueryRowContext(ctx, billTo).Scan(
		&profile.BillTo, &profile.Name, &profile.TransmitCost, &milestones, &mapping, &apiKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("customer profile for bill-to %s: %w", billTo, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query customer profile: %w", err)
	}

	if len(milestones) > 0 {
		if err := json.Unmarshal(milestones, &profile.AllowedMilestones); err != nil {
			return nil, fmt.Errorf("failed to decode allowed milestones for bill-to %s: %w", billTo, err)
		}
	}
	if len(mapping) > 0 {
		if err := json.Unmarshal(mapping, &profile.MilestoneMapping); err != nil {
			return nil, fmt.Errorf("failed to decode milestone mapping for bill-to %s: %w", billTo, err)
		}
	}
	if apiKey.Valid {
		profile.DocumentAPIKey = apiKey.String
	}

	return &profile, nil
}

// GetShipmentReference fetches the reference number of the given type for an
// order, scoped to bill-to ("B") customer references via the order index.
func (s *Store) GetShipmentReference(ctx context.Context, orderNo, customerType, refType string) (*model.Reference, error) {
	query := `SELECT order_no, customer_type, ref_type, reference_no
	          FROM reference_numbers
	          WHERE order_no = $1 AND customer_type = $2 AND ref_type = $3
	          ORDER BY reference_no ASC
	          LIMIT 1`

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare reference select: %w", err)
	}
	defer stmt.Close()

	var ref model.Reference
	err = stmt.QueryRowContext(ctx, orderNo, customerType, refType).Scan(
		&ref.OrderNo, &ref.CustomerType, &ref.RefType, &ref.ReferenceNo,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reference %s/%s for order %s: %w", customerType, refType, orderNo, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query reference: %w", err)
	}

	return &ref, nil
}

// ListReferences pages through all reference rows of an order using a keyset
// continuation token.
func (s *Store) ListReferences(ctx context.Context, orderNo string, limit int, token string) ([]model.Reference, string, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	query := `SELECT order_no, customer_type, ref_type, reference_no
	          FROM reference_numbers
	          WHERE order_no = $1 AND (ref_type, reference_no) > ($2, $3)
	          ORDER BY ref_type ASC, reference_no ASC
	          LIMIT $4`

	cursor := &Cursor{}
	if token != "" {
		decoded, err := DecodePageToken(token)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token: %w", err)
		}
		cursor = decoded
	}

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, "", fmt.Errorf("failed to prepare reference list: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, orderNo, cursor.LastRefType, cursor.LastReferenceNo, limit)
	if err != nil {
		return nil, "", fmt.Errorf("failed to query references: %w", err)
	}
	defer rows.Close()

	var refs []model.Reference
	for rows.Next() {
		var ref model.Reference
		if err := rows.Scan(&ref.OrderNo, &ref.CustomerType, &ref.RefType, &ref.ReferenceNo); err != nil {
			return nil, "", fmt.Errorf("failed to scan reference: %w", err)
		}
		refs = append(refs, ref)
	}
	if err = rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating rows: %w", err)
	}

	nextToken := ""
	if len(refs) == limit {
		last := refs[len(refs)-1]
		nextToken = Cursor{LastRefType: last.RefType, LastReferenceNo: last.ReferenceNo}.Encode()
	}
	return refs, nextToken, nil
}

// FindTrackingNote fetches the most recent tracking note of an order whose
// text contains the given fragment.
func (s *Store) FindTrackingNote(ctx context.Context, orderNo, contains string) (*model.TrackingNote, error) {
	query := `SELECT order_no, note, entered_at
	          FROM tracking_notes
	          WHERE order_no = $1 AND note LIKE '%' || $2 || '%'
	          ORDER BY entered_at DESC
	          LIMIT 1`

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare tracking note select: %w", err)
	}
	defer stmt.Close()

	var note model.TrackingNote
	err = stmt.QueryRowContext(ctx, orderNo, contains).Scan(&note.OrderNo, &note.Note, &note.EnteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tracking note for order %s: %w", orderNo, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query tracking note: %w", err)
	}

	return &note, nil
}
