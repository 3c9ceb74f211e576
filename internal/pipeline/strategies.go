package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/omnilogix/freight-bridge/internal/ledger"
	"github.com/omnilogix/freight-bridge/internal/model"
	"github.com/omnilogix/freight-bridge/internal/refstore"
)

// Attempt kinds, also the metric label values.
const (
	KindMilestone = "milestone"
	KindDelay     = "delay"
	KindCost      = "cost"
	KindShipment  = "shipment"
	KindDocument  = "document"
)

// ReferenceStore is the upstream lookup surface strategies depend on.
type ReferenceStore interface {
	GetShipmentHeader(ctx context.Context, orderNo string) (*model.ShipmentHeader, error)
	GetCustomerProfile(ctx context.Context, billTo string) (*model.CustomerProfile, error)
	GetShipmentReference(ctx context.Context, orderNo, customerType, refType string) (*model.Reference, error)
	FindTrackingNote(ctx context.Context, orderNo, contains string) (*model.TrackingNote, error)
}

// Submitter posts a payload to the target system and returns the raw
// response body.
type Submitter interface {
	Submit(ctx context.Context, payload string) (string, error)
}

// Shipment identifier reference lookup parameters. The billing party writes
// the shipment identifier under customer type B, ref type SID.
const (
	billToCustomerType = "B"
	shipmentIDRefType  = "SID"
)

// eligibility resolves the shared preamble for stream-driven strategies:
// the shipment header (quotes filtered out), the bill-to customer profile,
// and the shipment registration this bridge previously sent downstream.
// Absence of any of the three is a skip, not a failure.
func eligibility(ctx context.Context, refs ReferenceStore, ldg LedgerAPI, run *Run) (*model.CustomerProfile, *model.AttemptRecord, error) {
	header, err := refs.GetShipmentHeader(ctx, run.Key.OrderNo)
	if errors.Is(err, refstore.ErrNotFound) {
		return nil, nil, Skipf("no shipment header for order %s", run.Key.OrderNo)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up shipment header: %w", err)
	}
	run.Housebill = header.Housebill

	profile, err := refs.GetCustomerProfile(ctx, header.BillTo)
	if errors.Is(err, refstore.ErrNotFound) {
		return nil, nil, Skipf("customer %s is not configured for this integration", header.BillTo)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up customer profile: %w", err)
	}

	shipment, err := ldg.LookupSentByHousebill(ctx, KindShipment, header.Housebill)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, nil, Skipf("shipment %s was not registered by this integration", header.Housebill)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check shipment registration: %w", err)
	}
	return profile, shipment, nil
}

// lookupShipmentID fetches the required downstream shipment identifier
// reference. Its absence is a hard failure: an eligible event with no
// identifier cannot be keyed to the target system.
func lookupShipmentID(ctx context.Context, refs ReferenceStore, orderNo string) (string, error) {
	ref, err := refs.GetShipmentReference(ctx, orderNo, billToCustomerType, shipmentIDRefType)
	if errors.Is(err, refstore.ErrNotFound) {
		return "", fmt.Errorf("no %s reference found for order %s", shipmentIDRefType, orderNo)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up %s reference: %w", shipmentIDRefType, err)
	}
	return ref.ReferenceNo, nil
}
