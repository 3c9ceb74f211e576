package pipeline

import (
	"context"
	"fmt"

	"github.com/omnilogix/freight-bridge/internal/cargowise"
	"github.com/omnilogix/freight-bridge/internal/event"
	"github.com/omnilogix/freight-bridge/internal/model"
	"github.com/omnilogix/freight-bridge/internal/payload"
)

// CostStrategy forwards cost lines as freight charge lines on the
// downstream shipment's job costing, for customers subscribed to cost
// transmission.
type CostStrategy struct {
	refs   ReferenceStore
	ledger LedgerAPI
	cw     Submitter
}

// NewCostStrategy builds the cost pipeline.
func NewCostStrategy(refs ReferenceStore, ldg LedgerAPI, cw Submitter) *CostStrategy {
	return &CostStrategy{refs: refs, ledger: ldg, cw: cw}
}

func (s *CostStrategy) Kind() string { return KindCost }

// Prepare keys the job on (order, sequence number). Cost rows carry no
// upstream timestamp, so deduplication is by prior status alone.
func (s *CostStrategy) Prepare(_ context.Context, env *event.Envelope) (*Job, error) {
	row, err := event.DecodeCost(env.After)
	if err != nil {
		return nil, err
	}
	if row == nil || row.OrderNo == "" || row.SeqNo == "" {
		return nil, fmt.Errorf("cost row missing order number or sequence number")
	}
	return &Job{
		Key:    model.BusinessKey{OrderNo: row.OrderNo, Discriminator: "COST-" + row.SeqNo},
		Detail: row,
	}, nil
}

// Execute checks the customer's cost subscription, resolves the shipment
// this bridge registered for the order's housebill, and posts the charge
// line keyed to it.
func (s *CostStrategy) Execute(ctx context.Context, run *Run) error {
	row := run.Detail.(*event.CostRow)

	profile, shipment, err := eligibility(ctx, s.refs, s.ledger, run)
	if err != nil {
		return err
	}
	if !profile.TransmitCost {
		return Skipf("customer %s does not subscribe to cost transmission", profile.BillTo)
	}
	run.ReferenceNo = shipment.OrderNo

	request, err := payload.BuildChargeLine(shipment.OrderNo, row.Total)
	if err != nil {
		return err
	}
	run.RequestPayload = request

	body, err := s.cw.Submit(ctx, request)
	if err != nil {
		return err
	}
	run.ResponsePayload = body
	if _, err := cargowise.ClassifyCost(body); err != nil {
		return err
	}
	return nil
}
