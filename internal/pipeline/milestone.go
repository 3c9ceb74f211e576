package pipeline

import (
	"context"
	"fmt"

	"github.com/omnilogix/freight-bridge/internal/cargowise"
	"github.com/omnilogix/freight-bridge/internal/event"
	"github.com/omnilogix/freight-bridge/internal/model"
	"github.com/omnilogix/freight-bridge/internal/payload"
)

// MilestoneStrategy forwards order status changes as UniversalEvent
// milestones, translated per the customer's milestone mapping.
type MilestoneStrategy struct {
	refs   ReferenceStore
	ledger LedgerAPI
	cw     Submitter
}

// NewMilestoneStrategy builds the milestone pipeline.
func NewMilestoneStrategy(refs ReferenceStore, ldg LedgerAPI, cw Submitter) *MilestoneStrategy {
	return &MilestoneStrategy{refs: refs, ledger: ldg, cw: cw}
}

func (s *MilestoneStrategy) Kind() string { return KindMilestone }

// Prepare decodes the change row into a job keyed by (order, status code).
func (s *MilestoneStrategy) Prepare(_ context.Context, env *event.Envelope) (*Job, error) {
	row, err := event.DecodeMilestone(env.After)
	if err != nil {
		return nil, err
	}
	if row == nil || row.OrderNo == "" || row.StatusCode == "" {
		return nil, fmt.Errorf("milestone row missing order number or status code")
	}

	job := &Job{
		Key:    model.BusinessKey{OrderNo: row.OrderNo, Discriminator: row.StatusCode},
		Detail: row,
	}
	eventTime, err := event.ParseUpstreamTime(row.EventDateTime)
	if err != nil {
		return nil, fmt.Errorf("milestone %s: %w", job.Key, err)
	}
	job.EventTime = eventTime
	if model.IsSentinelTime(eventTime) {
		return job, Skipf("placeholder event timestamp %s", row.EventDateTime)
	}
	return job, nil
}

// Execute resolves eligibility and the downstream shipment identifier, then
// submits the translated milestone. The identifier lookup runs concurrently
// with the header and profile lookups.
func (s *MilestoneStrategy) Execute(ctx context.Context, run *Run) error {
	row := run.Detail.(*event.MilestoneRow)

	type refResult struct {
		referenceNo string
		err         error
	}
	refCh := make(chan refResult, 1)
	go func() {
		referenceNo, err := lookupShipmentID(ctx, s.refs, run.Key.OrderNo)
		refCh <- refResult{referenceNo: referenceNo, err: err}
	}()

	profile, _, err := eligibility(ctx, s.refs, s.ledger, run)
	if err != nil {
		<-refCh
		return err
	}

	if !profile.MilestoneAllowed(row.StatusCode) {
		<-refCh
		return Skipf("status code %s is not forwarded for customer %s", row.StatusCode, profile.BillTo)
	}
	eventType, ok := profile.MilestoneMapping[row.StatusCode]
	if !ok || eventType == "" {
		<-refCh
		return Skipf("no event type mapped for status code %s", row.StatusCode)
	}

	ref := <-refCh
	if ref.err != nil {
		return ref.err
	}
	run.ReferenceNo = ref.referenceNo

	request, err := payload.BuildMilestoneEvent(ref.referenceNo, eventType, run.EventTime)
	if err != nil {
		return err
	}
	run.RequestPayload = request

	body, err := s.cw.Submit(ctx, request)
	if err != nil {
		return err
	}
	run.ResponsePayload = body
	if _, err := cargowise.Classify(body); err != nil {
		return err
	}
	return nil
}
