package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/omnilogix/freight-bridge/internal/cargowise"
	"github.com/omnilogix/freight-bridge/internal/event"
	"github.com/omnilogix/freight-bridge/internal/model"
	"github.com/omnilogix/freight-bridge/internal/payload"
	"github.com/omnilogix/freight-bridge/internal/refstore"
)

// serviceFailureNote is the tracking-note marker operators enter alongside a
// delay code. The note's timestamp becomes the exception's event time.
const serviceFailureNote = "Customer Service Failure"

// DelayStrategy forwards service-failure rows as client-visible delay notes
// on the downstream shipment.
type DelayStrategy struct {
	refs   ReferenceStore
	ledger LedgerAPI
	cw     Submitter
}

// NewDelayStrategy builds the delay exception pipeline.
func NewDelayStrategy(refs ReferenceStore, ldg LedgerAPI, cw Submitter) *DelayStrategy {
	return &DelayStrategy{refs: refs, ledger: ldg, cw: cw}
}

func (s *DelayStrategy) Kind() string { return KindDelay }

// Prepare translates the failure code and keys the job on it. Codes with no
// customer-facing translation are skipped before any lookup happens.
func (s *DelayStrategy) Prepare(_ context.Context, env *event.Envelope) (*Job, error) {
	row, err := event.DecodeFailure(env.After)
	if err != nil {
		return nil, err
	}
	if row == nil || row.OrderNo == "" {
		return nil, fmt.Errorf("failure row missing order number")
	}

	exception := payload.LookupException(row.FDCode)
	job := &Job{
		Key: model.BusinessKey{
			OrderNo:       row.OrderNo,
			Discriminator: fmt.Sprintf("DELAY-%s-%s", exception.Code, exception.Description),
		},
		Detail: exception,
	}
	if exception.IsUnknown() {
		return job, Skipf("failure code %q has no customer exception mapping", row.FDCode)
	}
	return job, nil
}

// Execute verifies eligibility, requires the shipment identifier and the
// matching service-failure tracking note, and submits the delay note.
func (s *DelayStrategy) Execute(ctx context.Context, run *Run) error {
	exception := run.Detail.(payload.ExceptionCode)

	if _, _, err := eligibility(ctx, s.refs, s.ledger, run); err != nil {
		return err
	}

	referenceNo, err := lookupShipmentID(ctx, s.refs, run.Key.OrderNo)
	if err != nil {
		return err
	}
	run.ReferenceNo = referenceNo

	note, err := s.refs.FindTrackingNote(ctx, run.Key.OrderNo, serviceFailureNote)
	if errors.Is(err, refstore.ErrNotFound) {
		return fmt.Errorf("no %q tracking note found for order %s", serviceFailureNote, run.Key.OrderNo)
	}
	if err != nil {
		return fmt.Errorf("failed to look up tracking note: %w", err)
	}
	run.EventTime = note.EnteredAt

	request, err := payload.BuildDelayNote(referenceNo, exception)
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
