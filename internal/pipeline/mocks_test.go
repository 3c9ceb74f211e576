package pipeline_test

import (
	"context"
	"fmt"

	"github.com/omnilogix/freight-bridge/internal/docapi"
	"github.com/omnilogix/freight-bridge/internal/ledger"
	"github.com/omnilogix/freight-bridge/internal/model"
	"github.com/omnilogix/freight-bridge/internal/refstore"
	"github.com/omnilogix/freight-bridge/internal/worldtrak"
)

const acceptedResponse = `<UniversalResponse xmlns="http://www.cargowise.com/Schemas/Universal/2011/11">
  <ProcessingLog>Document processed.</ProcessingLog>
  <Data>
    <UniversalEvent>
      <Event>
        <EventType>DIM</EventType>
        <ContextCollection>
          <Context><Type>ProcessingStatusCode</Type><Value>PRS</Value></Context>
        </ContextCollection>
      </Event>
    </UniversalEvent>
  </Data>
</UniversalResponse>`

const rejectedResponse = `<UniversalResponse xmlns="http://www.cargowise.com/Schemas/Universal/2011/11">
  <ProcessingLog>No target shipment found.</ProcessingLog>
  <Data>
    <UniversalEvent>
      <Event>
        <EventType>ERR</EventType>
        <ContextCollection>
          <Context><Type>ProcessingStatusCode</Type><Value>REJ</Value></Context>
        </ContextCollection>
      </Event>
    </UniversalEvent>
  </Data>
</UniversalResponse>`

type recordedAttempt struct {
	kind string
	rec  model.AttemptRecord
}

type mockLedger struct {
	prior      *model.AttemptRecord
	shipment   *model.AttemptRecord
	recorded   []recordedAttempt
	recordErr  error
	duplicates []string
	promoted   []model.BusinessKey
	promoteErr error
}

func (m *mockLedger) Lookup(_ context.Context, _ string, key model.BusinessKey) (*model.AttemptRecord, error) {
	if m.prior == nil {
		return nil, fmt.Errorf("attempt %s: %w", key, ledger.ErrNotFound)
	}
	return m.prior, nil
}

func (m *mockLedger) RecordOutcome(_ context.Context, kind string, rec *model.AttemptRecord) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.recorded = append(m.recorded, recordedAttempt{kind: kind, rec: *rec})
	return nil
}

func (m *mockLedger) MarkDuplicate(_ context.Context, _ string, _ model.BusinessKey, message string) error {
	m.duplicates = append(m.duplicates, message)
	return nil
}

func (m *mockLedger) LookupSentByHousebill(_ context.Context, _ string, housebill string) (*model.AttemptRecord, error) {
	if m.shipment == nil {
		return nil, fmt.Errorf("no sent attempt for housebill %s: %w", housebill, ledger.ErrNotFound)
	}
	return m.shipment, nil
}

func (m *mockLedger) PromoteFailed(_ context.Context, _ string, _ int) ([]model.BusinessKey, error) {
	return m.promoted, m.promoteErr
}

type mockRefs struct {
	header  *model.ShipmentHeader
	profile *model.CustomerProfile
	ref     *model.Reference
	note    *model.TrackingNote
}

func (m *mockRefs) GetShipmentHeader(_ context.Context, orderNo string) (*model.ShipmentHeader, error) {
	if m.header == nil {
		return nil, fmt.Errorf("shipment header %s: %w", orderNo, refstore.ErrNotFound)
	}
	return m.header, nil
}

func (m *mockRefs) GetCustomerProfile(_ context.Context, billTo string) (*model.CustomerProfile, error) {
	if m.profile == nil {
		return nil, fmt.Errorf("customer profile %s: %w", billTo, refstore.ErrNotFound)
	}
	return m.profile, nil
}

func (m *mockRefs) GetShipmentReference(_ context.Context, orderNo, _, _ string) (*model.Reference, error) {
	if m.ref == nil {
		return nil, fmt.Errorf("reference for order %s: %w", orderNo, refstore.ErrNotFound)
	}
	return m.ref, nil
}

func (m *mockRefs) FindTrackingNote(_ context.Context, orderNo, _ string) (*model.TrackingNote, error) {
	if m.note == nil {
		return nil, fmt.Errorf("tracking note for order %s: %w", orderNo, refstore.ErrNotFound)
	}
	return m.note, nil
}

type mockAlerter struct {
	failures   []string
	duplicates []string
}

func (m *mockAlerter) AlertFailure(_ context.Context, _ string, _ model.BusinessKey, cause string) error {
	m.failures = append(m.failures, cause)
	return nil
}

func (m *mockAlerter) AlertDuplicate(_ context.Context, _ string, key model.BusinessKey) error {
	m.duplicates = append(m.duplicates, key.String())
	return nil
}

type mockSubmitter struct {
	response  string
	err       error
	submitted []string
}

func (m *mockSubmitter) Submit(_ context.Context, payload string) (string, error) {
	m.submitted = append(m.submitted, payload)
	if m.err != nil {
		return "", m.err
	}
	if m.response == "" {
		return acceptedResponse, nil
	}
	return m.response, nil
}

type mockDocStore struct {
	existing *model.DocumentRecord
	pending  []model.DocumentRecord
	ready    []model.DocumentRecord
	saved    []model.DocumentRecord
	deleted  []string
}

func (m *mockDocStore) Get(_ context.Context, orderNo, docType string) (*model.DocumentRecord, error) {
	if m.existing == nil {
		return nil, fmt.Errorf("document %s/%s: %w", orderNo, docType, ledger.ErrNotFound)
	}
	return m.existing, nil
}

func (m *mockDocStore) Save(_ context.Context, rec *model.DocumentRecord) error {
	m.saved = append(m.saved, *rec)
	return nil
}

func (m *mockDocStore) ListByStatus(_ context.Context, status model.AttemptStatus, _ int) ([]model.DocumentRecord, error) {
	if status == model.StatusPending {
		return m.pending, nil
	}
	return m.ready, nil
}

func (m *mockDocStore) Delete(_ context.Context, orderNo, docType string) error {
	m.deleted = append(m.deleted, orderNo+"/"+docType)
	return nil
}

type mockPublisher struct {
	published []string
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, body string) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, body)
	return nil
}

type mockObjectFetcher struct {
	body    []byte
	err     error
	fetched []string
}

func (m *mockObjectFetcher) Fetch(_ context.Context, bucket, key string) ([]byte, error) {
	m.fetched = append(m.fetched, bucket+"/"+key)
	return m.body, m.err
}

type mockRegistrar struct {
	rawBody   string
	result    *worldtrak.Result
	err       error
	envelopes []string
}

func (m *mockRegistrar) AddShipment(_ context.Context, envelope string) (string, *worldtrak.Result, error) {
	m.envelopes = append(m.envelopes, envelope)
	return m.rawBody, m.result, m.err
}

type mockDocFetcher struct {
	doc *docapi.Document
	err error
}

func (m *mockDocFetcher) GetDocument(_ context.Context, _, housebill, docType string) (*docapi.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.doc == nil {
		return nil, fmt.Errorf("no %s document for housebill %s", docType, housebill)
	}
	return m.doc, nil
}
