package pipeline_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/omnilogix/freight-bridge/internal/event"
	"github.com/omnilogix/freight-bridge/internal/model"
	"github.com/omnilogix/freight-bridge/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const milestoneTable = "shipment-milestone"

func milestoneEnvelope(orderNo, statusCode, eventDateTime string) *event.Envelope {
	after, _ := json.Marshal(map[string]string{
		"FK_OrderNo":       orderNo,
		"FK_OrderStatusId": statusCode,
		"EventDateTime":    eventDateTime,
	})
	return &event.Envelope{SourceTable: milestoneTable, ChangeKind: event.Insert, After: after}
}

func subscribedProfile() *model.CustomerProfile {
	return &model.CustomerProfile{
		BillTo:            "17773",
		Name:              "Lenovo",
		TransmitCost:      true,
		AllowedMilestones: []string{"DEL", "PUP"},
		MilestoneMapping:  map[string]string{"DEL": "DCF", "PUP": "PCF"},
	}
}

func registeredShipment() *model.AttemptRecord {
	return &model.AttemptRecord{
		OrderNo:       "S02167324",
		Discriminator: "SHIPMENT",
		Status:        model.StatusSent,
		Housebill:     "HB-99812",
	}
}

func newMilestoneFixture() (*pipeline.Orchestrator, *mockLedger, *mockRefs, *mockAlerter, *mockSubmitter) {
	ldg := &mockLedger{shipment: registeredShipment()}
	refs := &mockRefs{
		header:  &model.ShipmentHeader{OrderNo: "4657842", BillTo: "17773", Housebill: "HB-99812", ShipQuote: "S"},
		profile: subscribedProfile(),
		ref:     &model.Reference{OrderNo: "4657842", ReferenceNo: "S02167324"},
	}
	alerter := &mockAlerter{}
	cw := &mockSubmitter{}

	orchestrator := pipeline.NewOrchestrator(ldg, alerter)
	orchestrator.Register(milestoneTable, pipeline.NewMilestoneStrategy(refs, ldg, cw))
	return orchestrator, ldg, refs, alerter, cw
}

func TestMilestoneProcessing(t *testing.T) {
	t.Run("forwards a mapped milestone and records it sent", func(t *testing.T) {
		// given
		orchestrator, ldg, _, alerter, cw := newMilestoneFixture()

		// when
		err := orchestrator.Process(context.Background(), milestoneEnvelope("4657842", "DEL", "2024-03-14T10:30:00.000"))

		// then
		require.NoError(t, err)
		require.Len(t, cw.submitted, 1)
		assert.Contains(t, cw.submitted[0], "<EventType>DCF</EventType>")
		assert.Contains(t, cw.submitted[0], "S02167324")

		require.Len(t, ldg.recorded, 1)
		rec := ldg.recorded[0]
		assert.Equal(t, "milestone", rec.kind)
		assert.Equal(t, model.StatusSent, rec.rec.Status)
		assert.Equal(t, "4657842", rec.rec.OrderNo)
		assert.Equal(t, "DEL", rec.rec.Discriminator)
		assert.Equal(t, "HB-99812", rec.rec.Housebill)
		assert.Equal(t, "S02167324", rec.rec.ReferenceNo)
		assert.Equal(t, time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC), rec.rec.EventTime)
		assert.NotEmpty(t, rec.rec.RequestPayload)
		assert.NotEmpty(t, rec.rec.ResponsePayload)
		assert.Empty(t, alerter.failures)
	})

	t.Run("skips placeholder event timestamps", func(t *testing.T) {
		// given
		orchestrator, ldg, _, _, cw := newMilestoneFixture()

		// when
		err := orchestrator.Process(context.Background(), milestoneEnvelope("4657842", "DEL", "1900-01-01T00:00:00.000"))

		// then
		require.NoError(t, err)
		assert.Empty(t, cw.submitted)
		require.Len(t, ldg.recorded, 1)
		assert.Equal(t, model.StatusSkipped, ldg.recorded[0].rec.Status)
		assert.Contains(t, ldg.recorded[0].rec.ErrorMessage, "placeholder")
	})

	t.Run("skips status codes the customer has not subscribed to", func(t *testing.T) {
		// given
		orchestrator, ldg, _, _, cw := newMilestoneFixture()

		// when
		err := orchestrator.Process(context.Background(), milestoneEnvelope("4657842", "OSD", "2024-03-14T10:30:00.000"))

		// then
		require.NoError(t, err)
		assert.Empty(t, cw.submitted)
		require.Len(t, ldg.recorded, 1)
		assert.Equal(t, model.StatusSkipped, ldg.recorded[0].rec.Status)
	})

	t.Run("skips orders without a shipment header", func(t *testing.T) {
		// given
		orchestrator, ldg, refs, _, cw := newMilestoneFixture()
		refs.header = nil

		// when
		err := orchestrator.Process(context.Background(), milestoneEnvelope("4657842", "DEL", "2024-03-14T10:30:00.000"))

		// then
		require.NoError(t, err)
		assert.Empty(t, cw.submitted)
		require.Len(t, ldg.recorded, 1)
		assert.Equal(t, model.StatusSkipped, ldg.recorded[0].rec.Status)
		assert.Contains(t, ldg.recorded[0].rec.ErrorMessage, "no shipment header")
	})

	t.Run("skips shipments this bridge did not register", func(t *testing.T) {
		// given
		orchestrator, ldg, _, _, cw := newMilestoneFixture()
		ldg.shipment = nil

		// when
		err := orchestrator.Process(context.Background(), milestoneEnvelope("4657842", "DEL", "2024-03-14T10:30:00.000"))

		// then
		require.NoError(t, err)
		assert.Empty(t, cw.submitted)
		require.Len(t, ldg.recorded, 1)
		assert.Equal(t, model.StatusSkipped, ldg.recorded[0].rec.Status)
	})

	t.Run("fails and alerts when the shipment identifier reference is missing", func(t *testing.T) {
		// given
		orchestrator, ldg, refs, alerter, cw := newMilestoneFixture()
		refs.ref = nil

		// when
		err := orchestrator.Process(context.Background(), milestoneEnvelope("4657842", "DEL", "2024-03-14T10:30:00.000"))

		// then
		require.NoError(t, err)
		assert.Empty(t, cw.submitted)
		require.Len(t, ldg.recorded, 1)
		assert.Equal(t, model.StatusFailed, ldg.recorded[0].rec.Status)
		assert.Contains(t, ldg.recorded[0].rec.ErrorMessage, "SID")
		require.Len(t, alerter.failures, 1)
	})

	t.Run("fails on a rejected response and keeps the processing log", func(t *testing.T) {
		// given
		orchestrator, ldg, _, alerter, cw := newMilestoneFixture()
		cw.response = rejectedResponse

		// when
		err := orchestrator.Process(context.Background(), milestoneEnvelope("4657842", "DEL", "2024-03-14T10:30:00.000"))

		// then
		require.NoError(t, err)
		require.Len(t, ldg.recorded, 1)
		rec := ldg.recorded[0].rec
		assert.Equal(t, model.StatusFailed, rec.Status)
		assert.Contains(t, rec.ErrorMessage, "No target shipment found")
		assert.NotEmpty(t, rec.ResponsePayload)
		require.Len(t, alerter.failures, 1)
	})

	t.Run("ignores events from unrouted tables", func(t *testing.T) {
		// given
		orchestrator, ldg, _, _, _ := newMilestoneFixture()
		env := &event.Envelope{SourceTable: "unrelated-table", ChangeKind: event.Insert}

		// when
		err := orchestrator.Process(context.Background(), env)

		// then
		require.NoError(t, err)
		assert.Empty(t, ldg.recorded)
	})
}

func TestMilestoneDeduplication(t *testing.T) {
	t.Run("marks a redelivered sent event as duplicate without resending or alerting", func(t *testing.T) {
		// given
		orchestrator, ldg, _, alerter, cw := newMilestoneFixture()
		ldg.prior = &model.AttemptRecord{
			OrderNo:       "4657842",
			Discriminator: "DEL",
			Status:        model.StatusSent,
			EventTime:     time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC),
		}

		// when
		err := orchestrator.Process(context.Background(), milestoneEnvelope("4657842", "DEL", "2024-03-14T10:30:00.000"))

		// then
		require.NoError(t, err)
		assert.Empty(t, cw.submitted)
		assert.Empty(t, ldg.recorded, "the sent attempt must not be overwritten")
		require.Len(t, ldg.duplicates, 1)
		assert.Empty(t, alerter.duplicates, "routine stream redelivery must stay silent")
	})

	t.Run("reprocesses when the event carries a newer timestamp", func(t *testing.T) {
		// given
		orchestrator, ldg, _, _, cw := newMilestoneFixture()
		ldg.prior = &model.AttemptRecord{
			OrderNo:       "4657842",
			Discriminator: "DEL",
			Status:        model.StatusSent,
			EventTime:     time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC),
		}

		// when
		err := orchestrator.Process(context.Background(), milestoneEnvelope("4657842", "DEL", "2024-03-15T09:00:00.000"))

		// then
		require.NoError(t, err)
		require.Len(t, cw.submitted, 1)
		require.Len(t, ldg.recorded, 1)
		assert.Equal(t, model.StatusSent, ldg.recorded[0].rec.Status)
		assert.Empty(t, ldg.duplicates)
	})

	t.Run("reprocesses a previously failed attempt", func(t *testing.T) {
		// given
		orchestrator, ldg, _, _, cw := newMilestoneFixture()
		ldg.prior = &model.AttemptRecord{
			OrderNo:       "4657842",
			Discriminator: "DEL",
			Status:        model.StatusFailed,
			EventTime:     time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC),
			RetryCount:    2,
		}

		// when
		err := orchestrator.Process(context.Background(), milestoneEnvelope("4657842", "DEL", "2024-03-14T10:30:00.000"))

		// then
		require.NoError(t, err)
		require.Len(t, cw.submitted, 1)
		require.Len(t, ldg.recorded, 1)
		assert.Equal(t, model.StatusSent, ldg.recorded[0].rec.Status)
		assert.Equal(t, 2, ldg.recorded[0].rec.RetryCount)
	})
}
