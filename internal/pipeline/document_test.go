package pipeline_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/omnilogix/freight-bridge/internal/docapi"
	"github.com/omnilogix/freight-bridge/internal/event"
	"github.com/omnilogix/freight-bridge/internal/model"
	"github.com/omnilogix/freight-bridge/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const documentTable = "shipment-file"

func documentEnvelope(orderNo, docType, customerAccess string) *event.Envelope {
	after, _ := json.Marshal(map[string]string{
		"FK_OrderNo":     orderNo,
		"FK_DocType":     docType,
		"CustomerAccess": customerAccess,
		"FileName":       "pod-4657842.pdf",
	})
	return &event.Envelope{SourceTable: documentTable, ChangeKind: event.Insert, After: after}
}

func documentRefs() *mockRefs {
	profile := subscribedProfile()
	profile.DocumentAPIKey = "key-123"
	return &mockRefs{
		header:  &model.ShipmentHeader{OrderNo: "4657842", BillTo: "17773", Housebill: "HB-99812", ShipQuote: "S"},
		profile: profile,
		ref:     &model.Reference{OrderNo: "4657842", ReferenceNo: "S02167324"},
	}
}

func TestDocumentProcessor(t *testing.T) {
	t.Run("seeds a ready record when all upstream rows exist", func(t *testing.T) {
		// given
		docs := &mockDocStore{}
		processor := pipeline.NewDocumentProcessor(documentRefs(), docs)

		// when
		err := processor.Process(context.Background(), documentEnvelope("4657842", "POD", "Y"))

		// then
		require.NoError(t, err)
		require.Len(t, docs.saved, 1)
		rec := docs.saved[0]
		assert.Equal(t, model.StatusReady, rec.Status)
		assert.Equal(t, "17773", rec.BillTo)
		assert.Equal(t, "HB-99812", rec.Housebill)
		assert.Equal(t, "S02167324", rec.ReferenceNo)
		assert.Equal(t, ".pdf", rec.FileExtension)
		assert.Equal(t, model.StatusReady, rec.TableStatuses[model.ShipmentHeaderTable])
	})

	t.Run("seeds a pending record while the header row is missing", func(t *testing.T) {
		// given
		refs := documentRefs()
		refs.header = nil
		docs := &mockDocStore{}
		processor := pipeline.NewDocumentProcessor(refs, docs)

		// when
		err := processor.Process(context.Background(), documentEnvelope("4657842", "POD", "Y"))

		// then
		require.NoError(t, err)
		require.Len(t, docs.saved, 1)
		rec := docs.saved[0]
		assert.Equal(t, model.StatusPending, rec.Status)
		assert.Equal(t, model.StatusPending, rec.TableStatuses[model.ShipmentHeaderTable])
	})

	t.Run("ignores documents the customer cannot access", func(t *testing.T) {
		// given
		docs := &mockDocStore{}
		processor := pipeline.NewDocumentProcessor(documentRefs(), docs)

		// when
		err := processor.Process(context.Background(), documentEnvelope("4657842", "POD", "N"))

		// then
		require.NoError(t, err)
		assert.Empty(t, docs.saved)
	})

	t.Run("ignores documents for unconfigured customers", func(t *testing.T) {
		// given
		refs := documentRefs()
		refs.profile = nil
		docs := &mockDocStore{}
		processor := pipeline.NewDocumentProcessor(refs, docs)

		// when
		err := processor.Process(context.Background(), documentEnvelope("4657842", "POD", "Y"))

		// then
		require.NoError(t, err)
		assert.Empty(t, docs.saved)
	})

	t.Run("leaves already tracked documents alone", func(t *testing.T) {
		// given
		docs := &mockDocStore{existing: &model.DocumentRecord{OrderNo: "4657842", DocType: "POD", Status: model.StatusSent}}
		processor := pipeline.NewDocumentProcessor(documentRefs(), docs)

		// when
		err := processor.Process(context.Background(), documentEnvelope("4657842", "POD", "Y"))

		// then
		require.NoError(t, err)
		assert.Empty(t, docs.saved)
	})
}

func pendingDocument(retryCount int) model.DocumentRecord {
	return model.DocumentRecord{
		OrderNo:       "4657842",
		DocType:       "POD",
		Status:        model.StatusPending,
		TableStatuses: model.NewTableStatuses(),
		RetryCount:    retryCount,
	}
}

func TestDocumentChecker(t *testing.T) {
	t.Run("promotes a pending record once the header arrives", func(t *testing.T) {
		// given
		docs := &mockDocStore{pending: []model.DocumentRecord{pendingDocument(1)}}
		checker := pipeline.NewDocumentChecker(documentRefs(), docs, &mockAlerter{})

		// when
		err := checker.Sweep(context.Background())

		// then
		require.NoError(t, err)
		require.Len(t, docs.saved, 1)
		rec := docs.saved[0]
		assert.Equal(t, model.StatusReady, rec.Status)
		assert.Equal(t, "HB-99812", rec.Housebill)
		assert.Equal(t, "S02167324", rec.ReferenceNo)
	})

	t.Run("fails a record that exhausts its checks", func(t *testing.T) {
		// given
		refs := documentRefs()
		refs.header = nil
		alerter := &mockAlerter{}
		docs := &mockDocStore{pending: []model.DocumentRecord{pendingDocument(4)}}
		checker := pipeline.NewDocumentChecker(refs, docs, alerter)

		// when
		err := checker.Sweep(context.Background())

		// then
		require.NoError(t, err)
		require.Len(t, docs.saved, 1)
		assert.Equal(t, model.StatusFailed, docs.saved[0].Status)
		assert.Equal(t, 5, docs.saved[0].RetryCount)
		require.Len(t, alerter.failures, 1)
	})

	t.Run("keeps waiting below the retry limit", func(t *testing.T) {
		// given
		refs := documentRefs()
		refs.header = nil
		docs := &mockDocStore{pending: []model.DocumentRecord{pendingDocument(0)}}
		checker := pipeline.NewDocumentChecker(refs, docs, &mockAlerter{})

		// when
		err := checker.Sweep(context.Background())

		// then
		require.NoError(t, err)
		require.Len(t, docs.saved, 1)
		assert.Equal(t, model.StatusPending, docs.saved[0].Status)
		assert.Equal(t, 1, docs.saved[0].RetryCount)
	})

	t.Run("drops a record whose customer left the integration", func(t *testing.T) {
		// given
		refs := documentRefs()
		refs.profile = nil
		docs := &mockDocStore{pending: []model.DocumentRecord{pendingDocument(1)}}
		checker := pipeline.NewDocumentChecker(refs, docs, &mockAlerter{})

		// when
		err := checker.Sweep(context.Background())

		// then
		require.NoError(t, err)
		assert.Empty(t, docs.saved)
		assert.Equal(t, []string{"4657842/POD"}, docs.deleted)
	})
}

func TestDocumentSender(t *testing.T) {
	readyDocument := func() model.DocumentRecord {
		rec := pendingDocument(0)
		rec.Status = model.StatusReady
		rec.BillTo = "17773"
		rec.Housebill = "HB-99812"
		rec.ReferenceNo = "S02167324"
		rec.TableStatuses[model.ShipmentHeaderTable] = model.StatusReady
		return rec
	}

	t.Run("delivers the document and stores the redacted payload", func(t *testing.T) {
		// given
		docs := &mockDocStore{ready: []model.DocumentRecord{readyDocument()}}
		fetcher := &mockDocFetcher{doc: &docapi.Document{Filename: "pod-4657842.pdf", B64Str: "JVBERi0xLjQ="}}
		cw := &mockSubmitter{}
		sender := pipeline.NewDocumentSender(documentRefs(), docs, fetcher, cw, &mockAlerter{})

		// when
		err := sender.Send(context.Background())

		// then
		require.NoError(t, err)
		require.Len(t, cw.submitted, 1)
		assert.Contains(t, cw.submitted[0], "JVBERi0xLjQ=")

		require.Len(t, docs.saved, 1)
		rec := docs.saved[0]
		assert.Equal(t, model.StatusSent, rec.Status)
		assert.Contains(t, rec.Payload, "base64_content")
		assert.NotContains(t, rec.Payload, "JVBERi0xLjQ=", "file content never lands in the audit row")
	})

	t.Run("fails the record when the document API has nothing", func(t *testing.T) {
		// given
		alerter := &mockAlerter{}
		docs := &mockDocStore{ready: []model.DocumentRecord{readyDocument()}}
		fetcher := &mockDocFetcher{}
		sender := pipeline.NewDocumentSender(documentRefs(), docs, fetcher, &mockSubmitter{}, alerter)

		// when
		err := sender.Send(context.Background())

		// then
		require.NoError(t, err)
		require.Len(t, docs.saved, 1)
		assert.Equal(t, model.StatusFailed, docs.saved[0].Status)
		require.Len(t, alerter.failures, 1)
	})

	t.Run("fails the record when the customer has no API key", func(t *testing.T) {
		// given
		refs := documentRefs()
		refs.profile.DocumentAPIKey = ""
		docs := &mockDocStore{ready: []model.DocumentRecord{readyDocument()}}
		sender := pipeline.NewDocumentSender(refs, docs, &mockDocFetcher{}, &mockSubmitter{}, &mockAlerter{})

		// when
		err := sender.Send(context.Background())

		// then
		require.NoError(t, err)
		require.Len(t, docs.saved, 1)
		assert.Equal(t, model.StatusFailed, docs.saved[0].Status)
		assert.Contains(t, docs.saved[0].Message, "document API key")
	})
}
