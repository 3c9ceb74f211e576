package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/omnilogix/freight-bridge/internal/cargowise"
	"github.com/omnilogix/freight-bridge/internal/docapi"
	"github.com/omnilogix/freight-bridge/internal/event"
	"github.com/omnilogix/freight-bridge/internal/ledger"
	"github.com/omnilogix/freight-bridge/internal/metrics"
	"github.com/omnilogix/freight-bridge/internal/model"
	"github.com/omnilogix/freight-bridge/internal/payload"
	"github.com/omnilogix/freight-bridge/internal/refstore"
)

// maxDocumentRetries bounds how many checker sweeps a pending document may
// sit through before it is failed out.
const maxDocumentRetries = 5

// documentUpdatedBy values distinguish which stage last touched a record.
const (
	docProcessorAuthor = "document-processor"
	docCheckerAuthor   = "document-checker"
	docSenderAuthor    = "document-sender"
)

// DocumentLedger is the document delivery state store.
type DocumentLedger interface {
	Get(ctx context.Context, orderNo, docType string) (*model.DocumentRecord, error)
	Save(ctx context.Context, rec *model.DocumentRecord) error
	ListByStatus(ctx context.Context, status model.AttemptStatus, limit int) ([]model.DocumentRecord, error)
	Delete(ctx context.Context, orderNo, docType string) error
}

// DocumentFetcher retrieves a customer-visible document by housebill.
type DocumentFetcher interface {
	GetDocument(ctx context.Context, apiKey, housebill, docType string) (*docapi.Document, error)
}

// DocumentProcessor consumes shipment-file change rows and seeds the
// delivery state for each customer-visible document. Delivery itself is
// deferred to the checker and sender, which wait out upstream tables that
// have not produced their rows yet.
type DocumentProcessor struct {
	refs ReferenceStore
	docs DocumentLedger
}

// NewDocumentProcessor builds the document stream stage.
func NewDocumentProcessor(refs ReferenceStore, docs DocumentLedger) *DocumentProcessor {
	return &DocumentProcessor{refs: refs, docs: docs}
}

// Process evaluates one shipment-file change row. Rows for documents the
// customer cannot access, or for customers not on the integration, leave no
// state behind.
func (p *DocumentProcessor) Process(ctx context.Context, env *event.Envelope) error {
	row, err := event.DecodeDocument(env.After)
	if err != nil {
		return err
	}
	if row == nil || row.OrderNo == "" || row.DocType == "" {
		return fmt.Errorf("document row missing order number or document type")
	}
	metrics.EventsReceived.WithLabelValues(KindDocument).Inc()

	if row.CustomerAccess != "Y" {
		slog.Info("Skipping document without customer access",
			slog.String("orderNo", row.OrderNo), slog.String("docType", row.DocType))
		metrics.EventsSkipped.WithLabelValues(KindDocument).Inc()
		return nil
	}

	if _, err := p.docs.Get(ctx, row.OrderNo, row.DocType); err == nil {
		slog.Info("Document delivery already tracked",
			slog.String("orderNo", row.OrderNo), slog.String("docType", row.DocType))
		return nil
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("failed to check document state: %w", err)
	}

	rec := &model.DocumentRecord{
		OrderNo:       row.OrderNo,
		DocType:       row.DocType,
		Status:        model.StatusPending,
		FileExtension: path.Ext(row.FileName),
		TableStatuses: model.NewTableStatuses(),
		LastUpdatedBy: docProcessorAuthor,
	}

	header, err := p.refs.GetShipmentHeader(ctx, row.OrderNo)
	switch {
	case errors.Is(err, refstore.ErrNotFound):
		// Header row not replicated yet; the checker sweep picks this up.
	case err != nil:
		return fmt.Errorf("failed to look up shipment header: %w", err)
	default:
		if header.BillTo == "" {
			slog.Info("Skipping document with no billing party",
				slog.String("orderNo", row.OrderNo))
			metrics.EventsSkipped.WithLabelValues(KindDocument).Inc()
			return nil
		}
		if _, err := p.refs.GetCustomerProfile(ctx, header.BillTo); err != nil {
			if errors.Is(err, refstore.ErrNotFound) {
				slog.Info("Skipping document for unconfigured customer",
					slog.String("orderNo", row.OrderNo), slog.String("billTo", header.BillTo))
				metrics.EventsSkipped.WithLabelValues(KindDocument).Inc()
				return nil
			}
			return fmt.Errorf("failed to look up customer profile: %w", err)
		}
		rec.BillTo = header.BillTo
		rec.Housebill = header.Housebill
		rec.TableStatuses[model.ShipmentHeaderTable] = model.StatusReady
	}

	if ref, err := p.refs.GetShipmentReference(ctx, row.OrderNo, billToCustomerType, shipmentIDRefType); err == nil {
		rec.ReferenceNo = ref.ReferenceNo
	} else if !errors.Is(err, refstore.ErrNotFound) {
		return fmt.Errorf("failed to look up %s reference: %w", shipmentIDRefType, err)
	}

	if rec.TableStatuses.AllReady() && rec.ReferenceNo != "" {
		rec.Status = model.StatusReady
	}
	return p.docs.Save(ctx, rec)
}

// DocumentChecker re-evaluates pending document records whose upstream rows
// had not arrived when the change event fired.
type DocumentChecker struct {
	refs    ReferenceStore
	docs    DocumentLedger
	alerter Alerter
	limit   int
}

// NewDocumentChecker builds the readiness checker stage.
func NewDocumentChecker(refs ReferenceStore, docs DocumentLedger, alerter Alerter) *DocumentChecker {
	return &DocumentChecker{refs: refs, docs: docs, alerter: alerter, limit: 100}
}

// Sweep re-checks every pending record once. Errors on individual records
// are logged and do not stop the sweep.
func (c *DocumentChecker) Sweep(ctx context.Context) error {
	recs, err := c.docs.ListByStatus(ctx, model.StatusPending, c.limit)
	if err != nil {
		return fmt.Errorf("failed to list pending documents: %w", err)
	}
	for i := range recs {
		if err := c.check(ctx, &recs[i]); err != nil {
			slog.Error("Error re-checking document",
				slog.String("orderNo", recs[i].OrderNo),
				slog.String("docType", recs[i].DocType),
				slog.Any("err", err))
		}
	}
	return nil
}

func (c *DocumentChecker) check(ctx context.Context, rec *model.DocumentRecord) error {
	rec.LastUpdatedBy = docCheckerAuthor

	header, err := c.refs.GetShipmentHeader(ctx, rec.OrderNo)
	if err != nil && !errors.Is(err, refstore.ErrNotFound) {
		return fmt.Errorf("failed to look up shipment header: %w", err)
	}
	if header != nil {
		if header.BillTo == "" {
			return c.fail(ctx, rec, "shipment header has no billing party")
		}
		if _, err := c.refs.GetCustomerProfile(ctx, header.BillTo); err != nil {
			if errors.Is(err, refstore.ErrNotFound) {
				// Customer dropped off the integration while the record
				// waited; nothing left to deliver.
				slog.Info("Dropping document for removed customer",
					slog.String("orderNo", rec.OrderNo), slog.String("billTo", header.BillTo))
				return c.docs.Delete(ctx, rec.OrderNo, rec.DocType)
			}
			return fmt.Errorf("failed to look up customer profile: %w", err)
		}
		rec.BillTo = header.BillTo
		rec.Housebill = header.Housebill
		rec.TableStatuses[model.ShipmentHeaderTable] = model.StatusReady
	}

	if rec.ReferenceNo == "" {
		if ref, err := c.refs.GetShipmentReference(ctx, rec.OrderNo, billToCustomerType, shipmentIDRefType); err == nil {
			rec.ReferenceNo = ref.ReferenceNo
		} else if !errors.Is(err, refstore.ErrNotFound) {
			return fmt.Errorf("failed to look up %s reference: %w", shipmentIDRefType, err)
		}
	}

	if rec.TableStatuses.AllReady() && rec.ReferenceNo != "" {
		rec.Status = model.StatusReady
		return c.docs.Save(ctx, rec)
	}

	rec.RetryCount++
	if rec.RetryCount >= maxDocumentRetries {
		return c.fail(ctx, rec, fmt.Sprintf("upstream rows still missing after %d checks", rec.RetryCount))
	}
	return c.docs.Save(ctx, rec)
}

func (c *DocumentChecker) fail(ctx context.Context, rec *model.DocumentRecord, message string) error {
	rec.Status = model.StatusFailed
	rec.Message = message
	metrics.EventsFailed.WithLabelValues(KindDocument).Inc()

	key := model.BusinessKey{OrderNo: rec.OrderNo, Discriminator: rec.DocType}
	if err := c.alerter.AlertFailure(ctx, KindDocument, key, message); err != nil {
		slog.Error("Error publishing failure alert", slog.Any("err", err))
	} else {
		metrics.AlertsPublished.Inc()
	}
	return c.docs.Save(ctx, rec)
}

// DocumentSender delivers ready documents: fetch the file through the
// customer's document API key, wrap it in a document event and submit it.
type DocumentSender struct {
	refs    ReferenceStore
	docs    DocumentLedger
	fetcher DocumentFetcher
	cw      Submitter
	alerter Alerter
	limit   int
	now     func() time.Time
}

// NewDocumentSender builds the delivery stage.
func NewDocumentSender(refs ReferenceStore, docs DocumentLedger, fetcher DocumentFetcher, cw Submitter, alerter Alerter) *DocumentSender {
	return &DocumentSender{refs: refs, docs: docs, fetcher: fetcher, cw: cw, alerter: alerter, limit: 100, now: time.Now}
}

// Send delivers every ready record once. A failed delivery marks the record
// and moves on to the next one.
func (s *DocumentSender) Send(ctx context.Context) error {
	recs, err := s.docs.ListByStatus(ctx, model.StatusReady, s.limit)
	if err != nil {
		return fmt.Errorf("failed to list ready documents: %w", err)
	}
	for i := range recs {
		rec := &recs[i]
		if err := s.deliver(ctx, rec); err != nil {
			rec.Status = model.StatusFailed
			rec.Message = err.Error()
			rec.LastUpdatedBy = docSenderAuthor
			metrics.EventsFailed.WithLabelValues(KindDocument).Inc()

			key := model.BusinessKey{OrderNo: rec.OrderNo, Discriminator: rec.DocType}
			if alertErr := s.alerter.AlertFailure(ctx, KindDocument, key, err.Error()); alertErr != nil {
				slog.Error("Error publishing failure alert", slog.Any("err", alertErr))
			} else {
				metrics.AlertsPublished.Inc()
			}
			if saveErr := s.docs.Save(ctx, rec); saveErr != nil {
				slog.Error("Error saving failed document", slog.Any("err", saveErr))
			}
		}
	}
	return nil
}

func (s *DocumentSender) deliver(ctx context.Context, rec *model.DocumentRecord) error {
	profile, err := s.refs.GetCustomerProfile(ctx, rec.BillTo)
	if err != nil {
		return fmt.Errorf("failed to look up customer profile: %w", err)
	}
	if profile.DocumentAPIKey == "" {
		return fmt.Errorf("customer %s has no document API key", rec.BillTo)
	}

	doc, err := s.fetcher.GetDocument(ctx, profile.DocumentAPIKey, rec.Housebill, rec.DocType)
	if err != nil {
		return err
	}

	request, err := payload.BuildDocumentEvent(rec.ReferenceNo, rec.DocType, doc.Filename, doc.B64Str, s.now())
	if err != nil {
		return err
	}

	body, err := s.cw.Submit(ctx, request)
	if err != nil {
		return err
	}
	if _, err := cargowise.Classify(body); err != nil {
		return err
	}

	// The stored payload carries everything except the file content.
	rec.Payload = payload.RedactImageData(request)
	rec.Response = body
	rec.Status = model.StatusSent
	rec.Message = ""
	rec.LastUpdatedBy = docSenderAuthor
	metrics.EventsSent.WithLabelValues(KindDocument).Inc()
	return s.docs.Save(ctx, rec)
}

// DocumentWorker periodically runs the checker and sender stages.
type DocumentWorker struct {
	checker  *DocumentChecker
	sender   *DocumentSender
	interval time.Duration
}

// NewDocumentWorker builds the periodic document worker.
func NewDocumentWorker(checker *DocumentChecker, sender *DocumentSender, interval time.Duration) *DocumentWorker {
	return &DocumentWorker{checker: checker, sender: sender, interval: interval}
}

// Run sweeps until the context is cancelled.
func (w *DocumentWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Document worker started", slog.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			slog.Info("Document worker stopped")
			return
		case <-ticker.C:
			if err := w.checker.Sweep(ctx); err != nil {
				slog.Error("Error sweeping pending documents", slog.Any("err", err))
			}
			if err := w.sender.Send(ctx); err != nil {
				slog.Error("Error sending ready documents", slog.Any("err", err))
			}
		}
	}
}
