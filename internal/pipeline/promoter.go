package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/omnilogix/freight-bridge/internal/cargowise"
	"github.com/omnilogix/freight-bridge/internal/ledger"
	"github.com/omnilogix/freight-bridge/internal/metrics"
	"github.com/omnilogix/freight-bridge/internal/model"
)

// PromotionLedger is the ledger surface the promoter needs.
type PromotionLedger interface {
	PromoteFailed(ctx context.Context, kind string, threshold int) ([]model.BusinessKey, error)
}

// QueuePublisher enqueues a message body.
type QueuePublisher interface {
	Publish(ctx context.Context, body string) error
}

// RetryMessage is the queued instruction to resubmit one recorded attempt.
type RetryMessage struct {
	Kind          string `json:"kind"`
	OrderNo       string `json:"orderNo"`
	Discriminator string `json:"discriminator"`
}

// RetryPromoter periodically promotes failed attempts whose retry count sits
// at the configured threshold back to ready and enqueues their resubmission.
// Promotion bumps the retry count in the same statement, so each failure is
// promoted automatically at most once.
type RetryPromoter struct {
	ledger    PromotionLedger
	publisher QueuePublisher
	kinds     []string
	threshold int
	interval  time.Duration
}

// NewRetryPromoter builds the promoter for the given attempt kinds.
func NewRetryPromoter(ldg PromotionLedger, publisher QueuePublisher, kinds []string, threshold int, interval time.Duration) *RetryPromoter {
	return &RetryPromoter{ledger: ldg, publisher: publisher, kinds: kinds, threshold: threshold, interval: interval}
}

// Run promotes on every tick until the context is cancelled.
func (p *RetryPromoter) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	slog.Info("Retry promoter started",
		slog.Duration("interval", p.interval),
		slog.Int("threshold", p.threshold))
	for {
		select {
		case <-ctx.Done():
			slog.Info("Retry promoter stopped")
			return
		case <-ticker.C:
			if err := p.Promote(ctx); err != nil {
				slog.Error("Error promoting failed attempts", slog.Any("err", err))
			}
		}
	}
}

// Promote runs one promotion pass across all configured kinds.
func (p *RetryPromoter) Promote(ctx context.Context) error {
	for _, kind := range p.kinds {
		keys, err := p.ledger.PromoteFailed(ctx, kind, p.threshold)
		if err != nil {
			return fmt.Errorf("failed to promote %s attempts: %w", kind, err)
		}
		for _, key := range keys {
			body, err := json.Marshal(RetryMessage{
				Kind:          kind,
				OrderNo:       key.OrderNo,
				Discriminator: key.Discriminator,
			})
			if err != nil {
				return fmt.Errorf("failed to encode retry message: %w", err)
			}
			if err := p.publisher.Publish(ctx, string(body)); err != nil {
				return fmt.Errorf("failed to enqueue retry for %s %s: %w", kind, key, err)
			}
			metrics.RetriesPromoted.Inc()
			slog.Info("Promoted failed attempt for retry",
				slog.String("kind", kind), slog.String("key", key.String()))
		}
	}
	return nil
}

// RetryHandler consumes retry messages and resubmits the recorded payload.
// Only attempts whose request payload went to the originating system's event
// endpoint are resubmittable this way; shipment registrations are retried by
// re-dropping the booking file and documents by the checker sweep.
type RetryHandler struct {
	ledger  LedgerAPI
	cw      Submitter
	alerter Alerter
}

// NewRetryHandler builds the retry queue consumer.
func NewRetryHandler(ldg LedgerAPI, cw Submitter, alerter Alerter) *RetryHandler {
	return &RetryHandler{ledger: ldg, cw: cw, alerter: alerter}
}

// Handle resubmits one promoted attempt. An error return redelivers the
// message.
func (h *RetryHandler) Handle(ctx context.Context, body string) error {
	var msg RetryMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("failed to decode retry message: %w", err)
	}
	key := model.BusinessKey{OrderNo: msg.OrderNo, Discriminator: msg.Discriminator}

	rec, err := h.ledger.Lookup(ctx, msg.Kind, key)
	if errors.Is(err, ledger.ErrNotFound) {
		slog.Info("Retry target no longer exists",
			slog.String("kind", msg.Kind), slog.String("key", key.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up retry target: %w", err)
	}
	if rec.Status != model.StatusReady || rec.RequestPayload == "" {
		slog.Info("Retry target not resubmittable",
			slog.String("kind", msg.Kind),
			slog.String("key", key.String()),
			slog.String("status", string(rec.Status)))
		return nil
	}

	run := &Run{
		Kind:           msg.Kind,
		Key:            key,
		EventTime:      rec.EventTime,
		Housebill:      rec.Housebill,
		ReferenceNo:    rec.ReferenceNo,
		RequestPayload: rec.RequestPayload,
		RetryCount:     rec.RetryCount,
	}

	respBody, err := h.resubmit(ctx, msg.Kind, rec.RequestPayload)
	run.ResponsePayload = respBody
	if err != nil {
		metrics.EventsFailed.WithLabelValues(msg.Kind).Inc()
		if alertErr := h.alerter.AlertFailure(ctx, msg.Kind, key, err.Error()); alertErr != nil {
			slog.Error("Error publishing failure alert", slog.Any("err", alertErr))
		} else {
			metrics.AlertsPublished.Inc()
		}
		return recordRun(ctx, h.ledger, run, model.StatusFailed, err.Error())
	}
	metrics.EventsSent.WithLabelValues(msg.Kind).Inc()
	return recordRun(ctx, h.ledger, run, model.StatusSent, "")
}

func (h *RetryHandler) resubmit(ctx context.Context, kind, request string) (string, error) {
	body, err := h.cw.Submit(ctx, request)
	if err != nil {
		return body, err
	}
	if kind == KindCost {
		_, err = cargowise.ClassifyCost(body)
	} else {
		_, err = cargowise.Classify(body)
	}
	return body, err
}
