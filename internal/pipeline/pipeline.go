// Package pipeline drives the event-to-integration flow: idempotency
// checking against prior attempts, reference-data lookup, payload building,
// submission and audit recording. One orchestrator serves every change-stream
// event kind through per-kind strategies.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/omnilogix/freight-bridge/internal/event"
	"github.com/omnilogix/freight-bridge/internal/ledger"
	"github.com/omnilogix/freight-bridge/internal/metrics"
	"github.com/omnilogix/freight-bridge/internal/model"
)

// updatedBy is the audit author recorded on pipeline-written rows.
const updatedBy = "integration-service"

// SkipError marks an event as out of scope: required joined data absent,
// customer not subscribed, or status code not mapped. Skips are recorded,
// never alerted.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return e.Reason }

// Skipf builds a SkipError.
func Skipf(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// Job identifies the unit of work a strategy derived from an event. A zero
// EventTime means the kind carries no upstream timestamp and deduplication
// falls back to status only.
type Job struct {
	Key       model.BusinessKey
	EventTime time.Time
	// Detail carries the decoded row for the strategy's Execute stage.
	Detail any
}

// Run is the mutable attempt context threaded through the stages of one
// processing attempt. Strategies fill it in as they progress; whatever is
// populated when an error occurs is exactly what lands in the audit record.
type Run struct {
	Kind              string
	Key               model.BusinessKey
	EventTime         time.Time
	Housebill         string
	ReferenceNo       string
	RequestPayload    string
	ResponsePayload   string
	SecondaryPayload  string
	SecondaryResponse string
	RetryCount        int
	Detail            any
}

// Strategy is one event-kind pipeline: Prepare decodes the envelope into a
// job (or skips), Execute performs lookups, builds the payload and submits.
type Strategy interface {
	Kind() string
	Prepare(ctx context.Context, env *event.Envelope) (*Job, error)
	Execute(ctx context.Context, run *Run) error
}

// LedgerAPI is the attempt store surface the orchestrator needs.
type LedgerAPI interface {
	Lookup(ctx context.Context, kind string, key model.BusinessKey) (*model.AttemptRecord, error)
	RecordOutcome(ctx context.Context, kind string, rec *model.AttemptRecord) error
	MarkDuplicate(ctx context.Context, kind string, key model.BusinessKey, message string) error
	LookupSentByHousebill(ctx context.Context, kind, housebill string) (*model.AttemptRecord, error)
}

// Alerter publishes operator notifications.
type Alerter interface {
	AlertFailure(ctx context.Context, pipeline string, key model.BusinessKey, cause string) error
	AlertDuplicate(ctx context.Context, pipeline string, key model.BusinessKey) error
}

// Orchestrator routes envelopes to strategies and owns the shared attempt
// lifecycle: dedup, outcome recording, alerting and metrics.
type Orchestrator struct {
	strategies map[string]Strategy
	ledger     LedgerAPI
	alerter    Alerter
}

// NewOrchestrator creates an Orchestrator over the given ledger and alerter.
func NewOrchestrator(ldg LedgerAPI, alerter Alerter) *Orchestrator {
	return &Orchestrator{
		strategies: map[string]Strategy{},
		ledger:     ldg,
		alerter:    alerter,
	}
}

// Register binds a source table name to a strategy.
func (o *Orchestrator) Register(sourceTable string, s Strategy) {
	o.strategies[sourceTable] = s
}

// Process runs one envelope through its strategy. Skips and failures are
// recorded outcomes, not returned errors; an error return means the attempt
// could not be recorded and the message should be redelivered.
func (o *Orchestrator) Process(ctx context.Context, env *event.Envelope) error {
	s, ok := o.strategies[env.SourceTable]
	if !ok {
		slog.Info("Ignoring event from unrouted table", slog.String("table", env.SourceTable))
		return nil
	}
	metrics.EventsReceived.WithLabelValues(s.Kind()).Inc()

	job, err := s.Prepare(ctx, env)
	if err != nil {
		var skip *SkipError
		if errors.As(err, &skip) && job != nil {
			return o.recordSkip(ctx, s.Kind(), job, skip.Reason)
		}
		// Without a business key there is nothing to record against.
		return fmt.Errorf("failed to prepare %s event: %w", s.Kind(), err)
	}

	prior, err := o.ledger.Lookup(ctx, s.Kind(), job.Key)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("failed to check prior attempt: %w", err)
	}

	if prior != nil && prior.Status == model.StatusSent && !prior.EventTime.Before(job.EventTime) {
		return o.handleDuplicate(ctx, s.Kind(), job)
	}

	run := &Run{
		Kind:      s.Kind(),
		Key:       job.Key,
		EventTime: job.EventTime,
		Detail:    job.Detail,
	}
	if prior != nil {
		run.RetryCount = prior.RetryCount
	}

	execErr := s.Execute(ctx, run)
	switch {
	case execErr == nil:
		metrics.EventsSent.WithLabelValues(s.Kind()).Inc()
		return o.record(ctx, run, model.StatusSent, "")
	default:
		var skip *SkipError
		if errors.As(execErr, &skip) {
			metrics.EventsSkipped.WithLabelValues(s.Kind()).Inc()
			return o.record(ctx, run, model.StatusSkipped, skip.Reason)
		}
		metrics.EventsFailed.WithLabelValues(s.Kind()).Inc()
		o.alertFailure(ctx, s.Kind(), run.Key, execErr)
		return o.record(ctx, run, model.StatusFailed, execErr.Error())
	}
}

func (o *Orchestrator) handleDuplicate(ctx context.Context, kind string, job *Job) error {
	slog.Info("Duplicate event skipped",
		slog.String("kind", kind),
		slog.String("key", job.Key.String()))
	metrics.EventsSkipped.WithLabelValues(kind).Inc()

	// Stream redelivery of an already sent event is routine; count it on
	// the ledger row but keep operators out of the loop. Only the booking
	// file flow alerts on duplicates, where a re-dropped file means a real
	// double registration attempt.
	message := fmt.Sprintf("duplicate delivery for %s; original attempt already sent", job.Key)
	if err := o.ledger.MarkDuplicate(ctx, kind, job.Key, message); err != nil {
		return fmt.Errorf("failed to mark duplicate: %w", err)
	}
	return nil
}

func (o *Orchestrator) recordSkip(ctx context.Context, kind string, job *Job, reason string) error {
	metrics.EventsSkipped.WithLabelValues(kind).Inc()
	run := &Run{Kind: kind, Key: job.Key, EventTime: job.EventTime}
	return o.record(ctx, run, model.StatusSkipped, reason)
}

func (o *Orchestrator) record(ctx context.Context, run *Run, status model.AttemptStatus, message string) error {
	return recordRun(ctx, o.ledger, run, status, message)
}

// recordRun persists the attempt outcome. Shared between the orchestrator
// and the shipment registration processor.
func recordRun(ctx context.Context, ldg LedgerAPI, run *Run, status model.AttemptStatus, message string) error {
	rec := &model.AttemptRecord{
		OrderNo:           run.Key.OrderNo,
		Discriminator:     run.Key.Discriminator,
		Status:            status,
		EventTime:         run.EventTime,
		Housebill:         run.Housebill,
		ReferenceNo:       run.ReferenceNo,
		RequestPayload:    run.RequestPayload,
		ResponsePayload:   run.ResponsePayload,
		SecondaryPayload:  run.SecondaryPayload,
		SecondaryResponse: run.SecondaryResponse,
		ErrorMessage:      message,
		RetryCount:        run.RetryCount,
		LastUpdatedBy:     updatedBy,
	}
	if err := ldg.RecordOutcome(ctx, run.Kind, rec); err != nil {
		return fmt.Errorf("failed to record %s outcome for %s: %w", status, run.Key, err)
	}
	slog.Info("Attempt recorded",
		slog.String("kind", run.Kind),
		slog.String("key", run.Key.String()),
		slog.String("status", string(status)))
	return nil
}

// alertFailure publishes the failure alert. The original processing error is
// never masked by a notification problem; publish errors are logged and
// swallowed here.
func (o *Orchestrator) alertFailure(ctx context.Context, kind string, key model.BusinessKey, cause error) {
	if err := o.alerter.AlertFailure(ctx, kind, key, cause.Error()); err != nil {
		slog.Error("Error publishing failure alert", slog.Any("err", err))
		return
	}
	metrics.AlertsPublished.Inc()
}
