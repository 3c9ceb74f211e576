package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/omnilogix/freight-bridge/internal/cargowise"
	"github.com/omnilogix/freight-bridge/internal/event"
	"github.com/omnilogix/freight-bridge/internal/ledger"
	"github.com/omnilogix/freight-bridge/internal/metrics"
	"github.com/omnilogix/freight-bridge/internal/model"
	"github.com/omnilogix/freight-bridge/internal/payload"
	"github.com/omnilogix/freight-bridge/internal/worldtrak"
)

// shipmentDiscriminator is the fixed discriminator for shipment
// registration attempts; one registration per forwarding shipment key.
const shipmentDiscriminator = "SHIPMENT"

// ObjectFetcher retrieves a stored object's bytes.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// ShipmentRegistrar creates a shipment in the legacy system and returns the
// raw response body plus the assigned housebill.
type ShipmentRegistrar interface {
	AddShipment(ctx context.Context, envelope string) (string, *worldtrak.Result, error)
}

// RegistrationConfig carries the fixed registration identity: the customer
// account and station new shipments are created under, and the legacy SOAP
// credentials embedded in the envelope.
type RegistrationConfig struct {
	CustomerNo string
	Station    string
	Username   string
	Password   string
}

// ShipmentProcessor handles booking files dropped into object storage: it
// extracts the shipment, registers it in the legacy system and notifies the
// originating system of the assigned housebill. Unlike the change-stream
// strategies its input is an object notification, so it owns its message
// handling end to end.
type ShipmentProcessor struct {
	fetcher ObjectFetcher
	ledger  LedgerAPI
	alerter Alerter
	wt      ShipmentRegistrar
	cw      Submitter
	reg     RegistrationConfig
}

// NewShipmentProcessor builds the shipment registration pipeline.
func NewShipmentProcessor(fetcher ObjectFetcher, ldg LedgerAPI, alerter Alerter, wt ShipmentRegistrar, cw Submitter, reg RegistrationConfig) *ShipmentProcessor {
	return &ShipmentProcessor{fetcher: fetcher, ledger: ldg, alerter: alerter, wt: wt, cw: cw, reg: reg}
}

// Handle processes one object notification message. An error return means
// no attempt could be recorded and the message should be redelivered.
func (p *ShipmentProcessor) Handle(ctx context.Context, body string) error {
	objects, err := event.ParseS3Event([]byte(body))
	if err != nil {
		return err
	}
	for _, obj := range objects {
		if err := p.processObject(ctx, obj); err != nil {
			return err
		}
	}
	return nil
}

func (p *ShipmentProcessor) processObject(ctx context.Context, obj event.S3Object) error {
	metrics.EventsReceived.WithLabelValues(KindShipment).Inc()

	raw, err := p.fetcher.Fetch(ctx, obj.Bucket, obj.Key)
	if err != nil {
		return fmt.Errorf("failed to fetch booking file: %w", err)
	}
	data, err := payload.ExtractShipmentData(raw)
	if err != nil {
		// No shipment key means nothing to record against.
		return fmt.Errorf("failed to extract booking %s/%s: %w", obj.Bucket, obj.Key, err)
	}
	key := model.BusinessKey{OrderNo: data.ForwardingShipmentKey, Discriminator: shipmentDiscriminator}

	prior, err := p.ledger.Lookup(ctx, KindShipment, key)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("failed to check prior registration: %w", err)
	}
	if prior != nil && prior.Status == model.StatusSent {
		return p.handleDuplicate(ctx, key, obj)
	}

	run := &Run{
		Kind:        KindShipment,
		Key:         key,
		ReferenceNo: data.ReferenceNumber,
	}
	if prior != nil {
		run.RetryCount = prior.RetryCount
	}

	regErr := p.register(ctx, run, data)
	switch {
	case regErr == nil:
		metrics.EventsSent.WithLabelValues(KindShipment).Inc()
		return recordRun(ctx, p.ledger, run, model.StatusSent, "")
	default:
		metrics.EventsFailed.WithLabelValues(KindShipment).Inc()
		cause := fmt.Sprintf("%s (booking file %s/%s)", regErr, obj.Bucket, obj.Key)
		if err := p.alerter.AlertFailure(ctx, KindShipment, key, cause); err != nil {
			slog.Error("Error publishing failure alert", slog.Any("err", err))
		} else {
			metrics.AlertsPublished.Inc()
		}
		return recordRun(ctx, p.ledger, run, model.StatusFailed, regErr.Error())
	}
}

// register runs the two-phase registration: legacy SOAP create first, then
// the housebill notification back to the originating system. A legacy-side
// failure short-circuits before any notification payload is built.
func (p *ShipmentProcessor) register(ctx context.Context, run *Run, data *payload.ShipmentData) error {
	data.CustomerNo = p.reg.CustomerNo
	data.Station = p.reg.Station
	if err := data.Validate(); err != nil {
		return err
	}

	envelope, err := payload.BuildAddShipment(data, p.reg.Username, p.reg.Password)
	if err != nil {
		return err
	}
	run.RequestPayload = envelope

	rawBody, result, err := p.wt.AddShipment(ctx, envelope)
	run.ResponsePayload = rawBody
	if err != nil {
		return err
	}
	run.Housebill = result.Housebill

	notify, err := payload.BuildHousebillReference(data.ForwardingShipmentKey, result.Housebill)
	if err != nil {
		return err
	}
	run.SecondaryPayload = notify

	body, err := p.cw.Submit(ctx, notify)
	if err != nil {
		return err
	}
	run.SecondaryResponse = body
	if _, err := cargowise.Classify(body); err != nil {
		return err
	}
	return nil
}

func (p *ShipmentProcessor) handleDuplicate(ctx context.Context, key model.BusinessKey, obj event.S3Object) error {
	slog.Info("Duplicate booking file skipped",
		slog.String("key", key.String()),
		slog.String("object", obj.Bucket+"/"+obj.Key))
	metrics.EventsSkipped.WithLabelValues(KindShipment).Inc()

	message := fmt.Sprintf("duplicate booking file %s/%s; shipment already registered", obj.Bucket, obj.Key)
	if err := p.ledger.MarkDuplicate(ctx, KindShipment, key, message); err != nil {
		return fmt.Errorf("failed to mark duplicate: %w", err)
	}
	if err := p.alerter.AlertDuplicate(ctx, KindShipment, key); err != nil {
		slog.Error("Error publishing duplicate alert", slog.Any("err", err))
	} else {
		metrics.AlertsPublished.Inc()
	}
	return nil
}
