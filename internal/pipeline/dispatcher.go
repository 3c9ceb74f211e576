package pipeline

import (
	"context"

	"github.com/omnilogix/freight-bridge/internal/event"
)

// Dispatcher is the change-stream queue handler: it normalizes the message
// body into an envelope and routes it. Document rows feed the multi-stage
// document pipeline; every other table goes through the orchestrator.
type Dispatcher struct {
	orchestrator  *Orchestrator
	documents     *DocumentProcessor
	documentTable string
}

// NewDispatcher builds the stream queue handler.
func NewDispatcher(orchestrator *Orchestrator, documents *DocumentProcessor, documentTable string) *Dispatcher {
	return &Dispatcher{orchestrator: orchestrator, documents: documents, documentTable: documentTable}
}

// Handle processes one queued change record.
func (d *Dispatcher) Handle(ctx context.Context, body string) error {
	env, err := event.ParseNotification([]byte(body))
	if err != nil {
		return err
	}
	if env.SourceTable == d.documentTable {
		return d.documents.Process(ctx, env)
	}
	return d.orchestrator.Process(ctx, env)
}
