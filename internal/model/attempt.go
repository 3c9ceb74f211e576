package model

import (
	"fmt"
	"time"
)

// AttemptStatus represents the lifecycle state of an integration attempt.
type AttemptStatus string

const (
	// StatusPending indicates the attempt is recorded but waiting on upstream data.
	StatusPending AttemptStatus = "PENDING"
	// StatusReady indicates the attempt is eligible for (re)processing.
	StatusReady AttemptStatus = "READY"
	// StatusSent indicates the external system affirmatively accepted the payload.
	StatusSent AttemptStatus = "SENT"
	// StatusFailed indicates processing raised an error; ErrorMessage is populated.
	StatusFailed AttemptStatus = "FAILED"
	// StatusSkipped indicates the event was out of scope for this integration.
	StatusSkipped AttemptStatus = "SKIPPED"
)

// sentinelYear is the placeholder year the upstream system writes into
// date columns that have not been set yet.
const sentinelYear = 1900

// BusinessKey is the natural identifier for one unit of integration work:
// an order number plus a discriminator (status code, sequence number or
// document type). It is stable across redeliveries of the same logical event.
type BusinessKey struct {
	OrderNo       string
	Discriminator string
}

func (k BusinessKey) String() string {
	return fmt.Sprintf("%s/%s", k.OrderNo, k.Discriminator)
}

// AttemptRecord is the persisted audit/idempotency row per business key.
// For two-phase flows the primary payload/response pair belongs to the first
// target system and the secondary pair to the follow-up notification.
type AttemptRecord struct {
	OrderNo           string
	Discriminator     string
	Status            AttemptStatus
	EventTime         time.Time
	Housebill         string
	ReferenceNo       string
	RequestPayload    string
	ResponsePayload   string
	SecondaryPayload  string
	SecondaryResponse string
	ErrorMessage      string
	RetryCount        int
	ResetCount        int
	LastUpdatedBy     string
	LastUpdatedAt     time.Time
}

// Key returns the business key of the record.
func (r *AttemptRecord) Key() BusinessKey {
	return BusinessKey{OrderNo: r.OrderNo, Discriminator: r.Discriminator}
}

// IsSentinelTime reports whether t carries the upstream "not yet set"
// placeholder and must be treated as absent data.
func IsSentinelTime(t time.Time) bool {
	return t.IsZero() || t.Year() == sentinelYear
}
