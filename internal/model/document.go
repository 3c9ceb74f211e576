package model

import "time"

// TableStatuses tracks per-source-table readiness for a document delivery.
// A document is only sendable once every tracked table has produced its row.
type TableStatuses map[string]AttemptStatus

// AllReady reports whether every tracked table reached READY.
func (ts TableStatuses) AllReady() bool {
	for _, status := range ts {
		if status != StatusReady {
			return false
		}
	}
	return true
}

// ShipmentHeaderTable is the readiness key for the shipment header lookup.
const ShipmentHeaderTable = "SHIPMENT_HEADER_TABLE"

// NewTableStatuses returns the initial readiness map for a document record.
func NewTableStatuses() TableStatuses {
	return TableStatuses{ShipmentHeaderTable: StatusPending}
}

// DocumentRecord is the persisted state of one document delivery, keyed by
// (order number, document type).
type DocumentRecord struct {
	OrderNo       string
	DocType       string
	Status        AttemptStatus
	FileExtension string
	BillTo        string
	Housebill     string
	ReferenceNo   string
	TableStatuses TableStatuses
	Payload       string
	Response      string
	Message       string
	RetryCount    int
	CreatedAt     time.Time
	LastUpdatedBy string
	LastUpdatedAt time.Time
}
