package model

import "time"

// ShipmentHeader is the upstream shipment header row, owned by the legacy
// freight system; read-only from the pipeline's perspective.
type ShipmentHeader struct {
	OrderNo   string
	BillTo    string
	Housebill string
	// ShipQuote is "S" for shipments and "Q" for quotes; only shipments are forwarded.
	ShipQuote string
}

// CustomerProfile is the per-bill-to integration configuration.
type CustomerProfile struct {
	BillTo            string
	Name              string
	TransmitCost      bool
	AllowedMilestones []string
	// MilestoneMapping translates upstream order status codes into the
	// target system's event type codes.
	MilestoneMapping map[string]string
	// DocumentAPIKey authorizes document retrieval for this customer.
	DocumentAPIKey string
}

// MilestoneAllowed reports whether the status code is forwarded for this customer.
func (p *CustomerProfile) MilestoneAllowed(statusCode string) bool {
	for _, code := range p.AllowedMilestones {
		if code == statusCode {
			return true
		}
	}
	return false
}

// Reference is one upstream reference-number row for an order.
type Reference struct {
	OrderNo      string
	CustomerType string
	RefType      string
	ReferenceNo  string
}

// TrackingNote is one upstream tracking note row for an order.
type TrackingNote struct {
	OrderNo   string
	Note      string
	EnteredAt time.Time
}
