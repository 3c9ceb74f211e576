package payload

import (
	"fmt"
	"time"
)

// eventTimeLayout is the timestamp format CargoWise expects on events.
const eventTimeLayout = "2006-01-02T15:04:05"

type universalEvent struct {
	XMLName struct{}      `xml:"UniversalEvent"`
	Xmlns   string        `xml:"xmlns,attr"`
	Version string        `xml:"version,attr"`
	Event   milestoneBody `xml:"Event"`
}

type milestoneBody struct {
	DataContext dataContext `xml:"DataContext"`
	EventTime   string      `xml:"EventTime"`
	EventType   string      `xml:"EventType"`
	IsEstimate  string      `xml:"IsEstimate"`
}

// BuildMilestoneEvent renders the UniversalEvent document that records a
// mapped milestone against the forwarding shipment referenceNo. eventType is
// the already-mapped CargoWise code (for example PCF or DCF).
func BuildMilestoneEvent(referenceNo, eventType string, eventTime time.Time) (string, error) {
	doc := universalEvent{
		Xmlns:   cargowiseNamespace,
		Version: "1.1",
		Event: milestoneBody{
			DataContext: dataContext{
				DataTargetCollection: dataTargetCollection{
					DataTarget: dataTarget{Type: forwardingShipmentTarget, Key: referenceNo},
				},
			},
			EventTime:  eventTime.Format(eventTimeLayout),
			EventType:  eventType,
			IsEstimate: "false",
		},
	}

	out, err := marshalIndented(doc)
	if err != nil {
		return "", fmt.Errorf("failed to build milestone event for %s: %w", referenceNo, err)
	}
	return out, nil
}
