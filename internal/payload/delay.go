package payload

import "fmt"

type universalShipmentNote struct {
	XMLName  struct{}         `xml:"UniversalShipment"`
	XmlnsNS  string           `xml:"xmlns:ns0,attr"`
	Shipment noteShipmentBody `xml:"Shipment"`
}

type noteShipmentBody struct {
	Xmlns          string         `xml:"xmlns,attr"`
	DataContext    dataContext    `xml:"DataContext"`
	NoteCollection noteCollection `xml:"NoteCollection"`
}

type noteCollection struct {
	Content string `xml:"Content,attr"`
	Note    note   `xml:"Note"`
}

type note struct {
	Description         string      `xml:"Description"`
	IsCustomDescription string      `xml:"IsCustomDescription"`
	NoteText            string      `xml:"NoteText"`
	NoteContext         noteContext `xml:"NoteContext"`
}

type noteContext struct {
	Code string `xml:"Code"`
}

// BuildDelayNote renders the UniversalShipment document that attaches a
// client-visible delay note to the forwarding shipment referenceNo. The note
// text is the mapped exception rendered as "code-description".
func BuildDelayNote(referenceNo string, exception ExceptionCode) (string, error) {
	doc := universalShipmentNote{
		XmlnsNS: cargowiseNamespace,
		Shipment: noteShipmentBody{
			Xmlns: cargowiseNamespace,
			DataContext: dataContext{
				DataTargetCollection: dataTargetCollection{
					DataTarget: dataTarget{Type: forwardingShipmentTarget, Key: referenceNo},
				},
			},
			NoteCollection: noteCollection{
				Content: "Partial",
				Note: note{
					Description:         "Client Visible Job Notes",
					IsCustomDescription: "false",
					NoteText:            fmt.Sprintf("%s-%s", exception.Code, exception.Description),
					NoteContext:         noteContext{Code: "AAA"},
				},
			},
		},
	}

	out, err := marshalIndented(doc)
	if err != nil {
		return "", fmt.Errorf("failed to build delay note for %s: %w", referenceNo, err)
	}
	return out, nil
}
