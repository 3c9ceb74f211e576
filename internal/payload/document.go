package payload

import (
	"fmt"
	"strings"
	"time"
)

// documentEventTimeLayout is the nonstandard timestamp format the document
// channel was onboarded with. Kept as-is for wire compatibility.
const documentEventTimeLayout = "2006:01:02 15:04:05"

type documentEvent struct {
	XMLName struct{}          `xml:"UniversalEvent"`
	Xmlns   string            `xml:"xmlns,attr"`
	Version string            `xml:"version,attr"`
	Event   documentEventBody `xml:"Event"`
}

type documentEventBody struct {
	DataContext                dataContext                `xml:"DataContext"`
	EventTime                  string                     `xml:"EventTime"`
	EventType                  string                     `xml:"EventType"`
	EventReference             string                     `xml:"EventReference"`
	IsEstimate                 string                     `xml:"IsEstimate"`
	AttachedDocumentCollection attachedDocumentCollection `xml:"AttachedDocumentCollection"`
}

type attachedDocumentCollection struct {
	AttachedDocument attachedDocument `xml:"AttachedDocument"`
}

type attachedDocument struct {
	FileName    string      `xml:"FileName"`
	ImageData   string      `xml:"ImageData"`
	Type        codeElement `xml:"Type"`
	IsPublished string      `xml:"IsPublished"`
}

// BuildDocumentEvent renders the DDI UniversalEvent that attaches a base64
// encoded document to the warehouse order referenceNo.
func BuildDocumentEvent(referenceNo, docType, fileName, imageData string, eventTime time.Time) (string, error) {
	doc := documentEvent{
		Xmlns:   cargowiseNamespace,
		Version: "1.1",
		Event: documentEventBody{
			DataContext: dataContext{
				DataTargetCollection: dataTargetCollection{
					DataTarget: dataTarget{Type: warehouseOrderTarget, Key: referenceNo},
				},
			},
			EventTime:      eventTime.Format(documentEventTimeLayout),
			EventType:      "DDI",
			EventReference: docType,
			IsEstimate:     "false",
			AttachedDocumentCollection: attachedDocumentCollection{
				AttachedDocument: attachedDocument{
					FileName:    fileName,
					ImageData:   imageData,
					Type:        codeElement{Code: docType},
					IsPublished: "true",
				},
			},
		},
	}

	out, err := marshalIndented(doc)
	if err != nil {
		return "", fmt.Errorf("failed to build document event for %s: %w", referenceNo, err)
	}
	return out, nil
}

// RedactImageData replaces the base64 body of the ImageData element with the
// placeholder "base64_content". The full payload is never persisted; only
// the redacted form reaches the audit trail.
func RedactImageData(payload string) string {
	const (
		openTag  = "<ImageData>"
		closeTag = "</ImageData>"
	)
	start := strings.Index(payload, openTag)
	if start == -1 {
		return payload
	}
	start += len(openTag)
	end := strings.Index(payload[start:], closeTag)
	if end == -1 {
		return payload
	}
	return payload[:start] + "base64_content" + payload[start+end:]
}
