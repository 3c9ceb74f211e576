package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ChangeKind classifies a change-stream record.
type ChangeKind string

const (
	// Insert is a newly created row; Before is always nil.
	Insert ChangeKind = "INSERT"
	// Update is a modified row; Before carries the prior image.
	Update ChangeKind = "UPDATE"
	// Delete is a removed row; After is nil.
	Delete ChangeKind = "DELETE"
)

var (
	// ErrEmptyBody is returned when a queue message has no usable body.
	ErrEmptyBody = errors.New("message body is empty")
	// ErrNoImages is returned when a change notification carries neither row image.
	ErrNoImages = errors.New("change notification has no row images")
)

// Envelope is the normalized representation of one upstream change. All
// inbound wire shapes (stream notifications, queued retries) are converted
// into this form at the boundary; downstream stages never touch raw bodies.
type Envelope struct {
	SourceTable string          `json:"sourceTable"`
	ChangeKind  ChangeKind      `json:"changeKind"`
	Before      json.RawMessage `json:"before,omitempty"`
	After       json.RawMessage `json:"after,omitempty"`
}

// notification is the SNS-wrapped change-stream shape delivered via SQS:
// the SQS body holds a Message string which itself is JSON.
type notification struct {
	Message string `json:"Message"`
}

type streamRecord struct {
	SourceTable string          `json:"dynamoTableName"`
	NewImage    json.RawMessage `json:"NewImage"`
	OldImage    json.RawMessage `json:"OldImage"`
}

// ParseNotification unwraps an SQS-delivered change notification into an Envelope.
func ParseNotification(body []byte) (*Envelope, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}

	var note notification
	if err := json.Unmarshal(body, &note); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification wrapper: %w", err)
	}
	if note.Message == "" {
		return nil, fmt.Errorf("notification has no Message: %w", ErrEmptyBody)
	}

	var record streamRecord
	if err := json.Unmarshal([]byte(note.Message), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream record: %w", err)
	}

	return normalize(record)
}

func normalize(record streamRecord) (*Envelope, error) {
	before := compactImage(record.OldImage)
	after := compactImage(record.NewImage)

	var kind ChangeKind
	switch {
	case after != nil && before == nil:
		kind = Insert
	case after != nil && before != nil:
		kind = Update
	case after == nil && before != nil:
		kind = Delete
	default:
		return nil, ErrNoImages
	}

	return &Envelope{
		SourceTable: record.SourceTable,
		ChangeKind:  kind,
		Before:      before,
		After:       after,
	}, nil
}

// compactImage treats absent, null and empty-object images as nil.
func compactImage(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == `""` || string(raw) == "{}" {
		return nil
	}
	return raw
}

// upstream datetime layouts, most specific first. The legacy system emits
// local timestamps with no zone designator.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseUpstreamTime parses a timestamp string in any of the layouts the
// legacy system produces.
func ParseUpstreamTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized upstream timestamp %q", value)
}
