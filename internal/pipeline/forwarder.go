package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/omnilogix/freight-bridge/internal/event"
)

// bookingGroupID serializes booking-file processing on the FIFO queue.
const bookingGroupID = "s3-events-group"

// FIFOPublisher enqueues a message on a FIFO queue.
type FIFOPublisher interface {
	PublishFIFO(ctx context.Context, body, groupID, dedupID string) error
}

// S3Forwarder relays raw object-storage notifications onto the FIFO booking
// queue, one message per object, deduplicated on the object's ETag so a
// replayed notification for the same upload is dropped by the queue.
type S3Forwarder struct {
	publisher FIFOPublisher
}

// NewS3Forwarder builds the notification relay.
func NewS3Forwarder(publisher FIFOPublisher) *S3Forwarder {
	return &S3Forwarder{publisher: publisher}
}

type forwardedNotification struct {
	Records []forwardedRecord `json:"Records"`
}

type forwardedRecord struct {
	S3 struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key  string `json:"key"`
			ETag string `json:"eTag"`
		} `json:"object"`
	} `json:"s3"`
}

// Handle forwards every object in one notification message.
func (f *S3Forwarder) Handle(ctx context.Context, body string) error {
	objects, err := event.ParseS3Event([]byte(body))
	if err != nil {
		return err
	}
	for _, obj := range objects {
		var record forwardedRecord
		record.S3.Bucket.Name = obj.Bucket
		record.S3.Object.Key = obj.Key
		record.S3.Object.ETag = obj.ETag

		message, err := json.Marshal(forwardedNotification{Records: []forwardedRecord{record}})
		if err != nil {
			return fmt.Errorf("failed to encode forwarded notification: %w", err)
		}
		if err := f.publisher.PublishFIFO(ctx, string(message), bookingGroupID, obj.ETag); err != nil {
			return fmt.Errorf("failed to forward %s/%s: %w", obj.Bucket, obj.Key, err)
		}
		slog.Info("Forwarded booking file notification",
			slog.String("object", obj.Bucket+"/"+obj.Key),
			slog.String("eTag", obj.ETag))
	}
	return nil
}
