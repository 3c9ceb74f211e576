package event

import (
	"encoding/json"
	"fmt"
)

// S3Object identifies one uploaded object in a storage notification.
type S3Object struct {
	Bucket string
	Key    string
	ETag   string
}

type s3Notification struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key  string `json:"key"`
				ETag string `json:"eTag"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ParseS3Event extracts the uploaded objects from an S3 event notification body.
func ParseS3Event(body []byte) ([]S3Object, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	var note s3Notification
	if err := json.Unmarshal(body, &note); err != nil {
		return nil, fmt.Errorf("failed to unmarshal S3 notification: %w", err)
	}
	objects := make([]S3Object, 0, len(note.Records))
	for _, record := range note.Records {
		objects = append(objects, S3Object{
			Bucket: record.S3.Bucket.Name,
			Key:    record.S3.Object.Key,
			ETag:   record.S3.Object.ETag,
		})
	}
	return objects, nil
}
