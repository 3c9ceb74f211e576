// Package cargowise submits Universal XML documents to the CargoWise
// eAdaptor endpoint and classifies its responses.
package cargowise

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/omnilogix/freight-bridge/internal/config"
)

// acceptance markers in the UniversalResponse
const (
	acceptedEventType = "DIM"
	statusCodeContext = "ProcessingStatusCode"
	acceptedStatus    = "PRS"
	declinedStatus    = "DCD"
	rejectedStatus    = "REJ"
)

// RejectionError is returned when the endpoint answered but did not accept
// the document. It carries the processing log for the operator alert.
type RejectionError struct {
	EventType     string
	StatusCode    string
	ProcessingLog string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("document rejected (event type %q, status %q): %s",
		e.EventType, e.StatusCode, e.ProcessingLog)
}

// TransportError is returned when the HTTP exchange itself failed. The
// offending payload travels with the error so the alert shows what was sent.
type TransportError struct {
	Err     error
	Payload string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%v\n Payload: %s", e.Err, e.Payload)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UniversalResponse is the envelope the endpoint answers every submission with.
type UniversalResponse struct {
	XMLName       xml.Name `xml:"UniversalResponse"`
	ProcessingLog string   `xml:"ProcessingLog"`
	Data          struct {
		UniversalEvent struct {
			Event struct {
				EventType         string `xml:"EventType"`
				ContextCollection struct {
					Context []ResponseContext `xml:"Context"`
				} `xml:"ContextCollection"`
			} `xml:"Event"`
		} `xml:"UniversalEvent"`
	} `xml:"Data"`
}

// ResponseContext is one typed key/value pair in the response context collection.
type ResponseContext struct {
	Type  string `xml:"Type"`
	Value string `xml:"Value"`
}

// StatusCode returns the ProcessingStatusCode context value, or "" when absent.
func (r *UniversalResponse) StatusCode() string {
	for _, ctx := range r.Data.UniversalEvent.Event.ContextCollection.Context {
		if ctx.Type == statusCodeContext {
			return ctx.Value
		}
	}
	return ""
}

// Client submits documents over HTTP with the configured authorization header.
type Client struct {
	endpoint   config.Endpoint
	httpClient *http.Client
}

// NewClient creates a Client for the given endpoint.
func NewClient(endpoint config.Endpoint) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit posts the XML payload and returns the raw response body. The
// response is not classified here; use Classify on the returned body.
func (c *Client) Submit(ctx context.Context, payload string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.URL, strings.NewReader(payload))
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("failed to create request: %w", err), Payload: payload}
	}
	req.Header.Set("Authorization", c.endpoint.Authorization)
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("request failed: %w", err), Payload: payload}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("failed to read response: %w", err), Payload: payload}
	}
	if resp.StatusCode != http.StatusOK {
		slog.Error("submission returned non-200 status",
			slog.Int("status", resp.StatusCode))
		return "", &TransportError{
			Err:     fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body)),
			Payload: payload,
		}
	}

	return string(body), nil
}

// Classify parses a response body and checks for affirmative acceptance:
// event type DIM plus processing status PRS. Anything else is a rejection.
func Classify(body string) (*UniversalResponse, error) {
	var resp UniversalResponse
	if err := xml.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	eventType := resp.Data.UniversalEvent.Event.EventType
	status := resp.StatusCode()
	if eventType != acceptedEventType || status != acceptedStatus {
		return &resp, &RejectionError{
			EventType:     eventType,
			StatusCode:    status,
			ProcessingLog: resp.ProcessingLog,
		}
	}

	return &resp, nil
}

// ClassifyCost applies the looser acceptance rule of the cost channel: a
// submission only counts as rejected when the event type is not DIM and the
// status is an explicit decline or rejection code.
func ClassifyCost(body string) (*UniversalResponse, error) {
	var resp UniversalResponse
	if err := xml.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	eventType := resp.Data.UniversalEvent.Event.EventType
	status := resp.StatusCode()
	if eventType != acceptedEventType && (status == declinedStatus || status == rejectedStatus) {
		return &resp, &RejectionError{
			EventType:     eventType,
			StatusCode:    status,
			ProcessingLog: resp.ProcessingLog,
		}
	}

	return &resp, nil
}
