// Package docapi fetches stored shipment documents from the legacy document
// API by housebill and document type.
package docapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/omnilogix/freight-bridge/internal/config"
)

// Document is one stored file, base64 encoded.
type Document struct {
	Filename string `json:"filename"`
	B64Str   string `json:"b64str"`
}

type documentResponse struct {
	WtDocs struct {
		WtDoc []Document `json:"wtDoc"`
	} `json:"wtDocs"`
}

// Client queries the document API. Each customer has its own API key, so
// the key is passed per request rather than configured on the client.
type Client struct {
	endpoint   config.Endpoint
	httpClient *http.Client
}

// NewClient creates a Client for the given endpoint.
func NewClient(endpoint config.Endpoint) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// GetDocument fetches the first stored document of docType for a housebill.
func (c *Client) GetDocument(ctx context.Context, apiKey, housebill, docType string) (*Document, error) {
	url := fmt.Sprintf("%s/%s/housebill=%s/doctype=%s", c.endpoint.URL, apiKey, housebill, docType)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed documentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.WtDocs.WtDoc) == 0 {
		return nil, fmt.Errorf("no %s document stored for housebill %s", docType, housebill)
	}

	return &parsed.WtDocs.WtDoc[0], nil
}
