// Package worldtrak registers shipments in the legacy operational system
// over its SOAP endpoint.
package worldtrak

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/omnilogix/freight-bridge/internal/config"
)

const addShipmentAction = "http://tempuri.org/AddNewShipmentV3"

// RegistrationError is returned when the endpoint processed the request but
// did not create a shipment.
type RegistrationError struct {
	Message string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("shipment registration failed: %s", e.Message)
}

// Result is the outcome of a successful registration.
type Result struct {
	Housebill string
}

type addShipmentResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result struct {
				Housebill    string `xml:"Housebill"`
				ErrorMessage string `xml:"ErrorMessage"`
			} `xml:"AddNewShipmentV3Result"`
		} `xml:"AddNewShipmentV3Response"`
	} `xml:"Body"`
}

// Client calls the legacy SOAP API.
type Client struct {
	endpoint   config.SOAPEndpoint
	httpClient *http.Client
}

// NewClient creates a Client for the given endpoint.
func NewClient(endpoint config.SOAPEndpoint) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// AddShipment posts the registration envelope and returns the raw response
// body together with the parsed result. Acceptance means a non-empty
// housebill and an empty error message; anything else is a RegistrationError.
func (c *Client) AddShipment(ctx context.Context, envelope string) (string, *Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.URL, strings.NewReader(envelope))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", addShipmentAction)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return string(body), nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed addShipmentResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return string(body), nil, fmt.Errorf("failed to parse response: %w", err)
	}

	result := parsed.Body.Response.Result
	if result.ErrorMessage != "" || result.Housebill == "" {
		message := result.ErrorMessage
		if message == "" {
			message = "no housebill assigned"
		}
		return string(body), nil, &RegistrationError{Message: message}
	}

	return string(body), &Result{Housebill: result.Housebill}, nil
}
