package event

import (
	"encoding/json"
	"fmt"
)

// MilestoneRow is the typed image of a shipment-milestone change row.
type MilestoneRow struct {
	OrderNo       string `json:"FK_OrderNo"`
	StatusCode    string `json:"FK_OrderStatusId"`
	EventDateTime string `json:"EventDateTime"`
}

// FailureRow is the typed image of a service-failure (apar failure) change row.
type FailureRow struct {
	OrderNo string `json:"FK_OrderNo"`
	FDCode  string `json:"FDCode"`
}

// CostRow is the typed image of a cost line change row.
type CostRow struct {
	OrderNo string `json:"FK_OrderNo"`
	SeqNo   string `json:"SeqNo"`
	Total   string `json:"Total"`
}

// DocumentRow is the typed image of a shipment-file change row.
type DocumentRow struct {
	OrderNo        string `json:"FK_OrderNo"`
	DocType        string `json:"FK_DocType"`
	CustomerAccess string `json:"CustomerAccess"`
	FileName       string `json:"FileName"`
}

// DecodeMilestone decodes a row image into a MilestoneRow. A nil image
// yields a nil row, not an error, so callers can decode Before images of
// inserts without special casing.
func DecodeMilestone(image json.RawMessage) (*MilestoneRow, error) {
	if image == nil {
		return nil, nil
	}
	var row MilestoneRow
	if err := json.Unmarshal(image, &row); err != nil {
		return nil, fmt.Errorf("failed to decode milestone row: %w", err)
	}
	return &row, nil
}

// DecodeFailure decodes a row image into a FailureRow.
func DecodeFailure(image json.RawMessage) (*FailureRow, error) {
	if image == nil {
		return nil, nil
	}
	var row FailureRow
	if err := json.Unmarshal(image, &row); err != nil {
		return nil, fmt.Errorf("failed to decode failure row: %w", err)
	}
	return &row, nil
}

// DecodeCost decodes a row image into a CostRow.
func DecodeCost(image json.RawMessage) (*CostRow, error) {
	if image == nil {
		return nil, nil
	}
	var row CostRow
	if err := json.Unmarshal(image, &row); err != nil {
		return nil, fmt.Errorf("failed to decode cost row: %w", err)
	}
	return &row, nil
}

// DecodeDocument decodes a row image into a DocumentRow.
func DecodeDocument(image json.RawMessage) (*DocumentRow, error) {
	if image == nil {
		return nil, nil
	}
	var row DocumentRow
	if err := json.Unmarshal(image, &row); err != nil {
		return nil, fmt.Errorf("failed to decode document row: %w", err)
	}
	return &row, nil
}
