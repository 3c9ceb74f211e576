package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/omnilogix/freight-bridge/internal/ledger"
	"github.com/omnilogix/freight-bridge/internal/model"
	"github.com/omnilogix/freight-bridge/internal/pipeline"
)

// RetryEnqueuer enqueues a retry message for the retry queue consumer.
type RetryEnqueuer interface {
	Publish(ctx context.Context, body string) error
}

// AttemptController exposes the integration attempt ledger to operators:
// inspecting what was sent for an order and retriggering failed attempts
// after the underlying issue is fixed.
type AttemptController struct {
	ledger     *ledger.Ledger
	retryQueue RetryEnqueuer
}

// NewAttemptController creates an AttemptController over the given ledger
// and retry queue.
func NewAttemptController(ldg *ledger.Ledger, retryQueue RetryEnqueuer) *AttemptController {
	return &AttemptController{ledger: ldg, retryQueue: retryQueue}
}

// AttemptResponse represents one recorded integration attempt.
type AttemptResponse struct {
	OrderNo           string `json:"order_no"`
	Discriminator     string `json:"discriminator"`
	Status            string `json:"status"`
	EventTime         string `json:"event_time,omitempty"`
	Housebill         string `json:"housebill,omitempty"`
	ReferenceNo       string `json:"reference_no,omitempty"`
	RequestPayload    string `json:"request_payload,omitempty"`
	ResponsePayload   string `json:"response_payload,omitempty"`
	SecondaryPayload  string `json:"secondary_payload,omitempty"`
	SecondaryResponse string `json:"secondary_response,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
	RetryCount        int    `json:"retry_count"`
	ResetCount        int    `json:"reset_count"`
	LastUpdatedBy     string `json:"last_updated_by"`
	LastUpdatedAt     string `json:"last_updated_at"`
}

// ListAttemptsResponse represents the attempts recorded for one order.
type ListAttemptsResponse struct {
	Attempts []AttemptResponse `json:"attempts"`
}

// ListAttempts handles the HTTP GET request for an order's attempt history.
func (ac *AttemptController) ListAttempts(c *gin.Context) {
	orderNo := c.Param("orderNo")

	attempts, err := ac.ledger.ListByOrder(c.Request.Context(), orderNo)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list attempts"})
		return
	}

	response := ListAttemptsResponse{}
	for i := range attempts {
		response.Attempts = append(response.Attempts, toAttemptResponse(&attempts[i]))
	}
	c.JSON(http.StatusOK, response)
}

// RetriggerRequest represents the request body for retriggering a failed attempt.
type RetriggerRequest struct {
	Kind          string `json:"kind" binding:"required"`
	OrderNo       string `json:"order_no" binding:"required"`
	Discriminator string `json:"discriminator" binding:"required"`
	Operator      string `json:"operator" binding:"required"`
}

// Retrigger handles the HTTP POST request that sets a failed attempt back to
// ready and enqueues it for the retry queue consumer to resubmit.
func (ac *AttemptController) Retrigger(c *gin.Context) {
	var req RetriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := model.BusinessKey{OrderNo: req.OrderNo, Discriminator: req.Discriminator}
	if err := ac.ledger.Retrigger(c.Request.Context(), req.Kind, key, req.Operator); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no retriggerable attempt found for that key"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrigger attempt"})
		return
	}

	body, err := json.Marshal(pipeline.RetryMessage{
		Kind:          req.Kind,
		OrderNo:       req.OrderNo,
		Discriminator: req.Discriminator,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode retry message"})
		return
	}
	if err := ac.retryQueue.Publish(c.Request.Context(), string(body)); err != nil {
		// The row is ready now; retrying this request re-enqueues it.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "attempt set back to ready but enqueueing the resubmission failed; retry the request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "attempt set back to ready and queued for resubmission"})
}

func toAttemptResponse(rec *model.AttemptRecord) AttemptResponse {
	resp := AttemptResponse{
		OrderNo:           rec.OrderNo,
		Discriminator:     rec.Discriminator,
		Status:            string(rec.Status),
		Housebill:         rec.Housebill,
		ReferenceNo:       rec.ReferenceNo,
		RequestPayload:    rec.RequestPayload,
		ResponsePayload:   rec.ResponsePayload,
		SecondaryPayload:  rec.SecondaryPayload,
		SecondaryResponse: rec.SecondaryResponse,
		ErrorMessage:      rec.ErrorMessage,
		RetryCount:        rec.RetryCount,
		ResetCount:        rec.ResetCount,
		LastUpdatedBy:     rec.LastUpdatedBy,
		LastUpdatedAt:     rec.LastUpdatedAt.Format(timeFormat),
	}
	if !model.IsSentinelTime(rec.EventTime) && !rec.EventTime.IsZero() {
		resp.EventTime = rec.EventTime.Format(timeFormat)
	}
	return resp
}
