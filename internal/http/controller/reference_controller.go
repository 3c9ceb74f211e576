package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/omnilogix/freight-bridge/internal/refstore"
)

const timeFormat = time.RFC3339

// ReferenceController exposes read-only upstream reference lookups so
// operators can see an order's reference numbers without querying the
// legacy database directly.
type ReferenceController struct {
	store *refstore.Store
}

// NewReferenceController creates a ReferenceController over the given store.
func NewReferenceController(store *refstore.Store) *ReferenceController {
	return &ReferenceController{store: store}
}

// ListReferencesRequest represents the query parameters for listing references.
type ListReferencesRequest struct {
	Limit int    `form:"limit"`
	Token string `form:"token"`
}

// ReferenceResponse represents one upstream reference row.
type ReferenceResponse struct {
	OrderNo      string `json:"order_no"`
	CustomerType string `json:"customer_type"`
	RefType      string `json:"ref_type"`
	ReferenceNo  string `json:"reference_no"`
}

// ListReferencesResponse represents a page of reference rows.
type ListReferencesResponse struct {
	References    []ReferenceResponse `json:"references"`
	NextPageToken string              `json:"next_page_token,omitempty"`
}

// ListReferences handles the HTTP GET request for an order's reference
// numbers with keyset pagination.
func (rc *ReferenceController) ListReferences(c *gin.Context) {
	orderNo := c.Param("orderNo")

	var req ListReferencesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	refs, nextToken, err := rc.store.ListReferences(c.Request.Context(), orderNo, req.Limit, req.Token)
	if err != nil {
		if errors.Is(err, refstore.ErrInvalidPageToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list references"})
		return
	}

	response := ListReferencesResponse{NextPageToken: nextToken}
	for _, ref := range refs {
		response.References = append(response.References, ReferenceResponse{
			OrderNo:      ref.OrderNo,
			CustomerType: ref.CustomerType,
			RefType:      ref.RefType,
			ReferenceNo:  ref.ReferenceNo,
		})
	}
	c.JSON(http.StatusOK, response)
}
