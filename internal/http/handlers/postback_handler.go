// Postback HTTP handler.
//
// Buyers report delivery outcomes by calling back with a lead id and a new
// status. Tracker platforms are inconsistent about verbs, so the same
// handler is mounted for GET, POST, and PUT; parameters always travel in
// the query string.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-leads-backend/internal/services"
)

// PostbackResponse confirms an applied status change.
type PostbackResponse struct {
	Success bool   `json:"success"`
	LeadID  string `json:"lead_id"`
	Status  string `json:"status"`
}

// Postback handles /postback?lead_id=<uuid>&status=<status>.
//
// The status is case-normalized before validation, so "approved" and
// "APPROVED" both land as "Approved". Unknown statuses are rejected rather
// than stored.
func (h *Handlers) Postback(c *gin.Context) {
	leadID := strings.TrimSpace(c.Query("lead_id"))
	status := strings.TrimSpace(c.Query("status"))
	if leadID == "" || status == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "lead_id and status are required")
		return
	}

	lead, err := h.leads.Postback(c.Request.Context(), leadID, status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus):
			fail(c, http.StatusBadRequest, ErrCodeInvalidStatus, "unknown lead status")
		case errors.Is(err, services.ErrLeadNotFound):
			// An unknown lead id is a parameter error here, same as a bad
			// status; 404 is reserved for the dashboard read.
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown lead_id")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to apply postback")
		}
		return
	}

	ok(c, http.StatusOK, PostbackResponse{
		Success: true,
		LeadID:  lead.ID,
		Status:  string(lead.Status),
	})
}
