// Lead HTTP handlers.
//
// This file exposes the affiliate-facing ingestion endpoints and the
// org-gated dashboard reads:
//   - POST /leads/create   (JSON body submission)
//   - GET  /leads/create   (query-string submission, for pixel/redirect integrations)
//   - PUT  /leads/update   (partial update)
//   - GET  /leads          (dashboard list, paginated)
//   - GET  /leads/:id      (dashboard read)
//   - GET  /leads/stats    (dashboard aggregates)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. The ingestion
// contract is deliberately forgiving about HTTP niceties (affiliate trackers
// are crude clients) but strict about the response shape.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/geo"
	"github.com/tbourn/go-leads-backend/internal/http/middleware"
	"github.com/tbourn/go-leads-backend/internal/repo"
	"github.com/tbourn/go-leads-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// LeadService defines the lead lifecycle operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context.
type LeadService interface {
	// Submit runs the ingestion pipeline for one submission.
	Submit(ctx context.Context, in services.SubmitLeadInput) (*services.SubmitResult, error)
	// Update applies a partial update to a lead.
	Update(ctx context.Context, leadID string, in services.UpdateLeadInput) (*domain.Lead, error)
	// Postback applies an external delivery-status callback.
	Postback(ctx context.Context, leadID, status string) (*domain.Lead, error)
	// Get fetches a single lead.
	Get(ctx context.Context, leadID string) (*domain.Lead, error)
	// ListPage returns a page of an organization's leads and the total count.
	ListPage(ctx context.Context, orgID string, page, pageSize int) ([]domain.Lead, int64, error)
	// Stats returns daily volumes and the status breakdown for an organization.
	Stats(ctx context.Context, orgID string, days int) ([]repo.DailyLeadCount, []repo.StatusCount, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for lead ingestion, postback, and the
// dashboard. It depends on the abstract service interface to keep transport
// concerns separate from business logic.
type Handlers struct {
	leads LeadService
}

// New constructs a Handlers instance bound to the given lead service.
func New(leads LeadService) *Handlers {
	return &Handlers{leads: leads}
}

//
// DTOs
//

// SubmitLeadRequest is the JSON payload accepted by POST /leads/create.
// Field names match the affiliate-facing contract, camelCase included.
type SubmitLeadRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Sub1    string `json:"sub1"`
	Sub2    string `json:"sub2"`
	Sub3    string `json:"sub3"`
	Sub4    string `json:"sub4"`
	CampID  string `json:"campid"`
	APIKey  string `json:"apiKey"`
}

// SubmitLeadResponse is returned for accepted and duplicate submissions.
type SubmitLeadResponse struct {
	Success bool   `json:"success"`
	LeadID  string `json:"lead_id"`
	Status  string `json:"status"`
}

// UpdateLeadRequest is the JSON payload accepted by PUT /leads/update: the
// lead id plus an object of the fields to change. Fields absent from data
// are left untouched.
type UpdateLeadRequest struct {
	ID   string                   `json:"id"`
	Data services.UpdateLeadInput `json:"data"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListLeadsResponse wraps a page of leads and pagination information.
type ListLeadsResponse struct {
	Leads      []domain.Lead `json:"leads"`
	Pagination Pagination    `json:"pagination"`
}

// LeadStatsResponse carries the dashboard aggregates.
type LeadStatsResponse struct {
	Daily    []repo.DailyLeadCount `json:"daily"`
	ByStatus []repo.StatusCount    `json:"by_status"`
}

//
// Helpers
//

// atoiDefault parses s as a positive-friendly int, returning def when s is
// empty or malformed.
func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = atoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = atoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// failSubmit translates ingestion pipeline errors into the affiliate-facing
// error envelope.
func failSubmit(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrMissingAPIKey),
		errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrInvalidPhone):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidAPIKey):
		fail(c, http.StatusBadRequest, ErrCodeInvalidAPIKey, "invalid api key")
	case errors.Is(err, services.ErrInvalidCampaign):
		fail(c, http.StatusBadRequest, ErrCodeInvalidCampaign, "invalid campaign")
	case errors.Is(err, services.ErrPlanNotFound):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "no active plan")
	case errors.Is(err, services.ErrQuotaExceeded):
		fail(c, http.StatusTooManyRequests, ErrCodeQuotaExceeded, "daily lead limit reached")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to store lead")
	}
}

//
// Ingestion handlers
//

// CreateLead handles POST /leads/create.
//
// New leads answer 201 with {success:true, lead_id, status:"New"}.
// Duplicates are persisted but rejected with 400 and status "Duplicate" so
// the affiliate knows the submission will not be paid.
func (h *Handlers) CreateLead(c *gin.Context) {
	var req SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	h.submit(c, req)
}

// CreateLeadQuery handles GET /leads/create, the query-string variant used
// by pixel and server-to-server integrations that cannot send a body.
func (h *Handlers) CreateLeadQuery(c *gin.Context) {
	req := SubmitLeadRequest{
		Name:    c.Query("name"),
		Phone:   c.Query("phone"),
		Email:   c.Query("email"),
		Address: c.Query("address"),
		Sub1:    c.Query("sub1"),
		Sub2:    c.Query("sub2"),
		Sub3:    c.Query("sub3"),
		Sub4:    c.Query("sub4"),
		CampID:  c.Query("campid"),
		APIKey:  c.Query("apiKey"),
	}
	h.submit(c, req)
}

func (h *Handlers) submit(c *gin.Context, req SubmitLeadRequest) {
	in := services.SubmitLeadInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		Sub1:    req.Sub1,
		Sub2:    req.Sub2,
		Sub3:    req.Sub3,
		Sub4:    req.Sub4,
		CampID:  req.CampID,
		APIKey:  req.APIKey,
		IP:      geo.ClientIP(c.Request),
	}

	res, err := h.leads.Submit(c.Request.Context(), in)
	if err != nil {
		failSubmit(c, err)
		return
	}

	resp := SubmitLeadResponse{
		Success: !res.Duplicate,
		LeadID:  res.Lead.ID,
		Status:  string(res.Lead.Status),
	}
	if res.Duplicate {
		ok(c, http.StatusBadRequest, resp)
		return
	}
	ok(c, http.StatusCreated, resp)
}

// UpdateLead handles PUT /leads/update with a JSON body of {id, data}.
func (h *Handlers) UpdateLead(c *gin.Context) {
	var req UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	leadID := strings.TrimSpace(req.ID)
	if leadID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id is required")
		return
	}

	lead, err := h.leads.Update(c.Request.Context(), leadID, req.Data)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLeadNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "lead not found")
		case errors.Is(err, services.ErrInvalidStatus):
			fail(c, http.StatusBadRequest, ErrCodeInvalidStatus, "unknown lead status")
		case errors.Is(err, services.ErrInvalidPhone), errors.Is(err, services.ErrMissingFields):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to update lead")
		}
		return
	}

	ok(c, http.StatusOK, lead)
}

//
// Dashboard handlers (behind the org gate)
//

// ListLeads handles GET /leads, returning a page of the caller's
// organization's leads.
func (h *Handlers) ListLeads(c *gin.Context) {
	orgID := middleware.OrgID(c)
	page, pageSize := clampPagination(c)

	items, total, err := h.leads.ListPage(c.Request.Context(), orgID, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to list leads")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListLeadsResponse{
		Leads: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetLead handles GET /leads/:id. Leads outside the caller's organization
// answer 404, not 403, to avoid confirming their existence.
func (h *Handlers) GetLead(c *gin.Context) {
	lead, err := h.leads.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrLeadNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "lead not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to fetch lead")
		return
	}
	if lead.OrganizationID != middleware.OrgID(c) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "lead not found")
		return
	}
	ok(c, http.StatusOK, lead)
}

// LeadStats handles GET /leads/stats?days=N, the dashboard chart feed.
func (h *Handlers) LeadStats(c *gin.Context) {
	days := atoiDefault(c.Query("days"), 30)

	daily, byStatus, err := h.leads.Stats(c.Request.Context(), middleware.OrgID(c), days)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to compute stats")
		return
	}
	ok(c, http.StatusOK, LeadStatsResponse{Daily: daily, ByStatus: byStatus})
}
