package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/services"
)

func postbackRouter(svc LeadService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(svc)
	r.GET("/postback", h.Postback)
	r.POST("/postback", h.Postback)
	r.PUT("/postback", h.Postback)
	return r
}

func TestPostback_Success(t *testing.T) {
	var gotID, gotStatus string
	svc := stubLeadSvc{postback: func(ctx context.Context, leadID, status string) (*domain.Lead, error) {
		gotID, gotStatus = leadID, status
		return &domain.Lead{ID: leadID, Status: domain.StatusApproved}, nil
	}}
	r := postbackRouter(svc)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, "/postback?lead_id=lead-1&status=approved", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s: status=%d body=%s", method, w.Code, w.Body.String())
		}
		var resp PostbackResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json: %v", err)
		}
		if !resp.Success || resp.LeadID != "lead-1" || resp.Status != "Approved" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	}
	if gotID != "lead-1" || gotStatus != "approved" {
		t.Fatalf("args not passed through: %q %q", gotID, gotStatus)
	}
}

func TestPostback_MissingParams(t *testing.T) {
	svc := stubLeadSvc{postback: func(ctx context.Context, leadID, status string) (*domain.Lead, error) {
		t.Fatalf("service must not be called")
		return nil, nil
	}}
	r := postbackRouter(svc)

	for _, url := range []string{"/postback", "/postback?lead_id=x", "/postback?status=approved"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", url, w.Code)
		}
	}
}

func TestPostback_ErrorMappings(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid_status", services.ErrInvalidStatus, http.StatusBadRequest, ErrCodeInvalidStatus},
		{"unknown_lead", services.ErrLeadNotFound, http.StatusBadRequest, ErrCodeBadRequest},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			svc := stubLeadSvc{postback: func(ctx context.Context, leadID, status string) (*domain.Lead, error) {
				return nil, tc.err
			}}
			r := postbackRouter(svc)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/postback?lead_id=l&status=s", nil))
			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d, want %d", w.Code, tc.wantStatus)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code != tc.wantCode {
				t.Fatalf("code=%q, want %q", er.Code, tc.wantCode)
			}
		})
	}
}
