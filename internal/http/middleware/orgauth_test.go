package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/repo"
)

func orgRouter(lookup MembershipLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), OrgAccess(lookup))
	r.GET("/leads", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"org_id":    OrgID(c),
			"member_id": Member(c).ID,
		})
	})
	return r
}

func TestOrgAccess_GrantsActiveMembership(t *testing.T) {
	lookup := func(ctx context.Context, userID, orgID string) (*domain.OrganizationMember, error) {
		return &domain.OrganizationMember{ID: "m1", UserID: userID, OrganizationID: orgID, Status: domain.MembershipActive}, nil
	}
	r := orgRouter(lookup)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/leads", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-Org-ID", "org-1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["org_id"] != "org-1" || body["member_id"] != "m1" {
		t.Fatalf("context values not set: %v", body)
	}
}

func TestOrgAccess_MissingHeaders(t *testing.T) {
	lookup := func(ctx context.Context, userID, orgID string) (*domain.OrganizationMember, error) {
		t.Fatalf("lookup must not run without headers")
		return nil, nil
	}
	r := orgRouter(lookup)

	for _, hdrs := range []map[string]string{
		{},
		{"X-User-ID": "u1"},
		{"X-Org-ID": "org-1"},
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/leads", nil)
		for k, v := range hdrs {
			req.Header.Set(k, v)
		}
		r.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Fatalf("headers %v: status=%d", hdrs, w.Code)
		}
	}
}

func TestOrgAccess_NoMembershipIs403(t *testing.T) {
	lookup := func(ctx context.Context, userID, orgID string) (*domain.OrganizationMember, error) {
		return nil, repo.ErrNotFound
	}
	r := orgRouter(lookup)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/leads", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-Org-ID", "org-1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status=%d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["code"] != "forbidden" {
		t.Fatalf("code=%q", body["code"])
	}
}

func TestOrgAccess_LookupFailureIs500(t *testing.T) {
	lookup := func(ctx context.Context, userID, orgID string) (*domain.OrganizationMember, error) {
		return nil, errors.New("db down")
	}
	r := orgRouter(lookup)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/leads", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-Org-ID", "org-1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestOrgID_DefaultsEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if OrgID(c) != "" {
		t.Fatalf("OrgID on bare context must be empty")
	}
	if Member(c) != nil {
		t.Fatalf("Member on bare context must be nil")
	}
}
