package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/config"
	"github.com/tbourn/go-leads-backend/internal/dispatch"
	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/repo"
	"github.com/tbourn/go-leads-backend/internal/services"
)

type apiFixture struct {
	db  *gorm.DB
	svc *services.LeadService
	r   *gin.Engine
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     1000,
		RateBurst:   1000,
		OTEL:        config.OTELConfig{ServiceName: "go-leads-backend"},
	}
}

// newAPIFixture stands up the full router against a temp SQLite database
// seeded with one affiliate (api key "key-1"), one campaign ("camp-1",
// 30-day dedup window), its webhook-less route, and an active org
// membership for user "user-1" in "org-1".
func newAPIFixture(t *testing.T, cfg config.Config, dailyLimit int) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	seed := []any{
		&domain.Organization{ID: "org-1", Name: "Acme Leads", OwnerID: "user-1"},
		&domain.Route{ID: "route-1", Name: "buyer", Method: http.MethodPost},
		&domain.User{ID: "user-1", Email: "aff@example.com", APIKey: "key-1", OrganizationID: "org-1"},
		&domain.UserPlan{ID: "plan-1", UserID: "user-1", Name: "starter", DailyLeadsLimit: dailyLimit},
		&domain.Campaign{ID: "campaign-1", Name: "c", CampID: "camp-1", LeadPeriod: 30, UserID: "user-1", RouteID: "route-1", OrganizationID: "org-1"},
		&domain.Role{ID: "role-1", OrganizationID: "org-1", Name: "viewer", Permissions: `{"viewLeads":true}`},
		&domain.OrganizationMember{ID: "member-1", OrganizationID: "org-1", UserID: "user-1", RoleID: "role-1", Status: domain.MembershipActive},
	}
	for _, m := range seed {
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed %T: %v", m, err)
		}
	}

	svc := &services.LeadService{
		DB:         db,
		Usage:      &services.UsageService{DB: db},
		Dispatcher: dispatch.NewDispatcher(2 * time.Second),
	}
	t.Cleanup(svc.Close)

	r := gin.New()
	RegisterRoutes(r, db, svc, cfg)
	return &apiFixture{db: db, svc: svc, r: r}
}

func (f *apiFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func submitJSON(t *testing.T, f *apiFixture, phone string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"name":   "Jane Van Dyke",
		"phone":  phone,
		"campid": "camp-1",
		"apiKey": "key-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/leads/create", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return f.do(req)
}

func TestRouter_SubmitNewLead(t *testing.T) {
	f := newAPIFixture(t, testConfig(), 0)

	w := submitJSON(t, f, "+1 (555) 123-4567")
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool   `json:"success"`
		LeadID  string `json:"lead_id"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !resp.Success || resp.Status != "New" || resp.LeadID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID")
	}

	var lead domain.Lead
	if err := f.db.First(&lead, "id = ?", resp.LeadID).Error; err != nil {
		t.Fatalf("lead not persisted: %v", err)
	}
	if lead.Phone != "15551234567" || lead.FirstName != "Jane" || lead.LastName != "Van Dyke" {
		t.Fatalf("unexpected lead: %+v", lead)
	}
}

func TestRouter_DuplicateWithinWindow(t *testing.T) {
	f := newAPIFixture(t, testConfig(), 0)

	if w := submitJSON(t, f, "5551234567"); w.Code != http.StatusCreated {
		t.Fatalf("first: status=%d body=%s", w.Code, w.Body.String())
	}

	w := submitJSON(t, f, "(555) 123-4567")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate: status=%d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Success bool   `json:"success"`
		LeadID  string `json:"lead_id"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Success || resp.Status != "Duplicate" || resp.LeadID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// Duplicates are persisted, not discarded.
	var n int64
	f.db.Model(&domain.Lead{}).Count(&n)
	if n != 2 {
		t.Fatalf("lead rows = %d, want 2", n)
	}
}

func TestRouter_QuotaExceededRollsBack(t *testing.T) {
	f := newAPIFixture(t, testConfig(), 1)

	if w := submitJSON(t, f, "5550000001"); w.Code != http.StatusCreated {
		t.Fatalf("first: status=%d body=%s", w.Code, w.Body.String())
	}

	w := submitJSON(t, f, "5550000002")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("over quota: status=%d body=%s", w.Code, w.Body.String())
	}
	var er struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != "quota_exceeded" {
		t.Fatalf("code=%q", er.Code)
	}

	// The rejected submission must leave no lead behind.
	var n int64
	f.db.Model(&domain.Lead{}).Count(&n)
	if n != 1 {
		t.Fatalf("lead rows = %d, want 1", n)
	}
}

func TestRouter_GetIngestionVariant(t *testing.T) {
	f := newAPIFixture(t, testConfig(), 0)

	url := "/leads/create?apiKey=key-1&campid=camp-1&name=Bob+Stone&phone=5559990000"
	w := f.do(httptest.NewRequest(http.MethodGet, url, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestRouter_PostbackLifecycle(t *testing.T) {
	f := newAPIFixture(t, testConfig(), 0)

	w := submitJSON(t, f, "5551112222")
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: status=%d", w.Code)
	}
	var created struct {
		LeadID string `json:"lead_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("json: %v", err)
	}

	w = f.do(httptest.NewRequest(http.MethodGet, "/postback?lead_id="+created.LeadID+"&status=approved", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("postback: status=%d body=%s", w.Code, w.Body.String())
	}

	var lead domain.Lead
	if err := f.db.First(&lead, "id = ?", created.LeadID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if lead.Status != domain.StatusApproved {
		t.Fatalf("status = %q", lead.Status)
	}
}

func TestRouter_PostbackUnknownLeadIs400(t *testing.T) {
	f := newAPIFixture(t, testConfig(), 0)

	w := f.do(httptest.NewRequest(http.MethodGet, "/postback?lead_id=no-such-lead&status=Approved", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown lead_id: status=%d body=%s", w.Code, w.Body.String())
	}
	var er struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != "bad_request" {
		t.Fatalf("code=%q", er.Code)
	}
}

func TestRouter_UpdateLeadByIDBody(t *testing.T) {
	f := newAPIFixture(t, testConfig(), 0)

	w := submitJSON(t, f, "5557778888")
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: status=%d", w.Code)
	}
	var created struct {
		LeadID string `json:"lead_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("json: %v", err)
	}

	body, _ := json.Marshal(map[string]any{
		"id":   created.LeadID,
		"data": map[string]string{"email": "updated@example.com"},
	})
	req := httptest.NewRequest(http.MethodPut, "/leads/update", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = f.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("update: status=%d body=%s", w.Code, w.Body.String())
	}

	var lead domain.Lead
	if err := f.db.First(&lead, "id = ?", created.LeadID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if lead.Email != "updated@example.com" {
		t.Fatalf("email = %q", lead.Email)
	}
}

func TestRouter_DashboardRequiresMembership(t *testing.T) {
	f := newAPIFixture(t, testConfig(), 0)

	// No identity headers.
	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/leads", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("anonymous: status=%d", w.Code)
	}

	// Active member resolved from the database.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leads", nil)
	req.Header.Set("X-User-ID", "user-1")
	req.Header.Set("X-Org-ID", "org-1")
	w = f.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("member: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestRouter_HealthAndFallbacks(t *testing.T) {
	f := newAPIFixture(t, testConfig(), 0)

	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health: status=%d", w.Code)
	}

	w = f.do(httptest.NewRequest(http.MethodGet, "/no-such-route", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route: status=%d", w.Code)
	}
	var er struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("404 body not an error envelope: %v", err)
	}
	if er.Code != "not_found" {
		t.Fatalf("code=%q", er.Code)
	}

	w = f.do(httptest.NewRequest(http.MethodDelete, "/leads/create", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("method not allowed: status=%d", w.Code)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t, testConfig(), 0)

	w := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: status=%d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("http_requests_total")) {
		t.Fatalf("exposition missing http_requests_total")
	}
}

func TestRouter_IngestionRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0
	cfg.RateBurst = 1
	f := newAPIFixture(t, cfg, 0)

	if w := submitJSON(t, f, "5553334444"); w.Code != http.StatusCreated {
		t.Fatalf("first: status=%d", w.Code)
	}
	w := submitJSON(t, f, "5553335555")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second: status=%d", w.Code)
	}

	// The dashboard surface is not behind the token bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leads", nil)
	req.Header.Set("X-User-ID", "user-1")
	req.Header.Set("X-Org-ID", "org-1")
	if w := f.do(req); w.Code != http.StatusOK {
		t.Fatalf("dashboard: status=%d body=%s", w.Code, w.Body.String())
	}
}
