// Package services defines the business logic for lead ingestion, usage
// accounting, and lead lifecycle updates.
//
// This file implements the lead ingestion pipeline, the core control flow
// of the backend: validate input → resolve API key to user, campaign and
// route → run the duplicate check → persist the lead together with the
// usage increment in one transaction → respond → dispatch the webhook on a
// detached goroutine and write its result back.
//
// Partial-failure semantics worth keeping in mind:
//   - duplicates ARE persisted (status Duplicate) and reported to the
//     submitter as a 400-style rejection by the handler;
//   - a quota rejection aborts the transaction, so neither the lead nor the
//     counter bump survives;
//   - webhook failures never affect the submitter's response; the result
//     (or a structured error) lands on the lead row asynchronously.
//
// The duplicate check is intentionally not linearizable with concurrent
// inserts: two simultaneous submissions of the same phone may both pass.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-leads-backend/internal/dispatch"
	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/geo"
	"github.com/tbourn/go-leads-backend/internal/repo"
)

var leadsIngested = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "leads_ingested_total",
		Help: "Total number of persisted lead submissions by status.",
	},
	[]string{"status"},
)

func init() {
	prometheus.MustRegister(leadsIngested)
}

// LeadService orchestrates the ingestion pipeline and the lead lifecycle
// operations (postback, partial update, reads).
type LeadService struct {
	DB         *gorm.DB
	Usage      *UsageService
	Dispatcher *dispatch.Dispatcher
	Geo        geo.Resolver

	// DispatchWait bounds the detached dispatch-and-writeback task as a
	// whole (HTTP call plus result persistence).
	DispatchWait time.Duration

	wg sync.WaitGroup
}

// SubmitLeadInput is the normalized ingestion payload. IP is the already
// extracted client address; Name is the raw space-separated full name.
type SubmitLeadInput struct {
	Name    string
	Phone   string
	Email   string
	Address string
	Sub1    string
	Sub2    string
	Sub3    string
	Sub4    string
	CampID  string
	APIKey  string
	IP      string
}

// SubmitResult carries the persisted lead and whether it was flagged as a
// duplicate (the handler maps that to the client-visible rejection).
type SubmitResult struct {
	Lead      *domain.Lead
	Duplicate bool
}

// Submit runs the full ingestion pipeline for one submission.
//
// Returned sentinel errors: ErrMissingAPIKey, ErrMissingFields,
// ErrInvalidPhone, ErrInvalidAPIKey, ErrInvalidCampaign, ErrPlanNotFound,
// ErrQuotaExceeded. Anything else is a store failure.
func (s *LeadService) Submit(ctx context.Context, in SubmitLeadInput) (*SubmitResult, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("campaign.ext_id", in.CampID)),
	)
	defer span.End()

	// 1) Validate.
	if strings.TrimSpace(in.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Phone) == "" || strings.TrimSpace(in.CampID) == "" {
		return nil, ErrMissingFields
	}
	phone := normalizePhone(in.Phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	// 2) Resolve credential and campaign.
	user, err := repo.GetUserByAPIKey(ctx, s.DB, in.APIKey)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, err
	}
	campaign, err := repo.GetCampaignByExternalID(ctx, s.DB, user.ID, in.CampID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCampaign
		}
		return nil, err
	}
	if user.Plan == nil {
		return nil, ErrPlanNotFound
	}

	// 3) Normalize the rest of the input.
	firstName, lastName := splitName(in.Name)
	country := geo.UnknownCountry
	if s.Geo != nil && in.IP != "" {
		country = s.Geo.Country(ctx, in.IP)
	}

	// 4) Duplicate check against the campaign's lookback window.
	var since *time.Time
	if campaign.LeadPeriod > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -campaign.LeadPeriod)
		since = &cutoff
	}
	isDuplicate, err := repo.HasDuplicateLead(ctx, s.DB, phone, campaign.ID, since)
	if err != nil {
		return nil, err
	}

	status := domain.StatusNew
	if isDuplicate {
		status = domain.StatusDuplicate
	}

	lead := &domain.Lead{
		FirstName:      firstName,
		LastName:       lastName,
		Phone:          phone,
		Email:          strings.TrimSpace(in.Email),
		Address:        in.Address,
		IP:             in.IP,
		Country:        country,
		Sub1:           in.Sub1,
		Sub2:           in.Sub2,
		Sub3:           in.Sub3,
		Sub4:           in.Sub4,
		Status:         status,
		UserID:         user.ID,
		CampaignID:     campaign.ID,
		RouteID:        campaign.RouteID,
		OrganizationID: user.OrganizationID,
	}

	// 5+6) Persist lead and usage increment in one transaction; the quota
	// gate uses the post-increment count, so exceeding it rolls everything
	// back.
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quota, qErr := s.Usage.RecordAndCheckQuota(ctx, tx, user.ID, user.OrganizationID, user.Plan.DailyLeadsLimit)
		if qErr != nil {
			return qErr
		}
		if !quota.Allowed {
			return ErrQuotaExceeded
		}
		return repo.CreateLead(ctx, tx, lead)
	})
	if err != nil {
		return nil, err
	}
	leadsIngested.WithLabelValues(string(status)).Inc()

	// 8) Detached webhook dispatch; the submitter's response never waits on
	// this.
	if campaign.Route.HasWebhook {
		route := campaign.Route
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.dispatchAndRecord(&route, lead)
		}()
	}

	return &SubmitResult{Lead: lead, Duplicate: isDuplicate}, nil
}

// dispatchAndRecord performs the single webhook attempt and persists the
// outcome onto the lead. Failures here are logged, never escalated: the
// submitter has already been answered.
func (s *LeadService) dispatchAndRecord(route *domain.Route, lead *domain.Lead) {
	wait := s.DispatchWait
	if wait <= 0 {
		wait = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	payload, err := s.Dispatcher.Dispatch(ctx, route, lead)
	if err != nil {
		if errors.Is(err, dispatch.ErrNoWebhook) {
			return
		}
		log.Warn().
			Err(err).
			Str("lead_id", lead.ID).
			Str("route_id", route.ID).
			Msg("webhook dispatch failed")
		payload = dispatch.ErrorPayload(err, time.Now())
	}

	if err := repo.SetLeadWebhookResponse(ctx, s.DB, lead.ID, payload); err != nil {
		log.Error().
			Err(err).
			Str("lead_id", lead.ID).
			Msg("failed to record webhook result")
	}
}

// Close waits for in-flight webhook dispatches to finish. Called during
// graceful shutdown; a hard kill loses them.
func (s *LeadService) Close() {
	s.wg.Wait()
}

// Postback applies an external delivery-status callback to a lead. The
// status is case-normalized and validated against the enum.
func (s *LeadService) Postback(ctx context.Context, leadID, status string) (*domain.Lead, error) {
	st, ok := domain.NormalizeStatus(status)
	if !ok {
		return nil, ErrInvalidStatus
	}
	if err := repo.UpdateLeadStatus(ctx, s.DB, leadID, st); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return repo.GetLead(ctx, s.DB, leadID)
}

// UpdateLeadInput is the partial-update payload for PUT /leads/update.
// Nil pointers leave the corresponding column untouched.
type UpdateLeadInput struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Address   *string `json:"address"`
	Sub1      *string `json:"sub1"`
	Sub2      *string `json:"sub2"`
	Sub3      *string `json:"sub3"`
	Sub4      *string `json:"sub4"`
	Status    *string `json:"status"`
}

// Update applies a partial update to a lead's mutable fields. Phones are
// re-normalized to digits; statuses are normalized and validated.
func (s *LeadService) Update(ctx context.Context, leadID string, in UpdateLeadInput) (*domain.Lead, error) {
	fields := map[string]any{}
	if in.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		p := normalizePhone(*in.Phone)
		if p == "" {
			return nil, ErrInvalidPhone
		}
		fields["phone"] = p
	}
	if in.Email != nil {
		fields["email"] = strings.TrimSpace(*in.Email)
	}
	if in.Address != nil {
		fields["address"] = *in.Address
	}
	if in.Sub1 != nil {
		fields["sub1"] = *in.Sub1
	}
	if in.Sub2 != nil {
		fields["sub2"] = *in.Sub2
	}
	if in.Sub3 != nil {
		fields["sub3"] = *in.Sub3
	}
	if in.Sub4 != nil {
		fields["sub4"] = *in.Sub4
	}
	if in.Status != nil {
		st, ok := domain.NormalizeStatus(*in.Status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		fields["status"] = st
	}
	if len(fields) == 0 {
		return nil, ErrMissingFields
	}

	lead, err := repo.UpdateLeadFields(ctx, s.DB, leadID, fields)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return lead, nil
}

// Get fetches a single lead by id.
func (s *LeadService) Get(ctx context.Context, leadID string) (*domain.Lead, error) {
	lead, err := repo.GetLead(ctx, s.DB, leadID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return lead, nil
}

// ListPage returns a page of an organization's leads plus the total count.
func (s *LeadService) ListPage(ctx context.Context, orgID string, page, pageSize int) ([]domain.Lead, int64, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("org.id", orgID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountLeads(ctx, s.DB, orgID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Lead{}, 0, nil
	}

	items, err := repo.ListLeadsPage(ctx, s.DB, orgID, offset, pageSize)
	return items, total, err
}

// Stats returns the dashboard aggregates for an organization: per-day lead
// volume over the trailing window and the status breakdown.
func (s *LeadService) Stats(ctx context.Context, orgID string, days int) ([]repo.DailyLeadCount, []repo.StatusCount, error) {
	if days <= 0 {
		days = 30
	}
	since := repo.UsageDay(time.Now()).AddDate(0, 0, -days)
	daily, err := repo.DailyLeadCounts(ctx, s.DB, orgID, since)
	if err != nil {
		return nil, nil, err
	}
	byStatus, err := repo.StatusBreakdown(ctx, s.DB, orgID)
	if err != nil {
		return nil, nil, err
	}
	return daily, byStatus, nil
}

// normalizePhone strips every non-digit rune.
func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitName divides a space-separated full name into first and last parts;
// everything after the first token becomes the last name.
func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
