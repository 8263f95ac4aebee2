// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Lead model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a lead is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated. In particular HasDuplicateLead never
//     substitutes a default answer for a failed query; the caller decides.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateLead inserts a new Lead row. A UUID primary key and UTC creation
// timestamp are assigned when unset so callers can prebuild the struct.
func CreateLead(ctx context.Context, db *gorm.DB, l *domain.Lead) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(l).Error
}

// GetLead fetches a single lead by its ID, or ErrNotFound if missing.
func GetLead(ctx context.Context, db *gorm.DB, id string) (*domain.Lead, error) {
	var l domain.Lead
	if err := db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// HasDuplicateLead reports whether a lead with the given (digits-only) phone
// already exists for the campaign. When since is non-nil only leads created
// at or after it are considered; a nil since means an unbounded lookback,
// so any historical match counts.
func HasDuplicateLead(ctx context.Context, db *gorm.DB, phone, campaignID string, since *time.Time) (bool, error) {
	q := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("phone = ? AND campaign_id = ?", phone, campaignID)
	if since != nil {
		q = q.Where("created_at >= ?", *since)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateLeadStatus sets the status of a lead. Returns ErrNotFound when the
// lead does not exist.
func UpdateLeadStatus(ctx context.Context, db *gorm.DB, id string, status domain.LeadStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateLeadFields applies a partial update to a lead's mutable columns and
// returns the refreshed row. Callers are responsible for whitelisting the
// field set. Returns ErrNotFound when the lead does not exist.
func UpdateLeadFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (*domain.Lead, error) {
	res := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return GetLead(ctx, db, id)
}

// SetLeadWebhookResponse attaches the dispatch result (raw payload or a
// structured error blob) to a lead. This is the single post-creation
// mutation the pipeline performs on a lead.
func SetLeadWebhookResponse(ctx context.Context, db *gorm.DB, id, payload string) error {
	res := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("id = ?", id).
		Update("webhook_response", payload)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountLeads returns the total number of leads visible to an organization.
func CountLeads(ctx context.Context, db *gorm.DB, orgID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("organization_id = ?", orgID).
		Count(&total).Error
	return total, err
}

// ListLeadsPage returns a paginated slice of an organization's leads,
// most recent first. Use CountLeads to obtain the total for pagination
// metadata.
func ListLeadsPage(ctx context.Context, db *gorm.DB, orgID string, offset, limit int) ([]domain.Lead, error) {
	var out []domain.Lead
	err := db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListLeadsByUser returns all leads submitted by a user, most recent first.
func ListLeadsByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Lead, error) {
	var out []domain.Lead
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}
