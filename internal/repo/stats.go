// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries for the
// dashboard stats endpoint. Each function is context-aware and safe to call
// from services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// DailyLeadCount is one row of the per-day lead volume aggregate.
type DailyLeadCount struct {
	Day   string `json:"day"` // YYYY-MM-DD (UTC)
	Count int64  `json:"count"`
}

// StatusCount is one row of the status breakdown aggregate.
type StatusCount struct {
	Status domain.LeadStatus `json:"status"`
	Count  int64             `json:"count"`
}

// DailyLeadCounts returns per-UTC-day lead volumes for an organization
// since the given instant, oldest day first.
func DailyLeadCounts(ctx context.Context, db *gorm.DB, orgID string, since time.Time) ([]DailyLeadCount, error) {
	var out []DailyLeadCount
	err := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Select("date(created_at) AS day, COUNT(*) AS count").
		Where("organization_id = ? AND created_at >= ?", orgID, since.UTC()).
		Group("date(created_at)").
		Order("day ASC").
		Scan(&out).Error
	return out, err
}

// StatusBreakdown returns lead counts per status for an organization.
func StatusBreakdown(ctx context.Context, db *gorm.DB, orgID string) ([]StatusCount, error) {
	var out []StatusCount
	err := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Select("status, COUNT(*) AS count").
		Where("organization_id = ?", orgID).
		Group("status").
		Order("status ASC").
		Scan(&out).Error
	return out, err
}
