// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the per-user daily usage counter.
//
// The counter is the one place in the schema where lost updates would be a
// real bug: concurrent submissions for the same user within the same second
// must all land. IncrementUsage therefore performs a single
// INSERT ... ON CONFLICT DO UPDATE statement rather than read-then-write.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// UsageDay normalizes a timestamp to its UTC calendar day (midnight).
// All usage rows are keyed by this value.
func UsageDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// IncrementUsage atomically bumps the (userID, day) counter, creating the
// row with count=1 when absent, and returns the post-increment count.
//
// The upsert is one SQL statement, so concurrent callers serialize on the
// row inside the database; when called on a transaction handle the
// increment commits or rolls back with the rest of the transaction.
func IncrementUsage(ctx context.Context, db *gorm.DB, userID, orgID string, day time.Time) (int, error) {
	day = UsageDay(day)
	now := time.Now().UTC()

	u := &domain.LeadUsage{
		ID:             uuid.NewString(),
		UserID:         userID,
		Date:           day,
		Count:          1,
		OrganizationID: orgID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count":      gorm.Expr("count + 1"),
			"updated_at": now,
		}),
	}).Create(u).Error
	if err != nil {
		return 0, err
	}

	return GetUsageCount(ctx, db, userID, day)
}

// GetUsageCount returns the counter value for (userID, day), or 0 when no
// row exists yet.
func GetUsageCount(ctx context.Context, db *gorm.DB, userID string, day time.Time) (int, error) {
	day = UsageDay(day)
	var row domain.LeadUsage
	err := db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, day).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.Count, nil
}
