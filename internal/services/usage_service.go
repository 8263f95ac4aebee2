// Package services defines the business logic for lead ingestion, usage
// accounting, and lead lifecycle updates.
//
// This file implements the usage accountant: the per-user daily lead
// counter and the quota gate in front of it. The increment is a single
// atomic upsert (see repo.IncrementUsage); the quota comparison uses the
// post-increment count, so callers that run the gate inside a transaction
// get rollback-on-reject for free: a rejected submission leaves neither a
// lead row nor a counter bump behind.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/repo"
)

// UsageService owns the per-(user, UTC day) lead counters.
type UsageService struct {
	// DB is the default handle for reads outside a transaction.
	DB *gorm.DB
}

// QuotaResult reports the outcome of a combined increment-and-check.
type QuotaResult struct {
	Allowed  bool
	NewCount int
}

// RecordAndCheckQuota increments the caller's counter for today (UTC) on
// the given handle and evaluates the daily limit. Pass a transaction handle
// to make the increment atomic with surrounding writes.
//
// A dailyLimit of 0 means unlimited: the increment still happens but the
// check always allows. Otherwise the post-increment count is compared
// against the limit; a count that exceeds it yields Allowed=false and the
// caller is expected to abort its transaction.
func (s *UsageService) RecordAndCheckQuota(ctx context.Context, db *gorm.DB, userID, orgID string, dailyLimit int) (QuotaResult, error) {
	if db == nil {
		db = s.DB
	}
	newCount, err := repo.IncrementUsage(ctx, db, userID, orgID, time.Now())
	if err != nil {
		return QuotaResult{}, err
	}
	if dailyLimit > 0 && newCount > dailyLimit {
		return QuotaResult{Allowed: false, NewCount: newCount}, nil
	}
	return QuotaResult{Allowed: true, NewCount: newCount}, nil
}

// IncrementUsage bumps the counter for (userID, day) without a quota check
// and returns the new count.
func (s *UsageService) IncrementUsage(ctx context.Context, userID, orgID string, day time.Time) (int, error) {
	return repo.IncrementUsage(ctx, s.DB, userID, orgID, day)
}

// CountToday returns the caller's counter for the current UTC day.
func (s *UsageService) CountToday(ctx context.Context, userID string) (int, error) {
	return repo.GetUsageCount(ctx, s.DB, userID, time.Now())
}
