// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the resolution queries the ingestion
// pipeline runs before any durable write: API key to user (with plan),
// (user, external campaign id) to campaign (with route and attributes),
// and the organization membership lookup used by the access gate.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// GetUserByAPIKey resolves a bearer API key to its user, preloading the
// plan record that carries the daily quota. Returns ErrNotFound when no
// user owns the key.
func GetUserByAPIKey(ctx context.Context, db *gorm.DB, apiKey string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Preload("Plan").
		Where("api_key = ?", apiKey).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetCampaignByExternalID resolves the short external camp id submitted by
// API clients to the owning user's campaign, preloading the route and its
// attribute descriptors in stored order. Returns ErrNotFound when the pair
// does not resolve.
func GetCampaignByExternalID(ctx context.Context, db *gorm.DB, userID, campID string) (*domain.Campaign, error) {
	var c domain.Campaign
	err := db.WithContext(ctx).
		Preload("Route").
		Preload("Route.Attributes", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).
		Where("user_id = ? AND camp_id = ?", userID, campID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetActiveMembership returns the user's active membership in the given
// organization with its role preloaded, or ErrNotFound when the user is not
// an active member.
func GetActiveMembership(ctx context.Context, db *gorm.DB, userID, orgID string) (*domain.OrganizationMember, error) {
	var m domain.OrganizationMember
	err := db.WithContext(ctx).
		Preload("Role").
		Where("user_id = ? AND organization_id = ? AND status = ?", userID, orgID, domain.MembershipActive).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
