// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides OrgAccess, the gate in front of the dashboard routes.
// Dashboard callers identify themselves with X-User-ID and X-Org-ID headers
// (an upstream auth proxy is expected to have verified the identity); the
// gate resolves an active organization membership and exposes the member's
// role to handlers. Ingestion routes are exempt, they authenticate with the
// per-user API key instead.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/repo"
)

const (
	userIDHeader = "X-User-ID"
	orgIDHeader  = "X-Org-ID"

	// orgIDKey and memberKey are the Gin context keys set by OrgAccess.
	orgIDKey  = "orgID"
	memberKey = "orgMember"
)

// MembershipLookup resolves the active membership of a user in an
// organization. It returns repo.ErrNotFound when none exists.
type MembershipLookup func(ctx context.Context, userID, orgID string) (*domain.OrganizationMember, error)

// OrgAccess returns a Gin middleware that requires an active organization
// membership for the caller identified by the X-User-ID and X-Org-ID
// headers. Missing headers or an absent membership abort with 403; lookup
// failures abort with 500. On success the organization ID and the resolved
// membership (role preloaded) are stored in the context for handlers.
func OrgAccess(lookup MembershipLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(userIDHeader)
		orgID := c.GetHeader(orgIDHeader)
		if userID == "" || orgID == "" {
			abortForbidden(c)
			return
		}

		member, err := lookup(c.Request.Context(), userID, orgID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				abortForbidden(c)
				return
			}
			LoggerFrom(c).Error().Err(err).Msg("membership lookup failed")
			rid, _ := c.Get(requestIDKey)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": asString(rid),
				"code":       "internal_error",
				"message":    "internal server error",
			})
			return
		}

		c.Set(orgIDKey, orgID)
		c.Set(memberKey, member)
		c.Next()
	}
}

func abortForbidden(c *gin.Context) {
	rid, _ := c.Get(requestIDKey)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"request_id": asString(rid),
		"code":       "forbidden",
		"message":    "organization access denied",
	})
}

// OrgID returns the organization ID stored by OrgAccess, or "" when the
// request did not pass through the gate.
func OrgID(c *gin.Context) string {
	if v, ok := c.Get(orgIDKey); ok {
		return asString(v)
	}
	return ""
}

// Member returns the organization membership stored by OrgAccess, or nil.
func Member(c *gin.Context) *domain.OrganizationMember {
	if v, ok := c.Get(memberKey); ok {
		if m, ok := v.(*domain.OrganizationMember); ok {
			return m
		}
	}
	return nil
}
