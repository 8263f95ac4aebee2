// Package handlers defines the HTTP-layer error codes used across all API
// endpoints.
//
// Codes are lowercase snake_case and stable: clients branch on them
// programmatically, so renaming one is a breaking change. Generic codes
// mirror common HTTP semantics; the domain-specific ones cover rejections
// the status code alone cannot convey (an invalid API key and an invalid
// campaign are both 400s, but affiliates need to tell them apart).
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeInvalidAPIKey   = "invalid_api_key"
	ErrCodeInvalidCampaign = "invalid_campaign"
	ErrCodeQuotaExceeded   = "quota_exceeded"
	ErrCodeInvalidStatus   = "invalid_status"
)
