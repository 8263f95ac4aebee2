// Package services defines the business logic for lead ingestion, usage
// accounting, and lead lifecycle updates. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrMissingAPIKey is returned when a submission carries no API key.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrMissingFields is returned when a submission lacks one of the
	// required fields (name, phone, campaign id).
	ErrMissingFields = errors.New("missing required fields")

	// ErrInvalidPhone is returned when the submitted phone number contains
	// no digits after normalization.
	ErrInvalidPhone = errors.New("invalid phone number")

	// ErrInvalidAPIKey indicates that the API key resolves to no user.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrInvalidCampaign indicates that the external campaign id does not
	// resolve to a campaign owned by the submitting user.
	ErrInvalidCampaign = errors.New("invalid campaign ID")

	// ErrPlanNotFound indicates the resolved user has no plan record, so no
	// quota can be evaluated for a quota-gated submission.
	ErrPlanNotFound = errors.New("user plan not found")

	// ErrQuotaExceeded is returned when the user's daily lead limit has been
	// reached; the submission is rolled back, nothing is persisted.
	ErrQuotaExceeded = errors.New("daily lead limit reached")

	// ErrLeadNotFound indicates the requested lead does not exist.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrInvalidStatus is returned when a status value is outside the
	// enumerated set.
	ErrInvalidStatus = errors.New("invalid lead status")
)
