package services

import "errors"

var (
	// ErrParsingFailed wraps every structural CSV failure surfaced by a parser.
	ErrParsingFailed = errors.New("failed to parse uploaded file")
	// ErrUploadNotFound is returned when an upload does not exist or belongs to another user.
	ErrUploadNotFound = errors.New("upload not found")
	// ErrInvalidDateRange is returned for unknown presets and malformed from/to values.
	ErrInvalidDateRange = errors.New("invalid date range")
	// ErrSubscriptionRequired is returned when an operation needs an active subscription.
	ErrSubscriptionRequired = errors.New("active subscription required")
	// ErrMembershipInvalid is returned when Whop does not confirm a membership.
	ErrMembershipInvalid = errors.New("membership is not valid for this product")
)
