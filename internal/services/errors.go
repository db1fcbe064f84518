package services

import "errors"

// Sentinel errors mapped to HTTP statuses by the handlers. Soft
// conversion outcomes (no attribution, already converted) are not
// errors; they live on ConversionResult.
var (
	// ErrInvalidCode means the referral code does not resolve to an
	// active link. Rejected, not retried.
	ErrInvalidCode = errors.New("invalid referral code")

	// ErrRateLimited means a velocity limit tripped. Transient; the
	// caller may retry after the window.
	ErrRateLimited = errors.New("rate limited")

	// ErrDuplicateWhitelistEntry means the IP is already whitelisted.
	ErrDuplicateWhitelistEntry = errors.New("ip already whitelisted")

	// ErrWhitelistEntryNotFound means there is nothing to remove.
	ErrWhitelistEntryNotFound = errors.New("whitelist entry not found")
)
