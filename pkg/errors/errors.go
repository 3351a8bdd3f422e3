package apperrors

import "errors"

// Standardized trading API errors
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrServiceUnavailable   = errors.New("service unavailable")
	ErrInvalidResponse      = errors.New("invalid response")
	ErrOrderRejected        = errors.New("order rejected")
	ErrNotFound             = errors.New("not found")
	ErrInvalidParameter     = errors.New("invalid parameter")
)
