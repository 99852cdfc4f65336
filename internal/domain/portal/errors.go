package portal

import "errors"

// Request validation errors
var (
	ErrMissingMethod      = errors.New("portal: method is required")
	ErrMissingDomain      = errors.New("portal: domain is required")
	ErrMissingAccessToken = errors.New("portal: access token is required")
)

// Upstream errors
var (
	ErrUpstreamUnavailable   = errors.New("portal: upstream temporarily unavailable")
	ErrUpstreamRequestFailed = errors.New("portal: upstream request failed")
	ErrInvalidResponse       = errors.New("portal: invalid upstream response")
	ErrMethodNotMocked       = errors.New("portal: method is not mocked")
)

// Session errors
var (
	ErrSessionUnavailable = errors.New("portal: session unavailable")
	ErrNoSession          = errors.New("portal: session is not available")
)
