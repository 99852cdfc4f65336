package bitrix

import (
	"errors"
	"time"
)

// ClientConfig holds configuration of the portal REST client
type ClientConfig struct {
	// Scheme is the URL scheme used to reach portals (https in production)
	Scheme string
	// Timeout bounds one HTTP exchange; 0 keeps the transport default
	Timeout time.Duration
	// RateLimit is the number of outgoing requests per second; 0 disables limiting
	RateLimit float64
	// RateBurst is the number of requests allowed to exceed the rate momentarily
	RateBurst int
	// MaxResponseSize caps the number of bytes read from one response
	MaxResponseSize int64
}

const (
	// DefaultRateLimit matches the portal's documented request rate per application
	DefaultRateLimit = 2
	// DefaultMaxResponseSize is the maximum allowed response size (10MB)
	DefaultMaxResponseSize = 10 * 1024 * 1024
)

// Errors for client configuration
var (
	ErrConfigInvalidScheme = errors.New("bitrix: scheme must be http or https")
	ErrConfigInvalidRate   = errors.New("bitrix: rate limit cannot be negative")
)

// DefaultClientConfig returns the configuration used for production portals
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Scheme:          "https",
		Timeout:         30 * time.Second,
		RateLimit:       DefaultRateLimit,
		RateBurst:       DefaultRateLimit,
		MaxResponseSize: DefaultMaxResponseSize,
	}
}

// Validate validates the configuration and fills defaults
func (c *ClientConfig) Validate() error {
	if c.Scheme == "" {
		c.Scheme = "https"
	}
	if c.Scheme != "https" && c.Scheme != "http" {
		return ErrConfigInvalidScheme
	}
	if c.RateLimit < 0 {
		return ErrConfigInvalidRate
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	if c.MaxResponseSize <= 0 {
		c.MaxResponseSize = DefaultMaxResponseSize
	}
	return nil
}
