package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/telemetry"
)

// Call outcomes reported to observers
const (
	OutcomeOK             = "ok"
	OutcomeAPIError       = "api_error"
	OutcomeTransportError = "transport_error"
)

// Invoker performs one REST call against a portal
type Invoker interface {
	Invoke(ctx context.Context, auth portal.Auth, method string, params portal.Params) (*Envelope, error)
}

// CallObserver receives one notification per upstream call
type CallObserver interface {
	ObserveCall(method, outcome string, duration time.Duration)
}

// Client calls portal REST methods directly over HTTPS.
// Each portal domain gets its own request budget.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	observer   CallObserver
	logger     *zap.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for upstream calls
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithObserver sets the observer notified about every call
func WithObserver(o CallObserver) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new portal REST client
func NewClient(cfg *ClientConfig, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     zap.NewNop(),
		limiters:   make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the REST URL of a method on the given portal
func (c *Client) Endpoint(domain, method string) string {
	domain = strings.TrimRight(domain, "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain + "/rest/" + method
	}
	return c.config.Scheme + "://" + domain + "/rest/" + method
}

// limiterFor returns the rate limiter of a portal, or nil when limiting is disabled
func (c *Client) limiterFor(domain string) *rate.Limiter {
	if c.config.RateLimit <= 0 {
		return nil
	}
	key := strings.ToLower(strings.TrimRight(domain, "/"))

	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.config.RateLimit), c.config.RateBurst)
		c.limiters[key] = l
	}
	return l
}

// Invoke posts the parameters with the access token to the method endpoint.
// An application error in the body is returned inside the envelope; the error
// result is reserved for transport failures and unreadable bodies.
func (c *Client) Invoke(ctx context.Context, auth portal.Auth, method string, params portal.Params) (*Envelope, error) {
	if method == "" {
		return nil, portal.ErrMissingMethod
	}
	if err := auth.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartClientSpan(ctx, "bitrix."+method,
		attribute.String("bitrix.method", method),
		attribute.String("bitrix.domain", auth.Domain),
	)
	defer span.End()

	start := time.Now()
	env, err := c.invoke(ctx, auth, method, params)
	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeTransportError
		telemetry.RecordError(span, err)
		c.logger.Warn("Portal call failed",
			zap.String("method", method),
			zap.String("portal_domain", auth.Domain),
			zap.Error(err),
		)
	case env.Error != "":
		outcome = OutcomeAPIError
		span.SetAttributes(attribute.String("bitrix.error", env.Error))
		c.logger.Debug("Portal reported an error",
			zap.String("method", method),
			zap.String("error", env.Error),
		)
	}
	if c.observer != nil {
		c.observer.ObserveCall(method, outcome, time.Since(start))
	}
	return env, err
}

func (c *Client) invoke(ctx context.Context, auth portal.Auth, method string, params portal.Params) (*Envelope, error) {
	if limiter := c.limiterFor(auth.Domain); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("bitrix: rate limiter: %w", err)
		}
	}

	payload := params.Clone()
	payload["auth"] = auth.AccessToken
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("bitrix: failed to encode parameters: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(auth.Domain, method), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bitrix: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", portal.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("bitrix: failed to read response: %w", err)
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%w: HTTP %d", portal.ErrUpstreamRequestFailed, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %v", portal.ErrInvalidResponse, err)
	}
	if env.Error != "" {
		return env, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", portal.ErrUpstreamRequestFailed, resp.StatusCode)
	}
	return env, nil
}
