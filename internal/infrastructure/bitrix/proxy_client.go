package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

// UpstreamErrorCode is the code assigned to errors relayed by the proxy,
// which forwards only the message of the portal's error.
const UpstreamErrorCode = "UPSTREAM_ERROR"

// proxyCall is the request body of the proxy's call endpoint
type proxyCall struct {
	Method string        `json:"method"`
	Params portal.Params `json:"params,omitempty"`
	Auth   portal.Auth   `json:"auth"`
}

// proxyError is the error body returned by the proxy
type proxyError struct {
	Error string `json:"error"`
}

// ProxyClient calls portal methods through a running proxy server
type ProxyClient struct {
	baseURL         string
	httpClient      *http.Client
	maxResponseSize int64
}

// NewProxyClient creates a client for the proxy listening at baseURL
func NewProxyClient(baseURL string, httpClient *http.Client) *ProxyClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ProxyClient{
		baseURL:         strings.TrimRight(baseURL, "/"),
		httpClient:      httpClient,
		maxResponseSize: DefaultMaxResponseSize,
	}
}

// Invoke forwards one call to the proxy.
// A 502 answer carries the portal's error message and becomes an application error.
func (p *ProxyClient) Invoke(ctx context.Context, auth portal.Auth, method string, params portal.Params) (*Envelope, error) {
	if method == "" {
		return nil, portal.ErrMissingMethod
	}
	body, err := json.Marshal(proxyCall{Method: method, Params: params, Auth: auth})
	if err != nil {
		return nil, fmt.Errorf("bitrix: failed to encode proxy call: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/call", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bitrix: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", portal.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, p.maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("bitrix: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		env, err := decodeEnvelope(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", portal.ErrInvalidResponse, err)
		}
		return env, nil
	case resp.StatusCode == http.StatusBadGateway:
		msg := proxyMessage(raw)
		return &Envelope{Raw: raw, Error: UpstreamErrorCode, ErrorDescription: msg}, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s", portal.ErrUpstreamUnavailable, proxyMessage(raw))
	default:
		return nil, fmt.Errorf("%w: HTTP %d: %s", portal.ErrUpstreamRequestFailed, resp.StatusCode, proxyMessage(raw))
	}
}

func proxyMessage(raw []byte) string {
	var pe proxyError
	if err := json.Unmarshal(raw, &pe); err == nil && pe.Error != "" {
		return pe.Error
	}
	return strings.TrimSpace(string(raw))
}
