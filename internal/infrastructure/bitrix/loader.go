package bitrix

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

// DefaultProbeMethod is called once to verify credentials when a session loads
const DefaultProbeMethod = "profile"

// Loader builds a live session from static credentials
type Loader struct {
	invoker     Invoker
	auth        portal.Auth
	probeMethod string
	logger      *zap.Logger
}

// NewDirectLoader returns a loader for sessions that talk to the portal directly
func NewDirectLoader(client *Client, auth portal.Auth, probeMethod string, logger *zap.Logger) *Loader {
	return newLoader(client, auth, probeMethod, logger)
}

// NewProxyLoader returns a loader for sessions that go through a proxy server
func NewProxyLoader(client *ProxyClient, auth portal.Auth, probeMethod string, logger *zap.Logger) *Loader {
	return newLoader(client, auth, probeMethod, logger)
}

func newLoader(invoker Invoker, auth portal.Auth, probeMethod string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		invoker:     invoker,
		auth:        auth,
		probeMethod: probeMethod,
		logger:      logger,
	}
}

// Load validates the credentials and, when a probe method is set, checks them
// with one call before handing out the session.
func (l *Loader) Load(ctx context.Context) (portal.Session, error) {
	if err := l.auth.Validate(); err != nil {
		return nil, err
	}
	session := NewSession(l.invoker, l.auth)
	if l.probeMethod == "" {
		return session, nil
	}

	resp, err := session.CallMethod(ctx, l.probeMethod, nil)
	if err != nil {
		return nil, fmt.Errorf("bitrix: probe %s: %w", l.probeMethod, err)
	}
	if resp.Failed() {
		return nil, fmt.Errorf("bitrix: probe %s: %w", l.probeMethod, resp.Error)
	}
	l.logger.Info("Portal session established",
		zap.String("portal_domain", l.auth.Domain),
		zap.String("probe", l.probeMethod),
	)
	return session, nil
}
