// Package session resolves the portal session the dashboard works with.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

// Loader produces a live portal session
type Loader interface {
	Load(ctx context.Context) (portal.Session, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(ctx context.Context) (portal.Session, error)

// Load calls f(ctx)
func (f LoaderFunc) Load(ctx context.Context) (portal.Session, error) {
	return f(ctx)
}

var (
	errNoLoader   = errors.New("no session loader configured")
	errNilSession = errors.New("loader returned no session")
	errNoFallback = errors.New("developer mode has no fallback session")
)

// Acquirer resolves a session once and hands the same outcome to every caller.
//
// Resolution order: the host-provided session, then the loader, then (in
// developer mode) the fallback factory.
type Acquirer struct {
	existing portal.Session
	loader   Loader
	devMode  bool
	fallback func() portal.Session
	logger   *zap.Logger

	once    sync.Once
	done    chan struct{}
	session portal.Session
	err     error
}

// Option configures an Acquirer
type Option func(*Acquirer)

// WithExisting sets a session that is already loaded
func WithExisting(s portal.Session) Option {
	return func(a *Acquirer) {
		a.existing = s
	}
}

// WithLoader sets the loader used when no session is provided
func WithLoader(l Loader) Option {
	return func(a *Acquirer) {
		a.loader = l
	}
}

// WithDevMode enables falling back to the synthetic session
func WithDevMode(enabled bool) Option {
	return func(a *Acquirer) {
		a.devMode = enabled
	}
}

// WithFallback sets the factory of the synthetic session used in developer mode
func WithFallback(factory func() portal.Session) Option {
	return func(a *Acquirer) {
		a.fallback = factory
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(a *Acquirer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAcquirer creates an Acquirer
func NewAcquirer(opts ...Option) *Acquirer {
	a := &Acquirer{
		logger: zap.NewNop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire returns the session, starting the single resolution attempt on first use.
// Cancelling ctx abandons this caller's wait; the attempt itself keeps running and
// its outcome is delivered to later callers.
func (a *Acquirer) Acquire(ctx context.Context) (portal.Session, error) {
	a.once.Do(func() {
		go a.resolve(context.WithoutCancel(ctx))
	})

	select {
	case <-a.done:
		return a.session, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Acquirer) resolve(ctx context.Context) {
	defer close(a.done)

	if a.existing != nil {
		a.session = a.existing
		return
	}

	cause := errNoLoader
	if a.loader != nil {
		s, err := a.loader.Load(ctx)
		switch {
		case err != nil:
			cause = err
		case s == nil:
			cause = errNilSession
		default:
			a.session = s
			return
		}
	}

	if a.devMode {
		if a.fallback != nil {
			a.logger.Warn("Portal session unavailable, running with fixture data", zap.Error(cause))
			a.session = a.fallback()
			return
		}
		cause = fmt.Errorf("%w: %w", errNoFallback, cause)
	}

	a.logger.Error("Failed to acquire portal session", zap.Error(cause))
	a.err = fmt.Errorf("%w: %w", portal.ErrSessionUnavailable, cause)
}
