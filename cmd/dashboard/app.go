package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/application/entity"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/application/report"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/application/session"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/bitrix"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/config"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/fixture"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/logger"
)

// options holds the global command line flags
type options struct {
	dev      bool
	proxy    string
	domain   string
	token    string
	memberID string
	output   string
	noBatch  bool
}

var (
	opts    options
	current *app
)

// app is the wiring shared by every command
type app struct {
	log      *zap.Logger
	acquirer *session.Acquirer
	reports  *report.Service
	render   *renderer
}

func setupApp(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts.apply(cfg)

	a, err := newApp(cfg, cmd.OutOrStdout(), opts.output, opts.noBatch)
	if err != nil {
		return err
	}
	current = a
	return nil
}

// apply lets command line flags override the loaded configuration
func (o options) apply(cfg *config.Config) {
	if o.dev {
		cfg.Session.DevMode = true
	}
	if o.proxy != "" {
		cfg.Session.ProxyURL = o.proxy
	}
	if o.domain != "" {
		cfg.Session.Domain = o.domain
	}
	if o.token != "" {
		cfg.Session.AccessToken = o.token
	}
	if o.memberID != "" {
		cfg.Session.MemberID = o.memberID
	}
}

func newApp(cfg *config.Config, out io.Writer, format string, noBatch bool) (*app, error) {
	render, err := newRenderer(out, format)
	if err != nil {
		return nil, err
	}

	// Logs go to stderr so that table and JSON output stay clean
	logCfg := logger.ForService("dashboard", "")
	logCfg.Level = cfg.Log.Level
	logCfg.Output = "stderr"
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	acquirer, err := newAcquirer(cfg, log)
	if err != nil {
		return nil, err
	}

	var reportOpts []report.Option
	if noBatch {
		reportOpts = append(reportOpts, report.WithoutBatch())
	}
	return &app{
		log:      log,
		acquirer: acquirer,
		reports:  report.NewService(entity.NewFetcher(log.Named("fetcher")), log.Named("report"), reportOpts...),
		render:   render,
	}, nil
}

// newAcquirer picks the session loader: the proxy when configured, otherwise the
// portal itself when credentials are present. Developer mode adds the fixture fallback.
func newAcquirer(cfg *config.Config, log *zap.Logger) (*session.Acquirer, error) {
	auth := portal.Auth{
		Domain:      cfg.Session.Domain,
		AccessToken: cfg.Session.AccessToken,
		MemberID:    cfg.Session.MemberID,
	}
	acqOpts := []session.Option{
		session.WithDevMode(cfg.Session.DevMode),
		session.WithLogger(log.Named("session")),
	}

	switch {
	case cfg.Session.ProxyURL != "":
		client := bitrix.NewProxyClient(cfg.Session.ProxyURL, &http.Client{Timeout: cfg.Bitrix.Timeout})
		acqOpts = append(acqOpts, session.WithLoader(
			bitrix.NewProxyLoader(client, auth, cfg.Session.ProbeMethod, log.Named("loader")),
		))
	case auth.Domain != "" || auth.AccessToken != "":
		client, err := bitrix.NewClient(&bitrix.ClientConfig{
			Scheme:          cfg.Bitrix.Scheme,
			Timeout:         cfg.Bitrix.Timeout,
			RateLimit:       cfg.Bitrix.RateLimit,
			RateBurst:       cfg.Bitrix.RateBurst,
			MaxResponseSize: cfg.Bitrix.MaxResponseSize,
		}, bitrix.WithLogger(log.Named("bitrix")))
		if err != nil {
			return nil, err
		}
		acqOpts = append(acqOpts, session.WithLoader(
			bitrix.NewDirectLoader(client, auth, cfg.Session.ProbeMethod, log.Named("loader")),
		))
	}

	if cfg.Session.DevMode {
		delay := cfg.Session.FixtureDelay
		acqOpts = append(acqOpts, session.WithFallback(func() portal.Session {
			return fixture.NewSession(fixture.WithDelay(delay), fixture.WithLogger(log.Named("fixture")))
		}))
	}
	return session.NewAcquirer(acqOpts...), nil
}

// portalSession acquires the portal session for one command
func (a *app) portalSession(ctx context.Context) (portal.Session, error) {
	return a.acquirer.Acquire(ctx)
}

func (a *app) close() {
	_ = logger.Sync(a.log)
}
