// Package report builds the dashboard reports from portal data.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/application/entity"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

// ErrInvalidPeriod is returned when a period ends before it starts
var ErrInvalidPeriod = errors.New("report: period end is before its start")

// Period is an inclusive range of calendar days
type Period struct {
	From time.Time
	To   time.Time
}

// Validate checks that the period is not inverted
func (p Period) Validate() error {
	if !p.From.IsZero() && !p.To.IsZero() && p.To.Before(p.From) {
		return ErrInvalidPeriod
	}
	return nil
}

// bounds returns the first and last instants of the period as portal filter values.
// A zero endpoint leaves that side open.
func (p Period) bounds() (from, to string) {
	if !p.From.IsZero() {
		y, m, d := p.From.Date()
		from = time.Date(y, m, d, 0, 0, 0, 0, p.From.Location()).Format(time.RFC3339)
	}
	if !p.To.IsZero() {
		y, m, d := p.To.Date()
		to = time.Date(y, m, d, 23, 59, 59, 0, p.To.Location()).Format(time.RFC3339)
	}
	return from, to
}

// Filter adds the period as a condition on field to a copy of filter
func (p Period) Filter(field string, filter map[string]any) map[string]any {
	out := make(map[string]any, len(filter)+2)
	for k, v := range filter {
		out[k] = v
	}
	from, to := p.bounds()
	if from != "" {
		out[">="+field] = from
	}
	if to != "" {
		out["<="+field] = to
	}
	return out
}

// Service builds reports on top of the entity fetcher
type Service struct {
	fetcher      *entity.Fetcher
	logger       *zap.Logger
	disableBatch bool
}

// Option configures a Service
type Option func(*Service)

// WithoutBatch makes every listing page sequentially
func WithoutBatch() Option {
	return func(s *Service) {
		s.disableBatch = true
	}
}

// NewService creates a report service
func NewService(fetcher *entity.Fetcher, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{fetcher: fetcher, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot holds the raw collections the dashboard renders
type Snapshot struct {
	Companies []portal.Record
	Deals     []portal.Record
	Tasks     []portal.Record
	Users     []portal.Record
}

// Snapshot fetches companies, deals, tasks and users concurrently
func (s *Service) Snapshot(ctx context.Context, sess portal.Session) (*Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		records, err := s.Companies(gctx, sess)
		snap.Companies = records
		return err
	})
	g.Go(func() error {
		records, err := s.Deals(gctx, sess, DealQuery{})
		snap.Deals = records
		return err
	})
	g.Go(func() error {
		records, err := s.Tasks(gctx, sess)
		snap.Tasks = records
		return err
	})
	g.Go(func() error {
		records, err := s.Users(gctx, sess)
		snap.Users = records
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Companies lists every company
func (s *Service) Companies(ctx context.Context, sess portal.Session) ([]portal.Record, error) {
	records, err := s.fetcher.FetchEntities(ctx, sess, "crm.company", entity.ListOptions{
		Select:       []string{"ID", "TITLE", "DATE_CREATE"},
		Order:        map[string]string{"ID": "ASC"},
		DisableBatch: s.disableBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch companies: %w", err)
	}
	return records, nil
}

// DealQuery narrows a deal listing
type DealQuery struct {
	CompanyID string
	Closed    Period
}

// Deals lists deals, optionally of one company and closed within a period
func (s *Service) Deals(ctx context.Context, sess portal.Session, q DealQuery) ([]portal.Record, error) {
	if err := q.Closed.Validate(); err != nil {
		return nil, err
	}
	opts := entity.ListOptions{
		Select:       []string{"ID", "TITLE", "COMPANY_ID", "OPPORTUNITY", "STAGE_ID", "CLOSED", "CLOSEDATE"},
		Filter:       q.Closed.Filter("CLOSEDATE", nil),
		Order:        map[string]string{"ID": "ASC"},
		DisableBatch: s.disableBatch,
	}

	var (
		records []portal.Record
		err     error
	)
	if q.CompanyID != "" {
		records, err = s.fetcher.FetchRelated(ctx, sess, "crm.deal", "COMPANY_ID", q.CompanyID, opts)
	} else {
		records, err = s.fetcher.FetchEntities(ctx, sess, "crm.deal", opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	return records, nil
}

// Tasks lists every task
func (s *Service) Tasks(ctx context.Context, sess portal.Session) ([]portal.Record, error) {
	records, err := s.fetcher.FetchEntities(ctx, sess, "tasks.task", entity.ListOptions{
		Select:       []string{"ID", "TITLE", "RESPONSIBLE_ID", "TIME_ESTIMATE", "TIME_SPENT_IN_LOGS", "CREATED_DATE", "CLOSED_DATE"},
		DisableBatch: s.disableBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	return records, nil
}

// Users lists every user of the portal
func (s *Service) Users(ctx context.Context, sess portal.Session) ([]portal.Record, error) {
	page, err := s.fetcher.Call(ctx, sess, "user.get", nil, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	return page.Records, nil
}
