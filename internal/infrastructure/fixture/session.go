package fixture

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

// DefaultDelay is the artificial latency of every fixture response
const DefaultDelay = 500 * time.Millisecond

// MethodNotFoundCode is returned for methods the fixture session does not serve
const MethodNotFoundCode = "METHOD_NOT_FOUND"

// Mock credentials reported by a fixture session
const (
	MockDomain      = "mock.bitrix24.ru"
	MockAccessToken = "mock_access_token"
	MockMemberID    = "mock_member_id"
)

// Session is a portal session answering from an in-memory dataset.
// It is used for local development when no portal is reachable.
type Session struct {
	dataset *Dataset
	delay   time.Duration
	logger  *zap.Logger
}

// Option configures a Session
type Option func(*Session)

// WithDataset replaces the embedded sample data
func WithDataset(ds *Dataset) Option {
	return func(s *Session) {
		if ds != nil {
			s.dataset = ds
		}
	}
}

// WithDelay sets the artificial response latency; 0 answers immediately
func WithDelay(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithLogger sets the session logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates a fixture session
func NewSession(opts ...Option) *Session {
	s := &Session{
		delay:  DefaultDelay,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dataset == nil {
		s.dataset = DefaultDataset()
	}
	return s
}

// Auth returns the mock credentials
func (s *Session) Auth() portal.Auth {
	return portal.Auth{
		Domain:      MockDomain,
		AccessToken: MockAccessToken,
		MemberID:    MockMemberID,
	}
}

// CallMethod answers one method call after the configured delay
func (s *Session) CallMethod(ctx context.Context, method string, params portal.Params) (*portal.Response, error) {
	s.logger.Debug("Fixture call", zap.String("method", method), zap.Any("params", params))
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.answer(method, params), nil
}

// CallBatch answers the commands in declared order after one delay.
// With haltOnError the first failing command and every later one are left out.
func (s *Session) CallBatch(ctx context.Context, req portal.BatchRequest, haltOnError bool) (portal.BatchResult, error) {
	s.logger.Debug("Fixture batch", zap.Strings("keys", req.Keys()), zap.Bool("halt", haltOnError))
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	out := make(portal.BatchResult, len(req))
	for _, cmd := range req {
		resp := s.answer(cmd.Method, cmd.Params)
		if resp.Failed() && haltOnError {
			break
		}
		out[cmd.Key] = resp
	}
	return out, nil
}

func (s *Session) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Session) answer(method string, params portal.Params) *portal.Response {
	records, ok := s.dataset.collection(method)
	if !ok {
		return &portal.Response{Error: &portal.APIError{
			Code:        MethodNotFoundCode,
			Description: fmt.Sprintf("The method %s is not mocked for local development.", method),
		}}
	}

	if filter := filterParam(params); len(filter) > 0 {
		records = applyFilter(records, filter)
	}

	total := len(records)
	start := startParam(params)
	if start > total {
		start = total
	}
	end := start + portal.DefaultPageSize
	if end > total {
		end = total
	}

	page := make([]portal.Record, end-start)
	copy(page, records[start:end])

	resp := &portal.Response{Data: page, Total: total, HasTotal: true}
	if end < total {
		resp.Next = portal.NextCursor(end)
	}
	return resp
}

func filterParam(params portal.Params) map[string]any {
	switch f := params["filter"].(type) {
	case map[string]any:
		return f
	case portal.Params:
		return f
	case portal.Record:
		return f
	case map[string]string:
		out := make(map[string]any, len(f))
		for k, v := range f {
			out[k] = v
		}
		return out
	default:
		return nil
	}
}

func startParam(params portal.Params) int {
	switch v := params["start"].(type) {
	case int:
		return max(v, 0)
	case int64:
		return max(int(v), 0)
	case float64:
		return max(int(v), 0)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return max(n, 0)
	default:
		return 0
	}
}

var _ portal.Session = (*Session)(nil)
