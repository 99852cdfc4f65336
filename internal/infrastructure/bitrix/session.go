package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

// BatchMethod is the portal method that executes several commands in one round trip
const BatchMethod = "batch"

// Session is a portal session backed by an Invoker and fixed credentials
type Session struct {
	invoker Invoker
	auth    portal.Auth
}

// NewSession creates a session that sends every call with the given credentials
func NewSession(invoker Invoker, auth portal.Auth) *Session {
	return &Session{invoker: invoker, auth: auth}
}

// Auth returns the session credentials
func (s *Session) Auth() portal.Auth {
	return s.auth
}

// CallMethod invokes one method and returns its page
func (s *Session) CallMethod(ctx context.Context, method string, params portal.Params) (*portal.Response, error) {
	env, err := s.invoker.Invoke(ctx, s.auth, method, params)
	if err != nil {
		return nil, err
	}
	return env.Response()
}

// CallBatch executes the commands through the batch method.
// Commands are sent in declared order; with haltOnError the portal stops at the
// first failing command and the remaining keys are absent from the result.
// A rejection of the batch call as a whole is returned as an error.
func (s *Session) CallBatch(ctx context.Context, req portal.BatchRequest, haltOnError bool) (portal.BatchResult, error) {
	if len(req) == 0 {
		return portal.BatchResult{}, nil
	}
	if len(req) > portal.MaxBatchCommands {
		return nil, fmt.Errorf("bitrix: batch of %d commands exceeds the limit of %d", len(req), portal.MaxBatchCommands)
	}

	halt := 0
	if haltOnError {
		halt = 1
	}
	env, err := s.invoker.Invoke(ctx, s.auth, BatchMethod, portal.Params{
		"halt": halt,
		"cmd":  batchCommands(req),
	})
	if err != nil {
		return nil, err
	}
	if apiErr := env.APIError(); apiErr != nil {
		return nil, fmt.Errorf("%w: %w", portal.ErrUpstreamRequestFailed, apiErr)
	}

	var payload batchPayload
	if err := json.Unmarshal(env.Result, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse batch result: %v", portal.ErrInvalidResponse, err)
	}
	return payload.responses(req)
}

// batchCommands encodes commands as a JSON object preserving declared order
type batchCommands portal.BatchRequest

func (b batchCommands) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cmd := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cmd.Key)
		if err != nil {
			return nil, err
		}
		line := cmd.Method
		if q := EncodeQuery(cmd.Params); q != "" {
			line += "?" + q
		}
		value, err := json.Marshal(line)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var _ portal.Session = (*Session)(nil)
