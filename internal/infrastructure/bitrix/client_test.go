package bitrix

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveCall(method, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, method+":"+outcome)
}

func newTestClient(t *testing.T, opts ...ClientOption) *Client {
	t.Helper()
	client, err := NewClient(&ClientConfig{Scheme: "http", Timeout: 5 * time.Second}, opts...)
	require.NoError(t, err)
	return client
}

func testAuth(srv *httptest.Server) portal.Auth {
	return portal.Auth{
		Domain:      strings.TrimPrefix(srv.URL, "http://"),
		AccessToken: "token-123",
	}
}

func TestClientConfig_Validate(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		cfg := &ClientConfig{}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "https", cfg.Scheme)
		assert.Equal(t, 1, cfg.RateBurst)
		assert.Equal(t, int64(DefaultMaxResponseSize), cfg.MaxResponseSize)
	})

	t.Run("rejects unknown scheme", func(t *testing.T) {
		cfg := &ClientConfig{Scheme: "ftp"}
		assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalidScheme)
	})

	t.Run("rejects negative rate", func(t *testing.T) {
		cfg := &ClientConfig{RateLimit: -1}
		assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalidRate)
	})
}

func TestClient_Endpoint(t *testing.T) {
	client, err := NewClient(nil)
	require.NoError(t, err)

	assert.Equal(t, "https://example.bitrix24.ru/rest/crm.deal.list", client.Endpoint("example.bitrix24.ru", "crm.deal.list"))
	assert.Equal(t, "https://example.bitrix24.ru/rest/profile", client.Endpoint("example.bitrix24.ru/", "profile"))
	assert.Equal(t, "http://127.0.0.1:8080/rest/profile", client.Endpoint("http://127.0.0.1:8080", "profile"))
}

func TestClient_Invoke(t *testing.T) {
	t.Run("posts parameters with the access token", func(t *testing.T) {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/rest/crm.deal.list", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":[{"ID":"101","TITLE":"Deal"}],"total":120,"next":50}`))
		}))
		defer srv.Close()

		session := NewSession(newTestClient(t), testAuth(srv))
		resp, err := session.CallMethod(context.Background(), "crm.deal.list", portal.Params{
			"filter": map[string]any{"COMPANY_ID": "1"},
		})
		require.NoError(t, err)
		require.False(t, resp.Failed())

		assert.Equal(t, "token-123", got["auth"])
		assert.Equal(t, map[string]any{"COMPANY_ID": "1"}, got["filter"])

		records := resp.Records()
		require.Len(t, records, 1)
		assert.Equal(t, "101", records[0]["ID"])
		assert.True(t, resp.HasTotal)
		assert.Equal(t, 120, resp.Total)
		assert.True(t, resp.Next.More())
		assert.Equal(t, 50, resp.Next.Start())
	})

	t.Run("application error is returned in the response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"expired_token","error_description":"The access token provided has expired."}`))
		}))
		defer srv.Close()

		session := NewSession(newTestClient(t), testAuth(srv))
		resp, err := session.CallMethod(context.Background(), "profile", nil)
		require.NoError(t, err)
		require.True(t, resp.Failed())
		assert.Equal(t, "expired_token", resp.Error.Code)
		assert.Equal(t, "The access token provided has expired.", resp.Error.Message())
	})

	t.Run("non JSON error status is a request failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("<html>oops</html>"))
		}))
		defer srv.Close()

		_, err := newTestClient(t).Invoke(context.Background(), testAuth(srv), "profile", nil)
		assert.ErrorIs(t, err, portal.ErrUpstreamRequestFailed)
	})

	t.Run("non JSON success is an invalid response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		_, err := newTestClient(t).Invoke(context.Background(), testAuth(srv), "profile", nil)
		assert.ErrorIs(t, err, portal.ErrInvalidResponse)
	})

	t.Run("unreachable portal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		auth := testAuth(srv)
		srv.Close()

		_, err := newTestClient(t).Invoke(context.Background(), auth, "profile", nil)
		assert.ErrorIs(t, err, portal.ErrUpstreamUnavailable)
	})

	t.Run("validates input", func(t *testing.T) {
		client := newTestClient(t)
		_, err := client.Invoke(context.Background(), portal.Auth{Domain: "a", AccessToken: "b"}, "", nil)
		assert.ErrorIs(t, err, portal.ErrMissingMethod)

		_, err = client.Invoke(context.Background(), portal.Auth{AccessToken: "b"}, "profile", nil)
		assert.ErrorIs(t, err, portal.ErrMissingDomain)

		_, err = client.Invoke(context.Background(), portal.Auth{Domain: "a"}, "profile", nil)
		assert.ErrorIs(t, err, portal.ErrMissingAccessToken)
	})

	t.Run("unwraps task lists", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"result":{"tasks":[{"id":"101"},{"id":"102"}]},"total":2}`))
		}))
		defer srv.Close()

		session := NewSession(newTestClient(t), testAuth(srv))
		resp, err := session.CallMethod(context.Background(), "tasks.task.list", nil)
		require.NoError(t, err)
		records := resp.Records()
		require.Len(t, records, 2)
		assert.Equal(t, "102", records[1]["id"])
		assert.False(t, resp.Next.More())
	})

	t.Run("reports outcomes to the observer", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/broken") {
				_, _ = w.Write([]byte(`{"error":"ERROR_METHOD_NOT_FOUND"}`))
				return
			}
			_, _ = w.Write([]byte(`{"result":{"ID":"1"}}`))
		}))
		defer srv.Close()

		observer := &recordingObserver{}
		client := newTestClient(t, WithObserver(observer))
		_, err := client.Invoke(context.Background(), testAuth(srv), "profile", nil)
		require.NoError(t, err)
		_, err = client.Invoke(context.Background(), testAuth(srv), "broken", nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"profile:ok", "broken:api_error"}, observer.calls)
	})

	t.Run("honours context cancellation while rate limited", func(t *testing.T) {
		client, err := NewClient(&ClientConfig{Scheme: "http", RateLimit: 0.001, RateBurst: 1})
		require.NoError(t, err)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"result":true}`))
		}))
		defer srv.Close()

		_, err = client.Invoke(context.Background(), testAuth(srv), "profile", nil)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = client.Invoke(ctx, testAuth(srv), "profile", nil)
		require.Error(t, err)
		assert.False(t, errors.Is(err, portal.ErrUpstreamUnavailable))
	})

	t.Run("portals do not share a request budget", func(t *testing.T) {
		client, err := NewClient(&ClientConfig{Scheme: "http", RateLimit: 0.001, RateBurst: 1})
		require.NoError(t, err)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"result":true}`))
		}))
		defer srv.Close()

		first := testAuth(srv)
		second := portal.Auth{
			Domain:      strings.Replace(first.Domain, "127.0.0.1", "localhost", 1),
			AccessToken: first.AccessToken,
		}
		require.NotEqual(t, first.Domain, second.Domain)

		_, err = client.Invoke(context.Background(), first, "profile", nil)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err = client.Invoke(ctx, second, "profile", nil)
		require.NoError(t, err)

		ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = client.Invoke(ctx, first, "profile", nil)
		assert.ErrorContains(t, err, "rate limiter")

		assert.Same(t, client.limiterFor(first.Domain), client.limiterFor(strings.ToUpper(first.Domain)+"/"))
		assert.NotSame(t, client.limiterFor(first.Domain), client.limiterFor(second.Domain))
	})
}
