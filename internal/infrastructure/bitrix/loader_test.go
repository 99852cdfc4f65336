package bitrix

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

func TestLoader_Load(t *testing.T) {
	t.Run("probes the portal once", func(t *testing.T) {
		var probes atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rest/profile", r.URL.Path)
			probes.Add(1)
			_, _ = w.Write([]byte(`{"result":{"ID":"1","ADMIN":true}}`))
		}))
		defer srv.Close()

		loader := NewDirectLoader(newTestClient(t), testAuth(srv), DefaultProbeMethod, nil)
		session, err := loader.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "token-123", session.Auth().AccessToken)
		assert.Equal(t, int32(1), probes.Load())
	})

	t.Run("rejected credentials fail the load", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_token","error_description":"The access token provided is invalid."}`))
		}))
		defer srv.Close()

		_, err := NewDirectLoader(newTestClient(t), testAuth(srv), DefaultProbeMethod, nil).Load(context.Background())
		require.Error(t, err)
		var apiErr *portal.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "invalid_token", apiErr.Code)
	})

	t.Run("empty probe skips the call", func(t *testing.T) {
		loader := NewProxyLoader(NewProxyClient("http://127.0.0.1:1", nil), portal.Auth{Domain: "d", AccessToken: "t"}, "", nil)
		session, err := loader.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "d", session.Auth().Domain)
	})

	t.Run("missing credentials", func(t *testing.T) {
		_, err := NewDirectLoader(newTestClient(t), portal.Auth{Domain: "d"}, "", nil).Load(context.Background())
		assert.ErrorIs(t, err, portal.ErrMissingAccessToken)
	})
}
