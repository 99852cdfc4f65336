package bitrix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

func TestProxyClient_Invoke(t *testing.T) {
	auth := portal.Auth{Domain: "example.bitrix24.ru", AccessToken: "token"}

	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		wantCode  string
		wantMsg   string
		wantTotal int
	}{
		{
			name:      "success passes the body through",
			status:    http.StatusOK,
			body:      `{"result":[{"ID":"1"}],"total":1}`,
			wantTotal: 1,
		},
		{
			name:     "bad gateway becomes an application error",
			status:   http.StatusBadGateway,
			body:     `{"error":"The access token provided has expired."}`,
			wantCode: UpstreamErrorCode,
			wantMsg:  "The access token provided has expired.",
		},
		{
			name:    "internal error is a transport failure",
			status:  http.StatusInternalServerError,
			body:    `{"error":"Failed to call Bitrix24 API."}`,
			wantErr: portal.ErrUpstreamUnavailable,
		},
		{
			name:    "bad request is a request failure",
			status:  http.StatusBadRequest,
			body:    `{"error":"Method, domain, and access_token are required."}`,
			wantErr: portal.ErrUpstreamRequestFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var call proxyCall
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/call", r.URL.Path)
				require.NoError(t, json.NewDecoder(r.Body).Decode(&call))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			session := NewSession(NewProxyClient(srv.URL+"/", nil), auth)
			resp, err := session.CallMethod(context.Background(), "crm.deal.list", portal.Params{"start": 0})

			assert.Equal(t, "crm.deal.list", call.Method)
			assert.Equal(t, auth, call.Auth)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantCode != "" {
				require.True(t, resp.Failed())
				assert.Equal(t, tt.wantCode, resp.Error.Code)
				assert.Equal(t, tt.wantMsg, resp.Error.Message())
				return
			}
			assert.Equal(t, tt.wantTotal, resp.Total)
			assert.Len(t, resp.Records(), 1)
		})
	}
}
