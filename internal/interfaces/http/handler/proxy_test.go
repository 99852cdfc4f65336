package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/infrastructure/bitrix"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

type fakeInvoker struct {
	calls  int
	auth   portal.Auth
	method string
	params portal.Params
	env    *bitrix.Envelope
	err    error
}

func (f *fakeInvoker) Invoke(_ context.Context, auth portal.Auth, method string, params portal.Params) (*bitrix.Envelope, error) {
	f.calls++
	f.auth, f.method, f.params = auth, method, params
	return f.env, f.err
}

func newProxyRouter(inv bitrix.Invoker, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("logger", log)
		c.Next()
	})
	r.POST("/api/call", NewProxyHandler(inv).Call)
	return r
}

func postCall(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/call", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestProxyHandler_Call_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing method", `{"auth":{"domain":"a.bitrix24.ru","access_token":"t"}}`},
		{"missing auth", `{"method":"profile"}`},
		{"missing domain", `{"method":"profile","auth":{"access_token":"t"}}`},
		{"missing token", `{"method":"profile","auth":{"domain":"a.bitrix24.ru"}}`},
		{"domain with path", `{"method":"profile","auth":{"domain":"evil.com/x?","access_token":"t"}}`},
		{"method with path", `{"method":"../profile","auth":{"domain":"a.bitrix24.ru","access_token":"t"}}`},
		{"malformed body", `{"method":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &fakeInvoker{}
			w := postCall(newProxyRouter(inv, zap.NewNop()), tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Method, domain, and access_token are required.", errorBody(t, w))
			assert.Zero(t, inv.calls)
		})
	}
}

func TestProxyHandler_Call_Success(t *testing.T) {
	raw := `{"result":[{"ID":"1"}],"total":1,"time":{"start":1}}`
	inv := &fakeInvoker{env: &bitrix.Envelope{Raw: json.RawMessage(raw)}}

	w := postCall(newProxyRouter(inv, zap.NewNop()),
		`{"method":"crm.deal.list","params":{"filter":{"COMPANY_ID":"1"}},"auth":{"domain":"a.bitrix24.ru","access_token":"t","member_id":"m"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, raw, w.Body.String())
	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, "crm.deal.list", inv.method)
	assert.Equal(t, portal.Auth{Domain: "a.bitrix24.ru", AccessToken: "t", MemberID: "m"}, inv.auth)
	assert.Equal(t, map[string]any{"COMPANY_ID": "1"}, inv.params["filter"])
}

func TestProxyHandler_Call_UpstreamError(t *testing.T) {
	tests := []struct {
		name    string
		env     *bitrix.Envelope
		message string
	}{
		{
			name:    "description is relayed",
			env:     &bitrix.Envelope{Error: "expired_token", ErrorDescription: "The access token provided has expired."},
			message: "The access token provided has expired.",
		},
		{
			name:    "code when no description",
			env:     &bitrix.Envelope{Error: "ERROR_METHOD_NOT_FOUND"},
			message: "ERROR_METHOD_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			w := postCall(newProxyRouter(&fakeInvoker{env: tt.env}, zap.New(core)),
				`{"method":"profile","auth":{"domain":"a.bitrix24.ru","access_token":"t"}}`)

			assert.Equal(t, http.StatusBadGateway, w.Code)
			assert.Equal(t, tt.message, errorBody(t, w))

			entries := logs.FilterMessage("Bitrix24 API error").All()
			require.Len(t, entries, 1)
			assert.Equal(t, "a.bitrix24.ru", entries[0].ContextMap()["portal_domain"])
			assert.Equal(t, "profile", entries[0].ContextMap()["bitrix_method"])
		})
	}
}

func TestProxyHandler_Call_TransportError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	inv := &fakeInvoker{err: portal.ErrUpstreamUnavailable}

	w := postCall(newProxyRouter(inv, zap.New(core)),
		`{"method":"profile","auth":{"domain":"a.bitrix24.ru","access_token":"t"}}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to call Bitrix24 API.", errorBody(t, w))
	assert.NotContains(t, w.Body.String(), "unavailable")
	assert.Equal(t, 1, logs.FilterMessage("API call failed").Len())
}

func TestProxyHandler_Call_Params(t *testing.T) {
	t.Run("empty list and null are empty params", func(t *testing.T) {
		for _, params := range []string{`[]`, `null`, `{}`} {
			inv := &fakeInvoker{env: &bitrix.Envelope{Raw: json.RawMessage(`{"result":true}`)}}
			w := postCall(newProxyRouter(inv, zap.NewNop()),
				`{"method":"profile","params":`+params+`,"auth":{"domain":"a.bitrix24.ru","access_token":"t"}}`)

			assert.Equal(t, http.StatusOK, w.Code, params)
			assert.Equal(t, 1, inv.calls, params)
			assert.NotNil(t, inv.params, params)
			assert.Empty(t, inv.params, params)
		}
	})

	t.Run("other shapes are rejected", func(t *testing.T) {
		for _, params := range []string{`[1]`, `"x"`, `42`} {
			inv := &fakeInvoker{}
			w := postCall(newProxyRouter(inv, zap.NewNop()),
				`{"method":"profile","params":`+params+`,"auth":{"domain":"a.bitrix24.ru","access_token":"t"}}`)

			assert.Equal(t, http.StatusBadRequest, w.Code, params)
			assert.Equal(t, "params must be a JSON object.", errorBody(t, w), params)
			assert.Zero(t, inv.calls, params)
		}
	})
}

func TestProxyHandler_Call_PortalBodies(t *testing.T) {
	tests := []struct {
		name    string
		portal  string
		code    int
		message string
	}{
		{name: "numeric error code", portal: `{"error":401,"error_description":"Unauthorized"}`, code: http.StatusBadGateway, message: "Unauthorized"},
		{name: "object error", portal: `{"error":{"code":"X"}}`, code: http.StatusBadGateway, message: `{"code":"X"}`},
		{name: "quoted total", portal: `{"result":[{"ID":"1"}],"total":"1"}`, code: http.StatusOK},
		{name: "top level array", portal: `[{"ID":"1"},{"ID":"2"}]`, code: http.StatusOK},
		{name: "null error", portal: `{"result":true,"error":null}`, code: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.portal))
			}))
			defer srv.Close()

			client, err := bitrix.NewClient(&bitrix.ClientConfig{Scheme: "http"})
			require.NoError(t, err)
			domain := strings.TrimPrefix(srv.URL, "http://")

			w := postCall(newProxyRouter(client, zap.NewNop()),
				`{"method":"profile","auth":{"domain":"`+domain+`","access_token":"t"}}`)

			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, tt.portal, w.Body.String())
				return
			}
			assert.Equal(t, tt.message, errorBody(t, w))
		})
	}
}
