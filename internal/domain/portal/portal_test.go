package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuth_Validate(t *testing.T) {
	tests := []struct {
		name    string
		auth    Auth
		wantErr error
	}{
		{name: "valid", auth: Auth{Domain: "acme.bitrix24.ru", AccessToken: "token"}},
		{name: "missing domain", auth: Auth{AccessToken: "token"}, wantErr: ErrMissingDomain},
		{name: "missing token", auth: Auth{Domain: "acme.bitrix24.ru"}, wantErr: ErrMissingAccessToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.auth.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParams_WithCursor(t *testing.T) {
	params := Params{"filter": map[string]any{"ID": "1"}}

	next := params.WithCursor(NextCursor(50))

	assert.Equal(t, 50, next["start"])
	assert.NotContains(t, params, "start", "original params must not be modified")
	assert.Equal(t, params["filter"], next["filter"])
}

func TestCursor(t *testing.T) {
	var end Cursor
	assert.False(t, end.More())
	assert.Equal(t, "end", end.String())

	c := NextCursor(100)
	assert.True(t, c.More())
	assert.Equal(t, 100, c.Start())
	assert.Equal(t, "100", c.String())
}

func TestAPIError_Message(t *testing.T) {
	assert.Equal(t, "Access denied", (&APIError{Code: "ACCESS_DENIED", Description: "Access denied"}).Message())
	assert.Equal(t, "ACCESS_DENIED", (&APIError{Code: "ACCESS_DENIED"}).Message())
	assert.Equal(t, "Bitrix24 API error", (&APIError{}).Message())
	assert.Equal(t, "portal: ACCESS_DENIED: Access denied", (&APIError{Code: "ACCESS_DENIED", Description: "Access denied"}).Error())
}

func TestToRecords(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		records := ToRecords([]any{map[string]any{"ID": "1"}, map[string]any{"ID": "2"}})
		assert.Len(t, records, 2)
		assert.Equal(t, "2", records[1]["ID"])
	})

	t.Run("single object becomes one element", func(t *testing.T) {
		records := ToRecords(map[string]any{"ID": "7"})
		assert.Equal(t, []Record{{"ID": "7"}}, records)
	})

	t.Run("nil yields empty collection", func(t *testing.T) {
		records := ToRecords(nil)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("scalar is wrapped", func(t *testing.T) {
		records := ToRecords(true)
		assert.Equal(t, []Record{{"value": true}}, records)
	})
}

func TestBatchRequest_Keys(t *testing.T) {
	var req BatchRequest
	req = req.Add("b", "crm.deal.list", nil).Add("a", "crm.deal.list", nil)
	assert.Equal(t, []string{"b", "a"}, req.Keys())
}
