package dto

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

// ErrParamsNotObject is returned when params is neither an object nor empty
var ErrParamsNotObject = errors.New("params must be a JSON object")

// CallRequest is the body of a proxied portal call
type CallRequest struct {
	Method string     `json:"method" binding:"required,portal_method"`
	Params CallParams `json:"params"`
	Auth   *CallAuth  `json:"auth" binding:"required"`
}

// CallParams are the method parameters of a proxied call.
// Clients serialising an empty map as [] or null get an empty object.
type CallParams map[string]any

func (p *CallParams) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil || len(list) > 0 {
			return ErrParamsNotObject
		}
		*p = CallParams{}
		return nil
	}
	if len(data) == 0 || data[0] != '{' {
		return ErrParamsNotObject
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*p = m
	return nil
}

// CallAuth carries the credentials of the portal session making the call
type CallAuth struct {
	Domain      string `json:"domain" binding:"required,portal_domain"`
	AccessToken string `json:"access_token" binding:"required"`
	MemberID    string `json:"member_id,omitempty"`
}

// PortalAuth converts the credentials to the domain type
func (a *CallAuth) PortalAuth() portal.Auth {
	if a == nil {
		return portal.Auth{}
	}
	return portal.Auth{
		Domain:      a.Domain,
		AccessToken: a.AccessToken,
		MemberID:    a.MemberID,
	}
}

// PortalParams returns the call parameters, never nil
func (r *CallRequest) PortalParams() portal.Params {
	if r.Params == nil {
		return portal.Params{}
	}
	return portal.Params(r.Params)
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
	Uptime string `json:"uptime"`
}
