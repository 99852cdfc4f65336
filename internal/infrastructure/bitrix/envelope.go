package bitrix

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

// Envelope is the decoded body of one portal REST response
type Envelope struct {
	// Raw is the body exactly as received
	Raw json.RawMessage

	Result           json.RawMessage
	Total            *int
	Next             *int
	Error            string
	ErrorDescription string
}

// wireEnvelope keeps every top-level field raw; portals are not consistent
// about the JSON types of total, next and error.
type wireEnvelope struct {
	Result           json.RawMessage `json:"result"`
	Total            json.RawMessage `json:"total"`
	Next             json.RawMessage `json:"next"`
	Error            json.RawMessage `json:"error"`
	ErrorDescription json.RawMessage `json:"error_description"`
}

// decodeEnvelope parses a response body.
// A body that is valid JSON but not an object is taken as the result itself.
func decodeEnvelope(body []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return nil, errors.New("body is not valid JSON")
	}
	env := &Envelope{Raw: append(json.RawMessage(nil), body...)}
	if trimmed[0] != '{' {
		env.Result = append(json.RawMessage(nil), trimmed...)
		return env, nil
	}

	var wire wireEnvelope
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, err
	}
	env.Result = wire.Result
	env.Total = intValue(wire.Total)
	env.Next = intValue(wire.Next)
	env.Error = textValue(wire.Error)
	env.ErrorDescription = textValue(wire.ErrorDescription)
	return env, nil
}

// textValue renders a scalar or structured value as text; null, false and "" are empty
func textValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("false")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// APIError returns the application error carried by the body, or nil
func (e *Envelope) APIError() *portal.APIError {
	if e.Error == "" {
		return nil
	}
	return &portal.APIError{Code: e.Error, Description: e.ErrorDescription}
}

// Response converts the envelope into a portal response page
func (e *Envelope) Response() (*portal.Response, error) {
	if apiErr := e.APIError(); apiErr != nil {
		return &portal.Response{Error: apiErr}, nil
	}
	data, err := decodeResult(e.Result)
	if err != nil {
		return nil, err
	}
	return newResponse(data, e.Total, e.Next), nil
}

func newResponse(data any, total, next *int) *portal.Response {
	resp := &portal.Response{Data: unwrapList(data)}
	if total != nil {
		resp.Total = *total
		resp.HasTotal = true
	}
	if next != nil {
		resp.Next = portal.NextCursor(*next)
	}
	return resp
}

// decodeResult decodes a result payload keeping numbers as json.Number
func decodeResult(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: failed to parse result: %v", portal.ErrInvalidResponse, err)
	}
	return data, nil
}

// listWrappers are the keys some list methods wrap their records in
// (tasks.task.list answers {"tasks": [...]}, crm.item.list answers {"items": [...]}).
var listWrappers = []string{"tasks", "items"}

func unwrapList(data any) any {
	m, ok := data.(map[string]any)
	if !ok || len(m) != 1 {
		return data
	}
	for _, key := range listWrappers {
		if list, ok := m[key].([]any); ok {
			return list
		}
	}
	return data
}

// keyedPayload decodes a JSON object keyed by command key.
// The portal encodes an empty object as [] and a list-shaped object as an array.
type keyedPayload map[string]json.RawMessage

func (k *keyedPayload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*k = keyedPayload{}
		return nil
	}
	if data[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		out := make(keyedPayload, len(list))
		for i, item := range list {
			out[strconv.Itoa(i)] = item
		}
		*k = out
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*k = m
	return nil
}

// batchPayload is the result of the portal's batch method
type batchPayload struct {
	Result      keyedPayload `json:"result"`
	ResultError keyedPayload `json:"result_error"`
	ResultTotal keyedPayload `json:"result_total"`
	ResultNext  keyedPayload `json:"result_next"`
}

// intValue decodes an optional integer, tolerating quoted numbers
func intValue(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		n = json.Number(s)
	}
	v, err := n.Int64()
	if err != nil {
		return nil
	}
	i := int(v)
	return &i
}

// responses converts the batch payload into per-key responses for the commands
// that were executed. Commands skipped after a halting error are absent.
func (b *batchPayload) responses(req portal.BatchRequest) (portal.BatchResult, error) {
	out := make(portal.BatchResult, len(req))
	for _, cmd := range req {
		if raw, ok := b.ResultError[cmd.Key]; ok {
			apiErr := &portal.APIError{}
			if err := json.Unmarshal(raw, apiErr); err != nil {
				apiErr.Code = string(raw)
			}
			out[cmd.Key] = &portal.Response{Error: apiErr}
			continue
		}
		raw, ok := b.Result[cmd.Key]
		if !ok {
			continue
		}
		data, err := decodeResult(raw)
		if err != nil {
			return nil, err
		}
		out[cmd.Key] = newResponse(data, intValue(b.ResultTotal[cmd.Key]), intValue(b.ResultNext[cmd.Key]))
	}
	return out, nil
}
