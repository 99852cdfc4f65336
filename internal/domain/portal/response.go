package portal

import "strconv"

// DefaultPageSize is the number of records the portal returns per list page
const DefaultPageSize = 50

// MaxBatchCommands is the maximum number of commands the portal accepts in one batch call
const MaxBatchCommands = 50

// Params holds method parameters
type Params map[string]any

// Clone returns a shallow copy of the parameters
func (p Params) Clone() Params {
	out := make(Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// WithCursor returns a copy of the parameters positioned at the cursor's page
func (p Params) WithCursor(c Cursor) Params {
	out := p.Clone()
	out["start"] = c.start
	return out
}

// Record is an opaque entity record returned by the portal
type Record map[string]any

// Cursor is the continuation of a paged listing.
// The zero value means there are no further pages.
type Cursor struct {
	start int
	more  bool
}

// NextCursor returns a cursor pointing at the page starting at the given offset
func NextCursor(start int) Cursor {
	return Cursor{start: start, more: true}
}

// More reports whether another page is available
func (c Cursor) More() bool {
	return c.more
}

// Start returns the offset of the next page
func (c Cursor) Start() int {
	return c.start
}

func (c Cursor) String() string {
	if !c.more {
		return "end"
	}
	return strconv.Itoa(c.start)
}

// APIError is an application error reported inside a portal response body
type APIError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// genericErrorMessage is used when the portal reports an error without any detail
const genericErrorMessage = "Bitrix24 API error"

// Message returns the most descriptive text available for the error
func (e *APIError) Message() string {
	if e.Description != "" {
		return e.Description
	}
	if e.Code != "" {
		return e.Code
	}
	return genericErrorMessage
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return "portal: " + e.Message()
	}
	return "portal: " + e.Code + ": " + e.Message()
}

// Response is one page of a single method call
type Response struct {
	Data     any
	Error    *APIError
	Total    int
	HasTotal bool
	Next     Cursor
}

// Failed reports whether the response carries an application error
func (r *Response) Failed() bool {
	return r != nil && r.Error != nil
}

// Records normalizes the response payload into a collection of records.
// A list yields one record per element; a single object yields a one-element collection.
func (r *Response) Records() []Record {
	if r == nil {
		return nil
	}
	return ToRecords(r.Data)
}

// ToRecords converts a decoded JSON payload into records
func ToRecords(data any) []Record {
	switch v := data.(type) {
	case nil:
		return []Record{}
	case []Record:
		return v
	case Record:
		return []Record{v}
	case []map[string]any:
		out := make([]Record, 0, len(v))
		for _, m := range v {
			out = append(out, Record(m))
		}
		return out
	case map[string]any:
		return []Record{Record(v)}
	case []any:
		out := make([]Record, 0, len(v))
		for _, item := range v {
			switch m := item.(type) {
			case map[string]any:
				out = append(out, Record(m))
			case Record:
				out = append(out, m)
			default:
				out = append(out, Record{"value": item})
			}
		}
		return out
	default:
		return []Record{{"value": v}}
	}
}
