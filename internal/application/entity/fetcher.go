// Package entity fetches complete entity collections from a portal, hiding
// pagination and batching behind a few calls.
package entity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

// Page is the outcome of a single-call fetch
type Page struct {
	Records []portal.Record
	// Total is the count declared by the portal, or the number of records when none was declared
	Total int
}

// CallError is returned when the portal reports an application error for a call
type CallError struct {
	Method string
	Err    *portal.APIError
}

func (e *CallError) Error() string {
	return e.Err.Message()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// ListOptions shapes a list request
type ListOptions struct {
	Select       []string
	Filter       map[string]any
	Order        map[string]string
	DisableBatch bool
}

// Fetcher aggregates paged results. It holds no session; callers pass one per call.
type Fetcher struct {
	logger *zap.Logger
}

// NewFetcher creates a Fetcher
func NewFetcher(logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{logger: logger}
}

// Call invokes a method once, or page by page until the portal reports no
// further pages when autoPaginate is set.
func (f *Fetcher) Call(ctx context.Context, s portal.Session, method string, params portal.Params, autoPaginate bool) (*Page, error) {
	if s == nil {
		return nil, portal.ErrNoSession
	}

	var records []portal.Record
	current := params
	position := -1
	for {
		resp, err := s.CallMethod(ctx, method, current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}
		if resp.Failed() {
			f.logger.Error("Portal call failed",
				zap.String("method", method),
				zap.String("error", resp.Error.Code),
				zap.String("description", resp.Error.Description),
			)
			return nil, &CallError{Method: method, Err: resp.Error}
		}
		records = append(records, resp.Records()...)

		next := resp.Next
		if !autoPaginate || !next.More() || next.Start() <= position {
			total := len(records)
			if resp.HasTotal {
				total = resp.Total
			}
			if records == nil {
				records = []portal.Record{}
			}
			return &Page{Records: records, Total: total}, nil
		}
		position = next.Start()
		current = params.WithCursor(next)
	}
}

// CallBatched fetches the first page to learn the total, then requests every
// remaining page in batches. Pages are concatenated in ascending offset order.
// A failing follow-up page contributes no records.
func (f *Fetcher) CallBatched(ctx context.Context, s portal.Session, method string, params portal.Params) ([]portal.Record, error) {
	first, err := f.Call(ctx, s, method, params, false)
	if err != nil {
		return nil, err
	}
	if first.Total == 0 || first.Total <= portal.DefaultPageSize {
		return first.Records, nil
	}

	var req portal.BatchRequest
	for start := portal.DefaultPageSize; start < first.Total; start += portal.DefaultPageSize {
		req = req.Add(pageKey(method, start), method, params.WithCursor(portal.NextCursor(start)))
	}

	pages, err := f.ExecuteBatch(ctx, s, req)
	if err != nil {
		return nil, err
	}

	records := make([]portal.Record, 0, first.Total)
	records = append(records, first.Records...)
	for _, key := range req.Keys() {
		records = append(records, pages[key]...)
	}
	return records, nil
}

func pageKey(method string, start int) string {
	return fmt.Sprintf("%s_%d", method, start)
}

// ExecuteBatch runs the commands without halting, splitting them into batches
// the portal accepts. Failed commands map to empty collections.
func (f *Fetcher) ExecuteBatch(ctx context.Context, s portal.Session, req portal.BatchRequest) (map[string][]portal.Record, error) {
	if s == nil {
		return nil, portal.ErrNoSession
	}

	out := make(map[string][]portal.Record, len(req))
	for offset := 0; offset < len(req); offset += portal.MaxBatchCommands {
		end := min(offset+portal.MaxBatchCommands, len(req))
		chunk := req[offset:end]

		result, err := s.CallBatch(ctx, chunk, false)
		if err != nil {
			return nil, fmt.Errorf("batch: %w", err)
		}

		for _, cmd := range chunk {
			resp, ok := result[cmd.Key]
			switch {
			case !ok:
				f.logger.Warn("Batch command returned no result", zap.String("key", cmd.Key))
				out[cmd.Key] = []portal.Record{}
			case resp.Failed():
				f.logger.Warn("Batch command failed",
					zap.String("key", cmd.Key),
					zap.String("error", resp.Error.Code),
					zap.String("description", resp.Error.Description),
				)
				out[cmd.Key] = []portal.Record{}
			default:
				out[cmd.Key] = resp.Records()
			}
		}
	}
	return out, nil
}

// FetchEntities lists every record of an entity type (crm.company, crm.deal, ...).
// When the batched path fails it falls back to sequential paging.
func (f *Fetcher) FetchEntities(ctx context.Context, s portal.Session, entityType string, opts ListOptions) ([]portal.Record, error) {
	method := entityType + ".list"
	params := listParams(opts)

	if !opts.DisableBatch {
		records, err := f.CallBatched(ctx, s, method, params)
		if err == nil {
			return records, nil
		}
		f.logger.Warn("Batched fetch failed, falling back to sequential paging",
			zap.String("method", method),
			zap.Error(err),
		)
	}

	page, err := f.Call(ctx, s, method, params, true)
	if err != nil {
		return nil, err
	}
	return page.Records, nil
}

func listParams(opts ListOptions) portal.Params {
	sel := opts.Select
	if sel == nil {
		sel = []string{}
	}
	filter := make(map[string]any, len(opts.Filter))
	for k, v := range opts.Filter {
		filter[k] = v
	}
	order := make(map[string]string, len(opts.Order))
	for k, v := range opts.Order {
		order[k] = v
	}
	return portal.Params{
		"select": sel,
		"filter": filter,
		"order":  order,
	}
}

// FetchRelated lists the records of entityType whose parentField equals parentID
func (f *Fetcher) FetchRelated(ctx context.Context, s portal.Session, entityType, parentField string, parentID any, opts ListOptions) ([]portal.Record, error) {
	opts.Filter = withCondition(opts.Filter, parentField, parentID)
	return f.FetchEntities(ctx, s, entityType, opts)
}

// FetchRelatedForMultiple lists related records for several parents with one
// listing and groups them by parent. Every requested parent is present in the
// result; records of other parents are dropped.
func (f *Fetcher) FetchRelatedForMultiple(ctx context.Context, s portal.Session, entityType, parentField string, parentIDs []string, opts ListOptions) (map[string][]portal.Record, error) {
	opts.Filter = withCondition(opts.Filter, parentField, parentIDs)
	records, err := f.FetchEntities(ctx, s, entityType, opts)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]portal.Record, len(parentIDs))
	for _, id := range parentIDs {
		grouped[id] = []portal.Record{}
	}
	for _, r := range records {
		id := fmt.Sprint(r[parentField])
		if group, ok := grouped[id]; ok {
			grouped[id] = append(group, r)
		}
	}
	return grouped, nil
}

func withCondition(filter map[string]any, field string, value any) map[string]any {
	out := make(map[string]any, len(filter)+1)
	for k, v := range filter {
		out[k] = v
	}
	out[field] = value
	return out
}
