package fixture

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

// predicate reports whether a record passes one filter condition
type predicate func(portal.Record) bool

// compileFilter turns a portal filter into predicates.
//
// Supported keys:
//
//	FIELD      exact match, or membership when the value is a list
//	=FIELD     same as FIELD
//	!FIELD     negation of FIELD
//	>=FIELD    FIELD at or after the boundary
//	<=FIELD    FIELD at or before the boundary
//	>FIELD     FIELD after the boundary
//	<FIELD     FIELD before the boundary
func compileFilter(filter map[string]any) []predicate {
	preds := make([]predicate, 0, len(filter))
	for key, want := range filter {
		preds = append(preds, compileCondition(key, want))
	}
	return preds
}

func compileCondition(key string, want any) predicate {
	for _, op := range []string{">=", "<=", ">", "<", "!=", "!", "="} {
		if !strings.HasPrefix(key, op) {
			continue
		}
		field := strings.TrimPrefix(key, op)
		switch op {
		case "=":
			return matchValue(field, want)
		case "!", "!=":
			match := matchValue(field, want)
			return func(r portal.Record) bool { return !match(r) }
		default:
			return compareValue(field, op, want)
		}
	}
	return matchValue(key, want)
}

func matchValue(field string, want any) predicate {
	if list, ok := asList(want); ok {
		set := make(map[string]struct{}, len(list))
		for _, v := range list {
			set[stringify(v)] = struct{}{}
		}
		return func(r portal.Record) bool {
			_, ok := set[stringify(r[field])]
			return ok
		}
	}
	target := stringify(want)
	return func(r portal.Record) bool {
		return stringify(r[field]) == target
	}
}

func compareValue(field, op string, boundary any) predicate {
	bound := stringify(boundary)
	return func(r portal.Record) bool {
		value := stringify(r[field])
		if value == "" {
			return false
		}
		cmp, ok := compare(value, bound)
		if !ok {
			return false
		}
		switch op {
		case ">=":
			return cmp >= 0
		case "<=":
			return cmp <= 0
		case ">":
			return cmp > 0
		default:
			return cmp < 0
		}
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compare orders two values as dates, then as numbers, then as strings
func compare(a, b string) (int, bool) {
	if ta, ok := parseDate(a); ok {
		tb, ok := parseDate(b)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	if fa, err := strconv.ParseFloat(a, 64); err == nil {
		fb, err := strconv.ParseFloat(b, 64)
		if err != nil {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	return strings.Compare(a, b), true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func asList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func applyFilter(records []portal.Record, filter map[string]any) []portal.Record {
	preds := compileFilter(filter)
	out := make([]portal.Record, 0, len(records))
	for _, r := range records {
		keep := true
		for _, p := range preds {
			if !p(r) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}
