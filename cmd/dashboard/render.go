package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/application/report"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

// Output formats
const (
	formatTable = "table"
	formatJSON  = "json"
)

// renderer writes command results as an aligned table or as JSON
type renderer struct {
	out    io.Writer
	format string
}

func newRenderer(out io.Writer, format string) (*renderer, error) {
	switch format {
	case formatTable, formatJSON:
		return &renderer{out: out, format: format}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use table or json)", format)
	}
}

func (r *renderer) json(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *renderer) table(header []string, rows [][]string) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

// records renders entity records using the given columns
func (r *renderer) records(columns []string, records []portal.Record) error {
	if r.format == formatJSON {
		if records == nil {
			records = []portal.Record{}
		}
		return r.json(records)
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = cell(rec, col)
		}
		rows = append(rows, row)
	}
	return r.table(columns, rows)
}

func (r *renderer) earned(rep *report.EarnedMoneyReport) error {
	if r.format == formatJSON {
		return r.json(rep)
	}
	rows := make([][]string, 0, len(rep.Companies)+1)
	for _, c := range rep.Companies {
		rows = append(rows, []string{c.CompanyID, c.Title, fmt.Sprint(c.Deals), money(c.Earned)})
	}
	rows = append(rows, []string{"", "TOTAL", "", money(rep.Total)})
	return r.table([]string{"ID", "COMPANY", "DEALS", "EARNED"}, rows)
}

func (r *renderer) taskTime(rep *report.TaskTimeReport) error {
	if r.format == formatJSON {
		return r.json(rep)
	}
	rows := make([][]string, 0, len(rep.Users)+1)
	for _, u := range rep.Users {
		rows = append(rows, []string{u.UserID, u.Name, fmt.Sprint(u.Tasks), money(u.Estimated), money(u.Spent)})
	}
	rows = append(rows, []string{"", "TOTAL", "", money(rep.TotalEstimated), money(rep.TotalSpent)})
	return r.table([]string{"ID", "USER", "TASKS", "ESTIMATED_H", "SPENT_H"}, rows)
}

func (r *renderer) summary(snap *report.Snapshot) error {
	counts := map[string]int{
		"companies": len(snap.Companies),
		"deals":     len(snap.Deals),
		"tasks":     len(snap.Tasks),
		"users":     len(snap.Users),
	}
	if r.format == formatJSON {
		return r.json(counts)
	}
	return r.table([]string{"ENTITY", "COUNT"}, [][]string{
		{"companies", fmt.Sprint(counts["companies"])},
		{"deals", fmt.Sprint(counts["deals"])},
		{"tasks", fmt.Sprint(counts["tasks"])},
		{"users", fmt.Sprint(counts["users"])},
	})
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// cell returns the printable value of a column. Task records use camelCase keys,
// so a column also matches a key that differs only in case and underscores.
func cell(rec portal.Record, column string) string {
	v, ok := rec[column]
	if !ok {
		want := normalizeKey(column)
		for k, val := range rec {
			if normalizeKey(k) == want {
				v, ok = val, true
				break
			}
		}
	}
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.ReplaceAll(k, "_", ""))
}
