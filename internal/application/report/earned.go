package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/application/entity"
	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

// WonStageID is the deal stage counted as earned money
const WonStageID = "WON"

// CompanyEarnings is one row of the earned money report
type CompanyEarnings struct {
	CompanyID string          `json:"company_id"`
	Title     string          `json:"title"`
	Deals     int             `json:"deals"`
	Earned    decimal.Decimal `json:"earned"`
}

// EarnedMoneyReport lists money earned per company over a period
type EarnedMoneyReport struct {
	From      time.Time         `json:"from"`
	To        time.Time         `json:"to"`
	Companies []CompanyEarnings `json:"companies"`
	Total     decimal.Decimal   `json:"total"`
}

// EarnedMoney sums the opportunity of won deals closed within the period for
// every company. Rows are ordered by earned amount, highest first.
func (s *Service) EarnedMoney(ctx context.Context, sess portal.Session, period Period) (*EarnedMoneyReport, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	companies, err := s.Companies(ctx, sess)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(companies))
	for _, c := range companies {
		ids = append(ids, fmt.Sprint(c["ID"]))
	}

	report := &EarnedMoneyReport{
		From:      period.From,
		To:        period.To,
		Companies: make([]CompanyEarnings, 0, len(companies)),
		Total:     decimal.Zero,
	}
	if len(ids) == 0 {
		return report, nil
	}

	deals, err := s.fetcher.FetchRelatedForMultiple(ctx, sess, "crm.deal", "COMPANY_ID", ids, entity.ListOptions{
		Select:       []string{"ID", "COMPANY_ID", "OPPORTUNITY", "STAGE_ID", "CLOSEDATE"},
		Filter:       period.Filter("CLOSEDATE", map[string]any{"STAGE_ID": WonStageID}),
		DisableBatch: s.disableBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}

	for i, c := range companies {
		row := CompanyEarnings{
			CompanyID: ids[i],
			Title:     fmt.Sprint(c["TITLE"]),
			Earned:    decimal.Zero,
		}
		for _, deal := range deals[row.CompanyID] {
			amount, err := toDecimal(deal["OPPORTUNITY"])
			if err != nil {
				s.logger.Warn("Skipping deal with invalid opportunity",
					zap.Any("deal_id", deal["ID"]),
					zap.Error(err),
				)
				continue
			}
			row.Earned = row.Earned.Add(amount)
			row.Deals++
		}
		report.Total = report.Total.Add(row.Earned)
		report.Companies = append(report.Companies, row)
	}

	sort.SliceStable(report.Companies, func(i, j int) bool {
		a, b := report.Companies[i], report.Companies[j]
		if cmp := a.Earned.Cmp(b.Earned); cmp != 0 {
			return cmp > 0
		}
		return lessID(a.CompanyID, b.CompanyID)
	})
	return report, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, nil
	case string:
		if t == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(t)
	case json.Number:
		return decimal.NewFromString(t.String())
	case float64:
		return decimal.NewFromFloat(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	default:
		return decimal.NewFromString(fmt.Sprint(t))
	}
}

// lessID orders numeric identifiers numerically and others lexically
func lessID(a, b string) bool {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA == nil && errB == nil {
		return da.LessThan(db)
	}
	return a < b
}
