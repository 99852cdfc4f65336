package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

var secondsPerHour = decimal.NewFromInt(3600)

// UserTime is one row of the task time report; durations are in hours
type UserTime struct {
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Tasks     int             `json:"tasks"`
	Estimated decimal.Decimal `json:"estimated_hours"`
	Spent     decimal.Decimal `json:"spent_hours"`
}

// TaskTimeReport compares estimated and logged time per responsible user
type TaskTimeReport struct {
	Users          []UserTime      `json:"users"`
	TotalEstimated decimal.Decimal `json:"total_estimated_hours"`
	TotalSpent     decimal.Decimal `json:"total_spent_hours"`
}

// TaskTime fetches tasks and users concurrently and totals task time per user.
// Rows are ordered by logged time, highest first.
func (s *Service) TaskTime(ctx context.Context, sess portal.Session) (*TaskTimeReport, error) {
	var tasks, users []portal.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = s.Tasks(gctx, sess)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.Users(gctx, sess)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := make(map[string]string, len(users))
	for _, u := range users {
		names[fmt.Sprint(u["ID"])] = userName(u)
	}

	rows := make(map[string]*UserTime)
	report := &TaskTimeReport{TotalEstimated: decimal.Zero, TotalSpent: decimal.Zero}
	for _, task := range tasks {
		userID := fmt.Sprint(field(task, "responsibleId", "RESPONSIBLE_ID"))
		estimated, err := toDecimal(field(task, "timeEstimate", "TIME_ESTIMATE"))
		if err != nil {
			s.logger.Warn("Invalid task estimate", zap.Any("task_id", field(task, "id", "ID")), zap.Error(err))
			estimated = decimal.Zero
		}
		spent, err := toDecimal(field(task, "timeSpentInLogs", "TIME_SPENT_IN_LOGS"))
		if err != nil {
			s.logger.Warn("Invalid task time spent", zap.Any("task_id", field(task, "id", "ID")), zap.Error(err))
			spent = decimal.Zero
		}

		row, ok := rows[userID]
		if !ok {
			name, known := names[userID]
			if !known {
				name = "User " + userID
			}
			row = &UserTime{UserID: userID, Name: name, Estimated: decimal.Zero, Spent: decimal.Zero}
			rows[userID] = row
		}
		row.Tasks++
		row.Estimated = row.Estimated.Add(estimated)
		row.Spent = row.Spent.Add(spent)
	}

	report.Users = make([]UserTime, 0, len(rows))
	for _, row := range rows {
		row.Estimated = row.Estimated.Div(secondsPerHour).Round(2)
		row.Spent = row.Spent.Div(secondsPerHour).Round(2)
		report.TotalEstimated = report.TotalEstimated.Add(row.Estimated)
		report.TotalSpent = report.TotalSpent.Add(row.Spent)
		report.Users = append(report.Users, *row)
	}
	sort.Slice(report.Users, func(i, j int) bool {
		a, b := report.Users[i], report.Users[j]
		if cmp := a.Spent.Cmp(b.Spent); cmp != 0 {
			return cmp > 0
		}
		return lessID(a.UserID, b.UserID)
	})
	return report, nil
}

// field returns the first present value among the keys.
// Task lists use camelCase keys while selected fields are upper case.
func field(r portal.Record, keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			return v
		}
	}
	return nil
}

func userName(u portal.Record) string {
	var parts []string
	for _, k := range []string{"NAME", "LAST_NAME"} {
		if v, ok := u[k].(string); ok && v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		if email, ok := u["EMAIL"].(string); ok && email != "" {
			return email
		}
		return "User " + fmt.Sprint(u["ID"])
	}
	return strings.Join(parts, " ")
}
