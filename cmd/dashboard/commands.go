package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/application/report"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List companies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.portalSession(cmd.Context())
		if err != nil {
			return err
		}
		records, err := current.reports.Companies(cmd.Context(), sess)
		if err != nil {
			return err
		}
		return current.render.records([]string{"ID", "TITLE", "DATE_CREATE"}, records)
	},
}

var dealsCmd = &cobra.Command{
	Use:   "deals",
	Short: "List deals, optionally of one company and closed within a period",
	Args:  cobra.NoArgs,
	RunE:  runDeals,
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.portalSession(cmd.Context())
		if err != nil {
			return err
		}
		records, err := current.reports.Tasks(cmd.Context(), sess)
		if err != nil {
			return err
		}
		return current.render.records([]string{"ID", "TITLE", "RESPONSIBLE_ID", "TIME_ESTIMATE", "TIME_SPENT_IN_LOGS"}, records)
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List portal users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.portalSession(cmd.Context())
		if err != nil {
			return err
		}
		records, err := current.reports.Users(cmd.Context(), sess)
		if err != nil {
			return err
		}
		return current.render.records([]string{"ID", "NAME", "LAST_NAME", "EMAIL"}, records)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Count companies, deals, tasks and users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.portalSession(cmd.Context())
		if err != nil {
			return err
		}
		snap, err := current.reports.Snapshot(cmd.Context(), sess)
		if err != nil {
			return err
		}
		return current.render.summary(snap)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build dashboard reports",
}

var reportEarnedCmd = &cobra.Command{
	Use:   "earned",
	Short: "Money earned per company from won deals closed within a period",
	Args:  cobra.NoArgs,
	RunE:  runReportEarned,
}

var reportTasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Estimated and logged task time per responsible user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.portalSession(cmd.Context())
		if err != nil {
			return err
		}
		rep, err := current.reports.TaskTime(cmd.Context(), sess)
		if err != nil {
			return err
		}
		return current.render.taskTime(rep)
	},
}

func init() {
	dealsCmd.Flags().String("company", "", "Company ID")
	dealsCmd.Flags().String("from", "", "First close date, YYYY-MM-DD")
	dealsCmd.Flags().String("to", "", "Last close date, YYYY-MM-DD")

	reportEarnedCmd.Flags().String("from", "", "First close date, YYYY-MM-DD")
	reportEarnedCmd.Flags().String("to", "", "Last close date, YYYY-MM-DD")

	reportCmd.AddCommand(reportEarnedCmd)
	reportCmd.AddCommand(reportTasksCmd)

	rootCmd.AddCommand(companiesCmd)
	rootCmd.AddCommand(dealsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(reportCmd)
}

func runDeals(cmd *cobra.Command, args []string) error {
	period, err := periodFlags(cmd)
	if err != nil {
		return err
	}
	companyID, _ := cmd.Flags().GetString("company")

	sess, err := current.portalSession(cmd.Context())
	if err != nil {
		return err
	}
	records, err := current.reports.Deals(cmd.Context(), sess, report.DealQuery{CompanyID: companyID, Closed: period})
	if err != nil {
		return err
	}
	return current.render.records([]string{"ID", "TITLE", "COMPANY_ID", "STAGE_ID", "OPPORTUNITY", "CLOSEDATE"}, records)
}

func runReportEarned(cmd *cobra.Command, args []string) error {
	period, err := periodFlags(cmd)
	if err != nil {
		return err
	}

	sess, err := current.portalSession(cmd.Context())
	if err != nil {
		return err
	}
	rep, err := current.reports.EarnedMoney(cmd.Context(), sess, period)
	if err != nil {
		return err
	}
	return current.render.earned(rep)
}

// periodFlags reads --from and --to as local calendar days; either may be empty
func periodFlags(cmd *cobra.Command) (report.Period, error) {
	var p report.Period
	for name, dst := range map[string]*time.Time{"from": &p.From, "to": &p.To} {
		raw, _ := cmd.Flags().GetString(name)
		if raw == "" {
			continue
		}
		t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
		if err != nil {
			return p, fmt.Errorf("invalid --%s date %q, expected YYYY-MM-DD", name, raw)
		}
		*dst = t
	}
	return p, p.Validate()
}
