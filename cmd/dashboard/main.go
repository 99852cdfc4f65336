package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Bitrix24 CRM data and reports in the terminal",
	Long: `Render Bitrix24 CRM entities and the earned money report.

The portal session is built from --domain and --token (or B24_SESSION_* variables,
also read from .env). With --proxy every call goes through a running proxy server.
With --dev the sample dataset is used whenever no portal session can be loaded.

Examples:
  dashboard companies
  dashboard deals --company 1 --from 2024-01-01 --to 2024-03-31
  dashboard report earned --from 2024-01-01 --to 2024-12-31
  dashboard --dev --output json report tasks`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupApp,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			current.close()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&opts.dev, "dev", false, "Fall back to sample data when no portal session is available")
	flags.StringVar(&opts.proxy, "proxy", "", "Route calls through the proxy at this URL")
	flags.StringVar(&opts.domain, "domain", "", "Portal domain, e.g. example.bitrix24.ru")
	flags.StringVar(&opts.token, "token", "", "OAuth access token of the portal session")
	flags.StringVar(&opts.memberID, "member-id", "", "Portal member ID")
	flags.StringVarP(&opts.output, "output", "o", formatTable, "Output format: table or json")
	flags.BoolVar(&opts.noBatch, "no-batch", false, "Page listings sequentially instead of batching")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, portal.ErrSessionUnavailable) {
			fmt.Fprintf(os.Stderr, "Unable to connect to Bitrix24: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
