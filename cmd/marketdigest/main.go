package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"MarketDigest/internal/app"
	"MarketDigest/internal/config"
	"MarketDigest/internal/logging"
)

var (
	runAll   bool
	newsOnly bool
	arbOnly  bool
	days     int
	mail     bool
	daemon   bool
)

// selectPipelines maps the flag combination onto the pipelines to run.
// --all, or no selector at all, runs both.
func selectPipelines(all, news, arb bool) (bool, bool) {
	if all || (!news && !arb) {
		return true, true
	}
	return news, arb
}

var rootCmd = &cobra.Command{
	Use:   "marketdigest",
	Short: "Global news and market arbitrage digest",
	Long: `marketdigest aggregates market arbitrage signals and translated world
news into one daily markdown report.

Example usage:
  marketdigest --all           # Run both news and market tasks
  marketdigest --news --days 3 # News only, trailing 3 days
  marketdigest --arb --mail    # Market tasks, email the report
  marketdigest --daemon        # Rerun on the configured interval`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.Options{
			Days:   days,
			Mail:   mail,
			Daemon: daemon,
		}
		opts.News, opts.Arb = selectPipelines(runAll, newsOnly, arbOnly)

		cfg := config.Load()
		logger := logging.New(cfg.Logging.Level)

		application, err := app.New(cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return application.Run(ctx, opts)
	},
}

func init() {
	rootCmd.Flags().BoolVar(&runAll, "all", false, "run both the news and market tasks")
	rootCmd.Flags().BoolVar(&newsOnly, "news", false, "run only the news task")
	rootCmd.Flags().BoolVar(&arbOnly, "arb", false, "run only the market arbitrage task")
	rootCmd.Flags().IntVar(&days, "days", 1, "news: fetch from the last N days")
	rootCmd.Flags().BoolVar(&mail, "mail", false, "send the final report via email")
	rootCmd.Flags().BoolVar(&daemon, "daemon", false, "keep running on the configured interval")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
