package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"spendlog/internal/aggregate"
	"spendlog/internal/store"
)

var (
	summaryUser  string
	summaryMonth string
)

// summaryCmd represents the summary command.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the monthly series for a user",
	Long: `Print the month's total, daily average, the days with spending and the
per-category breakdown.

Example:
  spendlog-report summary --user u_123 --month 2024-03`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, res, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Store cleanup failed", "error", err)
			}
		}()
		return runSummary(ctx, cmd.OutOrStdout(), res.Store, summaryUser, summaryMonth, cfg.Location(), time.Now())
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryUser, "user", "", "user id (required)")
	summaryCmd.Flags().StringVar(&summaryMonth, "month", "", "month, YYYY-MM (default: current month)")
	_ = summaryCmd.MarkFlagRequired("user")
}

func runSummary(ctx context.Context, w io.Writer, lister store.Lister, user, month string, loc *time.Location, now time.Time) error {
	user = strings.TrimSpace(user)
	if user == "" {
		return errors.New("--user is required")
	}
	now = now.In(loc)
	year, m := now.Year(), now.Month()
	if month != "" {
		var err error
		if year, m, err = parseMonth(month); err != nil {
			return fmt.Errorf("--month: %w", err)
		}
	}

	txs, err := lister.ListTransactions(ctx, user)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	s := aggregate.MonthlySeries(txs, year, m, loc)

	fmt.Fprintf(w, "Summary for %s %d (user %s)\n\n", m, year, user)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total\t%s\n", s.Total.Format())
	fmt.Fprintf(tw, "Transactions\t%d\n", len(s.Transactions))
	fmt.Fprintf(tw, "Daily average\t%s\n", s.DailyAverage().Format())
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(s.Transactions) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Day\tAmount\t")
	for _, d := range s.Daily {
		if d.Amount.IsZero() {
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t\n", d.Day, d.Amount.Format())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Category\tTotal\tCount\tShare")
	for _, c := range aggregate.CategoryBreakdown(s.Transactions) {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f%%\n", c.Label, c.Total.Format(), c.Count, c.Share)
	}
	return tw.Flush()
}
