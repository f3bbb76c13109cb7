package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"spendlog/internal/aggregate"
	"spendlog/internal/report"
	"spendlog/internal/store"
)

type exportOptions struct {
	user   string
	from   string
	to     string
	mode   string
	format string
	out    string
}

var exportOpts exportOptions

// exportCmd represents the export command.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a PDF or CSV expense report for a month range",
	Long: `Filter a user's transactions by month range and payment mode and write the
report file into --out. The file name follows the range:
Expense_Report_<StartMonth>_<StartYear>_to_<EndMonth>_<EndYear>.<format>

Example:
  spendlog-report export --user u_123 --from 2024-01 --to 2024-03 --mode UPI --format csv`,
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

		path, rows, err := runExport(ctx, res.Store, exportOpts, cfg.Location(), time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d transactions to %s\n", rows, path)
		return nil
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportOpts.user, "user", "", "user id whose transactions are exported (required)")
	f.StringVar(&exportOpts.from, "from", "", "first month, YYYY-MM (required)")
	f.StringVar(&exportOpts.to, "to", "", "last month, YYYY-MM (default: --from)")
	f.StringVar(&exportOpts.mode, "mode", "all", "payment mode filter: all, CASH, CARD, UPI, NET_BANKING")
	f.StringVar(&exportOpts.format, "format", "pdf", "output format: pdf or csv")
	f.StringVar(&exportOpts.out, "out", ".", "output directory")
	_ = exportCmd.MarkFlagRequired("user")
	_ = exportCmd.MarkFlagRequired("from")
}

// runExport renders the report and returns the written path and row count.
func runExport(ctx context.Context, lister store.Lister, o exportOptions, loc *time.Location, now time.Time) (string, int, error) {
	user := strings.TrimSpace(o.user)
	if user == "" {
		return "", 0, errors.New("--user is required")
	}
	startYear, startMonth, err := parseMonth(o.from)
	if err != nil {
		return "", 0, fmt.Errorf("--from: %w", err)
	}
	endYear, endMonth := startYear, startMonth
	if o.to != "" {
		if endYear, endMonth, err = parseMonth(o.to); err != nil {
			return "", 0, fmt.Errorf("--to: %w", err)
		}
	}
	mode, err := aggregate.ParseModeFilter(o.mode)
	if err != nil {
		return "", 0, fmt.Errorf("--mode: %w", err)
	}
	format := strings.ToLower(strings.TrimSpace(o.format))
	if format != "pdf" && format != "csv" {
		return "", 0, fmt.Errorf("--format: unsupported %q (expected pdf or csv)", o.format)
	}

	txs, err := lister.ListTransactions(ctx, user)
	if err != nil {
		return "", 0, fmt.Errorf("list transactions: %w", err)
	}
	r := aggregate.Range{StartYear: startYear, StartMonth: startMonth, EndYear: endYear, EndMonth: endMonth}
	res := aggregate.RangeFilter(aggregate.SortByDateDesc(txs), r, mode, loc)
	rep := report.Format(res.Transactions, report.Params{
		Range:       r,
		Mode:        mode,
		Total:       res.TotalAmount,
		Location:    loc,
		GeneratedAt: now,
	})

	if err := os.MkdirAll(o.out, 0o755); err != nil {
		return "", 0, fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(o.out, rep.Filename+"."+format)
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create report file: %w", err)
	}
	if format == "csv" {
		err = report.WriteCSV(f, rep)
	} else {
		err = report.WritePDF(f, rep)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("write report: %w", err)
	}

	logger.Info("Report written", "path", path, "rows", len(rep.Rows), "format", format)
	return path, len(rep.Rows), nil
}
