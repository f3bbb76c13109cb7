// Package report turns an already-filtered set of transactions into a
// deterministic, renderer-independent layout model, plus PDF and CSV renderers.
package report

import (
	"fmt"
	"time"

	"spendlog/internal/aggregate"
	"spendlog/internal/core"
)

const (
	Title  = "Expense Report"
	Footer = "Generated by Spendlog"

	rowTimeLayout  = "02/01/2006 15:04:05"
	dayLayout      = "02/01/2006"
	missingDateTxt = "-"
)

// Columns is the fixed column order of every report.
var Columns = []string{"Date", "Description", "Amount", "Payment Mode"}

type (
	// Params describes what the rows were filtered by. Format does not filter.
	Params struct {
		Range    aggregate.Range
		Mode     aggregate.ModeFilter
		Total    core.Money
		Location *time.Location
		// GeneratedAt is shown in the footer; zero omits the timestamp.
		GeneratedAt time.Time
	}

	Row struct {
		Date        string
		Description string
		Amount      string
		PaymentMode string
	}

	SummaryLine struct {
		Label string
		Value string
	}

	Report struct {
		Title    string
		Summary  []SummaryLine
		Columns  []string
		Rows     []Row
		Footer   string
		Filename string
	}
)

// Format lays out rows in the given order. It never filters or reorders.
func Format(rows []core.Transaction, p Params) Report {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	r := Report{
		Title:    Title,
		Columns:  append([]string(nil), Columns...),
		Rows:     make([]Row, 0, len(rows)),
		Footer:   Footer,
		Filename: Filename(p.Range),
	}
	if !p.GeneratedAt.IsZero() {
		r.Footer = fmt.Sprintf("%s on %s", Footer, p.GeneratedAt.In(loc).Format(rowTimeLayout))
	}

	r.Summary = []SummaryLine{
		{Label: "Period", Value: fmt.Sprintf("%s %d - %s %d", p.Range.StartMonth, p.Range.StartYear, p.Range.EndMonth, p.Range.EndYear)},
	}
	// An inverted range still reports both endpoints.
	start, end := p.Range.Endpoints(loc)
	r.Summary = append(r.Summary,
		SummaryLine{Label: "From", Value: fmt.Sprintf("%s To: %s", start.Format(dayLayout), end.Format(dayLayout))},
		SummaryLine{Label: "Payment Mode", Value: p.Mode.Label()},
		SummaryLine{Label: "Total Amount", Value: p.Total.Format()},
	)

	for _, t := range rows {
		date := missingDateTxt
		if !t.Date.IsZero() {
			date = t.Date.In(loc).Format(rowTimeLayout)
		}
		r.Rows = append(r.Rows, Row{
			Date:        date,
			Description: t.Description,
			Amount:      t.Amount.Format(),
			PaymentMode: t.PaymentMode.Label(),
		})
	}
	return r
}

// Filename is the extension-less download name for a range:
// Expense_Report_January_2024_to_March_2024.
func Filename(r aggregate.Range) string {
	return fmt.Sprintf("Expense_Report_%s_%d_to_%s_%d", monthName(r.StartMonth), r.StartYear, monthName(r.EndMonth), r.EndYear)
}

func monthName(m time.Month) string {
	if m < time.January || m > time.December {
		return fmt.Sprintf("Month%d", int(m))
	}
	return m.String()
}

// Values returns the cells of a row in column order.
func (r Row) Values() []string {
	return []string{r.Date, r.Description, r.Amount, r.PaymentMode}
}

// Line renders a summary line as "Label: Value".
func (s SummaryLine) Line() string {
	return s.Label + ": " + s.Value
}
