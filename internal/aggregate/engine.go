// Package aggregate derives monthly series, range filters and breakdowns from
// a user's transactions. Every function is pure: inputs are never mutated and
// results depend only on the arguments.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"spendlog/internal/core"
)

// ModeAll selects every payment mode in RangeFilter.
const ModeAll ModeFilter = "all"

type (
	// ModeFilter is either ModeAll or a payment mode value.
	ModeFilter string

	// DailyAmount is the spend on one day of a month; Day is 1-based.
	DailyAmount struct {
		Day    int        `json:"day"`
		Amount core.Money `json:"amount"`
	}

	// MonthSeries is the per-month view used by the dashboard chart.
	MonthSeries struct {
		Year         int                `json:"year"`
		Month        time.Month         `json:"month"`
		Transactions []core.Transaction `json:"transactions"`
		Daily        []DailyAmount      `json:"dailyData"`
		Total        core.Money         `json:"total"`
	}

	// Range spans whole calendar months, inclusive on both ends.
	Range struct {
		StartYear  int
		StartMonth time.Month
		EndYear    int
		EndMonth   time.Month
	}

	// RangeResult holds the matching transactions in input order and their sum.
	RangeResult struct {
		Transactions []core.Transaction `json:"filteredTransactions"`
		TotalAmount  core.Money         `json:"totalAmount"`
	}

	// CategoryTotal is one slice of the category breakdown.
	CategoryTotal struct {
		Category core.Category `json:"category"`
		Label    string        `json:"label"`
		Icon     string        `json:"icon"`
		Total    core.Money    `json:"total"`
		Count    int           `json:"count"`
		// Share is the percentage of the overall total, for display only.
		Share float64 `json:"share"`
	}

	// Totals is the headline figure of a listing.
	Totals struct {
		Total core.Money `json:"totalExpense"`
		Count int        `json:"count"`
	}
)

// ParseModeFilter accepts "all" (or blank) and any payment mode value or label.
func ParseModeFilter(s string) (ModeFilter, error) {
	if t := strings.TrimSpace(s); t == "" || strings.EqualFold(t, string(ModeAll)) {
		return ModeAll, nil
	}
	m, err := core.ParsePaymentMode(s)
	if err != nil {
		return "", err
	}
	return ModeFilter(m), nil
}

func (f ModeFilter) IsAll() bool { return f == ModeAll || f == "" }

// Label is the human text for reports: "All" or the payment mode label.
func (f ModeFilter) Label() string {
	if f.IsAll() {
		return "All"
	}
	return core.PaymentMode(f).Label()
}

func (f ModeFilter) matches(m core.PaymentMode) bool {
	return f.IsAll() || core.PaymentMode(f) == m
}

// Valid reports whether both months are in 1..12.
func (r Range) Valid() bool {
	return validMonth(r.StartMonth) && validMonth(r.EndMonth)
}

// Bounds returns the first instant of the start month and the last instant of
// the end month in loc. ok is false when either month is out of range or the
// end precedes the start.
func (r Range) Bounds(loc *time.Location) (start, end time.Time, ok bool) {
	if !r.Valid() {
		return time.Time{}, time.Time{}, false
	}
	start, end = r.Endpoints(loc)
	if end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// Endpoints returns the first instant of the start month and the last instant
// of the end month without checking that they are ordered.
func (r Range) Endpoints(loc *time.Location) (start, end time.Time) {
	loc = location(loc)
	start = time.Date(r.StartYear, r.StartMonth, 1, 0, 0, 0, 0, loc)
	end = time.Date(r.EndYear, r.EndMonth+1, 1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
	return start, end
}

func (r Range) String() string {
	return fmt.Sprintf("%s %d - %s %d", r.StartMonth, r.StartYear, r.EndMonth, r.EndYear)
}

// DaysIn returns the number of days of month in year, or 0 for an invalid month.
func DaysIn(year int, month time.Month) int {
	if !validMonth(month) {
		return 0
	}
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthlySeries filters txs to the given calendar month in loc and builds a
// dense per-day series. The Daily slice always sums to Total. An invalid month
// yields an empty series.
func MonthlySeries(txs []core.Transaction, year int, month time.Month, loc *time.Location) MonthSeries {
	out := MonthSeries{Year: year, Month: month, Transactions: []core.Transaction{}, Daily: []DailyAmount{}}
	days := DaysIn(year, month)
	if days == 0 {
		return out
	}
	loc = location(loc)
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

	out.Daily = make([]DailyAmount, days)
	for i := range out.Daily {
		out.Daily[i].Day = i + 1
	}
	for _, t := range txs {
		if !within(t.Date, start, end) {
			continue
		}
		out.Transactions = append(out.Transactions, t)
		day := t.Date.In(loc).Day()
		out.Daily[day-1].Amount = out.Daily[day-1].Amount.Add(t.Amount)
		out.Total = out.Total.Add(t.Amount)
	}
	return out
}

// DailyAverage is Total spread across the days of the month, rounded down to
// whole paise. Zero for an empty series.
func (s MonthSeries) DailyAverage() core.Money {
	if len(s.Daily) == 0 {
		return core.Money{}
	}
	return core.Money{Paise: s.Total.Paise / int64(len(s.Daily))}
}

// RangeFilter keeps the transactions dated inside r whose payment mode matches
// mode. Input order is preserved. An inverted or invalid range is empty.
func RangeFilter(txs []core.Transaction, r Range, mode ModeFilter, loc *time.Location) RangeResult {
	out := RangeResult{Transactions: []core.Transaction{}}
	start, end, ok := r.Bounds(loc)
	if !ok {
		return out
	}
	for _, t := range txs {
		if !within(t.Date, start, end) || !mode.matches(t.PaymentMode) {
			continue
		}
		out.Transactions = append(out.Transactions, t)
		out.TotalAmount = out.TotalAmount.Add(t.Amount)
	}
	return out
}

// FilterMode keeps the transactions whose payment mode matches mode, dated or
// not. ModeAll returns a copy of txs.
func FilterMode(txs []core.Transaction, mode ModeFilter) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if mode.matches(t.PaymentMode) {
			out = append(out, t)
		}
	}
	return out
}

// CategoryBreakdown totals txs per category in canonical category order.
// Categories without transactions are omitted.
func CategoryBreakdown(txs []core.Transaction) []CategoryTotal {
	idx := make(map[core.Category]int)
	all := make([]CategoryTotal, 0, len(core.Categories()))
	for i, c := range core.Categories() {
		idx[c] = i
		all = append(all, CategoryTotal{Category: c, Label: c.Label(), Icon: c.Icon()})
	}
	var grand int64
	for _, t := range txs {
		i, ok := idx[t.Category]
		if !ok {
			i = idx[core.CategoryOther]
		}
		all[i].Total = all[i].Total.Add(t.Amount)
		all[i].Count++
		grand += t.Amount.Paise
	}
	out := make([]CategoryTotal, 0, len(all))
	for _, ct := range all {
		if ct.Count == 0 {
			continue
		}
		if grand > 0 {
			ct.Share = float64(ct.Total.Paise) * 100 / float64(grand)
		}
		out = append(out, ct)
	}
	return out
}

// Summary returns the lifetime total and count, including undated rows.
func Summary(txs []core.Transaction) Totals {
	var s Totals
	for _, t := range txs {
		s.Total = s.Total.Add(t.Amount)
		s.Count++
	}
	return s
}

// SortByDateDesc returns a copy ordered newest first. Undated rows sort last;
// ties fall back to CreatedAt then ID so the order is stable across calls.
func SortByDateDesc(txs []core.Transaction) []core.Transaction {
	out := append([]core.Transaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date.IsZero() != b.Date.IsZero() {
			return b.Date.IsZero()
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return out
}

func within(d, start, end time.Time) bool {
	if d.IsZero() {
		return false
	}
	return !d.Before(start) && !d.After(end)
}

func validMonth(m time.Month) bool {
	return m >= time.January && m <= time.December
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
