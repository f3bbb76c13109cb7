package aggregate

import (
	"fmt"
	"testing"
	"time"

	"spendlog/internal/core"
)

func tx(id string, rupees int64, date time.Time, mode core.PaymentMode) core.Transaction {
	return core.Transaction{
		ID:          id,
		UserID:      "u1",
		Amount:      core.NewMoney(rupees, 0),
		Description: "item " + id,
		PaymentMode: mode,
		Category:    core.CategoryOther,
		Date:        date,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
}

func sample() []core.Transaction {
	return []core.Transaction{
		tx("a", 100, day(2024, time.January, 5), core.PaymentCash),
		tx("b", 50, day(2024, time.January, 20), core.PaymentUPI),
	}
}

func TestMonthlySeriesDenseDays(t *testing.T) {
	s := MonthlySeries(sample(), 2024, time.January, time.UTC)
	if s.Total.Paise != 15000 {
		t.Fatalf("expected total 150, got %s", s.Total)
	}
	if len(s.Daily) != 31 {
		t.Fatalf("expected 31 days, got %d", len(s.Daily))
	}
	for i, d := range s.Daily {
		if d.Day != i+1 {
			t.Fatalf("day %d has index %d", d.Day, i)
		}
		var want int64
		switch i {
		case 4:
			want = 10000
		case 19:
			want = 5000
		}
		if d.Amount.Paise != want {
			t.Fatalf("day %d: expected %d, got %d", i+1, want, d.Amount.Paise)
		}
	}
	if len(s.Transactions) != 2 || s.Transactions[0].ID != "a" {
		t.Fatalf("expected input order preserved, got %+v", s.Transactions)
	}
}

func TestMonthlySeriesEmptyInput(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		days  int
	}{
		{2024, time.January, 31},
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2024, time.April, 30},
	}
	for _, tc := range cases {
		s := MonthlySeries(nil, tc.year, tc.month, time.UTC)
		if len(s.Daily) != tc.days || !s.Total.IsZero() {
			t.Fatalf("%s %d: expected %d zero days, got %d total %s", tc.month, tc.year, tc.days, len(s.Daily), s.Total)
		}
		for _, d := range s.Daily {
			if !d.Amount.IsZero() {
				t.Fatalf("expected zero amounts")
			}
		}
		if !s.DailyAverage().IsZero() {
			t.Fatalf("expected zero daily average")
		}
	}
}

func TestMonthlySeriesInvalidMonth(t *testing.T) {
	for _, m := range []time.Month{0, 13, -1} {
		s := MonthlySeries(sample(), 2024, m, time.UTC)
		if len(s.Daily) != 0 || len(s.Transactions) != 0 || !s.Total.IsZero() {
			t.Fatalf("month %d: expected empty series, got %+v", m, s)
		}
		if !s.DailyAverage().IsZero() {
			t.Fatalf("month %d: expected zero average", m)
		}
	}
}

func TestMonthlySeriesBoundaries(t *testing.T) {
	txs := []core.Transaction{
		tx("first", 1, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), core.PaymentCash),
		tx("last", 2, time.Date(2024, time.March, 31, 23, 59, 59, 999999999, time.UTC), core.PaymentCash),
		tx("before", 4, time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC), core.PaymentCash),
		tx("after", 8, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), core.PaymentCash),
		tx("undated", 16, time.Time{}, core.PaymentCash),
	}
	s := MonthlySeries(txs, 2024, time.March, time.UTC)
	if s.Total.Paise != 300 {
		t.Fatalf("expected only first+last, got %s", s.Total)
	}
	if s.Daily[0].Amount.Paise != 100 || s.Daily[30].Amount.Paise != 200 {
		t.Fatalf("boundary days misplaced: %+v %+v", s.Daily[0], s.Daily[30])
	}
}

func TestMonthlySeriesUsesLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 2024-01-31 20:00 UTC is 2024-02-01 01:30 in IST.
	txs := []core.Transaction{tx("x", 10, time.Date(2024, time.January, 31, 20, 0, 0, 0, time.UTC), core.PaymentCard)}

	if s := MonthlySeries(txs, 2024, time.February, ist); s.Total.Paise != 1000 || s.Daily[0].Amount.Paise != 1000 {
		t.Fatalf("expected transaction on Feb 1 in IST, got %+v", s.Daily[0])
	}
	if s := MonthlySeries(txs, 2024, time.January, ist); !s.Total.IsZero() {
		t.Fatalf("expected January empty in IST, got %s", s.Total)
	}
	if s := MonthlySeries(txs, 2024, time.January, nil); s.Total.Paise != 1000 {
		t.Fatalf("nil location should mean UTC")
	}
}

func TestMonthlySeriesSumMatchesTotal(t *testing.T) {
	var txs []core.Transaction
	for i := 0; i < 200; i++ {
		txs = append(txs, core.Transaction{
			ID:          "t",
			Amount:      core.Money{Paise: int64(i*37 + 1)},
			PaymentMode: core.PaymentCash,
			Date:        time.Date(2024, time.May, i%31+1, i%24, 0, 0, 0, time.UTC),
		})
	}
	s := MonthlySeries(txs, 2024, time.May, time.UTC)
	var sum core.Money
	for _, d := range s.Daily {
		sum = sum.Add(d.Amount)
	}
	if sum != s.Total {
		t.Fatalf("daily sum %s != total %s", sum, s.Total)
	}
	if want := s.Total.Paise / 31; s.DailyAverage().Paise != want {
		t.Fatalf("expected average %d, got %d", want, s.DailyAverage().Paise)
	}
}

func TestRangeFilter(t *testing.T) {
	jan := Range{StartYear: 2024, StartMonth: time.January, EndYear: 2024, EndMonth: time.January}
	cases := []struct {
		name  string
		r     Range
		mode  ModeFilter
		ids   []string
		total int64
	}{
		{"cash only", jan, ModeFilter(core.PaymentCash), []string{"a"}, 10000},
		{"all modes", jan, ModeAll, []string{"a", "b"}, 15000},
		{"upi only", jan, ModeFilter(core.PaymentUPI), []string{"b"}, 5000},
		{"no card", jan, ModeFilter(core.PaymentCard), nil, 0},
		{"inverted", Range{StartYear: 2024, StartMonth: time.June, EndYear: 2024, EndMonth: time.March}, ModeAll, nil, 0},
		{"next year", Range{StartYear: 2025, StartMonth: time.January, EndYear: 2025, EndMonth: time.December}, ModeAll, nil, 0},
		{"across years", Range{StartYear: 2023, StartMonth: time.December, EndYear: 2024, EndMonth: time.February}, ModeAll, []string{"a", "b"}, 15000},
		{"invalid month", Range{StartYear: 2024, StartMonth: 0, EndYear: 2024, EndMonth: time.January}, ModeAll, nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := RangeFilter(sample(), tc.r, tc.mode, time.UTC)
			if res.Transactions == nil {
				t.Fatalf("expected non-nil slice")
			}
			if len(res.Transactions) != len(tc.ids) {
				t.Fatalf("expected %v, got %+v", tc.ids, res.Transactions)
			}
			for i, id := range tc.ids {
				if res.Transactions[i].ID != id {
					t.Fatalf("position %d: expected %s, got %s", i, id, res.Transactions[i].ID)
				}
			}
			if res.TotalAmount.Paise != tc.total {
				t.Fatalf("expected total %d, got %d", tc.total, res.TotalAmount.Paise)
			}
		})
	}
}

func TestRangeFilterDoesNotMutateInput(t *testing.T) {
	in := sample()
	in = append(in, tx("z", 5, time.Time{}, core.PaymentCash))
	before := append([]core.Transaction(nil), in...)
	r := Range{StartYear: 2024, StartMonth: time.January, EndYear: 2024, EndMonth: time.December}
	res := RangeFilter(in, r, ModeAll, time.UTC)
	if len(res.Transactions) != 2 {
		t.Fatalf("undated row should be excluded, got %d rows", len(res.Transactions))
	}
	for i := range in {
		if in[i] != before[i] {
			t.Fatalf("input modified at %d", i)
		}
	}
}

func mixedLedger() []core.Transaction {
	modes := core.PaymentModes()
	var out []core.Transaction
	for i := 0; i < 48; i++ {
		date := time.Date(2023, time.November, 1+i%28, i%24, 0, 0, 0, time.UTC).AddDate(0, i%7, 0)
		if i%9 == 0 {
			date = time.Time{}
		}
		out = append(out, tx(fmt.Sprintf("m%02d", i), int64(i+1), date, modes[i%len(modes)]))
	}
	return out
}

func ids(txs []core.Transaction) map[string]bool {
	set := make(map[string]bool, len(txs))
	for _, t := range txs {
		set[t.ID] = true
	}
	return set
}

func TestRangeFilterIsIdempotent(t *testing.T) {
	ranges := []Range{
		{StartYear: 2024, StartMonth: time.January, EndYear: 2024, EndMonth: time.March},
		{StartYear: 2023, StartMonth: time.November, EndYear: 2024, EndMonth: time.May},
		{StartYear: 2024, StartMonth: time.June, EndYear: 2024, EndMonth: time.March},
	}
	modes := []ModeFilter{ModeAll}
	for _, m := range core.PaymentModes() {
		modes = append(modes, ModeFilter(m))
	}
	txs := mixedLedger()
	for _, r := range ranges {
		for _, mode := range modes {
			once := RangeFilter(txs, r, mode, time.UTC)
			twice := RangeFilter(once.Transactions, r, mode, time.UTC)
			if len(once.Transactions) != len(twice.Transactions) || once.TotalAmount != twice.TotalAmount {
				t.Fatalf("%s/%s: refiltering changed the result: %d -> %d rows", r, mode, len(once.Transactions), len(twice.Transactions))
			}
			for i := range once.Transactions {
				if once.Transactions[i].ID != twice.Transactions[i].ID {
					t.Fatalf("%s/%s: order changed at %d", r, mode, i)
				}
			}
		}
	}
}

func TestRangeFilterAllContainsEveryMode(t *testing.T) {
	r := Range{StartYear: 2023, StartMonth: time.December, EndYear: 2024, EndMonth: time.April}
	txs := mixedLedger()
	all := RangeFilter(txs, r, ModeAll, time.UTC)
	allIDs := ids(all.Transactions)

	var sum core.Money
	covered := 0
	for _, m := range core.PaymentModes() {
		res := RangeFilter(txs, r, ModeFilter(m), time.UTC)
		for _, t2 := range res.Transactions {
			if !allIDs[t2.ID] {
				t.Fatalf("%s row %s missing from the all-modes result", m, t2.ID)
			}
			if t2.PaymentMode != m {
				t.Fatalf("%s result contains a %s row", m, t2.PaymentMode)
			}
		}
		sum = sum.Add(res.TotalAmount)
		covered += len(res.Transactions)
	}
	if covered != len(all.Transactions) || sum != all.TotalAmount {
		t.Fatalf("per-mode results do not partition all: %d rows %s vs %d rows %s", covered, sum, len(all.Transactions), all.TotalAmount)
	}
	for id := range allIDs {
		for _, t2 := range txs {
			if t2.ID == id && t2.Date.IsZero() {
				t.Fatalf("undated row %s leaked into a range result", id)
			}
		}
	}
}

func TestParseModeFilter(t *testing.T) {
	cases := map[string]ModeFilter{
		"":            ModeAll,
		"all":         ModeAll,
		"ALL":         ModeAll,
		"cash":        ModeFilter(core.PaymentCash),
		"Net Banking": ModeFilter(core.PaymentNetBanking),
	}
	for in, want := range cases {
		got, err := ParseModeFilter(in)
		if err != nil || got != want {
			t.Fatalf("ParseModeFilter(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseModeFilter("cheque"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if ModeAll.Label() != "All" || ModeFilter(core.PaymentUPI).Label() != "UPI" {
		t.Fatalf("unexpected labels")
	}
}

func TestCategoryBreakdown(t *testing.T) {
	txs := []core.Transaction{
		{Amount: core.NewMoney(30, 0), Category: core.CategoryTravel},
		{Amount: core.NewMoney(10, 0), Category: core.CategoryFood},
		{Amount: core.NewMoney(60, 0), Category: core.CategoryFood},
	}
	got := CategoryBreakdown(txs)
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %+v", got)
	}
	if got[0].Category != core.CategoryFood || got[1].Category != core.CategoryTravel {
		t.Fatalf("expected canonical order, got %s, %s", got[0].Category, got[1].Category)
	}
	if got[0].Total.Paise != 7000 || got[0].Count != 2 || got[0].Share != 70 {
		t.Fatalf("unexpected food bucket %+v", got[0])
	}
	if got[1].Label != "Travel" {
		t.Fatalf("expected label, got %q", got[1].Label)
	}
	if len(CategoryBreakdown(nil)) != 0 {
		t.Fatalf("expected empty breakdown")
	}
}

func TestSummaryAndSort(t *testing.T) {
	txs := append(sample(), tx("c", 5, time.Time{}, core.PaymentCard), tx("d", 1, day(2024, time.February, 1), core.PaymentCard))
	s := Summary(txs)
	if s.Count != 4 || s.Total.Paise != 15600 {
		t.Fatalf("unexpected summary %+v", s)
	}
	sorted := SortByDateDesc(txs)
	want := []string{"d", "b", "a", "c"}
	for i, id := range want {
		if sorted[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, sorted[i].ID)
		}
	}
	if txs[0].ID != "a" {
		t.Fatalf("input should not be reordered")
	}
}

func TestFilterMode(t *testing.T) {
	txs := append(sample(), tx("c", 5, time.Time{}, core.PaymentCash))
	got := FilterMode(txs, ModeFilter(core.PaymentCash))
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected cash rows %+v", got)
	}
	if len(FilterMode(txs, ModeAll)) != 3 {
		t.Fatalf("ModeAll should keep every row")
	}
	if got := FilterMode(nil, ModeAll); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice")
	}
}
