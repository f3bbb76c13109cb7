package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/store/memory"
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	rows := []core.Transaction{
		{ID: "a", UserID: "u1", Amount: core.NewMoney(1200, 0), Description: "Rent share", PaymentMode: core.PaymentNetBanking, Category: core.CategoryBills, Date: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)},
		{ID: "b", UserID: "u1", Amount: core.NewMoney(250, 50), Description: "Groceries", PaymentMode: core.PaymentUPI, Category: core.CategoryFood, Date: time.Date(2024, 3, 2, 18, 0, 0, 0, time.UTC)},
		{ID: "c", UserID: "u1", Amount: core.NewMoney(49, 50), Description: "Auto", PaymentMode: core.PaymentCash, Category: core.CategoryTransport, Date: time.Date(2024, 3, 2, 20, 0, 0, 0, time.UTC)},
		{ID: "d", UserID: "u2", Amount: core.NewMoney(999, 0), Description: "Not mine", PaymentMode: core.PaymentCash, Category: core.CategoryOther, Date: time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)},
	}
	for _, r := range rows {
		if err := st.CreateTransaction(context.Background(), r); err != nil {
			t.Fatalf("seed %s: %v", r.ID, err)
		}
	}
	return st
}

func TestRunExportCSV(t *testing.T) {
	dir := t.TempDir()
	opts := exportOptions{user: "u1", from: "2024-01", to: "2024-03", mode: "all", format: "csv", out: dir}

	path, rows, err := runExport(context.Background(), seededStore(t), opts, time.UTC, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("runExport: %v", err)
	}
	if want := filepath.Join(dir, "Expense_Report_January_2024_to_March_2024.csv"); path != want {
		t.Fatalf("path = %s, want %s", path, want)
	}
	if rows != 3 {
		t.Fatalf("rows = %d, want 3", rows)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	body := string(b)
	for _, want := range []string{"₹1,500", "Groceries", "Net Banking"} {
		if !strings.Contains(body, want) {
			t.Fatalf("csv missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "Not mine") {
		t.Fatalf("csv leaked another user's row")
	}
	if strings.Index(body, "Groceries") > strings.Index(body, "Rent share") {
		t.Fatalf("expected newest first:\n%s", body)
	}
}

func TestRunExportPDFSingleMonth(t *testing.T) {
	dir := t.TempDir()
	opts := exportOptions{user: "u1", from: "2024-03", mode: "UPI", format: "PDF", out: filepath.Join(dir, "nested")}

	path, rows, err := runExport(context.Background(), seededStore(t), opts, time.UTC, time.Now())
	if err != nil {
		t.Fatalf("runExport: %v", err)
	}
	if filepath.Base(path) != "Expense_Report_March_2024_to_March_2024.pdf" || rows != 1 {
		t.Fatalf("unexpected result %s, %d", path, rows)
	}
	b, err := os.ReadFile(path)
	if err != nil || !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("expected a PDF file, err=%v", err)
	}
}

func TestRunExportRejectsBadFlags(t *testing.T) {
	base := exportOptions{user: "u1", from: "2024-01", mode: "all", format: "csv", out: t.TempDir()}
	tests := []struct {
		name   string
		mutate func(*exportOptions)
		want   string
	}{
		{"missing user", func(o *exportOptions) { o.user = " " }, "--user"},
		{"bad from", func(o *exportOptions) { o.from = "2024/01" }, "--from"},
		{"bad to", func(o *exportOptions) { o.to = "2024-13" }, "--to"},
		{"bad mode", func(o *exportOptions) { o.mode = "cheque" }, "--mode"},
		{"bad format", func(o *exportOptions) { o.format = "xlsx" }, "--format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := base
			tt.mutate(&o)
			_, _, err := runExport(context.Background(), seededStore(t), o, time.UTC, time.Now())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestRunSummary(t *testing.T) {
	var out bytes.Buffer
	if err := runSummary(context.Background(), &out, seededStore(t), "u1", "2024-03", time.UTC, time.Now()); err != nil {
		t.Fatalf("runSummary: %v", err)
	}
	got := out.String()
	for _, want := range []string{"Summary for March 2024 (user u1)", "₹300", "Food & Dining", "Transportation"} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
	var count string
	for _, line := range strings.Split(got, "\n") {
		if f := strings.Fields(line); len(f) == 2 && f[0] == "Transactions" {
			count = f[1]
		}
	}
	if count != "2" {
		t.Fatalf("transaction count = %q, want 2:\n%s", count, got)
	}
}

func TestRunSummaryDefaultsToCurrentMonth(t *testing.T) {
	var out bytes.Buffer
	now := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	if err := runSummary(context.Background(), &out, seededStore(t), "u1", "", time.UTC, now); err != nil {
		t.Fatalf("runSummary: %v", err)
	}
	if !strings.Contains(out.String(), "February 2024") || !strings.Contains(out.String(), "₹0") {
		t.Fatalf("unexpected empty-month summary:\n%s", out.String())
	}
	if err := runSummary(context.Background(), &out, seededStore(t), "u1", "March", time.UTC, now); err == nil {
		t.Fatalf("expected bad month error")
	}
}
