package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"spendlog/internal/aggregate"
	"spendlog/internal/core"
)

var parserNow = time.Date(2024, time.June, 30, 22, 0, 0, 0, time.UTC)

func TestParseMonthParams(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		loc       *time.Location
		wantYear  int
		wantMonth time.Month
		wantErr   bool
	}{
		{
			name:      "both values provided",
			query:     url.Values{"year": {"2023"}, "month": {"12"}},
			loc:       time.UTC,
			wantYear:  2023,
			wantMonth: time.December,
		},
		{
			name:      "defaults to current month",
			query:     url.Values{},
			loc:       time.UTC,
			wantYear:  2024,
			wantMonth: time.June,
		},
		{
			name:      "default follows location",
			query:     url.Values{},
			loc:       time.FixedZone("IST", 5*3600+1800),
			wantYear:  2024,
			wantMonth: time.July,
		},
		{name: "month zero", query: url.Values{"month": {"0"}}, loc: time.UTC, wantErr: true},
		{name: "month thirteen", query: url.Values{"month": {"13"}}, loc: time.UTC, wantErr: true},
		{name: "non numeric year", query: url.Values{"year": {"last"}}, loc: time.UTC, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParams(tt.query, parserNow, tt.loc)
			if tt.wantErr {
				if !errors.Is(err, errBadRequest) {
					t.Fatalf("expected bad request, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("got %d-%d, want %d-%d", got.Year, got.Month, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestParseRangeParams(t *testing.T) {
	got, err := ParseRangeParams(url.Values{
		"startMonth": {"1"}, "startYear": {"2024"},
		"endMonth": {"3"}, "endYear": {"2024"},
		"mode": {"net banking"},
	}, parserNow, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := aggregate.Range{StartYear: 2024, StartMonth: time.January, EndYear: 2024, EndMonth: time.March}
	if got.Range != want || got.Mode != aggregate.ModeFilter(core.PaymentNetBanking) {
		t.Fatalf("unexpected params %+v", got)
	}

	got, err = ParseRangeParams(url.Values{}, parserNow, time.UTC)
	if err != nil || got.Range.StartMonth != time.June || got.Range.EndMonth != time.June || !got.Mode.IsAll() {
		t.Fatalf("expected current month and all modes, got %+v, %v", got, err)
	}

	for _, q := range []url.Values{
		{"startMonth": {"0"}},
		{"endMonth": {"x"}},
		{"endYear": {"-1"}},
		{"mode": {"cheque"}},
	} {
		if _, err := ParseRangeParams(q, parserNow, time.UTC); !errors.Is(err, errBadRequest) {
			t.Errorf("%v: expected bad request, got %v", q, err)
		}
	}
}

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err != nil {
		t.Fatalf("parse %q: %v", body, err)
	}
	return p
}

func TestRequestBodyParser(t *testing.T) {
	t.Run("json keeps number text", func(t *testing.T) {
		p := newParser(t, "application/json", `{"amount": 1234.565, "isSplit": true, "note": null}`)
		if !p.IsJSON() {
			t.Fatalf("expected JSON")
		}
		if got := p.Get("amount"); got != "1234.565" {
			t.Errorf("amount = %q", got)
		}
		if got := p.Get("isSplit"); got != "true" {
			t.Errorf("isSplit = %q", got)
		}
		if p.Has("note") || p.Has("missing") || !p.Has("amount") {
			t.Errorf("unexpected Has results")
		}
	})

	t.Run("form", func(t *testing.T) {
		p := newParser(t, "application/x-www-form-urlencoded", "description=%20Chai%01%20&amount=")
		if p.IsJSON() {
			t.Fatalf("expected form")
		}
		if got := p.Get("description"); got != "Chai" {
			t.Errorf("description = %q", got)
		}
		if !p.Has("amount") || p.Has("category") {
			t.Errorf("unexpected Has results")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":`))
		p := NewRequestBodyParser(httptest.NewRecorder(), req)
		if err := p.Parse(); !errors.Is(err, errBadRequest) {
			t.Fatalf("expected bad request, got %v", err)
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		body := `{"description": "` + strings.Repeat("a", maxBodyBytes) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		p := NewRequestBodyParser(httptest.NewRecorder(), req)
		if err := p.Parse(); !errors.Is(err, errBadRequest) {
			t.Fatalf("expected bad request, got %v", err)
		}
	})
}

func TestParseTransactionInput(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	tests := []struct {
		name    string
		body    string
		check   func(t *testing.T, in core.TransactionInput)
		wantErr error
	}{
		{
			name: "defaults",
			body: `{"amount": 10, "description": "Bus"}`,
			check: func(t *testing.T, in core.TransactionInput) {
				if in.PaymentMode != core.PaymentCash || in.Category != core.CategoryOther || !in.Date.Equal(parserNow) {
					t.Errorf("unexpected defaults %+v", in)
				}
			},
		},
		{
			name: "plain date uses location midnight",
			body: `{"amount": "10.5", "description": "Bus", "date": "2024-03-01", "paymentMode": "Card", "category": "transport"}`,
			check: func(t *testing.T, in core.TransactionInput) {
				want := time.Date(2024, time.March, 1, 0, 0, 0, 0, ist)
				if !in.Date.Equal(want) {
					t.Errorf("date = %v, want %v", in.Date, want)
				}
				if in.Amount.Paise != 1050 || in.PaymentMode != core.PaymentCard || in.Category != core.CategoryTransport {
					t.Errorf("unexpected input %+v", in)
				}
			},
		},
		{
			name: "rfc3339 date",
			body: `{"amount": 1, "description": "x", "date": "2024-03-01T18:45:00Z"}`,
			check: func(t *testing.T, in core.TransactionInput) {
				if !in.Date.Equal(time.Date(2024, 3, 1, 18, 45, 0, 0, time.UTC)) {
					t.Errorf("date = %v", in.Date)
				}
			},
		},
		{name: "missing amount", body: `{"description": "x"}`, wantErr: core.ErrInvalidAmount},
		{name: "bad mode", body: `{"amount": 1, "paymentMode": "gold"}`, wantErr: core.ErrInvalidPaymentMode},
		{name: "bad category", body: `{"amount": 1, "category": "pets"}`, wantErr: core.ErrInvalidCategory},
		{name: "bad date", body: `{"amount": 1, "date": "01-03-2024"}`, wantErr: core.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseTransactionInput(newParser(t, "application/json", tt.body), parserNow, ist)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, in)
		})
	}
}

func TestParseTransactionPatch(t *testing.T) {
	p, err := ParseTransactionPatch(newParser(t, "application/json", `{"description": "Lunch", "isSplit": false}`), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Description == nil || *p.Description != "Lunch" || p.IsSplit == nil || *p.IsSplit {
		t.Fatalf("unexpected patch %+v", p)
	}
	if p.Amount != nil || p.PaymentMode != nil || p.Category != nil || p.Date != nil || p.SplitWith != nil {
		t.Fatalf("absent fields must stay nil: %+v", p)
	}

	p, err = ParseTransactionPatch(newParser(t, "application/json", `{}`), time.UTC)
	if err != nil || !p.IsEmpty() {
		t.Fatalf("expected empty patch, got %+v, %v", p, err)
	}

	if _, err := ParseTransactionPatch(newParser(t, "application/json", `{"amount": -1}`), time.UTC); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}
