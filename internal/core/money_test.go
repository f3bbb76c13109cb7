package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToPaise(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{".", 0, false},
		{"", 0, false},
		{"१२", 0, false}, // non-ASCII digits
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToPaise(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyFormat(t *testing.T) {
	cases := []struct {
		paise int64
		want  string
	}{
		{10000, "₹100"},
		{0, "₹0"},
		{5, "₹0.05"},
		{123450, "₹1,234.5"},
		{123456, "₹1,234.56"},
		{123456789, "₹1,234,567.89"},
		{-150, "-₹1.5"},
	}
	for _, tc := range cases {
		if got := (Money{Paise: tc.paise}).Format(); got != tc.want {
			t.Fatalf("Format(%d) = %q, want %q", tc.paise, got, tc.want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
	}{A: Money{Paise: 123450}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":1234.5}` {
		t.Fatalf("unexpected json %s", b)
	}

	for in, want := range map[string]int64{`12.34`: 1234, `"7,5"`: 750, `100`: 10000, `null`: 0} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if m.Paise != want {
			t.Fatalf("unmarshal %s = %d, want %d", in, m.Paise, want)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`-3`), &m); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestMoneySumHasNoDrift(t *testing.T) {
	var total Money
	for i := 0; i < 1000; i++ {
		a, err := ParseAmount("0.1")
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		total = total.Add(a)
	}
	if total.Paise != 10000 || total.Format() != "₹100" {
		t.Fatalf("expected ₹100, got %s (%d)", total.Format(), total.Paise)
	}
}
