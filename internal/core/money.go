// Package core provides money parsing and handling utilities.
//
// Amounts are fixed-point paise (1/100 rupee). They are never routed through
// float64 on the way in, so sums over many transactions do not drift.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// CurrencySymbol is the single implicit currency of every amount.
const CurrencySymbol = "₹"

// Money is an amount in paise.
type Money struct {
	Paise int64
}

// ParseDecimalToPaise converts a decimal string to paise with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Negative values are rejected;
// zero is allowed.
//
// Examples:
//
//	ParseDecimalToPaise("12.34") -> 1234, nil
//	ParseDecimalToPaise("12,34") -> 1234, nil
//	ParseDecimalToPaise("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToPaise("12.344") -> 1234, nil
func ParseDecimalToPaise(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// First two fractional digits, then half-up on the third.
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	return iv*100 + frac, nil
}

// ParseAmount parses user input into Money.
func ParseAmount(s string) (Money, error) {
	p, err := ParseDecimalToPaise(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Paise: p}, nil
}

// NewMoney builds Money from whole rupees and paise.
func NewMoney(rupees, paise int64) Money {
	return Money{Paise: rupees*100 + paise}
}

func (m Money) Add(o Money) Money {
	return Money{Paise: m.Paise + o.Paise}
}

func (m Money) IsZero() bool {
	return m.Paise == 0
}

func (m Money) Validate() error {
	if m.Paise < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Rupees returns the value as float64 for display and charting only.
func (m Money) Rupees() float64 {
	return float64(m.Paise) / 100.0
}

// Decimal renders the plain decimal value without grouping, keeping only the
// fraction digits that carry information: 100, 12.5, 0.05.
func (m Money) Decimal() string {
	neg := m.Paise < 0
	p := m.Paise
	if neg {
		p = -p
	}
	s := strconv.FormatInt(p/100, 10) + fraction(p%100)
	if neg {
		return "-" + s
	}
	return s
}

// Grouped renders the value with thousands separators: 1,234.5.
func (m Money) Grouped() string {
	neg := m.Paise < 0
	p := m.Paise
	if neg {
		p = -p
	}
	s := humanize.Comma(p/100) + fraction(p%100)
	if neg {
		return "-" + s
	}
	return s
}

// Format renders the amount with the currency symbol: ₹1,234.5.
func (m Money) Format() string {
	if m.Paise < 0 {
		return "-" + CurrencySymbol + Money{Paise: -m.Paise}.Grouped()
	}
	return CurrencySymbol + m.Grouped()
}

func (m Money) String() string {
	return m.Format()
}

// MarshalJSON writes the amount as a JSON number in rupees.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string, without float conversion.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Money{}
		return nil
	}
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("amount: %w", err)
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		raw = n.String()
	}
	p, err := ParseDecimalToPaise(raw)
	if err != nil {
		return err
	}
	m.Paise = p
	return nil
}

func fraction(p int64) string {
	switch {
	case p == 0:
		return ""
	case p%10 == 0:
		return "." + strconv.FormatInt(p/10, 10)
	default:
		return fmt.Sprintf(".%02d", p)
	}
}
