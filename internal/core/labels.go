package core

import (
	"fmt"
	"strings"
)

const (
	PaymentCash       PaymentMode = "CASH"
	PaymentCard       PaymentMode = "CARD"
	PaymentUPI        PaymentMode = "UPI"
	PaymentNetBanking PaymentMode = "NET_BANKING"
)

const (
	CategoryFood          Category = "FOOD"
	CategoryTransport     Category = "TRANSPORT"
	CategoryShopping      Category = "SHOPPING"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryBills         Category = "BILLS"
	CategoryHealth        Category = "HEALTH"
	CategoryTravel        Category = "TRAVEL"
	CategoryOther         Category = "OTHER"
)

type (
	PaymentMode string
	Category    string

	// LabelEntry is one row of the enum table shared by filtering, reports and the API.
	LabelEntry struct {
		Value string `json:"value"`
		Label string `json:"label"`
		Icon  string `json:"icon"`
	}
)

// Declaration order is the canonical display order.
var paymentModeTable = []LabelEntry{
	{Value: string(PaymentCash), Label: "Cash", Icon: "💵"},
	{Value: string(PaymentCard), Label: "Card", Icon: "💳"},
	{Value: string(PaymentUPI), Label: "UPI", Icon: "📱"},
	{Value: string(PaymentNetBanking), Label: "Net Banking", Icon: "🏦"},
}

var categoryTable = []LabelEntry{
	{Value: string(CategoryFood), Label: "Food & Dining", Icon: "🍽️"},
	{Value: string(CategoryTransport), Label: "Transportation", Icon: "🚗"},
	{Value: string(CategoryShopping), Label: "Shopping", Icon: "🛍️"},
	{Value: string(CategoryEntertainment), Label: "Entertainment", Icon: "🎮"},
	{Value: string(CategoryBills), Label: "Bills & Utilities", Icon: "💡"},
	{Value: string(CategoryHealth), Label: "Health & Fitness", Icon: "💪"},
	{Value: string(CategoryTravel), Label: "Travel", Icon: "✈️"},
	{Value: string(CategoryOther), Label: "Other", Icon: "📦"},
}

// PaymentModes returns every payment mode in display order.
func PaymentModes() []PaymentMode {
	out := make([]PaymentMode, len(paymentModeTable))
	for i, e := range paymentModeTable {
		out[i] = PaymentMode(e.Value)
	}
	return out
}

// Categories returns every category in display order.
func Categories() []Category {
	out := make([]Category, len(categoryTable))
	for i, e := range categoryTable {
		out[i] = Category(e.Value)
	}
	return out
}

// PaymentModeTable returns a copy of the payment mode label table.
func PaymentModeTable() []LabelEntry {
	return append([]LabelEntry(nil), paymentModeTable...)
}

// CategoryTable returns a copy of the category label table.
func CategoryTable() []LabelEntry {
	return append([]LabelEntry(nil), categoryTable...)
}

func (m PaymentMode) Valid() bool {
	_, ok := lookupValue(paymentModeTable, string(m))
	return ok
}

// Label returns the human label, or the raw value for unknown modes.
func (m PaymentMode) Label() string {
	if e, ok := lookupValue(paymentModeTable, string(m)); ok {
		return e.Label
	}
	return string(m)
}

func (m PaymentMode) Icon() string {
	if e, ok := lookupValue(paymentModeTable, string(m)); ok {
		return e.Icon
	}
	return ""
}

func (c Category) Valid() bool {
	_, ok := lookupValue(categoryTable, string(c))
	return ok
}

// Label returns the human label, or the raw value for unknown categories.
func (c Category) Label() string {
	if e, ok := lookupValue(categoryTable, string(c)); ok {
		return e.Label
	}
	return string(c)
}

func (c Category) Icon() string {
	if e, ok := lookupValue(categoryTable, string(c)); ok {
		return e.Icon
	}
	return ""
}

// ParsePaymentMode accepts an enum value or a human label, case-insensitively.
// "net banking", "net-banking" and "NET_BANKING" all resolve to PaymentNetBanking.
func ParsePaymentMode(s string) (PaymentMode, error) {
	e, ok := lookupAny(paymentModeTable, s)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMode, s)
	}
	return PaymentMode(e.Value), nil
}

// ParseCategory accepts an enum value or a human label. Blank input yields CategoryOther.
func ParseCategory(s string) (Category, error) {
	if strings.TrimSpace(s) == "" {
		return CategoryOther, nil
	}
	e, ok := lookupAny(categoryTable, s)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return Category(e.Value), nil
}

func lookupValue(table []LabelEntry, v string) (LabelEntry, bool) {
	for _, e := range table {
		if e.Value == v {
			return e, true
		}
	}
	return LabelEntry{}, false
}

func lookupAny(table []LabelEntry, s string) (LabelEntry, bool) {
	key := normalizeKey(s)
	if key == "" {
		return LabelEntry{}, false
	}
	for _, e := range table {
		if normalizeKey(e.Value) == key || normalizeKey(e.Label) == key {
			return e, true
		}
	}
	return LabelEntry{}, false
}

func normalizeKey(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
