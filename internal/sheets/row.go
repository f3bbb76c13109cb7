package sheets

import (
	"strconv"
	"time"

	"spendlog/internal/core"
)

// Header is the first row of the mirror sheet. Column A is always the ID.
var Header = []any{"ID", "User", "Date", "Description", "Amount", "Payment Mode", "Category", "Split", "Split With", "Updated At"}

// LastColumn is the letter of the last column in Header.
const LastColumn = "J"

// ToRow lays out t in Header order. Amount is written as a plain decimal
// string so the sheet parses it without a float round trip.
func ToRow(t core.Transaction, loc *time.Location) []any {
	if loc == nil {
		loc = time.UTC
	}
	date := ""
	if !t.Date.IsZero() {
		date = t.Date.In(loc).Format("2006-01-02 15:04:05")
	}
	return []any{
		t.ID,
		t.UserID,
		date,
		t.Description,
		t.Amount.Decimal(),
		t.PaymentMode.Label(),
		t.Category.Label(),
		strconv.FormatBool(t.IsSplit),
		t.SplitWith,
		t.UpdatedAt.In(loc).Format(time.RFC3339),
	}
}
