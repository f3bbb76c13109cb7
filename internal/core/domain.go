package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxDescriptionLen bounds the free-text description, in characters.
const MaxDescriptionLen = 200

type (
	// Transaction is a single expense owned by exactly one user.
	Transaction struct {
		ID          string      `json:"id"`
		UserID      string      `json:"userId"`
		Amount      Money       `json:"amount"`
		Description string      `json:"description"`
		PaymentMode PaymentMode `json:"paymentMode"`
		Category    Category    `json:"category"`
		IsSplit     bool        `json:"isSplit"`
		SplitWith   string      `json:"splitWith,omitempty"`
		// Date is the bucketing key. Zero means the stored value could not be read.
		Date      time.Time `json:"date"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
		// Version increases on every update; the mirror uses it to skip stale work.
		Version int64 `json:"version"`
	}

	// TransactionInput carries the caller-supplied fields of a new transaction.
	TransactionInput struct {
		Amount      Money
		Description string
		PaymentMode PaymentMode
		Category    Category
		IsSplit     bool
		SplitWith   string
		Date        time.Time
	}

	// TransactionPatch is a partial update; nil fields are left untouched.
	TransactionPatch struct {
		Amount      *Money
		Description *string
		PaymentMode *PaymentMode
		Category    *Category
		IsSplit     *bool
		SplitWith   *string
		Date        *time.Time
	}

	// User is the owner record, provisioned on first write.
	User struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"createdAt"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrInvalidPaymentMode = errors.New("invalid payment mode")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyUser          = errors.New("empty user id")
)

// Normalize trims text fields, applies the category default and clears
// SplitWith when the transaction is not split.
func (in TransactionInput) Normalize() TransactionInput {
	in.Description = strings.TrimSpace(in.Description)
	in.SplitWith = strings.TrimSpace(in.SplitWith)
	if in.Category == "" {
		in.Category = CategoryOther
	}
	if !in.IsSplit {
		in.SplitWith = ""
	}
	return in
}

func (in TransactionInput) Validate() error {
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Description) == "" {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if !in.PaymentMode.Valid() {
		return ErrInvalidPaymentMode
	}
	if in.Category != "" && !in.Category.Valid() {
		return ErrInvalidCategory
	}
	if in.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewTransaction builds a transaction from validated input.
func NewTransaction(id, userID string, in TransactionInput, now time.Time) (Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return Transaction{}, ErrEmptyUser
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:          id,
		UserID:      userID,
		Amount:      in.Amount,
		Description: in.Description,
		PaymentMode: in.PaymentMode,
		Category:    in.Category,
		IsSplit:     in.IsSplit,
		SplitWith:   in.SplitWith,
		Date:        in.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}, nil
}

// Validate checks a stored transaction. A zero Date is tolerated: such rows
// are kept but never fall inside a date range.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	in := TransactionInput{
		Amount:      t.Amount,
		Description: t.Description,
		PaymentMode: t.PaymentMode,
		Category:    t.Category,
		Date:        t.Date,
	}
	if t.Date.IsZero() {
		in.Date = time.Unix(0, 0)
	}
	return in.Validate()
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Amount == nil && p.Description == nil && p.PaymentMode == nil &&
		p.Category == nil && p.IsSplit == nil && p.SplitWith == nil && p.Date == nil
}

// Apply returns t with the patch applied and validated. ID and UserID never change.
func (p TransactionPatch) Apply(t Transaction, now time.Time) (Transaction, error) {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.PaymentMode != nil {
		t.PaymentMode = *p.PaymentMode
	}
	if p.Category != nil {
		t.Category = *p.Category
		if t.Category == "" {
			t.Category = CategoryOther
		}
	}
	if p.IsSplit != nil {
		t.IsSplit = *p.IsSplit
	}
	if p.SplitWith != nil {
		t.SplitWith = strings.TrimSpace(*p.SplitWith)
	}
	if !t.IsSplit {
		t.SplitWith = ""
	}
	if p.Date != nil {
		if p.Date.IsZero() {
			return Transaction{}, ErrInvalidDate
		}
		t.Date = *p.Date
	}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	t.UpdatedAt = now
	return t, nil
}

// SplitParticipants returns the trimmed, non-empty names in SplitWith.
func (t Transaction) SplitParticipants() []string {
	if !t.IsSplit || t.SplitWith == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(t.SplitWith, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
