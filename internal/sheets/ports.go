// Package sheets mirrors transactions into a spreadsheet, one row per transaction.
package sheets

import (
	"context"

	"spendlog/internal/core"
)

// Mirror is the outbound port the worker writes to. Both operations are
// idempotent: upserting twice leaves one row, deleting a missing row is a no-op.
type Mirror interface {
	UpsertTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
}
