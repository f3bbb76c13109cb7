//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"spendlog/internal/core"
	"spendlog/internal/store"
)

// Integration tests require a reachable PostgreSQL
// Run with: DATABASE_URL=... go test -tags=integration ./internal/storage/postgres

func TestIntegration_PostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	repo, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()

	userID := "it-" + uuid.NewString()
	if err := repo.EnsureUser(ctx, core.User{ID: userID}); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	tx := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      core.NewMoney(42, 50),
		Description: "integration",
		PaymentMode: core.PaymentCard,
		Category:    core.CategoryShopping,
		Date:        now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.CreateTransaction(ctx, tx); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, err := repo.GetTransaction(ctx, userID, tx.ID)
	if err != nil || got.Amount != tx.Amount || !got.Date.Equal(now) {
		t.Fatalf("unexpected get %+v %v", got, err)
	}

	mode := core.PaymentCash
	if _, err := repo.UpdateTransaction(ctx, userID, tx.ID, core.TransactionPatch{PaymentMode: &mode}, now.Add(time.Minute)); err != nil {
		t.Fatalf("update: %v", err)
	}
	pending, err := repo.PendingSync(ctx, 1000)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	found := false
	for _, p := range pending {
		if p.ID == tx.ID && p.Version == 2 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected updated row pending at version 2")
	}

	if err := repo.DeleteTransaction(ctx, userID, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, userID, tx.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
