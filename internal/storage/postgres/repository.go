// Package postgres is the PostgreSQL transaction store, backed by a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"spendlog/internal/core"
	"spendlog/internal/store"
)

type Repository struct {
	Pool *pgxpool.Pool
}

// Open connects, migrates and returns a ready repository.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Repository{Pool: pool}, nil
}

func (r *Repository) Close() error {
	r.Pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.Pool.Ping(ctx)
}

func (r *Repository) EnsureUser(ctx context.Context, u core.User) error {
	if u.ID == "" {
		return core.ErrEmptyUser
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO users (id, email, created_at) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		u.ID, u.Email, created)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

const selectColumns = `id, user_id, amount_paise, description, payment_mode, category, is_split, split_with, date, created_at, updated_at, version`

func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+selectColumns+` FROM transactions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	return get(ctx, r.Pool, userID, id)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func get(ctx context.Context, q querier, userID, id string) (core.Transaction, error) {
	row := q.QueryRow(ctx, `SELECT `+selectColumns+` FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	return t, err
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := r.Pool.Exec(ctx, `INSERT INTO transactions
		(id, user_id, amount_paise, description, payment_mode, category, is_split, split_with, date, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.UserID, t.Amount.Paise, t.Description, string(t.PaymentMode), string(t.Category),
		t.IsSplit, t.SplitWith, nullTime(t.Date), t.CreatedAt, t.UpdatedAt, max(t.Version, 1))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, userID, id string, p core.TransactionPatch, now time.Time) (core.Transaction, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+selectColumns+` FROM transactions WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID)
	current, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, err
	}
	updated, err := p.Apply(current, now)
	if err != nil {
		return core.Transaction{}, err
	}
	updated.Version = current.Version + 1
	_, err = tx.Exec(ctx, `UPDATE transactions SET
		amount_paise = $1, description = $2, payment_mode = $3, category = $4, is_split = $5, split_with = $6,
		date = $7, updated_at = $8, sync_status = 'pending', version = $9
		WHERE id = $10 AND user_id = $11`,
		updated.Amount.Paise, updated.Description, string(updated.PaymentMode), string(updated.Category),
		updated.IsSplit, updated.SplitWith, nullTime(updated.Date), updated.UpdatedAt, updated.Version, id, userID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return core.Transaction{}, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) PendingSync(ctx context.Context, limit int) ([]store.PendingSync, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id, user_id, version, updated_at FROM transactions
		WHERE sync_status IN ('pending', 'error') ORDER BY updated_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []store.PendingSync
	for rows.Next() {
		var p store.PendingSync
		if err := rows.Scan(&p.ID, &p.UserID, &p.Version, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) MarkSynced(ctx context.Context, id string, version int64) error {
	_, err := r.Pool.Exec(ctx, `UPDATE transactions SET sync_status = 'synced' WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

func (r *Repository) MarkSyncError(ctx context.Context, id string) error {
	_, err := r.Pool.Exec(ctx, `UPDATE transactions SET sync_status = 'error' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t              core.Transaction
		mode, category string
		date           *time.Time
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Amount.Paise, &t.Description, &mode, &category,
		&t.IsSplit, &t.SplitWith, &date, &t.CreatedAt, &t.UpdatedAt, &t.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.PaymentMode = core.PaymentMode(mode)
	t.Category = core.Category(category)
	if date != nil {
		t.Date = *date
	}
	return t, nil
}

// nullTime stores an unknown date as NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var (
	_ store.Store     = (*Repository)(nil)
	_ store.SyncQueue = (*Repository)(nil)
)

var (
	_ store.Store     = (*Repository)(nil)
	_ store.SyncQueue = (*Repository)(nil)
)
