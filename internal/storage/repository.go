// Package storage is the SQLite transaction store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/store"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EnsureUser implements store.UserProvisioner
func (r *SQLiteRepository) EnsureUser(ctx context.Context, u core.User) error {
	if u.ID == "" {
		return core.ErrEmptyUser
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, created_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		u.ID, u.Email, created.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

const selectColumns = `id, user_id, amount_paise, description, payment_mode, category, is_split, split_with, date, created_at, updated_at, version`

// ListTransactions implements store.Lister
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(ctx, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// GetTransaction implements store.Getter
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	return r.get(ctx, r.db, userID, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteRepository) get(ctx context.Context, q queryer, userID, id string) (core.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	return t, err
}

// CreateTransaction implements store.Writer
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM transactions WHERE id = ?`, t.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check transaction: %w", err)
	}
	if exists > 0 {
		return store.ErrConflict
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO transactions
		(id, user_id, amount_paise, description, payment_mode, category, is_split, split_with, date, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Amount.Paise, t.Description, string(t.PaymentMode), string(t.Category),
		boolToInt(t.IsSplit), t.SplitWith, formatTime(t.Date), formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
		max(t.Version, 1))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"user_id", t.UserID,
		"amount_paise", t.Amount.Paise)
	return nil
}

// UpdateTransaction implements store.Writer. The row is read and written in
// one transaction and its version bumped so the mirror picks it up again.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID, id string, p core.TransactionPatch, now time.Time) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	current, err := r.get(ctx, tx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	updated, err := p.Apply(current, now)
	if err != nil {
		return core.Transaction{}, err
	}
	updated.Version = current.Version + 1
	_, err = tx.ExecContext(ctx, `UPDATE transactions SET
		amount_paise = ?, description = ?, payment_mode = ?, category = ?, is_split = ?, split_with = ?,
		date = ?, updated_at = ?, sync_status = 'pending', version = ?
		WHERE id = ? AND user_id = ?`,
		updated.Amount.Paise, updated.Description, string(updated.PaymentMode), string(updated.Category),
		boolToInt(updated.IsSplit), updated.SplitWith, formatTime(updated.Date), formatTime(updated.UpdatedAt),
		updated.Version, id, userID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

// DeleteTransaction implements store.Writer
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// PendingSync returns rows that still need to be mirrored, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]store.PendingSync, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, version, updated_at FROM transactions
		WHERE sync_status IN ('pending', 'error') ORDER BY updated_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []store.PendingSync
	for rows.Next() {
		var p store.PendingSync
		var updated string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Version, &updated); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		p.UpdatedAt = parseTime(ctx, updated, "updated_at", p.ID)
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks a row as mirrored. A newer version written meanwhile stays pending.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE transactions SET sync_status = 'synced' WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.DebugContext(ctx, "Transaction marked as synced", "id", id, "version", version)
	return nil
}

// MarkSyncError marks a row as having sync errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(ctx context.Context, s scanner) (core.Transaction, error) {
	var (
		t                         core.Transaction
		mode, category            string
		isSplit                   int
		date, createdAt, updateAt string
	)
	err := s.Scan(&t.ID, &t.UserID, &t.Amount.Paise, &t.Description, &mode, &category,
		&isSplit, &t.SplitWith, &date, &createdAt, &updateAt, &t.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.PaymentMode = core.PaymentMode(mode)
	t.Category = core.Category(category)
	t.IsSplit = isSplit != 0
	t.Date = parseTime(ctx, date, "date", t.ID)
	t.CreatedAt = parseTime(ctx, createdAt, "created_at", t.ID)
	t.UpdatedAt = parseTime(ctx, updateAt, "updated_at", t.ID)
	return t, nil
}

// parseTime tolerates bad values: they become the zero time, which the
// aggregation treats as undated.
func parseTime(ctx context.Context, v, column, id string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		slog.WarnContext(ctx, "Unparseable timestamp in store", "id", id, "column", column, "value", v)
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var (
	_ store.Store     = (*SQLiteRepository)(nil)
	_ store.SyncQueue = (*SQLiteRepository)(nil)
)

var (
	_ store.Store     = (*SQLiteRepository)(nil)
	_ store.SyncQueue = (*SQLiteRepository)(nil)
)
