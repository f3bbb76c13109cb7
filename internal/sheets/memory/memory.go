package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/sheets"
)

// Mirror keeps mirrored rows in memory. It stands in for Google Sheets when
// no spreadsheet is configured, and in tests.
type Mirror struct {
	mu   sync.Mutex
	loc  *time.Location
	rows map[string][]any
}

func New(loc *time.Location) *Mirror {
	return &Mirror{loc: loc, rows: make(map[string][]any)}
}

func (m *Mirror) UpsertTransaction(ctx context.Context, t core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[t.ID] = sheets.ToRow(t, m.loc)
	slog.DebugContext(ctx, "Mirrored transaction in memory", "id", t.ID)
	return nil
}

func (m *Mirror) DeleteTransaction(_ context.Context, _ string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

// Row returns the mirrored row for id.
func (m *Mirror) Row(id string) ([]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	return r, ok
}

// IDs returns the mirrored IDs in sorted order.
func (m *Mirror) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.rows))
	for id := range m.rows {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

var _ sheets.Mirror = (*Mirror)(nil)
