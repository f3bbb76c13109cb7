package postgres

import (
	"testing"
	"time"
)

func TestNullTime(t *testing.T) {
	if nullTime(time.Time{}) != nil {
		t.Fatalf("zero time should be stored as NULL")
	}
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := nullTime(ts); got == nil || !got.Equal(ts) {
		t.Fatalf("expected %v, got %v", ts, got)
	}
}
