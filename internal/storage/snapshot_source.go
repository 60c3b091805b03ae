package storage

import (
	"context"
	"sync"
	"time"

	"github.com/radiusdt/prediction-monitor/internal/models"
)

const snapshotDateLayout = "20060102"

// InMemorySnapshotSource serves snapshots held in memory, e.g. generated
// mock data.
type InMemorySnapshotSource struct {
	mu   sync.RWMutex
	name string
	rows []models.RawSnapshot
}

// NewInMemorySnapshotSource creates a source over the given rows.
func NewInMemorySnapshotSource(name string, rows []models.RawSnapshot) *InMemorySnapshotSource {
	return &InMemorySnapshotSource{name: name, rows: rows}
}

func (s *InMemorySnapshotSource) Name() string {
	return s.name
}

// Add appends rows to the source.
func (s *InMemorySnapshotSource) Add(rows ...models.RawSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
}

// LoadSnapshots returns the rows whose snapshot date lies within q. Rows with
// an unreadable timestamp are always returned so that reconciliation can
// report them.
func (s *InMemorySnapshotSource) LoadSnapshots(ctx context.Context, q SnapshotQuery) ([]models.RawSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.RawSnapshot, 0, len(s.rows))
	for _, r := range s.rows {
		d, ok := snapshotDate(r.SnapshotTime)
		if ok && !inRange(d, q) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func snapshotDate(ts string) (time.Time, bool) {
	if len(ts) < len(snapshotDateLayout) {
		return time.Time{}, false
	}
	d, err := time.Parse(snapshotDateLayout, ts[:len(snapshotDateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func inRange(d time.Time, q SnapshotQuery) bool {
	if !q.Since.IsZero() && d.Before(truncateDay(q.Since)) {
		return false
	}
	if !q.Until.IsZero() && d.After(truncateDay(q.Until)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
