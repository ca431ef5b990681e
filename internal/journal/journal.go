// Package journal records every cancel and place attempt made from the
// dashboard, successful or not.
package journal

import (
	"context"
	"sync"
	"time"
)

type Action string

const (
	ActionCancel Action = "cancel"
	ActionPlace  Action = "place"
)

type Entry struct {
	ID      int64     `db:"id" json:"id"`
	At      time.Time `db:"at" json:"at"`
	Action  Action    `db:"action" json:"action"`
	Account string    `db:"account" json:"account"`
	OrderID int64     `db:"order_id" json:"order_id,omitempty"`
	Symbol  string    `db:"symbol" json:"symbol,omitempty"`
	Side    string    `db:"side" json:"side,omitempty"`
	Qty     int64     `db:"quantity" json:"quantity,omitempty"`
	Tag     string    `db:"tag" json:"tag,omitempty"`
	Error   string    `db:"error" json:"error,omitempty"`
}

func (e Entry) Failed() bool { return e.Error != "" }

type Recorder interface {
	Record(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Memory keeps the last size entries.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	lastID  int64
}

var _ Recorder = (*Memory)(nil)

func NewMemory(size int) *Memory {
	if size <= 0 {
		size = 1
	}
	return &Memory{entries: make([]Entry, size)}
}

func (m *Memory) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastID++
	e.ID = m.lastID
	if e.At.IsZero() {
		e.At = time.Now()
	}
	m.entries[m.next] = e
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

func (m *Memory) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.next
	if m.full {
		n = len(m.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out, nil
}
