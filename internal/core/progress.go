package core

// progress.go tracks per-table migration progress for concurrent readers.
//
// The pipeline is the only writer. Readers (the status server) take
// snapshots or subscribe to a channel of updates. A slow subscriber misses
// intermediate updates rather than blocking the migration.

import (
	"sync"
	"time"
)

// TableProgress is the observable state of one table.
type TableProgress struct {
	Table        string     `json:"table"`
	State        TableState `json:"state"`
	Batches      int        `json:"batches"`
	RowsRead     int        `json:"rows_read"`
	Inserted     int64      `json:"inserted"`
	VerifiedRows int        `json:"verified_rows"`
	Error        string     `json:"error,omitempty"`
	Code         string     `json:"code,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Tracker holds the progress of every table in a run.
type Tracker struct {
	mu     sync.RWMutex
	order  []string
	tables map[string]*TableProgress

	listenerMu sync.Mutex
	listeners  []chan TableProgress
	closed     bool
}

// NewTracker creates a Tracker with tables in the pending state.
func NewTracker(tables ...string) *Tracker {
	t := &Tracker{tables: make(map[string]*TableProgress, len(tables))}
	for _, table := range tables {
		t.add(table)
	}
	return t
}

func (t *Tracker) add(table string) *TableProgress {
	p := &TableProgress{Table: table, State: StatePending}
	t.tables[table] = p
	t.order = append(t.order, table)
	return p
}

// Update applies fn to the progress of table and notifies subscribers.
// Unknown tables are added in call order.
func (t *Tracker) Update(table string, fn func(*TableProgress)) {
	t.mu.Lock()
	p, ok := t.tables[table]
	if !ok {
		p = t.add(table)
	}
	fn(p)
	snapshot := *p
	t.mu.Unlock()

	t.notify(snapshot)
}

// SetState moves table to state, stamping start and finish times.
func (t *Tracker) SetState(table string, state TableState) {
	t.Update(table, func(p *TableProgress) {
		now := time.Now().UTC()
		if p.StartedAt == nil && state != StatePending {
			p.StartedAt = &now
		}
		if state.Terminal() {
			p.FinishedAt = &now
		}
		p.State = state
	})
}

// Get returns the progress of a single table.
func (t *Tracker) Get(table string) (TableProgress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.tables[table]
	if !ok {
		return TableProgress{}, false
	}
	return *p, true
}

// Snapshot returns a copy of every table's progress in registration order.
func (t *Tracker) Snapshot() []TableProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]TableProgress, 0, len(t.order))
	for _, table := range t.order {
		result = append(result, *t.tables[table])
	}
	return result
}

// Done reports whether every tracked table is in a terminal state.
func (t *Tracker) Done() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, p := range t.tables {
		if !p.State.Terminal() {
			return false
		}
	}
	return true
}

// Subscribe returns a channel that receives every progress update.
// The channel is closed by Close. Subscribing after Close returns a closed
// channel.
func (t *Tracker) Subscribe() <-chan TableProgress {
	ch := make(chan TableProgress, 16)

	t.listenerMu.Lock()
	defer t.listenerMu.Unlock()

	if t.closed {
		close(ch)
		return ch
	}
	t.listeners = append(t.listeners, ch)
	return ch
}

// Close closes all subscriber channels. It is safe to call more than once.
func (t *Tracker) Close() {
	t.listenerMu.Lock()
	defer t.listenerMu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	for _, ch := range t.listeners {
		close(ch)
	}
	t.listeners = nil
}

func (t *Tracker) notify(p TableProgress) {
	t.listenerMu.Lock()
	defer t.listenerMu.Unlock()

	for _, ch := range t.listeners {
		select {
		case ch <- p:
		default:
			// Listener is slow, skip this update
		}
	}
}
