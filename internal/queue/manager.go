// Package queue owns the in-memory list of not-yet-submitted transactions
// for one entity kind and mirrors every mutation to the durable store.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/samhvw8/finance-tracking/internal/log"
)

// Item is anything that can sit in a queue. WithID returns a copy carrying
// the assigned identifier, keeping the stored value immutable.
type Item[T any] interface {
	QueueID() int64
	WithID(id int64) T
}

// Persister mirrors the queue into the durable store. Replace must leave
// the persisted set equal to items, atomically.
type Persister[T any] interface {
	Replace(ctx context.Context, items []T) error
	Load(ctx context.Context) ([]T, error)
	Clear(ctx context.Context) error
}

type State int

const (
	Uninitialized State = iota
	Loading
	Ready
)

// Manager keeps the authoritative in-memory queue. The in-memory list is
// the source of truth for the session: persistence failures on add and
// remove are logged and swallowed, so the user keeps working even when
// the store is degraded.
type Manager[T Item[T]] struct {
	mu      sync.Mutex
	items   []T
	state   State
	persist Persister[T]
	logger  *log.Logger
	lastID  int64

	now func() time.Time
}

// New returns a manager in the Uninitialized state. Pass a nil persister
// to run memory-only; Load then goes straight to Ready with an empty list.
func New[T Item[T]](persist Persister[T], logger *log.Logger) *Manager[T] {
	return &Manager[T]{
		persist: persist,
		logger:  logger,
		now:     time.Now,
	}
}

// Load restores the persisted queue. With persistence disabled or an
// unreadable store the manager still comes up Ready and empty.
func (m *Manager[T]) Load(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Ready {
		return len(m.items), nil
	}
	m.state = Loading

	if m.persist == nil {
		m.state = Ready
		return 0, nil
	}

	items, err := m.persist.Load(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "Queue restore failed, starting empty", "error", err)
		m.state = Ready
		return 0, err
	}

	m.items = items
	for _, it := range items {
		if id := it.QueueID(); id > m.lastID {
			m.lastID = id
		}
	}
	m.state = Ready

	if len(items) > 0 {
		m.logger.InfoContext(ctx, "Queue restored from store", "count", len(items))
	}
	return len(items), nil
}

// State returns the lifecycle state.
func (m *Manager[T]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Add assigns a locally-unique id, appends and re-persists. Validation is
// the caller's job before calling. Returns the assigned id.
func (m *Manager[T]) Add(ctx context.Context, item T) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Current time in millis; bumped when two adds land in the same
	// millisecond so ids stay strictly increasing.
	id := m.now().UnixMilli()
	if id <= m.lastID {
		id = m.lastID + 1
	}
	m.lastID = id

	m.items = append(m.items, item.WithID(id))
	m.rePersist(ctx)
	return id
}

// Remove filters the id out of the queue and re-persists. Removing an
// unknown id is a no-op.
func (m *Manager[T]) Remove(ctx context.Context, id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.items[:0]
	for _, it := range m.items {
		if it.QueueID() != id {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(m.items) {
		return
	}
	m.items = kept
	m.rePersist(ctx)
}

// RemoveBatch drops every listed id in one mutation, used after a batch
// submission so items queued mid-flight survive for the next flush.
func (m *Manager[T]) RemoveBatch(ctx context.Context, ids []int64) {
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.items[:0]
	for _, it := range m.items {
		if _, ok := drop[it.QueueID()]; !ok {
			kept = append(kept, it)
		}
	}
	m.items = kept
	m.rePersist(ctx)
}

// Clear empties memory and the backing collection. Unlike add/remove the
// store error is returned: a crash between the memory clear and the store
// clear would resurrect stale entries on the next load, so callers must
// await this before treating the queue as empty.
func (m *Manager[T]) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = nil
	if m.persist == nil {
		return nil
	}
	if err := m.persist.Clear(ctx); err != nil {
		m.logger.ErrorContext(ctx, "Failed to clear persisted queue", "error", err)
		return err
	}
	return nil
}

// Items returns a copy of the current queue in insertion order.
func (m *Manager[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]T(nil), m.items...)
}

// Count returns the number of queued items.
func (m *Manager[T]) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// HasItems reports whether anything is queued.
func (m *Manager[T]) HasItems() bool {
	return m.Count() > 0
}

// rePersist rewrites the whole backing collection so the persisted state
// exactly mirrors memory after every mutation. O(n) per mutation, which
// is fine for the tens of items this queue is expected to hold. Callers
// hold m.mu.
func (m *Manager[T]) rePersist(ctx context.Context) {
	if m.persist == nil {
		return
	}
	if err := m.persist.Replace(ctx, m.items); err != nil {
		m.logger.ErrorContext(ctx, "Queue persistence failed, continuing in memory",
			"error", err, "count", len(m.items))
	}
}
