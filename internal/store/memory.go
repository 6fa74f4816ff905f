package store

import (
	"context"
	"sync"
	"time"

	"github.com/mrz1836/satvault/internal/wallet"
)

// MemoryStore keeps records in process memory. Records are copied on the
// way in and out so callers cannot mutate stored state.
type MemoryStore struct {
	mu      sync.Mutex
	records []*wallet.WalletRecord
	closed  bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return wrap("context", err)
	}
	if m.closed {
		return wrap("memory", ErrClosed)
	}
	return nil
}

// Count implements Store.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return 0, err
	}
	return len(m.records), nil
}

// Add implements Store.
func (m *MemoryStore) Add(ctx context.Context, rec *wallet.WalletRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	m.records = append(m.records, rec.Clone())
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	m.records = nil
	return nil
}

// ReplaceAll implements Replacer.
func (m *MemoryStore) ReplaceAll(ctx context.Context, rec *wallet.WalletRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	m.records = []*wallet.WalletRecord{rec.Clone()}
	return nil
}

// Last implements Store.
func (m *MemoryStore) Last(ctx context.Context, field OrderBy) (*wallet.WalletRecord, error) {
	if !field.valid() {
		return nil, ErrUnknownOrder
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	return lastOf(m.records, field).Clone(), nil
}

// Touch implements Store.
func (m *MemoryStore) Touch(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	if !touchIn(m.records, id, at) {
		return wrap("touch", ErrNotFound)
	}
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
