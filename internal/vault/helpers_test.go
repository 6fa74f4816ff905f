package vault

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mrz1836/satvault/internal/store"
	"github.com/mrz1836/satvault/internal/vaultcrypto"
	"github.com/mrz1836/satvault/internal/wallet"
)

const (
	testPassword  = "CorrectHorse1!"
	otherPassword = "Password1!"

	abandonPhrase  = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	abandonAddress = "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu"
)

var errInjected = errors.New("injected failure")

func newTestManager(t *testing.T, s store.Store, opts ...Option) *Manager {
	t.Helper()
	if s == nil {
		s = store.NewMemoryStore()
	}
	base := []Option{WithKDF(vaultcrypto.FastKDFParams(vaultcrypto.KDFArgon2id))}
	m := New(s, append(base, opts...)...)
	t.Cleanup(m.Lock)
	return m
}

func lastRecord(t *testing.T, s store.Store) *wallet.WalletRecord {
	t.Helper()
	rec, err := s.Last(context.Background(), store.OrderByLastUsed)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec
}

func countRecords(t *testing.T, s store.Store) int {
	t.Helper()
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	return n
}

// faultyStore wraps a MemoryStore and fails selected operations. It does
// not implement store.Replacer, so Replace goes through Clear then Add.
type faultyStore struct {
	inner *store.MemoryStore

	failCount atomic.Bool
	failAdd   atomic.Bool
	failClear atomic.Bool
	failLast  atomic.Bool
	failTouch atomic.Bool
}

func newFaultyStore() *faultyStore {
	return &faultyStore{inner: store.NewMemoryStore()}
}

func (f *faultyStore) Count(ctx context.Context) (int, error) {
	if f.failCount.Load() {
		return 0, errInjected
	}
	return f.inner.Count(ctx)
}

func (f *faultyStore) Add(ctx context.Context, rec *wallet.WalletRecord) error {
	if f.failAdd.Load() {
		return errInjected
	}
	return f.inner.Add(ctx, rec)
}

func (f *faultyStore) Clear(ctx context.Context) error {
	if f.failClear.Load() {
		return errInjected
	}
	return f.inner.Clear(ctx)
}

func (f *faultyStore) Last(ctx context.Context, field store.OrderBy) (*wallet.WalletRecord, error) {
	if f.failLast.Load() {
		return nil, errInjected
	}
	return f.inner.Last(ctx, field)
}

func (f *faultyStore) Touch(ctx context.Context, id string, at time.Time) error {
	if f.failTouch.Load() {
		return errInjected
	}
	return f.inner.Touch(ctx, id, at)
}

func (f *faultyStore) Close() error {
	return f.inner.Close()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
