package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/satvault/internal/vaultcrypto"
	"github.com/mrz1836/satvault/internal/wallet"
)

// mockKeyring is an in-memory Keyring.
type mockKeyring struct {
	mu    sync.Mutex
	items map[string]string
	err   error
}

func newMockKeyring() *mockKeyring {
	return &mockKeyring{items: make(map[string]string)}
}

func (m *mockKeyring) Set(service, user, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items[service+"/"+user] = secret
	return nil
}

func (m *mockKeyring) Get(service, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.items[service+"/"+user]
	if !ok {
		return "", ErrKeyringItemNotFound
	}
	return v, nil
}

func (m *mockKeyring) Delete(service, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.items[service+"/"+user]; !ok {
		return ErrKeyringItemNotFound
	}
	delete(m.items, service+"/"+user)
	return nil
}

func testRecord(name string, created time.Time) *wallet.WalletRecord {
	return &wallet.WalletRecord{
		ID:                wallet.NewRecordID(),
		Name:              name,
		Version:           wallet.RecordVersion,
		Network:           wallet.Mainnet,
		KDF:               vaultcrypto.FastKDFParams(vaultcrypto.KDFArgon2id),
		Cipher:            vaultcrypto.CipherAESGCM,
		EncryptedMnemonic: vaultcrypto.Bytes{0xde, 0xad, 0xbe, 0xef},
		Salt:              make(vaultcrypto.Bytes, vaultcrypto.SaltSize),
		IV:                make(vaultcrypto.Bytes, 12),
		Address:           "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu",
		CreatedAt:         created.UTC(),
	}
}

type backendCase struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backendCase {
	return []backendCase{
		{"memory", func(*testing.T) Store { return NewMemoryStore() }},
		{"file", func(t *testing.T) Store {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "home", DefaultFileName))
			require.NoError(t, err)
			return s
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), DefaultSQLiteFileName))
			require.NoError(t, err)
			return s
		}},
		{"keyring", func(*testing.T) Store { return NewKeyringStore(newMockKeyring()) }},
	}
}

func TestStoreContract(t *testing.T) {
	t.Parallel()

	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := bc.open(t)
			t.Cleanup(func() { _ = s.Close() })

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			last, err := s.Last(ctx, OrderByLastUsed)
			require.NoError(t, err)
			assert.Nil(t, last)

			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			first := testRecord("first", base)
			second := testRecord("second", base.Add(time.Hour))
			require.NoError(t, s.Add(ctx, first))
			require.NoError(t, s.Add(ctx, second))

			n, err = s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			last, err = s.Last(ctx, OrderByCreatedAt)
			require.NoError(t, err)
			require.NotNil(t, last)
			assert.Equal(t, second, last)

			// Touch moves the first record to the front by last_used.
			require.NoError(t, s.Touch(ctx, first.ID, base.Add(2*time.Hour)))
			last, err = s.Last(ctx, OrderByLastUsed)
			require.NoError(t, err)
			assert.Equal(t, first.ID, last.ID)
			assert.True(t, last.LastUsed.Equal(base.Add(2*time.Hour)))

			require.ErrorIs(t, s.Touch(ctx, "missing", base), ErrNotFound)
			require.ErrorIs(t, s.Touch(ctx, "missing", base), ErrStorage)

			require.NoError(t, s.Clear(ctx))
			n, err = s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			// Clear on an empty store is fine.
			require.NoError(t, s.Clear(ctx))
		})
	}
}

func TestReplace_LeavesExactlyOne(t *testing.T) {
	t.Parallel()

	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := bc.open(t)
			t.Cleanup(func() { _ = s.Close() })

			now := time.Now()
			require.NoError(t, s.Add(ctx, testRecord("a", now)))
			require.NoError(t, s.Add(ctx, testRecord("b", now)))

			replacement := testRecord("c", now)
			require.NoError(t, Replace(ctx, s, replacement))

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			last, err := s.Last(ctx, OrderByCreatedAt)
			require.NoError(t, err)
			assert.Equal(t, "c", last.Name)

			require.ErrorIs(t, Replace(ctx, s, nil), ErrNilRecord)
		})
	}
}

// clearAddOnly hides the Replacer implementation of the wrapped store.
type clearAddOnly struct{ Store }

func TestReplace_FallbackWithoutReplacer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := clearAddOnly{NewMemoryStore()}
	require.NoError(t, s.Add(ctx, testRecord("old", time.Now())))
	require.NoError(t, Replace(ctx, s, testRecord("new", time.Now())))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLast_TieGoesToLatestAdded(t *testing.T) {
	t.Parallel()

	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := bc.open(t)
			t.Cleanup(func() { _ = s.Close() })

			at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			require.NoError(t, s.Add(ctx, testRecord("one", at)))
			require.NoError(t, s.Add(ctx, testRecord("two", at)))

			last, err := s.Last(ctx, OrderByCreatedAt)
			require.NoError(t, err)
			assert.Equal(t, "two", last.Name)
		})
	}
}

func TestLast_UnknownOrder(t *testing.T) {
	t.Parallel()

	for _, bc := range backends() {
		s := bc.open(t)
		_, err := s.Last(context.Background(), OrderBy("name"))
		require.ErrorIs(t, err, ErrUnknownOrder, bc.name)
		_ = s.Close()
	}
}

func TestMemoryStore_CopiesRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	rec := testRecord("orig", time.Now())
	require.NoError(t, s.Add(ctx, rec))

	rec.Name = "mutated"
	rec.Salt[0] = 0xff

	got, err := s.Last(ctx, OrderByCreatedAt)
	require.NoError(t, err)
	assert.Equal(t, "orig", got.Name)
	assert.Equal(t, byte(0), got.Salt[0])
}

func TestMemoryStore_ClosedAndCanceled(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Count(ctx)
	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, err, context.Canceled)

	require.NoError(t, s.Close())
	_, err = s.Count(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestFileStore_PermissionsAndFormat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	s, err := NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	require.NoError(t, s.Add(ctx, testRecord("perm", time.Now())))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path) //nolint:gosec // G304: test path
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.InDelta(t, 1, doc["version"], 0)

	require.NoError(t, s.Clear(ctx))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = s.Count(context.Background())
	require.ErrorIs(t, err, ErrCorruptFile)
	require.ErrorIs(t, err, ErrStorage)
}

func TestFileStore_NullRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, testRecord("real", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	doc["records"] = append([]any{nil}, doc["records"].([]any)...)
	data, err = json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = s.Last(ctx, OrderByCreatedAt)
	require.ErrorIs(t, err, ErrCorruptFile)
	require.ErrorIs(t, err, ErrStorage)

	_, err = s.Count(ctx)
	require.ErrorIs(t, err, ErrCorruptFile)

	err = s.Touch(ctx, "real", time.Now())
	require.ErrorIs(t, err, ErrCorruptFile)
}

func TestFileStore_EmptyPath(t *testing.T) {
	t.Parallel()
	_, err := NewFileStore("")
	require.ErrorIs(t, err, ErrStorage)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), DefaultSQLiteFileName)

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	rec := testRecord("durable", time.Date(2026, 5, 6, 7, 8, 9, 123, time.UTC))
	require.NoError(t, s.Add(ctx, rec))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })

	got, err := s2.Last(ctx, OrderByCreatedAt)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestKeyringStore_Failures(t *testing.T) {
	t.Parallel()

	ring := newMockKeyring()
	ring.err = assert.AnError
	s := NewKeyringStore(ring)

	_, err := s.Count(context.Background())
	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, err, assert.AnError)

	ring2 := newMockKeyring()
	require.NoError(t, ring2.Set(KeyringService, KeyringUser, "garbage"))
	_, err = NewKeyringStore(ring2).Count(context.Background())
	require.ErrorIs(t, err, ErrCorruptFile)

	ring3 := newMockKeyring()
	require.NoError(t, ring3.Set(KeyringService, KeyringUser, `{"version":1,"records":[null]}`))
	_, err = NewKeyringStore(ring3).Last(context.Background(), OrderByLastUsed)
	require.ErrorIs(t, err, ErrCorruptFile)
}

func TestKeyringAvailable(t *testing.T) {
	t.Parallel()

	assert.True(t, KeyringAvailable(newMockKeyring()))
	broken := newMockKeyring()
	broken.err = assert.AnError
	assert.False(t, KeyringAvailable(broken))
}

func TestOpen(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	tests := []struct {
		backend Backend
		want    any
	}{
		{"", &FileStore{}},
		{BackendFile, &FileStore{}},
		{BackendSQLite, &SQLiteStore{}},
		{BackendMemory, &MemoryStore{}},
		{BackendKeyring, &KeyringStore{}},
	}
	for _, tt := range tests {
		s, err := Open(Options{Backend: tt.backend, Home: home, Keyring: newMockKeyring()})
		require.NoError(t, err, tt.backend)
		assert.IsType(t, tt.want, s)
		_ = s.Close()
	}

	_, err := Open(Options{Backend: "postgres"})
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestParseBackend(t *testing.T) {
	t.Parallel()

	b, err := ParseBackend(" SQLite ")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, b)

	_, err = ParseBackend("s3")
	require.ErrorIs(t, err, ErrUnknownBackend)
}
