package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/mrz1836/satvault/internal/wallet"
)

// Keyring entry coordinates for the vault document.
const (
	KeyringService = "satvault"
	KeyringUser    = "wallet-records"
)

// ErrKeyringItemNotFound is returned by a Keyring when no secret exists.
var ErrKeyringItemNotFound = keyring.ErrNotFound

// Keyring is the subset of an OS credential store used by KeyringStore.
type Keyring interface {
	Set(service, user, secret string) error
	Get(service, user string) (string, error)
	Delete(service, user string) error
}

// OSKeyring stores secrets in the platform keychain.
type OSKeyring struct{}

// NewOSKeyring returns the platform keychain.
func NewOSKeyring() *OSKeyring {
	return &OSKeyring{}
}

// Set implements Keyring.
func (*OSKeyring) Set(service, user, secret string) error {
	return keyring.Set(service, user, secret)
}

// Get implements Keyring.
func (*OSKeyring) Get(service, user string) (string, error) {
	return keyring.Get(service, user)
}

// Delete implements Keyring.
func (*OSKeyring) Delete(service, user string) error {
	return keyring.Delete(service, user)
}

// KeyringAvailable reports whether k accepts a write, read and delete.
func KeyringAvailable(k Keyring) bool {
	const checkUser = "availability-check"
	if err := k.Set(KeyringService, checkUser, "ok"); err != nil {
		return false
	}
	v, err := k.Get(KeyringService, checkUser)
	_ = k.Delete(KeyringService, checkUser)
	return err == nil && v == "ok"
}

// KeyringStore keeps the encrypted record document as a single keychain
// secret. The record is already encrypted; the keychain adds OS access
// control on top.
type KeyringStore struct {
	mu     sync.Mutex
	ring   Keyring
	closed bool
}

// NewKeyringStore returns a store backed by ring.
func NewKeyringStore(ring Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

func (k *KeyringStore) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return wrap("context", err)
	}
	if k.closed {
		return wrap("keyring", ErrClosed)
	}
	return nil
}

func (k *KeyringStore) load() ([]*wallet.WalletRecord, error) {
	raw, err := k.ring.Get(KeyringService, KeyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("keyring get", err)
	}
	var doc fileDocument
	if err = json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, wrap("keyring decode", ErrCorruptFile)
	}
	if err = checkRecords(doc.Records); err != nil {
		return nil, wrap("keyring decode", err)
	}
	return doc.Records, nil
}

func (k *KeyringStore) save(records []*wallet.WalletRecord) error {
	data, err := json.Marshal(fileDocument{Version: fileFormatVersion, Records: records})
	if err != nil {
		return wrap("keyring encode", err)
	}
	return wrap("keyring set", k.ring.Set(KeyringService, KeyringUser, string(data)))
}

// Count implements Store.
func (k *KeyringStore) Count(ctx context.Context) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.begin(ctx); err != nil {
		return 0, err
	}
	records, err := k.load()
	return len(records), err
}

// Add implements Store.
func (k *KeyringStore) Add(ctx context.Context, rec *wallet.WalletRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.begin(ctx); err != nil {
		return err
	}
	records, err := k.load()
	if err != nil {
		return err
	}
	return k.save(append(records, rec))
}

// Clear implements Store.
func (k *KeyringStore) Clear(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.begin(ctx); err != nil {
		return err
	}
	err := k.ring.Delete(KeyringService, KeyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return wrap("keyring delete", err)
}

// ReplaceAll implements Replacer. A keychain Set overwrites in one call.
func (k *KeyringStore) ReplaceAll(ctx context.Context, rec *wallet.WalletRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.begin(ctx); err != nil {
		return err
	}
	return k.save([]*wallet.WalletRecord{rec})
}

// Last implements Store.
func (k *KeyringStore) Last(ctx context.Context, field OrderBy) (*wallet.WalletRecord, error) {
	if !field.valid() {
		return nil, ErrUnknownOrder
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.begin(ctx); err != nil {
		return nil, err
	}
	records, err := k.load()
	if err != nil {
		return nil, err
	}
	return lastOf(records, field), nil
}

// Touch implements Store.
func (k *KeyringStore) Touch(ctx context.Context, id string, at time.Time) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.begin(ctx); err != nil {
		return err
	}
	records, err := k.load()
	if err != nil {
		return err
	}
	if !touchIn(records, id, at) {
		return wrap("touch", ErrNotFound)
	}
	return k.save(records)
}

// Close implements Store.
func (k *KeyringStore) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
	return nil
}
