package vault

import (
	"sync"
	"time"

	"github.com/mrz1836/satvault/internal/wallet"
	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

// Auto-lock bounds.
const (
	// DefaultAutoLock is the idle time before an unlocked vault locks itself.
	DefaultAutoLock = 15 * time.Minute

	// MaxAutoLock is the longest allowed idle time.
	MaxAutoLock = 60 * time.Minute

	// MinAutoLock is the shortest allowed idle time.
	MinAutoLock = 1 * time.Minute
)

// Session is the handle to unlocked key material. It is valid until the
// manager locks, deletes or replaces the wallet, after which every keyed
// call fails with ErrLocked.
type Session struct {
	mu         sync.Mutex
	keys       *wallet.KeyMaterial
	recordID   string
	name       string
	unlockedAt time.Time
	expiresAt  time.Time // zero when auto-lock is disabled
}

func newSession(keys *wallet.KeyMaterial, rec *wallet.WalletRecord, now time.Time, ttl time.Duration) *Session {
	s := &Session{
		keys:       keys,
		recordID:   rec.ID,
		name:       rec.Name,
		unlockedAt: now,
	}
	if ttl > 0 {
		s.expiresAt = now.Add(ttl)
	}
	return s
}

// Address returns the primary receive address.
func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys == nil {
		return ""
	}
	return s.keys.Address
}

// XPub returns the account extended public key.
func (s *Session) XPub() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys == nil {
		return ""
	}
	return s.keys.XPub
}

// Path returns the derivation path of the signing key.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys == nil {
		return ""
	}
	return s.keys.Path
}

// PublicKey returns a copy of the compressed public key.
func (s *Session) PublicKey() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys == nil {
		return nil
	}
	return append([]byte(nil), s.keys.PublicKey...)
}

// Name returns the wallet display name.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// UnlockedAt returns when the session started.
func (s *Session) UnlockedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlockedAt
}

// ExpiresAt returns when auto-lock fires, or the zero time if disabled.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Sign signs a 32-byte digest with the session key.
func (s *Session) Sign(hash []byte) ([]byte, error) {
	s.mu.Lock()
	keys := s.keys
	s.mu.Unlock()

	if keys == nil {
		return nil, vaulterr.ErrLocked
	}
	sig, err := keys.Sign(hash)
	switch {
	case err == nil:
		return sig, nil
	case vaulterr.Is(err, wallet.ErrKeyZeroed):
		return nil, vaulterr.ErrLocked
	case vaulterr.Is(err, wallet.ErrInvalidHash):
		return nil, vaulterr.WithCause(vaulterr.ErrInvalidInput, err)
	default:
		return nil, vaulterr.WithCause(vaulterr.ErrGeneral, err)
	}
}

// Closed reports whether the key material has been discarded.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys == nil
}

// Close zeroes the private key. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys != nil {
		s.keys.Zero()
		s.keys = nil
	}
}

// TTL returns the time left before auto-lock at now. It returns 0 once
// expired and -1 when auto-lock is disabled.
func (s *Session) TTL(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiresAt.IsZero() {
		return -1
	}
	remaining := s.expiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *Session) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys == nil || (!s.expiresAt.IsZero() && !now.Before(s.expiresAt))
}

func (s *Session) extend(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ttl > 0 {
		s.expiresAt = now.Add(ttl)
	}
}

func (s *Session) rename(recordID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordID = recordID
	s.name = name
}

// clampAutoLock keeps ttl within bounds. Zero disables auto-lock.
func clampAutoLock(ttl time.Duration) time.Duration {
	switch {
	case ttl <= 0:
		return 0
	case ttl < MinAutoLock:
		return MinAutoLock
	case ttl > MaxAutoLock:
		return MaxAutoLock
	default:
		return ttl
	}
}
