package vault

import (
	"context"

	"github.com/mrz1836/satvault/internal/store"
	"github.com/mrz1836/satvault/internal/wallet"
	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

// HasWallet reports whether a wallet record is stored.
func (m *Manager) HasWallet(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.store.Count(ctx)
	if err != nil {
		return false, vaulterr.WithCause(vaulterr.ErrStorage, err)
	}
	return n > 0, nil
}

// IsUnlocked reports whether key material is held.
func (m *Manager) IsUnlocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeSession() != nil
}

// State returns the current lifecycle state.
func (m *Manager) State(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeSession() != nil {
		return StateUnlocked, nil
	}
	n, err := m.store.Count(ctx)
	if err != nil {
		return StateNoWallet, vaulterr.WithCause(vaulterr.ErrStorage, err)
	}
	if n == 0 {
		return StateNoWallet, nil
	}
	return StateLocked, nil
}

// Address returns the unlocked wallet's receive address, or ErrLocked.
func (m *Manager) Address() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.activeSession()
	if sess == nil {
		return "", vaulterr.ErrLocked
	}
	return sess.Address(), nil
}

// Session returns the active session handle, or ErrLocked.
func (m *Manager) Session() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.activeSession()
	if sess == nil {
		return nil, vaulterr.ErrLocked
	}
	return sess, nil
}

// Record returns the non-secret metadata of the stored wallet, or
// ErrNoWallet.
func (m *Manager) Record(ctx context.Context) (*wallet.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.store.Last(ctx, store.OrderByLastUsed)
	if err != nil {
		return nil, vaulterr.WithCause(vaulterr.ErrStorage, err)
	}
	if rec == nil {
		return nil, vaulterr.ErrNoWallet
	}
	summary := rec.Summary()
	return &summary, nil
}

// Sign signs a 32-byte digest with the unlocked key and resets the idle
// timer. It returns ErrLocked when no session is active.
func (m *Manager) Sign(hash []byte) (sig []byte, err error) {
	defer func() { m.metrics.RecordOperation(opSign, err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.activeSession()
	if sess == nil {
		return nil, vaulterr.ErrLocked
	}
	if sig, err = sess.Sign(hash); err != nil {
		return nil, err
	}
	m.touch()
	return sig, nil
}
