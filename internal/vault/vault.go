// Package vault implements the wallet lifecycle: create, restore, unlock,
// lock and delete a single password-protected wallet. The Manager is the
// only holder of decrypted key material and serializes every transition.
package vault

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrz1836/satvault/internal/config"
	"github.com/mrz1836/satvault/internal/metrics"
	"github.com/mrz1836/satvault/internal/store"
	"github.com/mrz1836/satvault/internal/vaultcrypto"
	"github.com/mrz1836/satvault/internal/wallet"
)

// MinPasswordLength is the shortest accepted vault password, in characters.
const MinPasswordLength = 8

// State is the lifecycle state of the vault.
type State int

// Vault states.
const (
	StateNoWallet State = iota
	StateLocked
	StateUnlocked
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return "no_wallet"
	}
}

// DeleteHook removes data derived from the wallet when it is deleted.
type DeleteHook func(ctx context.Context) error

// Manager owns the wallet lifecycle over a Store.
type Manager struct {
	mu sync.Mutex

	store   store.Store
	log     *config.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	kdf       vaultcrypto.KDFParams
	cipher    vaultcrypto.Cipher
	network   wallet.Network
	wordCount int

	autoLock time.Duration
	timer    *time.Timer
	limiter  *rate.Limiter

	onDelete []DeleteHook
	session  *Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the operation logger. Secrets are never logged.
func WithLogger(l *config.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithKDF selects the key derivation parameters for newly sealed records.
func WithKDF(p vaultcrypto.KDFParams) Option {
	return func(m *Manager) { m.kdf = p }
}

// WithCipher selects the AEAD for newly sealed records.
func WithCipher(c vaultcrypto.Cipher) Option {
	return func(m *Manager) { m.cipher = c }
}

// WithNetwork selects the network new wallets derive keys for.
func WithNetwork(n wallet.Network) Option {
	return func(m *Manager) { m.network = n }
}

// WithWordCount sets the phrase length for Create.
func WithWordCount(n int) Option {
	return func(m *Manager) { m.wordCount = n }
}

// WithAutoLock locks an idle session after ttl, clamped to
// [MinAutoLock, MaxAutoLock]. Zero disables auto-lock.
func WithAutoLock(ttl time.Duration) Option {
	return func(m *Manager) { m.autoLock = clampAutoLock(ttl) }
}

// WithUnlockLimiter paces unlock attempts to perSecond with the given burst.
// Attempts wait for a token; they are never refused.
func WithUnlockLimiter(perSecond float64, burst int) Option {
	return func(m *Manager) {
		if perSecond <= 0 {
			m.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// New creates a Manager over s. Defaults: argon2id, AES-256-GCM, mainnet,
// 12 words, no auto-lock, no unlock pacing.
func New(s store.Store, opts ...Option) *Manager {
	kdf, _ := vaultcrypto.DefaultKDFParams(vaultcrypto.KDFArgon2id)
	m := &Manager{
		store:     s,
		log:       config.NullLogger(),
		now:       time.Now,
		kdf:       kdf,
		cipher:    vaultcrypto.DefaultCipher,
		network:   wallet.Mainnet,
		wordCount: wallet.DefaultWordCount,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnDelete registers a hook run after Delete clears the store.
func (m *Manager) OnDelete(hook DeleteHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDelete = append(m.onDelete, hook)
}

// Close locks the vault and closes the store.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endSession()
	return m.store.Close()
}

func (m *Manager) clock() time.Time {
	return m.now().UTC()
}

// startSession installs keys as the active session, replacing any previous
// one. Must hold mu.
func (m *Manager) startSession(keys *wallet.KeyMaterial, rec *wallet.WalletRecord) {
	m.endSession()
	m.session = newSession(keys, rec, m.clock(), m.autoLock)
	m.metrics.SetUnlocked(true)

	if m.autoLock > 0 {
		sess := m.session
		m.timer = time.AfterFunc(m.autoLock, func() { m.expireIdle(sess) })
	}
}

// endSession zeroes and drops the active session. Must hold mu.
func (m *Manager) endSession() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.session != nil {
		m.session.Close()
		m.session = nil
		m.metrics.SetUnlocked(false)
	}
}

// activeSession returns the session if it has not idled out, locking the
// vault otherwise. Must hold mu.
func (m *Manager) activeSession() *Session {
	if m.session == nil {
		return nil
	}
	if m.session.expired(m.clock()) {
		m.log.Debug("auto-lock: session expired")
		m.endSession()
		return nil
	}
	return m.session
}

// touch extends the idle deadline after a keyed operation. Must hold mu.
func (m *Manager) touch() {
	if m.session == nil || m.autoLock == 0 {
		return
	}
	m.session.extend(m.clock(), m.autoLock)
	if m.timer != nil {
		m.timer.Reset(m.autoLock)
	}
}

func (m *Manager) expireIdle(sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != sess {
		return
	}
	if remaining := sess.TTL(m.clock()); remaining > 0 {
		m.timer.Reset(remaining)
		return
	}
	m.log.Debug("auto-lock: idle timeout reached")
	m.endSession()
}
