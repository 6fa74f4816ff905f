package vault

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mrz1836/satvault/internal/store"
	"github.com/mrz1836/satvault/internal/wallet"
	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

// Operation names used in logs and metrics.
const (
	opCreate         = "create"
	opRestore        = "restore"
	opUnlock         = "unlock"
	opLock           = "lock"
	opDelete         = "delete"
	opChangePassword = "change_password"
	opImport         = "import"
	opSign           = "sign"
)

// Create generates a new wallet sealed under password, replaces any stored
// wallet and leaves the vault unlocked. The phrase is returned once and
// kept nowhere else.
func (m *Manager) Create(ctx context.Context, password []byte, name string) (mnemonic string, err error) {
	defer func() { m.metrics.RecordOperation(opCreate, err) }()

	if err = ctx.Err(); err != nil {
		return "", err
	}
	if err = checkPassword(password); err != nil {
		return "", err
	}
	if name, err = normalizeName(name); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	mnemonic, err = wallet.GenerateMnemonic(m.wordCount)
	if err != nil {
		return "", vaulterr.WithCause(vaulterr.ErrGeneral, err)
	}
	if err = m.install(ctx, opCreate, mnemonic, password, name); err != nil {
		return "", err
	}
	return mnemonic, nil
}

// Restore seals an existing phrase under password, replaces any stored
// wallet and leaves the vault unlocked. An invalid phrase fails with
// ErrInvalidMnemonic before anything is written.
func (m *Manager) Restore(ctx context.Context, mnemonic string, password []byte, name string) (err error) {
	defer func() { m.metrics.RecordOperation(opRestore, err) }()

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = checkPassword(password); err != nil {
		return err
	}
	if err = checkPhrase(mnemonic); err != nil {
		return err
	}
	if name, err = normalizeName(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.install(ctx, opRestore, wallet.NormalizeMnemonicInput(mnemonic), password, name)
}

// install derives keys for phrase, persists the sealed record as the only
// record and starts a session. On failure nothing changes. Must hold mu.
func (m *Manager) install(ctx context.Context, op, phrase string, password []byte, name string) error {
	keys, err := wallet.FromMnemonic(phrase, m.network)
	if err != nil {
		return vaulterr.WithCause(vaulterr.ErrInvalidMnemonic, err)
	}

	now := m.clock()
	rec := &wallet.WalletRecord{
		ID:        wallet.NewRecordID(),
		Name:      name,
		Version:   wallet.RecordVersion,
		Network:   m.network,
		Address:   keys.Address,
		CreatedAt: now,
		LastUsed:  now,
	}

	plaintext := []byte(phrase)
	defer wallet.ZeroBytes(plaintext)

	if err = m.seal(rec, plaintext, password); err != nil {
		keys.Zero()
		return err
	}
	if err = store.Replace(ctx, m.store, rec); err != nil {
		keys.Zero()
		m.log.ErrorAttrs("persisting wallet failed", slog.String("op", op), slog.String("error", err.Error()))
		return vaulterr.WithCause(vaulterr.ErrStorage, err)
	}

	m.startSession(keys, rec)
	m.log.DebugAttrs("wallet stored",
		slog.String("op", op),
		slog.String("network", string(rec.Network)),
		slog.String("address", rec.Address),
		slog.String("kdf", string(rec.KDF.Algorithm)),
		slog.String("cipher", string(rec.Cipher)),
	)
	return nil
}

// Unlock decrypts the stored wallet with password. Wrong passwords, tampered
// or malformed records and a missing wallet all report false with a nil
// error and leave the state unchanged. Only storage failures return an
// error.
func (m *Manager) Unlock(ctx context.Context, password []byte) (ok bool, err error) {
	defer func() {
		if err == nil && !ok {
			m.metrics.RecordRejection(opUnlock)
			return
		}
		m.metrics.RecordOperation(opUnlock, err)
	}()

	if err = ctx.Err(); err != nil {
		return false, err
	}
	if m.limiter != nil {
		if err = m.limiter.Wait(ctx); err != nil {
			return false, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.store.Last(ctx, store.OrderByLastUsed)
	if err != nil {
		m.log.ErrorAttrs("loading wallet failed", slog.String("error", err.Error()))
		return false, vaulterr.WithCause(vaulterr.ErrStorage, err)
	}
	if rec == nil {
		m.log.Debug("unlock: no wallet")
		return false, nil
	}

	plaintext, opened := m.open(rec, password)
	if !opened {
		m.metrics.RecordUnlockFailure()
		m.log.Debug("unlock: rejected")
		return false, nil
	}
	defer wallet.ZeroBytes(plaintext)

	keys, err := wallet.FromMnemonic(string(plaintext), rec.Network)
	if err != nil {
		m.metrics.RecordUnlockFailure()
		m.log.Debug("unlock: rejected")
		return false, nil
	}

	if touchErr := m.store.Touch(ctx, rec.ID, m.clock()); touchErr != nil {
		m.log.ErrorAttrs("updating last_used failed", slog.String("error", touchErr.Error()))
	}

	m.startSession(keys, rec)
	m.log.DebugAttrs("wallet unlocked", slog.String("address", keys.Address))
	return true, nil
}

// Lock discards the in-memory key material. The stored record is not
// touched. Locking a locked vault is a no-op.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.log.Debug("wallet locked")
	}
	m.endSession()
	m.metrics.RecordOperation(opLock, nil)
}

// Delete discards key material, erases the stored record and runs the
// OnDelete hooks. It cannot be undone.
func (m *Manager) Delete(ctx context.Context) (err error) {
	defer func() { m.metrics.RecordOperation(opDelete, err) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.endSession()

	if err = m.store.Clear(ctx); err != nil {
		m.log.ErrorAttrs("clearing store failed", slog.String("error", err.Error()))
		return vaulterr.WithCause(vaulterr.ErrStorage, err)
	}

	var hookErrs []error
	for i, hook := range m.onDelete {
		if hookErr := hook(ctx); hookErr != nil {
			m.log.ErrorAttrs("delete hook failed", slog.Int("hook", i), slog.String("error", hookErr.Error()))
			hookErrs = append(hookErrs, hookErr)
		}
	}
	if len(hookErrs) > 0 {
		return vaulterr.Wrap(errors.Join(hookErrs...), "wallet deleted but cleanup failed")
	}

	m.log.Debug("wallet deleted")
	return nil
}

// ChangePassword re-seals the stored wallet under newPassword with a fresh
// salt and IV. The current session, if any, stays unlocked.
func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword []byte) (err error) {
	defer func() { m.metrics.RecordOperation(opChangePassword, err) }()

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = checkPassword(newPassword); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.store.Last(ctx, store.OrderByLastUsed)
	if err != nil {
		return vaulterr.WithCause(vaulterr.ErrStorage, err)
	}
	if rec == nil {
		return vaulterr.ErrNoWallet
	}

	plaintext, opened := m.open(rec, oldPassword)
	if !opened {
		m.metrics.RecordUnlockFailure()
		return vaulterr.ErrAuthentication
	}
	defer wallet.ZeroBytes(plaintext)

	next := &wallet.WalletRecord{
		ID:        wallet.NewRecordID(),
		Name:      rec.Name,
		Version:   wallet.RecordVersion,
		Network:   rec.Network,
		Address:   rec.Address,
		CreatedAt: rec.CreatedAt,
		LastUsed:  m.clock(),
	}
	if err = m.seal(next, plaintext, newPassword); err != nil {
		return err
	}
	if err = store.Replace(ctx, m.store, next); err != nil {
		m.log.ErrorAttrs("persisting wallet failed", slog.String("op", opChangePassword), slog.String("error", err.Error()))
		return vaulterr.WithCause(vaulterr.ErrStorage, err)
	}

	if sess := m.activeSession(); sess != nil {
		sess.rename(next.ID, next.Name)
		m.touch()
	}
	m.log.DebugAttrs("password changed", slog.String("kdf", string(next.KDF.Algorithm)))
	return nil
}

// ImportRecord replaces the stored wallet with an already sealed record,
// such as one read from a backup. The vault ends up locked.
func (m *Manager) ImportRecord(ctx context.Context, rec *wallet.WalletRecord) (err error) {
	defer func() { m.metrics.RecordOperation(opImport, err) }()

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = rec.Validate(); err != nil {
		return vaulterr.WithCause(vaulterr.ErrInvalidInput, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.endSession()
	if err = store.Replace(ctx, m.store, rec.Clone()); err != nil {
		return vaulterr.WithCause(vaulterr.ErrStorage, err)
	}
	m.log.DebugAttrs("wallet imported", slog.String("address", rec.Address))
	return nil
}

func checkPassword(password []byte) error {
	if utf8.RuneCount(password) < MinPasswordLength {
		return vaulterr.WithSuggestion(
			vaulterr.WithDetails(vaulterr.ErrWeakPassword, map[string]string{
				"minimum": strconv.Itoa(MinPasswordLength),
			}),
			"choose a password of at least "+strconv.Itoa(MinPasswordLength)+" characters",
		)
	}
	return nil
}

func checkPhrase(phrase string) error {
	cause := wallet.CheckMnemonic(phrase)
	if cause == nil {
		return nil
	}

	err := vaulterr.WithCause(vaulterr.ErrInvalidMnemonic, cause)
	if typos := wallet.DetectTypos(phrase); len(typos) > 0 {
		err = vaulterr.WithSuggestion(err, wallet.FormatTypoSuggestions(typos))
	}
	return err
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return wallet.DefaultName, nil
	}
	if err := wallet.ValidateName(name); err != nil {
		verr := vaulterr.WithCause(vaulterr.ErrInvalidInput, err)
		if suggested := wallet.SuggestName(name); suggested != "" {
			verr = vaulterr.WithSuggestion(verr, "try the name "+strconv.Quote(suggested))
		}
		return "", verr
	}
	return name, nil
}
