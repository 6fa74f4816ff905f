package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/satvault/internal/backup"
	"github.com/mrz1836/satvault/internal/config"
	"github.com/mrz1836/satvault/internal/store"
	"github.com/mrz1836/satvault/internal/vault"
	"github.com/mrz1836/satvault/internal/vaultcrypto"
	"github.com/mrz1836/satvault/internal/wallet"
	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

// Store and KDF construction are variables so tests can swap in a shared
// in-memory store or a fast work factor.
//
//nolint:gochecknoglobals // swappable for tests
var (
	openStoreFn = store.Open
	kdfParamsFn = func(cfg *config.Config) (vaultcrypto.KDFParams, error) {
		return cfg.KDFParams()
	}
)

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

// openManager opens the configured store and wraps it in a vault.Manager.
// The caller must Close the manager.
func openManager(cc *CommandContext, opts ...vault.Option) (*vault.Manager, error) {
	cfg := cc.Config

	st, err := openStoreFn(cfg.StorageOptions(cfg.Home))
	if err != nil {
		return nil, vaulterr.WithCause(vaulterr.ErrStorage, err)
	}

	params, err := kdfParamsFn(cfg)
	if err != nil {
		_ = st.Close()
		return nil, vaulterr.WithCause(vaulterr.ErrConfigInvalid, err)
	}

	base := []vault.Option{
		vault.WithLogger(cc.Logger),
		vault.WithMetrics(cc.Metrics),
		vault.WithKDF(params),
		vault.WithCipher(cfg.CipherValue()),
		vault.WithNetwork(cfg.NetworkValue()),
		vault.WithWordCount(cfg.Wallet.WordCount),
		vault.WithAutoLock(cfg.AutoLockTTL()),
		vault.WithUnlockLimiter(cfg.Security.UnlockRatePerSecond, cfg.Security.UnlockBurst),
	}
	return vault.New(st, append(base, opts...)...), nil
}

// openBackupService returns the backup service for the configured store.
// Closing the returned store is the caller's job.
func openBackupService(cc *CommandContext) (*backup.Service, store.Store, error) {
	cfg := cc.Config
	st, err := openStoreFn(cfg.StorageOptions(cfg.Home))
	if err != nil {
		return nil, nil, vaulterr.WithCause(vaulterr.ErrStorage, err)
	}
	return backup.NewService(cfg.BackupDir(cfg.Home), st), st, nil
}

// withSecret passes secret to fn, staged in mlocked memory when the config
// asks for it. The secret is zeroed before returning.
func withSecret(cc *CommandContext, secret []byte, fn func([]byte) error) error {
	defer wallet.ZeroBytes(secret)
	if !cc.Config.Security.MemoryLock {
		return fn(secret)
	}

	sb := vaultcrypto.SecureBytesFrom(secret)
	defer sb.Destroy()
	wallet.ZeroBytes(secret)
	return fn(sb.Bytes())
}

// withPassword prompts for the vault password and hands it to fn.
func withPassword(cc *CommandContext, prompt string, fn func([]byte) error) error {
	password, err := promptPasswordFn(prompt)
	if err != nil {
		return err
	}
	return withSecret(cc, password, fn)
}

// unlocked prompts for the password, unlocks m and runs fn with the wallet
// unlocked. The wallet is locked again before returning.
func unlocked(cmd *cobra.Command, cc *CommandContext, m *vault.Manager, fn func(*vault.Session) error) error {
	ctx := cmd.Context()
	has, err := m.HasWallet(ctx)
	if err != nil {
		return err
	}
	if !has {
		return noWalletError()
	}

	err = withPassword(cc, "Enter vault password: ", func(pw []byte) error {
		ok, err := m.Unlock(ctx, pw)
		if err != nil {
			return err
		}
		if !ok {
			return vaulterr.WithSuggestion(vaulterr.ErrAuthentication, "check the password and try again")
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer m.Lock()

	sess, err := m.Session()
	if err != nil {
		return err
	}
	return fn(sess)
}

// confirmReplace asks before a create or restore overwrites a stored wallet.
func confirmReplace(cmd *cobra.Command, m *vault.Manager, yes bool) error {
	sum, err := m.Record(cmd.Context())
	if errors.Is(err, vaulterr.ErrNoWallet) {
		return nil
	}
	if err != nil {
		return err
	}
	if yes {
		return nil
	}

	question := fmt.Sprintf("Wallet %q (%s) will be replaced. Make sure its recovery phrase is backed up. Continue?", sum.Name, sum.Address)
	if !promptConfirmFn(question) {
		return errCancelled
	}
	return nil
}

func noWalletError() error {
	return vaulterr.WithSuggestion(vaulterr.ErrNoWallet, "create one with: satvault wallet create")
}

// errCancelled is returned when the user declines a confirmation.
var errCancelled = &vaulterr.VaultError{ //nolint:gochecknoglobals // sentinel
	Code:     "CANCELLED",
	Message:  "operation cancelled",
	ExitCode: vaulterr.ExitGeneral,
}

// backupError maps backup package errors onto the CLI error taxonomy.
func backupError(err error, path string) error {
	var ve *vaulterr.VaultError
	switch {
	case err == nil:
		return nil
	case vaulterr.As(err, &ve):
		return err
	case errors.Is(err, backup.ErrBackupNotFound):
		return vaulterr.WithSuggestion(
			vaulterr.WithDetails(vaulterr.ErrBackupNotFound, map[string]string{"path": path}),
			"list backups with: satvault backup list",
		)
	case errors.Is(err, backup.ErrBackupCorrupted):
		return vaulterr.WithCause(vaulterr.ErrBackupCorrupted, err)
	case errors.Is(err, backup.ErrDecryptionFailed):
		return vaulterr.WithSuggestion(vaulterr.ErrDecryptionFailed, "check the backup passphrase")
	case errors.Is(err, backup.ErrInvalidFormat):
		return vaulterr.WithDetails(vaulterr.ErrInvalidInput, map[string]string{
			"path":   path,
			"reason": strings.TrimPrefix(err.Error(), backup.ErrInvalidFormat.Error()+": "),
		})
	case errors.Is(err, backup.ErrNoWallet):
		return noWalletError()
	case errors.Is(err, wallet.ErrInvalidName):
		return vaulterr.WithCause(vaulterr.ErrInvalidInput, err)
	default:
		return vaulterr.WithCause(vaulterr.ErrStorage, err)
	}
}
