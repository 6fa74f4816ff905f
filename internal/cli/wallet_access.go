package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/satvault/internal/backup"
	"github.com/mrz1836/satvault/internal/fileutil"
	"github.com/mrz1836/satvault/internal/output"
	"github.com/mrz1836/satvault/internal/vault"
	"github.com/mrz1836/satvault/internal/wallet"
	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// addressQR renders the address as a QR code.
	addressQR bool
	// signHash is the hex-encoded 32-byte digest to sign.
	signHash string
	// deleteYes skips the delete confirmation.
	deleteYes bool
	// deletePurgeBackups also removes backup files.
	deletePurgeBackups bool
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var (
	walletStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show wallet status",
		Long: `Show whether a wallet exists along with its non-secret details.

No password is needed.

Example:
  satvault wallet status
  satvault wallet status -o json`,
		Args: cobra.NoArgs,
		RunE: runWalletStatus,
	}

	walletUnlockCmd = &cobra.Command{
		Use:   "unlock",
		Short: "Check the vault password",
		Long: `Unlock the wallet to verify the password, then lock it again.

Exits with code 3 when the password is wrong. Use "satvault shell" to keep
the wallet unlocked across several commands.`,
		Args: cobra.NoArgs,
		RunE: runWalletUnlock,
	}

	walletAddressCmd = &cobra.Command{
		Use:   "address",
		Short: "Show the receive address",
		Long: `Show the wallet's native SegWit receive address.

Example:
  satvault wallet address
  satvault wallet address --qr`,
		Args: cobra.NoArgs,
		RunE: runWalletAddress,
	}

	walletSignCmd = &cobra.Command{
		Use:   "sign",
		Short: "Sign a 32-byte hash",
		Long: `Unlock the wallet, sign a 32-byte hash with the receive key, and lock
it again. The signature is DER encoded.

Example:
  satvault wallet sign --hash 9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08`,
		Args: cobra.NoArgs,
		RunE: runWalletSign,
	}

	walletPasswdCmd = &cobra.Command{
		Use:   "passwd",
		Short: "Change the vault password",
		Args:  cobra.NoArgs,
		RunE:  runWalletPasswd,
	}

	walletDeleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "Delete the wallet",
		Long: `Permanently delete the stored wallet.

Without the recovery phrase or a backup the funds cannot be recovered.
Backup files are kept unless --purge-backups is given.

Example:
  satvault wallet delete
  satvault wallet delete --yes`,
		Args: cobra.NoArgs,
		RunE: runWalletDelete,
	}
)

// statusView is the JSON shape of wallet status.
type statusView struct {
	State     string         `json:"state"`
	Name      string         `json:"name,omitempty"`
	Network   wallet.Network `json:"network,omitempty"`
	Address   string         `json:"address,omitempty"`
	KDF       string         `json:"kdf,omitempty"`
	Cipher    string         `json:"cipher,omitempty"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	LastUsed  *time.Time     `json:"last_used,omitempty"`
	ExpiresAt *time.Time     `json:"auto_lock_at,omitempty"`
	Backend   string         `json:"backend"`
}

type signView struct {
	Hash      string `json:"hash"`
	Signature string `json:"signature"`
	PublicKey string `json:"public_key"`
	Address   string `json:"address"`
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	walletCmd.AddCommand(walletStatusCmd)
	walletCmd.AddCommand(walletUnlockCmd)
	walletCmd.AddCommand(walletAddressCmd)
	walletCmd.AddCommand(walletSignCmd)
	walletCmd.AddCommand(walletPasswdCmd)
	walletCmd.AddCommand(walletDeleteCmd)

	walletAddressCmd.Flags().BoolVar(&addressQR, "qr", false, "render the address as a QR code")
	walletSignCmd.Flags().StringVar(&signHash, "hash", "", "hex-encoded 32-byte hash (required)")
	_ = walletSignCmd.MarkFlagRequired("hash")
	walletDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "delete without asking")
	walletDeleteCmd.Flags().BoolVar(&deletePurgeBackups, "purge-backups", false, "also delete backup files")
}

func runWalletStatus(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	m, err := openManager(cc)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	view, err := buildStatus(cmd.Context(), cc, m)
	if err != nil {
		return err
	}
	return cc.Formatter.Result(view, func(w io.Writer) error {
		displayStatus(w, view)
		return nil
	})
}

// buildStatus collects the non-secret view of m.
func buildStatus(ctx context.Context, cc *CommandContext, m *vault.Manager) (statusView, error) {
	view := statusView{Backend: cc.Config.Storage.Backend}

	state, err := m.State(ctx)
	if err != nil {
		return view, err
	}
	view.State = state.String()
	if state == vault.StateNoWallet {
		return view, nil
	}

	sum, err := m.Record(ctx)
	if err != nil {
		return view, err
	}
	view.Name = sum.Name
	view.Network = sum.Network
	view.Address = sum.Address
	view.KDF = sum.KDF
	view.Cipher = sum.Cipher
	view.CreatedAt = &sum.CreatedAt
	if !sum.LastUsed.IsZero() {
		view.LastUsed = &sum.LastUsed
	}
	if sess, sessErr := m.Session(); sessErr == nil && !sess.ExpiresAt().IsZero() {
		at := sess.ExpiresAt()
		view.ExpiresAt = &at
	}
	return view, nil
}

func displayStatus(w io.Writer, v statusView) {
	if v.State == vault.StateNoWallet.String() {
		outln(w, "No wallet found.")
		outln(w, "Create one with: satvault wallet create")
		return
	}

	_ = output.NewFields("").
		Add("Wallet", v.Name).
		Add("State", v.State).
		Add("Network", string(v.Network)).
		Add("Address", v.Address).
		Add("Storage", v.Backend).
		Addf("Sealed", "%s / %s", v.KDF, v.Cipher).
		Add("Created", localTime(v.CreatedAt, "-")).
		Add("Last used", localTime(v.LastUsed, "never")).
		Add("Auto-lock", localTime(v.ExpiresAt, "-")).
		Render(w)
}

// localTime formats t for display, or returns fallback when t is unset.
func localTime(t *time.Time, fallback string) string {
	if t == nil {
		return fallback
	}
	return t.Local().Format(time.DateTime)
}

func runWalletUnlock(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	m, err := openManager(cc)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	return unlocked(cmd, cc, m, func(sess *vault.Session) error {
		view := map[string]any{"unlocked": true, "name": sess.Name(), "address": sess.Address()}
		return cc.Formatter.Details(view, fmt.Sprintf("Password accepted for wallet %q", sess.Name()),
			output.NewFields("  ").Add("Address", sess.Address()))
	})
}

func runWalletAddress(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	m, err := openManager(cc)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	sum, err := m.Record(cmd.Context())
	if errors.Is(err, vaulterr.ErrNoWallet) {
		return noWalletError()
	}
	if err != nil {
		return err
	}

	view := map[string]string{"address": sum.Address, "network": string(sum.Network), "uri": output.PaymentURI(sum.Address)}
	return cc.Formatter.Result(view, func(w io.Writer) error {
		outln(w, sum.Address)
		if addressQR {
			cfg := output.DefaultQRConfig()
			cfg.Force = true
			outln(w)
			return output.RenderQR(w, output.PaymentURI(sum.Address), cfg)
		}
		return nil
	})
}

// parseHash decodes a 32-byte hex digest.
func parseHash(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	hash, err := hex.DecodeString(s)
	if err != nil || len(hash) != 32 {
		return nil, vaulterr.WithSuggestion(
			vaulterr.WithDetails(vaulterr.ErrInvalidInput, map[string]string{"hash": s}),
			"the hash must be 64 hex characters (32 bytes)",
		)
	}
	return hash, nil
}

func runWalletSign(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	hash, err := parseHash(signHash)
	if err != nil {
		return err
	}

	m, err := openManager(cc)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	return unlocked(cmd, cc, m, func(sess *vault.Session) error {
		sig, signErr := m.Sign(hash)
		if signErr != nil {
			return signErr
		}
		view := signView{
			Hash:      hex.EncodeToString(hash),
			Signature: hex.EncodeToString(sig),
			PublicKey: hex.EncodeToString(sess.PublicKey()),
			Address:   sess.Address(),
		}
		return cc.Formatter.Details(view, "", signatureFields(view))
	})
}

func signatureFields(v signView) *output.Fields {
	return output.NewFields("").
		Add("Hash", v.Hash).
		Add("Signature", v.Signature).
		Add("Public key", v.PublicKey).
		Add("Address", v.Address)
}

func runWalletPasswd(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	m, err := openManager(cc)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	has, err := m.HasWallet(cmd.Context())
	if err != nil {
		return err
	}
	if !has {
		return noWalletError()
	}

	err = withPassword(cc, "Enter current vault password: ", func(oldPW []byte) error {
		newPW, promptErr := promptNewPasswordFn("new vault password")
		if promptErr != nil {
			return promptErr
		}
		return withSecret(cc, newPW, func(pw []byte) error {
			return m.ChangePassword(cmd.Context(), oldPW, pw)
		})
	})
	m.Lock()
	if err != nil {
		return err
	}
	return output.FormatSuccess(cmd.OutOrStdout(), "Vault password changed", cc.Formatter.Format())
}

func runWalletDelete(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	m, err := openManager(cc)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	sum, err := m.Record(cmd.Context())
	if errors.Is(err, vaulterr.ErrNoWallet) {
		return noWalletError()
	}
	if err != nil {
		return err
	}

	if !deleteYes {
		output.Warn(promptOut, "Deleting the wallet cannot be undone. Without the recovery phrase or a backup the funds are lost.")
		question := fmt.Sprintf("Delete wallet %q (%s)?", sum.Name, sum.Address)
		if !promptConfirmFn(question) {
			return errCancelled
		}
	}

	if deletePurgeBackups {
		m.OnDelete(purgeBackupsHook(cc))
	}
	if err = m.Delete(cmd.Context()); err != nil {
		return err
	}
	return output.FormatSuccess(cmd.OutOrStdout(), fmt.Sprintf("Wallet %q deleted", sum.Name), cc.Formatter.Format())
}

// purgeBackupsHook removes every backup file when the wallet is deleted.
func purgeBackupsHook(cc *CommandContext) vault.DeleteHook {
	return func(_ context.Context) error {
		// Listing and paths only touch the backup directory, not the store.
		svc := backup.NewService(cc.Config.BackupDir(cc.Config.Home), nil)

		names, err := svc.List()
		if err != nil {
			return err
		}
		var errs []error
		for _, name := range names {
			errs = append(errs, fileutil.RemoveIfExists(svc.BackupPath(name)))
		}
		return errors.Join(errs...)
	}
}
