package cli

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/mrz1836/satvault/internal/backup"
	"github.com/mrz1836/satvault/internal/output"
	"github.com/mrz1836/satvault/internal/vault"
	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// backupInput is the path to a backup file for restore/verify.
	backupInput string
	// restoreName is the name for the restored wallet.
	restoreName string
	// backupYes skips the overwrite confirmation on restore.
	backupYes bool
)

// backupCmd is the parent command for backup operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage wallet backups",
	Long: `Create, verify, and restore encrypted wallet backups.

A backup holds the already encrypted wallet record, sealed a second time
with a backup passphrase. Restoring needs the backup passphrase, and
unlocking the restored wallet needs the original vault password.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var (
	backupCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a wallet backup",
		Long: `Create an encrypted backup of the wallet.

The backup file is written to ~/.satvault/backups/ with a timestamped name.

Example:
  satvault backup create`,
		Args: cobra.NoArgs,
		RunE: runBackupCreate,
	}

	backupVerifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Verify a backup file",
		Long: `Verify the structure and SHA-256 checksum of a backup file. Optionally
test decryption by entering the backup passphrase.

Example:
  satvault backup verify --input ~/.satvault/backups/savings-2026-10-14-101500.satvault`,
		Args: cobra.NoArgs,
		RunE: runBackupVerify,
	}

	backupRestoreCmd = &cobra.Command{
		Use:   "restore",
		Short: "Restore the wallet from a backup",
		Long: `Restore the wallet from an encrypted backup file, replacing any stored
wallet after confirmation.

Example:
  satvault backup restore --input savings-2026-10-14-101500.satvault
  satvault backup restore --input backup.satvault --name restored`,
		Args: cobra.NoArgs,
		RunE: runBackupRestore,
	}

	backupListCmd = &cobra.Command{
		Use:     "list",
		Short:   "List available backups",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE:    runBackupList,
	}
)

// backupView is the JSON shape for backup results.
type backupView struct {
	File     string          `json:"file,omitempty"`
	Checksum string          `json:"checksum,omitempty"`
	Manifest backup.Manifest `json:"manifest"`
	Verified bool            `json:"decryption_verified,omitempty"`
}

// backupEntry is one row of backup list.
type backupEntry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupVerifyCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupListCmd)

	backupVerifyCmd.Flags().StringVar(&backupInput, "input", "", "path or file name of the backup (required)")
	_ = backupVerifyCmd.MarkFlagRequired("input")

	backupRestoreCmd.Flags().StringVar(&backupInput, "input", "", "path or file name of the backup (required)")
	backupRestoreCmd.Flags().StringVar(&restoreName, "name", "", "new name for the restored wallet (optional)")
	backupRestoreCmd.Flags().BoolVarP(&backupYes, "yes", "y", false, "replace an existing wallet without asking")
	_ = backupRestoreCmd.MarkFlagRequired("input")
}

func runBackupCreate(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	svc, st, err := openBackupService(cc)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	passphrase, err := promptNewPasswordFn("backup passphrase")
	if err != nil {
		return err
	}
	if n := utf8.RuneCount(passphrase); n < vault.MinPasswordLength {
		clear(passphrase)
		return vaulterr.WithSuggestion(
			vaulterr.ErrWeakPassword,
			"use a backup passphrase of at least 8 characters",
		)
	}

	var (
		bak  *backup.Backup
		path string
	)
	err = withSecret(cc, passphrase, func(pass []byte) error {
		var createErr error
		bak, path, createErr = svc.Create(cmd.Context(), pass)
		return createErr
	})
	if err != nil {
		return backupError(err, "")
	}
	cc.Logger.Debug("backup written to %s", path)

	view := backupView{File: path, Checksum: bak.Checksum, Manifest: bak.Manifest}
	return cc.Formatter.Result(view, func(w io.Writer) error {
		output.Success(w, "Backup created")
		outln(w)
		_ = output.NewFields("  ").
			Add("File", path).
			Add("Wallet", bak.Manifest.WalletName).
			Add("Address", bak.Manifest.Address).
			Add("Checksum", bak.Checksum[:16]+"...").
			Render(w)
		outln(w)
		outln(w, "Store this file securely. Restoring it needs the backup passphrase,")
		outln(w, "and unlocking the wallet afterwards needs your vault password.")
		return nil
	})
}

func runBackupVerify(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	svc := backup.NewService(cc.Config.BackupDir(cc.Config.Home), nil)

	path := svc.BackupPath(backupInput)
	manifest, err := svc.Verify(path)
	if err != nil {
		return backupError(err, path)
	}

	w := cmd.OutOrStdout()
	if !cc.Formatter.IsJSON() {
		output.Success(w, "Backup structure and checksum verified")
		displayManifest(w, manifest)
	}

	view := backupView{File: path, Manifest: *manifest}
	passphrase, err := promptPasswordFn("Backup passphrase to test decryption (Enter to skip): ")
	if err != nil {
		return err
	}
	if len(passphrase) > 0 {
		err = withSecret(cc, passphrase, func(pass []byte) error {
			_, verifyErr := svc.VerifyWithDecryption(path, pass)
			return verifyErr
		})
		if err != nil {
			return backupError(err, path)
		}
		view.Verified = true
	}

	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(view)
	}
	if view.Verified {
		output.Success(w, "Decryption verified")
	}
	return nil
}

func runBackupRestore(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	m, err := openManager(cc)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	// Listing, verifying and opening backups only read files; the record
	// goes through the manager.
	svc := backup.NewService(cc.Config.BackupDir(cc.Config.Home), nil)
	path := svc.BackupPath(backupInput)
	if _, err = svc.Verify(path); err != nil {
		return backupError(err, path)
	}

	if err = confirmReplace(cmd, m, backupYes); err != nil {
		return err
	}

	passphrase, err := promptPasswordFn("Enter backup passphrase: ")
	if err != nil {
		return err
	}

	var manifest *backup.Manifest
	err = withSecret(cc, passphrase, func(pass []byte) error {
		var restoreErr error
		manifest, restoreErr = svc.Restore(cmd.Context(), path, pass, restoreName, m)
		return restoreErr
	})
	if err != nil {
		return backupError(err, path)
	}

	sum, err := m.Record(cmd.Context())
	if err != nil {
		return err
	}
	view := backupView{File: path, Manifest: *manifest}
	view.Manifest.WalletName = sum.Name
	return cc.Formatter.Result(view, func(w io.Writer) error {
		output.Successf(w, "Wallet %q restored from backup", sum.Name)
		out(w, "  Address: %s\n", sum.Address)
		outln(w)
		outln(w, "Unlock it with the vault password it was created with: satvault wallet unlock")
		return nil
	})
}

func runBackupList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	backupDir := cc.Config.BackupDir(cc.Config.Home)
	svc := backup.NewService(backupDir, nil)

	names, err := svc.List()
	if err != nil {
		return backupError(err, backupDir)
	}

	entries := make([]backupEntry, 0, len(names))
	for _, name := range names {
		path := filepath.Join(backupDir, name)
		entry := backupEntry{Name: name, Path: path}
		if info, statErr := os.Stat(path); statErr == nil {
			entry.Size = info.Size()
			entry.ModTime = info.ModTime().UTC()
		}
		entries = append(entries, entry)
	}

	return cc.Formatter.Result(entries, func(w io.Writer) error {
		if len(entries) == 0 {
			outln(w, "No backups found.")
			outln(w, "Create one with: satvault backup create")
			return nil
		}

		table := output.NewTable(
			output.Column{Title: "NAME"},
			output.Column{Title: "SIZE", Right: true},
			output.Column{Title: "MODIFIED"},
		)
		for _, e := range entries {
			table.AddRow(e.Name, formatSize(e.Size), e.ModTime.Local().Format(time.DateTime))
		}
		if err := table.Render(w); err != nil {
			return err
		}
		outln(w)
		out(w, "Backup directory: %s\n", backupDir)
		return nil
	})
}

func displayManifest(w io.Writer, m *backup.Manifest) {
	outln(w)
	_ = output.NewFields("  ").
		Add("Wallet", m.WalletName).
		Add("Network", string(m.Network)).
		Add("Address", m.Address).
		Add("Created", m.CreatedAt.Local().Format(time.DateTime)).
		Addf("Sealed", "%s / %s (%s)", m.KDF, m.Cipher, m.EncryptionMethod).
		Render(w)
	outln(w)
}

func formatSize(n int64) string {
	const kib = 1024
	if n < kib {
		return strconv.FormatInt(n, 10) + " B"
	}
	return strconv.FormatInt((n+kib-1)/kib, 10) + " KiB"
}
