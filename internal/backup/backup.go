package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mrz1836/satvault/internal/fileutil"
	"github.com/mrz1836/satvault/internal/store"
	"github.com/mrz1836/satvault/internal/vaultcrypto"
	"github.com/mrz1836/satvault/internal/wallet"
)

const (
	// BackupExtension is the file extension for backups.
	BackupExtension = ".satvault"

	// BackupFilePermissions is the permission mode for backup files.
	BackupFilePermissions = 0o600
)

// Importer accepts a sealed record restored from a backup.
type Importer interface {
	ImportRecord(ctx context.Context, rec *wallet.WalletRecord) error
}

// Service reads and writes backups for the record held in a store.
type Service struct {
	backupDir string
	store     store.Store
	now       func() time.Time
}

// NewService creates a backup service writing to backupDir.
func NewService(backupDir string, s store.Store) *Service {
	return &Service{
		backupDir: backupDir,
		store:     s,
		now:       time.Now,
	}
}

// Create seals the stored record under passphrase and writes it to a new
// file in the backup directory. The caller zeroes passphrase.
func (s *Service) Create(ctx context.Context, passphrase []byte) (*Backup, string, error) {
	if len(passphrase) == 0 {
		return nil, "", fmt.Errorf("%w: empty passphrase", ErrInvalidFormat)
	}

	rec, err := s.store.Last(ctx, store.OrderByLastUsed)
	if err != nil {
		return nil, "", fmt.Errorf("loading wallet record: %w", err)
	}
	if rec == nil {
		return nil, "", ErrNoWallet
	}
	if err = rec.Validate(); err != nil {
		return nil, "", fmt.Errorf("stored record: %w", err)
	}

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, "", fmt.Errorf("serializing record: %w", err)
	}

	sealed, err := vaultcrypto.Seal(recordJSON, string(passphrase))
	if err != nil {
		return nil, "", fmt.Errorf("encrypting backup: %w", err)
	}

	backup := NewBackup(NewManifest(rec, s.now()), sealed)
	backupPath, err := s.writeBackup(backup)
	if err != nil {
		return nil, "", fmt.Errorf("writing backup: %w", err)
	}
	return backup, backupPath, nil
}

// Verify checks a backup file's structure and checksum without decrypting.
func (s *Service) Verify(backupPath string) (*Manifest, error) {
	backup, err := s.readBackup(backupPath)
	if err != nil {
		return nil, err
	}
	if err = backup.Validate(); err != nil {
		return nil, err
	}
	return &backup.Manifest, nil
}

// VerifyWithDecryption is Verify plus a trial decryption with passphrase.
func (s *Service) VerifyWithDecryption(backupPath string, passphrase []byte) (*Manifest, error) {
	backup, _, err := s.open(backupPath, passphrase)
	if err != nil {
		return nil, err
	}
	return &backup.Manifest, nil
}

// Restore opens a backup and hands its record to importer. A non-empty
// newName relabels the wallet.
func (s *Service) Restore(ctx context.Context, backupPath string, passphrase []byte, newName string, importer Importer) (*Manifest, error) {
	backup, rec, err := s.open(backupPath, passphrase)
	if err != nil {
		return nil, err
	}

	if newName = strings.TrimSpace(newName); newName != "" {
		if err = wallet.ValidateName(newName); err != nil {
			return nil, err
		}
		rec.Name = newName
	}

	if err = importer.ImportRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("importing record: %w", err)
	}
	return &backup.Manifest, nil
}

// List returns the backup file names in the backup directory, sorted.
func (s *Service) List() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == BackupExtension {
			backups = append(backups, entry.Name())
		}
	}
	sort.Strings(backups)
	return backups, nil
}

// BackupPath resolves filename inside the backup directory. Paths that
// already contain a directory are returned unchanged.
func (s *Service) BackupPath(filename string) string {
	if filepath.Base(filename) != filename {
		return filename
	}
	return filepath.Join(s.backupDir, filename)
}

// open reads, validates and decrypts a backup, checking that the record
// matches the manifest.
func (s *Service) open(backupPath string, passphrase []byte) (*Backup, *wallet.WalletRecord, error) {
	backup, err := s.readBackup(backupPath)
	if err != nil {
		return nil, nil, err
	}
	if err = backup.Validate(); err != nil {
		return nil, nil, err
	}

	decrypted, err := vaultcrypto.Open(backup.EncryptedData, string(passphrase))
	if err != nil {
		return nil, nil, ErrDecryptionFailed
	}

	var rec wallet.WalletRecord
	if err = json.Unmarshal(decrypted, &rec); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if err = rec.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if rec.Address != backup.Manifest.Address || rec.Network != backup.Manifest.Network {
		return nil, nil, fmt.Errorf("%w: manifest does not match record", ErrInvalidFormat)
	}
	return backup, &rec, nil
}

//nolint:funcorder // Keeping helper methods together
func (s *Service) writeBackup(backup *Backup) (string, error) {
	if err := fileutil.EnsurePrivateDir(s.backupDir); err != nil {
		return "", err
	}

	timestamp := backup.Manifest.CreatedAt.Format("2006-01-02-150405")
	label := strings.ReplaceAll(backup.Manifest.WalletName, " ", "-")
	base := fmt.Sprintf("%s-%s", label, timestamp)
	backupPath := filepath.Join(s.backupDir, base+BackupExtension)
	for n := 2; fileutil.Exists(backupPath); n++ {
		backupPath = filepath.Join(s.backupDir, fmt.Sprintf("%s-%d%s", base, n, BackupExtension))
	}

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing backup: %w", err)
	}
	if err = fileutil.WriteAtomic(backupPath, data, BackupFilePermissions); err != nil {
		return "", err
	}
	return backupPath, nil
}

//nolint:funcorder // Keeping helper methods together
func (s *Service) readBackup(path string) (*Backup, error) {
	// #nosec G304 -- path is from user input
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, fmt.Errorf("reading backup file: %w", err)
	}

	var backup Backup
	if err = json.Unmarshal(data, &backup); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	return &backup, nil
}
