// Package backup exports the sealed wallet record to portable .satvault
// files and reads it back. A backup never contains the plaintext phrase:
// the payload is the already encrypted record, additionally sealed with an
// age passphrase.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/mrz1836/satvault/internal/wallet"
)

var (
	// ErrBackupNotFound indicates the backup file was not found.
	ErrBackupNotFound = errors.New("backup file not found")

	// ErrBackupCorrupted indicates the backup checksum failed.
	ErrBackupCorrupted = errors.New("backup corrupted - checksum mismatch")

	// ErrDecryptionFailed indicates the backup passphrase did not open the payload.
	ErrDecryptionFailed = errors.New("backup decryption failed")

	// ErrInvalidFormat indicates the backup format is invalid.
	ErrInvalidFormat = errors.New("invalid backup format")

	// ErrNoWallet is returned by Create when the store holds no record.
	ErrNoWallet = errors.New("no wallet to back up")
)

// BackupVersion is the current backup format version.
const BackupVersion = 1

// EncryptionMethod names the envelope used for the payload.
const EncryptionMethod = "age-scrypt"

// Backup is the on-disk backup document.
type Backup struct {
	Version  int      `json:"version"`
	Manifest Manifest `json:"manifest"`

	// EncryptedData is the age-sealed JSON of the wallet record.
	EncryptedData []byte `json:"encrypted_data"`

	// Checksum is the hex SHA-256 of EncryptedData.
	Checksum string `json:"checksum"`
}

// Manifest holds the non-secret description of a backup, readable without
// the passphrase.
type Manifest struct {
	WalletName       string         `json:"wallet_name"`
	Network          wallet.Network `json:"network"`
	Address          string         `json:"address"`
	WalletCreatedAt  time.Time      `json:"wallet_created_at"`
	CreatedAt        time.Time      `json:"created_at"`
	KDF              string         `json:"kdf"`
	Cipher           string         `json:"cipher"`
	EncryptionMethod string         `json:"encryption_method"`
}

// NewManifest describes rec for a backup taken at now.
func NewManifest(rec *wallet.WalletRecord, now time.Time) Manifest {
	return Manifest{
		WalletName:       rec.Name,
		Network:          rec.Network,
		Address:          rec.Address,
		WalletCreatedAt:  rec.CreatedAt,
		CreatedAt:        now.UTC(),
		KDF:              string(rec.KDF.Algorithm),
		Cipher:           string(rec.Cipher),
		EncryptionMethod: EncryptionMethod,
	}
}

// CalculateChecksum computes the SHA256 checksum of data.
func CalculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// VerifyChecksum verifies that data matches the expected checksum.
func VerifyChecksum(data []byte, expected string) error {
	actual := CalculateChecksum(data)
	if actual != expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrBackupCorrupted, expected, actual)
	}
	return nil
}

// NewBackup wraps a sealed payload with its manifest and checksum.
func NewBackup(manifest Manifest, encryptedData []byte) *Backup {
	return &Backup{
		Version:       BackupVersion,
		Manifest:      manifest,
		EncryptedData: encryptedData,
		Checksum:      CalculateChecksum(encryptedData),
	}
}

// Validate checks the backup for consistency without decrypting it.
func (b *Backup) Validate() error {
	if b.Version != BackupVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidFormat, b.Version)
	}
	if b.Manifest.WalletName == "" {
		return fmt.Errorf("%w: missing wallet name", ErrInvalidFormat)
	}
	if !b.Manifest.Network.Valid() {
		return fmt.Errorf("%w: unknown network %q", ErrInvalidFormat, b.Manifest.Network)
	}
	if len(b.EncryptedData) == 0 {
		return fmt.Errorf("%w: no encrypted data", ErrInvalidFormat)
	}
	return VerifyChecksum(b.EncryptedData, b.Checksum)
}
