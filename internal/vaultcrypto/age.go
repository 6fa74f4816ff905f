package vaultcrypto

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
)

// AgeWorkFactor overrides the scrypt work factor (log2 N) used by Seal.
// Zero keeps age's default.
//
//nolint:gochecknoglobals // Tuned down in tests
var AgeWorkFactor = 0

// Seal encrypts plaintext to an age scrypt recipient for passphrase.
func Seal(plaintext []byte, passphrase string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if AgeWorkFactor > 0 {
		recipient.SetWorkFactor(AgeWorkFactor)
	}

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}
	if _, err = w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}
	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	return buf.Bytes(), nil
}

// Open decrypts an age payload produced by Seal. A wrong passphrase or a
// damaged payload returns an error wrapping ErrAuthFailed.
func Open(ciphertext []byte, passphrase string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading decrypted data: %w", ErrAuthFailed, err)
	}
	return plaintext, nil
}
