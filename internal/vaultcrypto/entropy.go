// Package vaultcrypto protects the recovery phrase at rest. It derives
// symmetric keys from passwords with a memory-hard KDF and seals data with
// an AEAD cipher under a fresh random nonce per call.
package vaultcrypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// SaltSize is the length of salts produced by GenerateSalt.
const SaltSize = 16

// Reader is the random source used for salts, nonces and secure buffers.
//
//nolint:gochecknoglobals // Package-level RNG is swapped in tests
var Reader io.Reader = rand.Reader

// ErrRandomSource indicates the random source could not supply bytes.
var ErrRandomSource = errors.New("random source failure")

// RandomBytes returns n bytes read from Reader.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(Reader, b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRandomSource, err)
	}
	return b, nil
}

// GenerateSalt returns a fresh SaltSize-byte random salt.
func GenerateSalt() ([]byte, error) {
	return RandomBytes(SaltSize)
}

// SecureRandomBytes fills a locked buffer with n random bytes.
func SecureRandomBytes(n int) (*SecureBytes, error) {
	sb := NewSecureBytes(n)
	if _, err := io.ReadFull(Reader, sb.Bytes()); err != nil {
		sb.Destroy()
		return nil, fmt.Errorf("%w: %w", ErrRandomSource, err)
	}
	return sb, nil
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	clear(b)
}
