package vaultcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher names an authenticated encryption scheme.
type Cipher string

// Supported ciphers.
const (
	CipherAESGCM   Cipher = "aes-256-gcm"
	CipherXChaCha  Cipher = "xchacha20-poly1305"
	DefaultCipher         = CipherAESGCM
	aesGCMNonceLen        = 12
)

var (
	// ErrAuthFailed is returned when decryption cannot authenticate the
	// ciphertext: wrong key, tampered data or a mismatched nonce.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrInvalidKey is returned when a key is not KeySize bytes.
	ErrInvalidKey = errors.New("invalid key length")

	// ErrUnknownCipher is returned for an unsupported cipher name.
	ErrUnknownCipher = errors.New("unknown cipher")
)

// NonceSize returns the nonce length for c, or 0 if c is unknown.
func (c Cipher) NonceSize() int {
	switch c {
	case CipherAESGCM:
		return aesGCMNonceLen
	case CipherXChaCha:
		return chacha20poly1305.NonceSizeX
	default:
		return 0
	}
}

// Valid reports whether c is a supported cipher.
func (c Cipher) Valid() bool {
	return c.NonceSize() > 0
}

func (c Cipher) aead(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(key))
	}
	switch c {
	case CipherAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("creating aes cipher: %w", err)
		}
		return cipher.NewGCM(block)
	case CipherXChaCha:
		return chacha20poly1305.NewX(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, c)
	}
}

// Encrypt seals plaintext under key with a fresh random nonce, returned as
// iv. additionalData is authenticated but not encrypted and must be passed
// unchanged to Decrypt.
func Encrypt(plaintext, key []byte, c Cipher, additionalData []byte) (ciphertext, iv []byte, err error) {
	aead, err := c.aead(key)
	if err != nil {
		return nil, nil, err
	}
	iv, err = RandomBytes(aead.NonceSize())
	if err != nil {
		return nil, nil, err
	}
	return aead.Seal(nil, iv, plaintext, additionalData), iv, nil
}

// Decrypt opens ciphertext. Any authentication failure, including an iv of
// the wrong length, returns ErrAuthFailed.
func Decrypt(ciphertext, key, iv []byte, c Cipher, additionalData []byte) ([]byte, error) {
	aead, err := c.aead(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != aead.NonceSize() {
		return nil, ErrAuthFailed
	}
	plaintext, err := aead.Open(nil, iv, ciphertext, additionalData)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}
