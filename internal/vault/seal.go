package vault

import (
	"time"

	"github.com/mrz1836/satvault/internal/vaultcrypto"
	"github.com/mrz1836/satvault/internal/wallet"
	vaulterr "github.com/mrz1836/satvault/pkg/errors"
)

// seal encrypts plaintext under password into rec with a fresh salt and IV
// and the manager's KDF and cipher. rec.ID and rec.Version must be set, as
// they are bound into the ciphertext.
func (m *Manager) seal(rec *wallet.WalletRecord, plaintext, password []byte) error {
	salt, err := vaultcrypto.GenerateSalt()
	if err != nil {
		return vaulterr.WithCause(vaulterr.ErrGeneral, err)
	}

	key, err := m.deriveKey(password, salt, m.kdf)
	if err != nil {
		return vaulterr.WithCause(vaulterr.ErrGeneral, err)
	}
	defer vaultcrypto.Zero(key)

	rec.KDF = m.kdf
	rec.Cipher = m.cipher
	rec.Salt = salt

	ciphertext, iv, err := vaultcrypto.Encrypt(plaintext, key, m.cipher, rec.AssociatedData())
	if err != nil {
		return vaulterr.WithCause(vaulterr.ErrGeneral, err)
	}
	rec.EncryptedMnemonic = ciphertext
	rec.IV = iv
	return nil
}

// open decrypts rec with password and checks the result is a valid phrase.
// Every failure reports false: a wrong password, tampering and a malformed
// record are indistinguishable to the caller. The returned bytes must be
// zeroed by the caller.
func (m *Manager) open(rec *wallet.WalletRecord, password []byte) ([]byte, bool) {
	if err := rec.Validate(); err != nil {
		m.log.Debug("unlock: record failed validation")
		return nil, false
	}

	key, err := m.deriveKey(password, rec.Salt, rec.KDF)
	if err != nil {
		return nil, false
	}
	defer vaultcrypto.Zero(key)

	plaintext, err := vaultcrypto.Decrypt(rec.EncryptedMnemonic, key, rec.IV, rec.Cipher, rec.AssociatedData())
	if err != nil {
		return nil, false
	}
	if !wallet.ValidateMnemonic(string(plaintext)) {
		vaultcrypto.Zero(plaintext)
		return nil, false
	}
	return plaintext, true
}

func (m *Manager) deriveKey(password, salt []byte, params vaultcrypto.KDFParams) ([]byte, error) {
	start := time.Now()
	key, err := vaultcrypto.DeriveKey(password, salt, params)
	m.metrics.ObserveKDF(time.Since(start))
	return key, err
}
