package wallet

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/satvault/internal/vaultcrypto"
)

func validRecord() *WalletRecord {
	return &WalletRecord{
		ID:                NewRecordID(),
		Name:              "savings",
		Version:           RecordVersion,
		Network:           Mainnet,
		KDF:               vaultcrypto.FastKDFParams(vaultcrypto.KDFArgon2id),
		Cipher:            vaultcrypto.CipherAESGCM,
		EncryptedMnemonic: vaultcrypto.Bytes("ciphertext-bytes"),
		Salt:              make(vaultcrypto.Bytes, vaultcrypto.SaltSize),
		IV:                make(vaultcrypto.Bytes, vaultcrypto.CipherAESGCM.NonceSize()),
		Address:           bip84Address,
		CreatedAt:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestWalletRecord_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validRecord().Validate())

	tests := []struct {
		name   string
		mutate func(r *WalletRecord)
	}{
		{"bad version", func(r *WalletRecord) { r.Version = 9 }},
		{"missing id", func(r *WalletRecord) { r.ID = "" }},
		{"empty ciphertext", func(r *WalletRecord) { r.EncryptedMnemonic = nil }},
		{"short salt", func(r *WalletRecord) { r.Salt = r.Salt[:4] }},
		{"unknown cipher", func(r *WalletRecord) { r.Cipher = "des" }},
		{"iv length mismatch", func(r *WalletRecord) { r.IV = make(vaultcrypto.Bytes, 24) }},
		{"unknown network", func(r *WalletRecord) { r.Network = "dogecoin" }},
		{"bad kdf", func(r *WalletRecord) { r.KDF = vaultcrypto.KDFParams{Algorithm: "none"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := validRecord()
			tt.mutate(r)
			require.ErrorIs(t, r.Validate(), ErrInvalidRecord)
		})
	}

	var nilRecord *WalletRecord
	require.ErrorIs(t, nilRecord.Validate(), ErrInvalidRecord)
}

func TestWalletRecord_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	r := validRecord()
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"salt":"AAAAAAAAAAAAAAAAAAAAAA=="`)

	var back WalletRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, &back)
}

func TestWalletRecord_AssociatedDataBindsID(t *testing.T) {
	t.Parallel()

	a, b := validRecord(), validRecord()
	assert.NotEqual(t, a.AssociatedData(), b.AssociatedData())
	assert.True(t, strings.HasPrefix(string(a.AssociatedData()), "satvault:v1:"))
}

func TestWalletRecord_Clone(t *testing.T) {
	t.Parallel()

	r := validRecord()
	c := r.Clone()
	c.Salt[0] = 0xff
	c.Name = "changed"

	assert.Equal(t, byte(0), r.Salt[0])
	assert.Equal(t, "savings", r.Name)

	var nilRecord *WalletRecord
	assert.Nil(t, nilRecord.Clone())
}

func TestWalletRecord_Summary(t *testing.T) {
	t.Parallel()

	s := validRecord().Summary()
	assert.Equal(t, "savings", s.Name)
	assert.Equal(t, bip84Address, s.Address)
	assert.Equal(t, "argon2id", s.KDF)
	assert.Equal(t, "aes-256-gcm", s.Cipher)
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"savings", "My Wallet", "cold_storage-2", strings.Repeat("a", 64)} {
		require.NoError(t, ValidateName(ok), ok)
	}
	for _, bad := range []string{"", "   ", "wallet/../etc", "emoji🙂", strings.Repeat("a", 65)} {
		require.ErrorIs(t, ValidateName(bad), ErrInvalidName, bad)
	}
}

func TestSuggestName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "my wallet", SuggestName("  my   wallet!! "))
	assert.Equal(t, "etc", SuggestName("../etc"))
	assert.Empty(t, SuggestName("🙂🙂"))
	assert.Len(t, SuggestName(strings.Repeat("b", 80)), 64)
	assert.Equal(t, "coldstorage 2", SuggestName("cold.storage #2"))
	assert.Equal(t, "vault", SuggestName("!! ?? vault"))

	for _, in := range []string{"  my   wallet!! ", "wallet/../etc", "tab\tsep_name", strings.Repeat("ab ", 40)} {
		require.NoError(t, ValidateName(SuggestName(in)), in)
	}
}
