package vaultcrypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	t.Parallel()

	salt := bytes.Repeat([]byte{0x42}, SaltSize)
	for _, alg := range []KDF{KDFArgon2id, KDFScrypt, KDFPBKDF2} {
		t.Run(string(alg), func(t *testing.T) {
			t.Parallel()
			params := FastKDFParams(alg)

			k1, err := DeriveKey([]byte("CorrectHorse1!"), salt, params)
			require.NoError(t, err)
			k2, err := DeriveKey([]byte("CorrectHorse1!"), salt, params)
			require.NoError(t, err)

			assert.Len(t, k1, KeySize)
			assert.Equal(t, k1, k2)
		})
	}
}

func TestDeriveKey_InputsChangeKey(t *testing.T) {
	t.Parallel()

	params := FastKDFParams(KDFArgon2id)
	saltA := bytes.Repeat([]byte{0x01}, SaltSize)
	saltB := bytes.Repeat([]byte{0x02}, SaltSize)

	base, err := DeriveKey([]byte("password-one"), saltA, params)
	require.NoError(t, err)

	otherPassword, err := DeriveKey([]byte("password-two"), saltA, params)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherPassword)

	otherSalt, err := DeriveKey([]byte("password-one"), saltB, params)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherSalt)
}

func TestDeriveKey_Rejects(t *testing.T) {
	t.Parallel()

	salt := make([]byte, SaltSize)
	tests := []struct {
		name     string
		password []byte
		salt     []byte
		params   KDFParams
		want     error
	}{
		{"empty password", nil, salt, FastKDFParams(KDFArgon2id), ErrEmptyPassword},
		{"short salt", []byte("pw"), salt[:8], FastKDFParams(KDFArgon2id), ErrShortSalt},
		{"unknown algorithm", []byte("pw"), salt, KDFParams{Algorithm: "md5"}, ErrUnknownKDF},
		{"zero argon2 memory", []byte("pw"), salt, KDFParams{Algorithm: KDFArgon2id, Iterations: 1, Parallelism: 1}, ErrInvalidWorkFactor},
		{"zero pbkdf2 rounds", []byte("pw"), salt, KDFParams{Algorithm: KDFPBKDF2}, ErrInvalidWorkFactor},
		{"scrypt log_n too large", []byte("pw"), salt, KDFParams{Algorithm: KDFScrypt, LogN: 40, BlockSize: 8, Parallelism: 1}, ErrInvalidWorkFactor},
		{"argon2 memory over limit", []byte("pw"), salt, KDFParams{Algorithm: KDFArgon2id, Iterations: 1, MemoryKiB: 1<<32 - 1, Parallelism: 1}, ErrInvalidWorkFactor},
		{"argon2 time over limit", []byte("pw"), salt, KDFParams{Algorithm: KDFArgon2id, Iterations: MaxArgon2Time + 1, MemoryKiB: 64, Parallelism: 1}, ErrInvalidWorkFactor},
		{"argon2 threads over limit", []byte("pw"), salt, KDFParams{Algorithm: KDFArgon2id, Iterations: 1, MemoryKiB: 64, Parallelism: MaxParallelism + 1}, ErrInvalidWorkFactor},
		{"scrypt log_n over limit", []byte("pw"), salt, KDFParams{Algorithm: KDFScrypt, LogN: MaxScryptLogN + 1, BlockSize: 8, Parallelism: 1}, ErrInvalidWorkFactor},
		{"scrypt block size over limit", []byte("pw"), salt, KDFParams{Algorithm: KDFScrypt, LogN: 4, BlockSize: 1 << 30, Parallelism: 1}, ErrInvalidWorkFactor},
		{"scrypt memory over limit", []byte("pw"), salt, KDFParams{Algorithm: KDFScrypt, LogN: MaxScryptLogN, BlockSize: 16, Parallelism: 1}, ErrInvalidWorkFactor},
		{"pbkdf2 rounds over limit", []byte("pw"), salt, KDFParams{Algorithm: KDFPBKDF2, Iterations: MaxPBKDF2Iterations + 1}, ErrInvalidWorkFactor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DeriveKey(tt.password, tt.salt, tt.params)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDefaultKDFParams(t *testing.T) {
	t.Parallel()

	argon, err := DefaultKDFParams(KDFArgon2id)
	require.NoError(t, err)
	assert.Equal(t, uint32(Argon2MemoryKiB), argon.MemoryKiB)
	assert.Equal(t, uint32(Argon2Time), argon.Iterations)
	require.NoError(t, argon.Validate())

	sc, err := DefaultKDFParams(KDFScrypt)
	require.NoError(t, err)
	assert.Equal(t, uint8(ScryptLogN), sc.LogN)
	require.NoError(t, sc.Validate())

	pb, err := DefaultKDFParams(KDFPBKDF2)
	require.NoError(t, err)
	assert.Equal(t, uint32(PBKDF2Iterations), pb.Iterations)
	require.NoError(t, pb.Validate())

	_, err = DefaultKDFParams("bcrypt")
	require.ErrorIs(t, err, ErrUnknownKDF)
}
