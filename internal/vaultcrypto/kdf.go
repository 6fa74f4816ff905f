package vaultcrypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// KeySize is the length of every derived symmetric key.
const KeySize = 32

// KDF identifies a password-based key derivation function.
type KDF string

// Supported key derivation functions.
const (
	KDFArgon2id KDF = "argon2id"
	KDFScrypt   KDF = "scrypt"
	KDFPBKDF2   KDF = "pbkdf2-sha256"
)

// Documented work factors used for new records.
const (
	Argon2Time      = 2
	Argon2MemoryKiB = 64 * 1024
	Argon2Threads   = 1

	ScryptLogN = 15
	ScryptR    = 8
	ScryptP    = 1

	PBKDF2Iterations = 600_000

	// MinSaltSize is the shortest salt DeriveKey accepts.
	MinSaltSize = 16
)

// Ceilings on stored work factors. A record asking for more is refused
// before any derivation starts.
const (
	MaxArgon2Time      = 10
	MaxArgon2MemoryKiB = 1 << 20
	MaxParallelism     = 16

	MaxScryptLogN = 20
	// MaxScryptMemory caps 128*r*2^log_n bytes.
	MaxScryptMemory = 1 << 30

	MaxPBKDF2Iterations = 10_000_000
)

var (
	// ErrEmptyPassword is returned when deriving from an empty password.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrShortSalt is returned when the salt is below MinSaltSize.
	ErrShortSalt = errors.New("salt is too short")

	// ErrUnknownKDF is returned for an unsupported algorithm name.
	ErrUnknownKDF = errors.New("unknown key derivation function")

	// ErrInvalidWorkFactor is returned when a work factor is zero or out of range.
	ErrInvalidWorkFactor = errors.New("invalid key derivation work factor")
)

// KDFParams records the algorithm and work factor used to derive a key, so a
// stored record can always be re-derived exactly.
type KDFParams struct {
	Algorithm   KDF    `json:"algorithm" yaml:"algorithm"`
	Iterations  uint32 `json:"iterations,omitempty" yaml:"iterations,omitempty"` // argon2 passes or pbkdf2 rounds
	MemoryKiB   uint32 `json:"memory_kib,omitempty" yaml:"memory_kib,omitempty"`
	Parallelism uint8  `json:"parallelism,omitempty" yaml:"parallelism,omitempty"` // argon2 threads or scrypt p
	LogN        uint8  `json:"log_n,omitempty" yaml:"log_n,omitempty"`
	BlockSize   uint32 `json:"block_size,omitempty" yaml:"block_size,omitempty"` // scrypt r
}

// DefaultKDFParams returns the documented work factor for alg.
func DefaultKDFParams(alg KDF) (KDFParams, error) {
	switch alg {
	case KDFArgon2id:
		return KDFParams{
			Algorithm:   KDFArgon2id,
			Iterations:  Argon2Time,
			MemoryKiB:   Argon2MemoryKiB,
			Parallelism: Argon2Threads,
		}, nil
	case KDFScrypt:
		return KDFParams{
			Algorithm:   KDFScrypt,
			LogN:        ScryptLogN,
			BlockSize:   ScryptR,
			Parallelism: ScryptP,
		}, nil
	case KDFPBKDF2:
		return KDFParams{
			Algorithm:  KDFPBKDF2,
			Iterations: PBKDF2Iterations,
		}, nil
	default:
		return KDFParams{}, fmt.Errorf("%w: %q", ErrUnknownKDF, alg)
	}
}

// FastKDFParams returns cheap parameters for alg. Only tests should use
// them; they offer no brute force resistance.
func FastKDFParams(alg KDF) KDFParams {
	switch alg {
	case KDFScrypt:
		return KDFParams{Algorithm: KDFScrypt, LogN: 4, BlockSize: 8, Parallelism: 1}
	case KDFPBKDF2:
		return KDFParams{Algorithm: KDFPBKDF2, Iterations: 16}
	default:
		return KDFParams{Algorithm: KDFArgon2id, Iterations: 1, MemoryKiB: 64, Parallelism: 1}
	}
}

// Validate checks the parameters are complete for their algorithm and
// within the ceilings above.
func (p KDFParams) Validate() error {
	switch p.Algorithm {
	case KDFArgon2id:
		if p.Iterations == 0 || p.MemoryKiB == 0 || p.Parallelism == 0 {
			return fmt.Errorf("%w: argon2id needs iterations, memory and parallelism", ErrInvalidWorkFactor)
		}
		if p.Iterations > MaxArgon2Time || p.MemoryKiB > MaxArgon2MemoryKiB || p.Parallelism > MaxParallelism {
			return fmt.Errorf("%w: argon2id allows at most %d iterations, %d KiB and %d threads",
				ErrInvalidWorkFactor, MaxArgon2Time, MaxArgon2MemoryKiB, MaxParallelism)
		}
	case KDFScrypt:
		if p.LogN == 0 || p.BlockSize == 0 || p.Parallelism == 0 {
			return fmt.Errorf("%w: scrypt needs log_n, block size and parallelism", ErrInvalidWorkFactor)
		}
		if p.LogN > MaxScryptLogN || p.Parallelism > MaxParallelism {
			return fmt.Errorf("%w: scrypt allows log_n up to %d and %d threads",
				ErrInvalidWorkFactor, MaxScryptLogN, MaxParallelism)
		}
		r := uint64(p.BlockSize)
		if r*uint64(p.Parallelism) >= 1<<30 || 128*r<<p.LogN > MaxScryptMemory {
			return fmt.Errorf("%w: scrypt block size %d needs more than %d bytes", ErrInvalidWorkFactor, p.BlockSize, MaxScryptMemory)
		}
	case KDFPBKDF2:
		if p.Iterations == 0 {
			return fmt.Errorf("%w: pbkdf2 needs iterations", ErrInvalidWorkFactor)
		}
		if p.Iterations > MaxPBKDF2Iterations {
			return fmt.Errorf("%w: pbkdf2 allows at most %d iterations", ErrInvalidWorkFactor, MaxPBKDF2Iterations)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKDF, p.Algorithm)
	}
	return nil
}

// DeriveKey stretches password with salt into a KeySize-byte key. The same
// inputs always yield the same key.
func DeriveKey(password, salt []byte, params KDFParams) ([]byte, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}
	if len(salt) < MinSaltSize {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrShortSalt, len(salt), MinSaltSize)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	switch params.Algorithm {
	case KDFScrypt:
		key, err := scrypt.Key(password, salt, 1<<params.LogN, int(params.BlockSize), int(params.Parallelism), KeySize)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidWorkFactor, err)
		}
		return key, nil
	case KDFPBKDF2:
		return pbkdf2.Key(password, salt, int(params.Iterations), KeySize, sha256.New), nil
	default:
		return argon2.IDKey(password, salt, params.Iterations, params.MemoryKiB, params.Parallelism, KeySize), nil
	}
}
