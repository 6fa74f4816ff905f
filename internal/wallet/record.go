package wallet

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mrz1836/go-sanitize"

	"github.com/mrz1836/satvault/internal/vaultcrypto"
)

// RecordVersion is the current WalletRecord format version.
const RecordVersion = 1

// DefaultName labels a wallet created without an explicit name.
const DefaultName = "savings"

var (
	// ErrInvalidName indicates the display name fails naming rules.
	ErrInvalidName = errors.New("wallet name must be 1-64 letters, digits, spaces, underscores or hyphens")

	// ErrInvalidRecord indicates a stored record is structurally unusable.
	ErrInvalidRecord = errors.New("invalid wallet record")

	nameRegex = regexp.MustCompile(`^[A-Za-z0-9_ -]{1,64}$`)
)

// WalletRecord is the single persisted wallet. Only the encrypted phrase
// and non-secret metadata are stored.
type WalletRecord struct {
	ID                string                `json:"id"`
	Name              string                `json:"name"`
	Version           int                   `json:"version"`
	Network           Network               `json:"network"`
	KDF               vaultcrypto.KDFParams `json:"kdf"`
	Cipher            vaultcrypto.Cipher    `json:"cipher"`
	EncryptedMnemonic vaultcrypto.Bytes     `json:"encrypted_mnemonic"`
	Salt              vaultcrypto.Bytes     `json:"salt"`
	IV                vaultcrypto.Bytes     `json:"iv"`
	Address           string                `json:"address"`
	CreatedAt         time.Time             `json:"created_at"`
	LastUsed          time.Time             `json:"last_used"`
}

// NewRecordID returns a fresh random record identifier.
func NewRecordID() string {
	return uuid.NewString()
}

// ValidateName checks a display name after trimming surrounding spaces.
func ValidateName(name string) error {
	if !nameRegex.MatchString(strings.TrimSpace(name)) {
		return ErrInvalidName
	}
	return nil
}

// SuggestName returns a cleaned-up version of name that passes
// ValidateName, or "" if nothing usable remains. Each word goes through
// sanitize.PathName and the survivors are joined by single spaces.
func SuggestName(name string) string {
	words := make([]string, 0, 4)
	for _, w := range strings.Fields(name) {
		if w = sanitize.PathName(w); w != "" {
			words = append(words, w)
		}
	}
	suggested := strings.Join(words, " ")
	if len(suggested) > 64 {
		suggested = strings.TrimSpace(suggested[:64])
	}
	return suggested
}

// AssociatedData binds the ciphertext to this record's identity so a
// ciphertext moved between records fails authentication.
func (r *WalletRecord) AssociatedData() []byte {
	return []byte(fmt.Sprintf("satvault:v%d:%s", r.Version, r.ID))
}

// Validate checks the record is complete enough to attempt decryption.
func (r *WalletRecord) Validate() error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	case r.Version != RecordVersion:
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidRecord, r.Version)
	case r.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidRecord)
	case len(r.EncryptedMnemonic) == 0:
		return fmt.Errorf("%w: missing ciphertext", ErrInvalidRecord)
	case len(r.Salt) < vaultcrypto.MinSaltSize:
		return fmt.Errorf("%w: salt too short", ErrInvalidRecord)
	case !r.Cipher.Valid():
		return fmt.Errorf("%w: unknown cipher %q", ErrInvalidRecord, r.Cipher)
	case len(r.IV) != r.Cipher.NonceSize():
		return fmt.Errorf("%w: iv length %d does not match cipher", ErrInvalidRecord, len(r.IV))
	case !r.Network.Valid():
		return fmt.Errorf("%w: unknown network %q", ErrInvalidRecord, r.Network)
	}
	if err := r.KDF.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return nil
}

// Clone returns a deep copy of r.
func (r *WalletRecord) Clone() *WalletRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.EncryptedMnemonic = r.EncryptedMnemonic.Clone()
	out.Salt = r.Salt.Clone()
	out.IV = r.IV.Clone()
	return &out
}

// Summary is the non-secret view of a record shown while locked.
type Summary struct {
	Name      string    `json:"name"`
	Network   Network   `json:"network"`
	Address   string    `json:"address"`
	KDF       string    `json:"kdf"`
	Cipher    string    `json:"cipher"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
}

// Summary returns the non-secret fields of r.
func (r *WalletRecord) Summary() Summary {
	return Summary{
		Name:      r.Name,
		Network:   r.Network,
		Address:   r.Address,
		KDF:       string(r.KDF.Algorithm),
		Cipher:    string(r.Cipher),
		CreatedAt: r.CreatedAt,
		LastUsed:  r.LastUsed,
	}
}
