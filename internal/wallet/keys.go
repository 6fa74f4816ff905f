package wallet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/tyler-smith/go-bip32"
)

// HashSize is the digest length Sign accepts.
const HashSize = 32

// BIP-84 purpose for native segwit (P2WPKH) accounts.
const purposeBIP84 = 84

var (
	// ErrInvalidHash is returned when Sign is given a digest of the wrong size.
	ErrInvalidHash = errors.New("hash must be 32 bytes")

	// ErrKeyZeroed is returned when signing with wiped key material.
	ErrKeyZeroed = errors.New("key material has been zeroed")
)

// KeyMaterial is everything derived from a recovery phrase for one
// account: the non-secret receive address and account xpub, plus the
// private signing key for the first receive path.
type KeyMaterial struct {
	Network   Network
	Address   string // P2WPKH bech32 address at Path
	XPub      string // account-level extended public key
	Path      string
	PublicKey []byte // compressed secp256k1 key at Path

	mu   sync.Mutex
	priv *btcec.PrivateKey
}

// DerivationPath returns the BIP-84 path of the first receive address.
func DerivationPath(network Network) string {
	return fmt.Sprintf("m/%d'/%d'/0'/0/0", purposeBIP84, network.CoinType())
}

// FromMnemonic derives key material from phrase with an empty BIP-39
// passphrase. It is deterministic and performs no I/O. An invalid phrase
// returns ErrInvalidMnemonic and no keys.
func FromMnemonic(phrase string, network Network) (*KeyMaterial, error) {
	if !network.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, network)
	}
	seed, err := MnemonicToSeed(phrase, "")
	if err != nil {
		return nil, err
	}
	defer clear(seed)

	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("deriving master key: %w", err)
	}
	defer clear(master.Key)

	// m/84'/coin'/0'
	account, err := deriveChain(master,
		bip32.FirstHardenedChild+purposeBIP84,
		bip32.FirstHardenedChild+network.CoinType(),
		bip32.FirstHardenedChild,
	)
	if err != nil {
		return nil, err
	}
	defer clear(account.Key)

	// .../0/0
	leaf, err := deriveChain(account, 0, 0)
	if err != nil {
		return nil, err
	}
	defer clear(leaf.Key)

	xpub := account.PublicKey()
	if network == Testnet {
		xpub.Version = tpubVersion
	}

	priv, pub := btcec.PrivKeyFromBytes(leaf.Key)
	pubBytes := pub.SerializeCompressed()

	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pubBytes), network.Params())
	if err != nil {
		priv.Zero()
		return nil, fmt.Errorf("encoding address: %w", err)
	}

	return &KeyMaterial{
		Network:   network,
		Address:   addr.EncodeAddress(),
		XPub:      xpub.B58Serialize(),
		Path:      DerivationPath(network),
		PublicKey: pubBytes,
		priv:      priv,
	}, nil
}

// deriveChain walks indexes from parent, wiping intermediate private keys.
func deriveChain(parent *bip32.Key, indexes ...uint32) (*bip32.Key, error) {
	key := parent
	for i, idx := range indexes {
		child, err := key.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("deriving child %d: %w", idx, err)
		}
		if i > 0 {
			clear(key.Key)
		}
		key = child
	}
	return key, nil
}

// Sign produces a DER-encoded ECDSA signature over a 32-byte digest.
func (k *KeyMaterial) Sign(hash []byte) ([]byte, error) {
	if len(hash) != HashSize {
		return nil, ErrInvalidHash
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.priv == nil {
		return nil, ErrKeyZeroed
	}
	return ecdsa.Sign(k.priv, hash).Serialize(), nil
}

// Zeroed reports whether the private key has been wiped.
func (k *KeyMaterial) Zeroed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.priv == nil
}

// Zero wipes the private key. The public fields stay readable.
func (k *KeyMaterial) Zero() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.priv != nil {
		k.priv.Zero()
		k.priv = nil
	}
}

// VerifySignature checks a DER signature over hash for a compressed or
// uncompressed public key.
func VerifySignature(pubKey, hash, sig []byte) bool {
	pk, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(hash, pk)
}

// ZeroBytes overwrites b with zeros.
func ZeroBytes(b []byte) {
	clear(b)
}
