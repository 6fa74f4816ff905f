package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network selects the chain parameters used at derivation time.
type Network string

// Supported networks.
const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// ErrUnknownNetwork is returned for an unsupported network name.
var ErrUnknownNetwork = errors.New("unknown network")

// tpubVersion is the BIP-32 version prefix for testnet public keys.
//
//nolint:gochecknoglobals // constant byte prefix
var tpubVersion = []byte{0x04, 0x35, 0x87, 0xCF}

// ParseNetwork maps a user-supplied name to a Network. Empty means mainnet.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mainnet", "main", "bitcoin":
		return Mainnet, nil
	case "testnet", "test", "testnet3":
		return Testnet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownNetwork, s)
	}
}

// Valid reports whether n is a supported network.
func (n Network) Valid() bool {
	return n == Mainnet || n == Testnet
}

// Params returns the btcd chain parameters for n.
func (n Network) Params() *chaincfg.Params {
	if n == Testnet {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

// CoinType returns the BIP-44 coin type: 0 on mainnet, 1 on test networks.
func (n Network) CoinType() uint32 {
	if n == Testnet {
		return 1
	}
	return 0
}
