package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Backend names a persistence implementation.
type Backend string

// Supported backends.
const (
	BackendFile    Backend = "file"
	BackendSQLite  Backend = "sqlite"
	BackendKeyring Backend = "keyring"
	BackendMemory  Backend = "memory"
)

// ErrUnknownBackend is returned for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// ParseBackend maps a configured name to a Backend. Empty selects file.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendFile, nil
	case BackendFile, BackendSQLite, BackendKeyring, BackendMemory:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

// Options selects and configures a backend for Open.
type Options struct {
	Backend Backend
	// Path is the backing file for file and sqlite. Empty uses the default
	// file name inside Home.
	Path string
	Home string
	// Keyring overrides the OS keychain for the keyring backend.
	Keyring Keyring
}

// Open returns the Store described by opts.
func Open(opts Options) (Store, error) {
	backend, err := ParseBackend(string(opts.Backend))
	if err != nil {
		return nil, err
	}

	switch backend {
	case BackendSQLite:
		s, openErr := OpenSQLite(resolvePath(opts, DefaultSQLiteFileName))
		if openErr != nil {
			return nil, openErr
		}
		return s, nil
	case BackendKeyring:
		ring := opts.Keyring
		if ring == nil {
			ring = NewOSKeyring()
		}
		return NewKeyringStore(ring), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		s, openErr := NewFileStore(resolvePath(opts, DefaultFileName))
		if openErr != nil {
			return nil, openErr
		}
		return s, nil
	}
}

func resolvePath(opts Options, name string) string {
	if opts.Path != "" {
		return opts.Path
	}
	return filepath.Join(opts.Home, name)
}
