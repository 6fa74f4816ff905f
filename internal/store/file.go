package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mrz1836/satvault/internal/fileutil"
	"github.com/mrz1836/satvault/internal/wallet"
)

const (
	// DefaultFileName is the vault file created inside the home directory.
	DefaultFileName = "vault.json"

	fileFormatVersion = 1
	filePerm          = 0o600
)

// ErrCorruptFile indicates the vault file could not be parsed.
var ErrCorruptFile = errors.New("vault file is corrupt")

type fileDocument struct {
	Version int                    `json:"version"`
	Records []*wallet.WalletRecord `json:"records"`
}

// FileStore persists records as a JSON document replaced atomically on
// every write.
type FileStore struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewFileStore returns a store backed by path. The parent directory is
// created with private permissions.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, wrap("open", fileutil.ErrEmptyPath)
	}
	if err := fileutil.EnsurePrivateDir(filepath.Dir(path)); err != nil {
		return nil, wrap("open", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) load() ([]*wallet.WalletRecord, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("read", err)
	}
	var doc fileDocument
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, wrap("read", fmt.Errorf("%w: %w", ErrCorruptFile, err))
	}
	if doc.Version != fileFormatVersion {
		return nil, wrap("read", fmt.Errorf("%w: unsupported version %d", ErrCorruptFile, doc.Version))
	}
	if err = checkRecords(doc.Records); err != nil {
		return nil, wrap("read", err)
	}
	return doc.Records, nil
}

// checkRecords rejects a decoded document holding null record entries.
func checkRecords(records []*wallet.WalletRecord) error {
	for i, r := range records {
		if r == nil {
			return fmt.Errorf("%w: record %d is null", ErrCorruptFile, i)
		}
	}
	return nil
}

func (f *FileStore) save(records []*wallet.WalletRecord) error {
	data, err := json.MarshalIndent(fileDocument{Version: fileFormatVersion, Records: records}, "", "  ")
	if err != nil {
		return wrap("encode", err)
	}
	return wrap("write", fileutil.WriteAtomic(f.path, data, filePerm))
}

func (f *FileStore) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return wrap("context", err)
	}
	if f.closed {
		return wrap("file", ErrClosed)
	}
	return nil
}

// Count implements Store.
func (f *FileStore) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return 0, err
	}
	records, err := f.load()
	return len(records), err
}

// Add implements Store.
func (f *FileStore) Add(ctx context.Context, rec *wallet.WalletRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return err
	}
	records, err := f.load()
	if err != nil {
		return err
	}
	return f.save(append(records, rec))
}

// Clear implements Store. It removes the file entirely.
func (f *FileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return err
	}
	return wrap("clear", fileutil.RemoveIfExists(f.path))
}

// ReplaceAll implements Replacer with a single atomic rename.
func (f *FileStore) ReplaceAll(ctx context.Context, rec *wallet.WalletRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return err
	}
	return f.save([]*wallet.WalletRecord{rec})
}

// Last implements Store.
func (f *FileStore) Last(ctx context.Context, field OrderBy) (*wallet.WalletRecord, error) {
	if !field.valid() {
		return nil, ErrUnknownOrder
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	records, err := f.load()
	if err != nil {
		return nil, err
	}
	return lastOf(records, field), nil
}

// Touch implements Store.
func (f *FileStore) Touch(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return err
	}
	records, err := f.load()
	if err != nil {
		return err
	}
	if !touchIn(records, id, at) {
		return wrap("touch", ErrNotFound)
	}
	return f.save(records)
}

// Close implements Store.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
