package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/mrz1836/satvault/internal/fileutil"
	"github.com/mrz1836/satvault/internal/vaultcrypto"
	"github.com/mrz1836/satvault/internal/wallet"
)

// DefaultSQLiteFileName is the database created inside the home directory.
const DefaultSQLiteFileName = "vault.db"

// SQLiteStore persists records in a wallet_records table.
type SQLiteStore struct {
	db   *sql.DB
	once sync.Once
}

// OpenSQLite opens or creates the database at path and runs migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, wrap("open", fileutil.ErrEmptyPath)
	}
	if path != ":memory:" {
		if err := fileutil.EnsurePrivateDir(filepath.Dir(path)); err != nil {
			return nil, wrap("open", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrap("open", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err = s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, wrap("migrate", err)
	}
	return s, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	var err error
	s.once.Do(func() { err = s.db.Close() })
	return err
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS wallet_records (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  version INTEGER NOT NULL,
  network TEXT NOT NULL,
  kdf_json TEXT NOT NULL,
  cipher TEXT NOT NULL,
  ct_b64 TEXT NOT NULL,
  salt_b64 TEXT NOT NULL,
  iv_b64 TEXT NOT NULL,
  address TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  last_used INTEGER NOT NULL
);
`)
	return err
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallet_records`).Scan(&n); err != nil {
		return 0, wrap("count", err)
	}
	return n, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRecord(ctx context.Context, db execer, rec *wallet.WalletRecord) error {
	kdf, err := json.Marshal(rec.KDF)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
INSERT INTO wallet_records(id, name, version, network, kdf_json, cipher, ct_b64, salt_b64, iv_b64, address, created_at, last_used)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Name, rec.Version, string(rec.Network), string(kdf), string(rec.Cipher),
		vaultcrypto.ToBase64(rec.EncryptedMnemonic), vaultcrypto.ToBase64(rec.Salt), vaultcrypto.ToBase64(rec.IV),
		rec.Address, toUnixNano(rec.CreatedAt), toUnixNano(rec.LastUsed),
	)
	return err
}

// Add implements Store.
func (s *SQLiteStore) Add(ctx context.Context, rec *wallet.WalletRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	return wrap("add", insertRecord(ctx, s.db, rec))
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM wallet_records`)
	return wrap("clear", err)
}

// ReplaceAll implements Replacer inside one transaction.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, rec *wallet.WalletRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("replace", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM wallet_records`); err != nil {
		return wrap("replace", err)
	}
	if err = insertRecord(ctx, tx, rec); err != nil {
		return wrap("replace", err)
	}
	return wrap("replace", tx.Commit())
}

// orderColumns maps OrderBy to a fixed column name; never interpolate input.
//
//nolint:gochecknoglobals // lookup table
var orderColumns = map[OrderBy]string{
	OrderByCreatedAt: "created_at",
	OrderByLastUsed:  "last_used",
}

// Last implements Store.
func (s *SQLiteStore) Last(ctx context.Context, field OrderBy) (*wallet.WalletRecord, error) {
	col, ok := orderColumns[field]
	if !ok {
		return nil, ErrUnknownOrder
	}

	//nolint:gosec // G202: column comes from orderColumns
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, version, network, kdf_json, cipher, ct_b64, salt_b64, iv_b64, address, created_at, last_used
FROM wallet_records ORDER BY `+col+` DESC, seq DESC LIMIT 1`)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("last", err)
	}
	return rec, nil
}

func scanRecord(row *sql.Row) (*wallet.WalletRecord, error) {
	var (
		rec                  wallet.WalletRecord
		network, cipher, kdf string
		ct, salt, iv         string
		createdAt, lastUsed  int64
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Version, &network, &kdf, &cipher,
		&ct, &salt, &iv, &rec.Address, &createdAt, &lastUsed); err != nil {
		return nil, err
	}

	rec.Network = wallet.Network(network)
	rec.Cipher = vaultcrypto.Cipher(cipher)
	if err := json.Unmarshal([]byte(kdf), &rec.KDF); err != nil {
		return nil, fmt.Errorf("decoding kdf params: %w", err)
	}
	var err error
	if rec.EncryptedMnemonic, err = vaultcrypto.FromBase64(ct); err != nil {
		return nil, err
	}
	if rec.Salt, err = vaultcrypto.FromBase64(salt); err != nil {
		return nil, err
	}
	if rec.IV, err = vaultcrypto.FromBase64(iv); err != nil {
		return nil, err
	}
	rec.CreatedAt = fromUnixNano(createdAt)
	rec.LastUsed = fromUnixNano(lastUsed)
	return &rec, nil
}

// Touch implements Store.
func (s *SQLiteStore) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE wallet_records SET last_used = ? WHERE id = ?`, toUnixNano(at), id)
	if err != nil {
		return wrap("touch", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("touch", err)
	}
	if n == 0 {
		return wrap("touch", ErrNotFound)
	}
	return nil
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
