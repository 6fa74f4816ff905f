// Package store persists the encrypted WalletRecord. Every backend holds at
// most one record in practice, but the interface mirrors a small ordered
// collection: count, add, clear and "last by field".
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mrz1836/satvault/internal/wallet"
)

// OrderBy names the record field used to pick the last record.
type OrderBy string

// Supported orderings.
const (
	OrderByCreatedAt OrderBy = "created_at"
	OrderByLastUsed  OrderBy = "last_used"
)

var (
	// ErrStorage wraps every backend failure so callers can tell storage
	// problems apart from password or validation outcomes.
	ErrStorage = errors.New("storage failure")

	// ErrNotFound is returned by Touch when no record has the given id.
	ErrNotFound = errors.New("record not found")

	// ErrUnknownOrder is returned for an unsupported OrderBy value.
	ErrUnknownOrder = errors.New("unknown order field")

	// ErrNilRecord is returned when adding a nil record.
	ErrNilRecord = errors.New("record is nil")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store is closed")
)

// Store is the persistence contract consumed by the vault manager. Writes
// are durable before the call returns.
type Store interface {
	Count(ctx context.Context) (int, error)
	Add(ctx context.Context, rec *wallet.WalletRecord) error
	Clear(ctx context.Context) error
	// Last returns the record with the greatest value of field, or nil, nil
	// when the store is empty. Ties go to the most recently added record.
	Last(ctx context.Context, field OrderBy) (*wallet.WalletRecord, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Close() error
}

// Replacer is implemented by backends that can clear and add in a single
// atomic step.
type Replacer interface {
	ReplaceAll(ctx context.Context, rec *wallet.WalletRecord) error
}

// Replace leaves rec as the only record in s. It uses the backend's atomic
// ReplaceAll when available and falls back to Clear then Add.
func Replace(ctx context.Context, s Store, rec *wallet.WalletRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	if r, ok := s.(Replacer); ok {
		return r.ReplaceAll(ctx, rec)
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	return s.Add(ctx, rec)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func (o OrderBy) valid() bool {
	return o == OrderByCreatedAt || o == OrderByLastUsed
}

func (o OrderBy) value(r *wallet.WalletRecord) time.Time {
	if o == OrderByLastUsed {
		return r.LastUsed
	}
	return r.CreatedAt
}

// lastOf picks the record ordered last by field from records in insertion
// order.
func lastOf(records []*wallet.WalletRecord, field OrderBy) *wallet.WalletRecord {
	var best *wallet.WalletRecord
	for _, r := range records {
		if best == nil || !field.value(r).Before(field.value(best)) {
			best = r
		}
	}
	return best
}

// touchIn updates LastUsed on the record with id. It reports whether one
// matched.
func touchIn(records []*wallet.WalletRecord, id string, at time.Time) bool {
	for _, r := range records {
		if r.ID == id {
			r.LastUsed = at.UTC()
			return true
		}
	}
	return false
}
