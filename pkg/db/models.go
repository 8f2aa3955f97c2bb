package db

import (
	"context"
	"errors"
	"time"

	"github.com/japaniel/ankivocab/pkg/vocab"
)

// ErrNotFound is returned by Get when no record exists for a key.
// It is the only error that means "not processed yet".
var ErrNotFound = errors.New("db: record not found")

// ErrEmptyKey is returned by Put for a blank canonical form.
var ErrEmptyKey = errors.New("db: canonical form must be non-empty")

// Record is the persisted state of one canonical form: its stage flags and
// a snapshot of the fields the completed stages produced.
type Record struct {
	Key       string
	Status    vocab.StageStatus
	Entry     vocab.WordEntry
	UpdatedAt time.Time
}

// Store is the durable stage-completion history.
// Implementations must be safe for concurrent use; Put is a single
// last-write-wins upsert of the whole record.
type Store interface {
	Get(ctx context.Context, key string) (Record, error)
	Put(ctx context.Context, key string, rec Record) error
	List(ctx context.Context) ([]Record, error)
	// Delete removes the given keys, or every record when no key is given.
	Delete(ctx context.Context, keys ...string) (int64, error)
	Close() error
}
