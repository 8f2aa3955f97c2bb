package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// GetWordRecord loads the record stored under key.
// It returns ErrNotFound when the key is absent; any other error is a store failure.
func GetWordRecord(ctx context.Context, db DBExecutor, key string) (Record, error) {
	var (
		status, entry sql.NullString
		updated       sql.NullTime
	)
	err := db.QueryRowContext(ctx,
		`SELECT stage_status, entry, updated_at FROM words WHERE canonical_form = ?`, key,
	).Scan(&status, &entry, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get word status %q: %w", key, err)
	}
	return decodeRecord(key, status, entry, updated)
}

// UpsertWordRecord atomically inserts or replaces the full record for key.
func UpsertWordRecord(ctx context.Context, db DBExecutor, key string, rec Record) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	status, err := json.Marshal(rec.Status)
	if err != nil {
		return fmt.Errorf("encode stage status: %w", err)
	}
	entry, err := json.Marshal(rec.Entry)
	if err != nil {
		return fmt.Errorf("encode entry snapshot: %w", err)
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err = db.ExecContext(ctx, `INSERT INTO words (canonical_form, stage_status, entry, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(canonical_form) DO UPDATE SET
		  stage_status = excluded.stage_status,
		  entry = excluded.entry,
		  updated_at = excluded.updated_at`,
		key, string(status), string(entry), updated.UTC())
	if err != nil {
		return fmt.Errorf("upsert word status %q: %w", key, err)
	}
	return nil
}

// ListWordRecords returns every stored record ordered by canonical form.
func ListWordRecords(ctx context.Context, db DBExecutor) ([]Record, error) {
	rows, err := db.QueryContext(ctx, `SELECT canonical_form, stage_status, entry, updated_at FROM words ORDER BY canonical_form`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var (
			key           string
			status, entry sql.NullString
			updated       sql.NullTime
		)
		if err := rows.Scan(&key, &status, &entry, &updated); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(key, status, entry, updated)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteWordRecords removes the given keys, or all rows when keys is empty.
func DeleteWordRecords(ctx context.Context, db DBExecutor, keys ...string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if len(keys) == 0 {
		res, err = db.ExecContext(ctx, `DELETE FROM words`)
	} else {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
		args := make([]interface{}, len(keys))
		for i, k := range keys {
			args[i] = k
		}
		res, err = db.ExecContext(ctx, `DELETE FROM words WHERE canonical_form IN (`+placeholders+`)`, args...)
	}
	if err != nil {
		return 0, fmt.Errorf("delete word status: %w", err)
	}
	return res.RowsAffected()
}

func decodeRecord(key string, status, entry sql.NullString, updated sql.NullTime) (Record, error) {
	rec := Record{Key: key}
	if status.Valid && status.String != "" {
		if err := json.Unmarshal([]byte(status.String), &rec.Status); err != nil {
			return Record{}, fmt.Errorf("decode stage status %q: %w", key, err)
		}
	}
	if entry.Valid && entry.String != "" {
		if err := json.Unmarshal([]byte(entry.String), &rec.Entry); err != nil {
			return Record{}, fmt.Errorf("decode entry snapshot %q: %w", key, err)
		}
	}
	if updated.Valid {
		rec.UpdatedAt = updated.Time
	}
	return rec, nil
}

// SQLiteStore is the Store backed by the history database.
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore wraps an already migrated connection.
func NewSQLiteStore(conn *sql.DB) *SQLiteStore {
	return &SQLiteStore{conn: conn}
}

// OpenSQLiteStore opens (and migrates) the history database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(conn), nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Record, error) {
	return GetWordRecord(ctx, s.conn, key)
}

func (s *SQLiteStore) Put(ctx context.Context, key string, rec Record) error {
	return UpsertWordRecord(ctx, s.conn, key, rec)
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	return ListWordRecords(ctx, s.conn)
}

func (s *SQLiteStore) Delete(ctx context.Context, keys ...string) (int64, error) {
	return DeleteWordRecords(ctx, s.conn, keys...)
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
