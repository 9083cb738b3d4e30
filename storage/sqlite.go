package storage

import (
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

// SQLiteDB persists key-value pairs in a single-table SQLite database. It is a
// drop-in alternative to LevelDB for deployments that prefer a single file
// with SQL tooling around it.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (or creates) the SQLite database at path and ensures the
// kv table exists.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (k BLOB PRIMARY KEY, v BLOB NOT NULL)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteDB{db: db}, nil
}

// Put inserts or replaces the value stored under key.
func (s *SQLiteDB) Put(key []byte, value []byte) error {
	_, err := s.db.Exec(`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`, key, value)
	return err
}

// Get retrieves the value stored under key.
func (s *SQLiteDB) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Close closes the underlying database handle.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
