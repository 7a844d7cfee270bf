// Package storage provides the SQLite attempt journal.
package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryDSN keeps the journal in process memory so nothing survives a restart.
const MemoryDSN = "file:remote-journal?mode=memory&cache=shared"

// DB wraps the SQL database connection with application-specific methods.
type DB struct {
	*sql.DB
	dsn string
}

// NewDB opens the SQLite database at dsn.
func NewDB(dsn string) (*DB, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", dsn+sep+"_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// A shared in-memory database lives as long as one connection stays open.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &DB{DB: db, dsn: dsn}, nil
}

// NewMemoryDB opens a fresh in-memory journal named name.
func NewMemoryDB(name string) (*DB, error) {
	return NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
}

// DSN returns the data source name the database was opened with.
func (db *DB) DSN() string {
	return db.dsn
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

// Transaction executes a function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (db *DB) Transaction(fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
