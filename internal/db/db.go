// Package db is the persistent cache under the gateway: accounts,
// mailbox paths, messages and their flags, all keyed by the owning
// account. Functions take a *sql.DB so tests can run against an
// in-memory database.
package db

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"mailgate/internal/fault"
)

// Open opens (or creates) the cache database at file and ensures the
// schema exists.
func Open(file string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	// Enable foreign key constraints
	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Backup writes a consistent snapshot of the live database to dest,
// replacing any previous snapshot file.
func Backup(db *sql.DB, dest string) error {
	const op = "db.Backup"

	// VACUUM INTO refuses to overwrite an existing file.
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fault.Wrap(fault.KindStore, op, err)
	}

	if _, err := db.Exec("VACUUM INTO ?", dest); err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	return nil
}
