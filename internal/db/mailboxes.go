package db

import (
	"database/sql"

	"mailgate/internal/fault"
)

// InsertMailbox caches one mailbox path for an account. Idempotent.
func InsertMailbox(db *sql.DB, username, address, path string) error {
	const op = "db.InsertMailbox"

	_, err := db.Exec(`
		INSERT OR IGNORE INTO mailboxes (c_username, c_address, path)
		VALUES (?, ?, ?)
	`, username, address, path)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	return nil
}

// InsertMailboxes caches a LIST result in one transaction.
func InsertMailboxes(db *sql.DB, username, address string, paths []string) error {
	const op = "db.InsertMailboxes"

	tx, err := db.Begin()
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO mailboxes (c_username, c_address, path)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, path := range paths {
		if _, err := stmt.Exec(username, address, path); err != nil {
			return fault.Wrap(fault.KindStore, op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	return nil
}

// GetMailboxes returns the cached mailbox paths for an account. An empty
// result is not an error; callers refresh from the server in that case.
func GetMailboxes(db *sql.DB, username, address string) ([]string, error) {
	const op = "db.GetMailboxes"

	rows, err := db.Query(`
		SELECT path FROM mailboxes
		WHERE c_username = ? AND c_address = ?
		ORDER BY path
	`, username, address)
	if err != nil {
		return nil, fault.Wrap(fault.KindStore, op, err)
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fault.Wrap(fault.KindStore, op, err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindStore, op, err)
	}

	return paths, nil
}
