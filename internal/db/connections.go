package db

import (
	"database/sql"

	"mailgate/internal/fault"
	"mailgate/internal/models"
)

// InsertConnection persists an account so it is re-dialed after a
// restart. Inserting the same (username, address) twice is a no-op.
func InsertConnection(db *sql.DB, account models.Account) error {
	const op = "db.InsertConnection"

	_, err := db.Exec(`
		INSERT OR IGNORE INTO connections (username, address, password, port)
		VALUES (?, ?, ?, ?)
	`, account.Username, account.Address, account.Password, account.Port)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	return nil
}

// GetConnections returns all persisted accounts.
func GetConnections(db *sql.DB) ([]models.Account, error) {
	const op = "db.GetConnections"

	rows, err := db.Query(`
		SELECT username, address, password, port FROM connections
	`)
	if err != nil {
		return nil, fault.Wrap(fault.KindStore, op, err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.Username, &a.Address, &a.Password, &a.Port); err != nil {
			return nil, fault.Wrap(fault.KindStore, op, err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindStore, op, err)
	}

	return accounts, nil
}

// RemoveConnection deletes a persisted account; mailboxes, messages and
// flags under it go with it through the cascade.
func RemoveConnection(db *sql.DB, username, address string) error {
	const op = "db.RemoveConnection"

	_, err := db.Exec(`
		DELETE FROM connections WHERE username = ? AND address = ?
	`, username, address)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	return nil
}
