package db

import (
	"database/sql"
	"fmt"
)

func initSchema(db *sql.DB) error {
	if err := createConnectionsTable(db); err != nil {
		return fmt.Errorf("failed to create connections table: %v", err)
	}
	if err := createMailboxesTable(db); err != nil {
		return fmt.Errorf("failed to create mailboxes table: %v", err)
	}
	if err := createMessagesTable(db); err != nil {
		return fmt.Errorf("failed to create messages table: %v", err)
	}
	if err := createFlagsTable(db); err != nil {
		return fmt.Errorf("failed to create flags table: %v", err)
	}
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %v", err)
	}
	return nil
}

func createConnectionsTable(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS connections (
		username TEXT NOT NULL,
		address TEXT NOT NULL,
		password TEXT NOT NULL,
		port INTEGER NOT NULL,
		PRIMARY KEY (username, address)
	);
	`

	_, err := db.Exec(schema)
	return err
}

func createMailboxesTable(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS mailboxes (
		c_username TEXT NOT NULL,
		c_address TEXT NOT NULL,
		path TEXT NOT NULL,
		PRIMARY KEY (c_username, c_address, path),
		FOREIGN KEY (c_username, c_address)
			REFERENCES connections(username, address) ON DELETE CASCADE
	);
	`

	_, err := db.Exec(schema)
	return err
}

// Address list columns hold JSON arrays; html and text hold the decoded
// part bytes. Reserved words get a trailing underscore.
func createMessagesTable(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		message_uid INTEGER NOT NULL,
		c_username TEXT NOT NULL,
		c_address TEXT NOT NULL,
		m_path TEXT NOT NULL,
		sequence_id INTEGER NOT NULL,
		message_id TEXT DEFAULT '',
		subject TEXT DEFAULT '',
		from_ TEXT DEFAULT '[]',
		sender TEXT DEFAULT '[]',
		to_ TEXT DEFAULT '[]',
		cc TEXT DEFAULT '[]',
		bcc TEXT DEFAULT '[]',
		reply_to TEXT DEFAULT '[]',
		in_reply_to TEXT DEFAULT '',
		delivered_to TEXT DEFAULT '',
		date_ INTEGER DEFAULT 0,
		received INTEGER DEFAULT 0,
		html BLOB,
		text BLOB,
		PRIMARY KEY (c_username, c_address, m_path, message_uid),
		FOREIGN KEY (c_username, c_address)
			REFERENCES connections(username, address) ON DELETE CASCADE,
		FOREIGN KEY (c_username, c_address, m_path)
			REFERENCES mailboxes(c_username, c_address, path) ON DELETE CASCADE
	);
	`

	_, err := db.Exec(schema)
	return err
}

func createFlagsTable(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS flags (
		message_uid INTEGER NOT NULL,
		c_username TEXT NOT NULL,
		c_address TEXT NOT NULL,
		m_path TEXT NOT NULL,
		flag TEXT NOT NULL,
		PRIMARY KEY (message_uid, c_username, c_address, m_path, flag),
		FOREIGN KEY (c_username, c_address, m_path, message_uid)
			REFERENCES messages(c_username, c_address, m_path, message_uid) ON DELETE CASCADE
	);
	`

	_, err := db.Exec(schema)
	return err
}

func createIndexes(db *sql.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_messages_received ON messages(c_username, c_address, m_path, received DESC)",
		"CREATE INDEX IF NOT EXISTS idx_messages_sequence ON messages(c_username, c_address, m_path, sequence_id)",
		"CREATE INDEX IF NOT EXISTS idx_flags_message ON flags(c_username, c_address, m_path, message_uid)",
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %v", err)
		}
	}

	return nil
}
