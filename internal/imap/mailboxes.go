package imap

import (
	"log"

	"mailgate/internal/db"
)

// GetMailboxes serves the cached mailbox list for a session's account
// and falls back to a live LIST when the cache has nothing yet.
func (m *Manager) GetMailboxes(id int64) ([]string, error) {
	account, err := m.Account(id)
	if err != nil {
		return nil, err
	}

	paths, err := db.GetMailboxes(m.store, account.Username, account.Address)
	if err != nil {
		return nil, err
	}
	if len(paths) > 0 {
		return paths, nil
	}

	return m.UpdateMailboxes(id)
}

// UpdateMailboxes refreshes the mailbox cache from a live LIST and
// returns the server's paths.
func (m *Manager) UpdateMailboxes(id int64) ([]string, error) {
	account, err := m.Account(id)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = m.WithTransport(id, func(tr Transport) error {
		var listErr error
		paths, listErr = tr.List()
		return listErr
	})
	if err != nil {
		return nil, err
	}

	// Cache write is best effort; the live answer already stands.
	if err := db.InsertMailboxes(m.store, account.Username, account.Address, paths); err != nil {
		log.Printf("Failed to cache mailboxes for %s@%s: %v", account.Username, account.Address, err)
	} else {
		m.kick()
	}

	return paths, nil
}
