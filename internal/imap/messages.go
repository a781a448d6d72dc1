package imap

import (
	"log"

	"mailgate/internal/db"
	"mailgate/internal/models"
	"mailgate/internal/parser"
)

// GetMessagesSorted reads a window of cached messages ordered newest
// first. Purely a cache read; callers wanting fresh data sync first.
func (m *Manager) GetMessagesSorted(id int64, mailbox string, start, end uint32) ([]models.Message, error) {
	account, err := m.Account(id)
	if err != nil {
		return nil, err
	}

	return db.GetMessagesSorted(m.store, account.Username, account.Address, mailbox, start, end)
}

// GetMessagesWithUIDs returns the requested messages, serving from the
// cache and fetching only the UIDs the cache does not hold. Fetched
// messages are written back best effort.
func (m *Manager) GetMessagesWithUIDs(id int64, mailbox string, uids []uint32) ([]models.Message, error) {
	account, err := m.Account(id)
	if err != nil {
		return nil, err
	}

	cached, err := db.GetMessagesWithUIDs(m.store, account.Username, account.Address, mailbox, uids)
	if err != nil {
		return nil, err
	}

	have := make(map[uint32]bool, len(cached))
	for _, msg := range cached {
		have[msg.UID] = true
	}

	var missing []uint32
	for _, uid := range uids {
		if !have[uid] {
			missing = append(missing, uid)
		}
	}
	if len(missing) == 0 {
		return cached, nil
	}

	fetched, err := m.fetchAndCache(id, account, mailbox, missing)
	if err != nil {
		return nil, err
	}

	return append(cached, fetched...), nil
}

// GetMessage returns one message, from the cache when possible.
func (m *Manager) GetMessage(id int64, mailbox string, uid uint32) (*models.Message, error) {
	account, err := m.Account(id)
	if err != nil {
		return nil, err
	}

	msg, err := db.GetMessage(m.store, account.Username, account.Address, mailbox, uid)
	if err != nil {
		return nil, err
	}
	if msg != nil {
		return msg, nil
	}

	fetched, err := m.fetchAndCache(id, account, mailbox, []uint32{uid})
	if err != nil {
		return nil, err
	}
	if len(fetched) == 0 {
		return nil, nil
	}

	return &fetched[0], nil
}

// fetchAndCache pulls full messages from the server, parses them and
// writes them back to the cache. The write-back is best effort; the
// parsed result is returned either way.
func (m *Manager) fetchAndCache(id int64, account models.Account, mailbox string, uids []uint32) ([]models.Message, error) {
	var recs []models.FullRecord
	err := m.WithSession(id, mailbox, func(tr Transport, exists uint32) error {
		var fetchErr error
		recs, fetchErr = tr.FetchFull(uids)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	msgs := make([]models.Message, 0, len(recs))
	batch := make([]*models.Message, 0, len(recs))
	for i := range recs {
		msg, err := parser.FromFetch(&recs[i])
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *msg)
		batch = append(batch, msg)
	}

	if len(batch) > 0 {
		if err := db.InsertMessages(m.store, account.Username, account.Address, mailbox, batch); err != nil {
			log.Printf("Failed to cache messages for %s@%s/%s: %v", account.Username, account.Address, mailbox, err)
		} else {
			m.kick()
		}
	}

	return msgs, nil
}
