package imap

import (
	"mailgate/internal/db"
)

// ModifyFlags adds or removes flags on one message, then refreshes the
// cached flag set from the server's answer.
func (m *Manager) ModifyFlags(id int64, mailbox string, uid uint32, flags []string, add bool) ([]string, error) {
	account, err := m.Account(id)
	if err != nil {
		return nil, err
	}

	var current []string
	err = m.WithSession(id, mailbox, func(tr Transport, exists uint32) error {
		if err := tr.StoreFlags(uid, add, flags); err != nil {
			return err
		}

		recs, err := tr.FetchFlagsUID([]uint32{uid})
		if err != nil {
			return err
		}
		if len(recs) > 0 {
			current = recs[0].Flags
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := db.UpdateFlags(m.store, account.Username, account.Address, mailbox, uid, current); err != nil {
		return nil, err
	}
	m.kick()

	return current, nil
}
