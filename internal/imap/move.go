package imap

import (
	"mailgate/internal/db"
	"mailgate/internal/fault"
	"mailgate/internal/seqset"
)

// MoveMessage moves one message to another mailbox on the server, then
// rewrites the cache row with the UID and sequence number the message
// received in its destination. Returns the new UID.
func (m *Manager) MoveMessage(id int64, mailboxFrom string, uid uint32, mailboxTo string) (uint32, error) {
	const op = "imap.MoveMessage"

	account, err := m.Account(id)
	if err != nil {
		return 0, err
	}

	err = m.WithSession(id, mailboxFrom, func(tr Transport, exists uint32) error {
		return tr.Move(uid, mailboxTo)
	})
	if err != nil {
		return 0, err
	}

	// The destination assigns a fresh UID; the moved message sits in the
	// last sequence slot.
	var newUID, newSeq uint32
	err = m.WithSession(id, mailboxTo, func(tr Transport, exists uint32) error {
		tail, err := (&seqset.Set{Range: &seqset.Range{Start: exists, End: seqset.All}}).String(exists, false)
		if err != nil {
			return err
		}
		pairs, err := tr.FetchUIDs(tail)
		if err != nil {
			return err
		}
		if len(pairs) == 0 {
			return fault.Newf(fault.KindProtocol, op, "destination %s reports no messages after move", mailboxTo)
		}

		last := pairs[0]
		for _, p := range pairs[1:] {
			if p.UID > last.UID {
				last = p
			}
		}
		newUID, newSeq = last.UID, last.SeqNum
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := db.MoveMessage(m.store, account.Username, account.Address, mailboxFrom, uid, mailboxTo, newUID, newSeq); err != nil {
		// The cache row may simply never have been populated.
		if fault.KindOf(err) != fault.KindNotFound {
			return 0, err
		}
	}
	m.kick()

	return newUID, nil
}
