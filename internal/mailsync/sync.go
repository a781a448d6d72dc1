// Package mailsync converges the local cache of one mailbox with the
// upstream server while tolerating expunges and moves that renumber
// sequence ids.
package mailsync

import (
	"database/sql"
	"fmt"
	"sort"

	"golang.org/x/sync/singleflight"

	"mailgate/internal/backup"
	"mailgate/internal/db"
	"mailgate/internal/fault"
	"mailgate/internal/imap"
	"mailgate/internal/models"
	"mailgate/internal/parser"
	"mailgate/internal/seqset"
)

// windowSize bounds how many sequence numbers one reconciliation round
// trip covers.
const windowSize = 50

// Syncer reconciles mailboxes. Concurrent syncs of the same mailbox on
// the same account collapse into one run; different accounts proceed in
// parallel.
type Syncer struct {
	mgr     *imap.Manager
	backups *backup.Runner
	group   singleflight.Group
}

// NewSyncer wires the synchronizer to the session manager. backups may
// be nil.
func NewSyncer(mgr *imap.Manager, backups *backup.Runner) *Syncer {
	return &Syncer{mgr: mgr, backups: backups}
}

// UpdateMailbox brings the cache of one mailbox up to date and returns
// the UIDs whose cache rows changed (new, renumbered or reflagged).
// Callers use the set to invalidate client-side views.
func (s *Syncer) UpdateMailbox(sessionID int64, mailbox string) ([]uint32, error) {
	account, err := s.mgr.Account(sessionID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s@%s/%s", account.Username, account.Address, mailbox)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.sync(sessionID, account, mailbox)
	})
	if err != nil {
		return nil, err
	}

	return v.([]uint32), nil
}

func (s *Syncer) sync(sessionID int64, account models.Account, mailbox string) ([]uint32, error) {
	const op = "mailsync.UpdateMailbox"

	store := s.mgr.Store()
	changed := make(map[uint32]bool)

	err := s.mgr.WithSession(sessionID, mailbox, func(tr imap.Transport, exists uint32) error {
		if exists == 0 {
			return nil
		}

		// Fast path: if the newest message sits at the sequence slot the
		// cache recorded, nothing has shifted.
		topSet, err := (&seqset.Set{Idx: []uint32{exists}}).String(exists, false)
		if err != nil {
			return err
		}
		top, err := tr.FetchUIDs(topSet)
		if err != nil {
			return err
		}
		if len(top) == 0 {
			return fault.Newf(fault.KindProtocol, op, "empty answer for sequence %d", exists)
		}

		cachedTop, err := db.GetSequenceIDs(store, account.Username, account.Address, mailbox, []uint32{top[0].UID})
		if err != nil {
			return err
		}

		drifted := true
		if seq, ok := cachedTop[top[0].UID]; ok && seq == top[0].SeqNum {
			drifted = false
		}
		if drifted {
			if err := walkWindows(tr, store, account, mailbox, exists, changed); err != nil {
				return err
			}
		}

		// Flags change without any renumbering, so they get their own
		// full pass.
		return reconcileFlags(tr, store, account, mailbox, exists, changed)
	})
	if err != nil {
		return nil, err
	}

	if len(changed) > 0 && s.backups != nil {
		s.backups.Kick()
	}

	uids := make([]uint32, 0, len(changed))
	for uid := range changed {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	return uids, nil
}

// walkWindows sweeps the mailbox in fixed windows of sequence numbers,
// newest first, inserting messages the cache has never seen and
// renumbering rows whose sequence id drifted. New arrivals always take
// the highest sequence numbers and an expunge only renumbers messages
// above it, so the first unchanged window ends the sweep.
func walkWindows(tr imap.Transport, store *sql.DB, account models.Account, mailbox string, exists uint32, changed map[uint32]bool) error {
	for end := exists; end >= 1; {
		start := uint32(1)
		if end > windowSize {
			start = end - windowSize + 1
		}

		window, err := (&seqset.Set{Range: &seqset.Range{Start: start, End: end}}).String(exists, false)
		if err != nil {
			return err
		}
		pairs, err := tr.FetchUIDs(window)
		if err != nil {
			return err
		}

		uids := make([]uint32, 0, len(pairs))
		for _, p := range pairs {
			uids = append(uids, p.UID)
		}

		cachedSeqs, err := db.GetSequenceIDs(store, account.Username, account.Address, mailbox, uids)
		if err != nil {
			return err
		}

		var newUIDs []uint32
		var moved []models.SeqUID
		for _, p := range pairs {
			cached, ok := cachedSeqs[p.UID]
			switch {
			case !ok:
				newUIDs = append(newUIDs, p.UID)
			case cached != p.SeqNum:
				moved = append(moved, p)
			}
		}

		if len(newUIDs) == 0 && len(moved) == 0 {
			break
		}

		if len(newUIDs) > 0 {
			if err := fetchAndInsert(tr, store, account, mailbox, newUIDs); err != nil {
				return err
			}
			for _, uid := range newUIDs {
				changed[uid] = true
			}
		}

		for _, p := range moved {
			if err := db.UpdateSequenceID(store, account.Username, account.Address, mailbox, p.UID, p.SeqNum); err != nil {
				return err
			}
			changed[p.UID] = true
		}

		if start == 1 {
			break
		}
		end = start - 1
	}

	return nil
}

func fetchAndInsert(tr imap.Transport, store *sql.DB, account models.Account, mailbox string, uids []uint32) error {
	recs, err := tr.FetchFull(uids)
	if err != nil {
		return err
	}

	batch := make([]*models.Message, 0, len(recs))
	for i := range recs {
		msg, err := parser.FromFetch(&recs[i])
		if err != nil {
			return err
		}
		batch = append(batch, msg)
	}

	return db.InsertMessages(store, account.Username, account.Address, mailbox, batch)
}

// reconcileFlags overwrites cached flags from one full-mailbox FLAGS
// fetch and records which UIDs actually changed.
func reconcileFlags(tr imap.Transport, store *sql.DB, account models.Account, mailbox string, exists uint32, changed map[uint32]bool) error {
	all, err := (&seqset.Set{}).String(exists, false)
	if err != nil {
		return err
	}
	recs, err := tr.FetchFlags(all)
	if err != nil {
		return err
	}

	cached, err := db.GetAllFlags(store, account.Username, account.Address, mailbox)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		if flagsEqual(cached[rec.UID], rec.Flags) {
			continue
		}

		// An unknown UID has no cache row to reflag; the next windowed
		// walk will pick the message up whole.
		if _, known := cached[rec.UID]; !known && !changed[rec.UID] {
			continue
		}

		if err := db.UpdateFlags(store, account.Username, account.Address, mailbox, rec.UID, rec.Flags); err != nil {
			return err
		}
		changed[rec.UID] = true
	}

	return nil
}

func flagsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	set := make(map[string]bool, len(a))
	for _, f := range a {
		set[f] = true
	}
	for _, f := range b {
		if !set[f] {
			return false
		}
	}
	return true
}
