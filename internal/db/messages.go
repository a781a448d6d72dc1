package db

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"mailgate/internal/fault"
	"mailgate/internal/models"
)

const messageColumns = `message_uid, sequence_id, message_id, subject,
	from_, sender, to_, cc, bcc, reply_to, in_reply_to, delivered_to,
	date_, received, html, text`

// InsertMessage caches one message and its flags. An existing row for
// the same (account, mailbox, uid) is left untouched.
func InsertMessage(db *sql.DB, username, address, mailbox string, msg *models.Message) error {
	return InsertMessages(db, username, address, mailbox, []*models.Message{msg})
}

// InsertMessages caches a batch of messages in one transaction; a
// failure rolls back the whole batch.
func InsertMessages(db *sql.DB, username, address, mailbox string, msgs []*models.Message) error {
	const op = "db.InsertMessages"

	tx, err := db.Begin()
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}
	defer func() { _ = tx.Rollback() }()

	// The mailbox row may not be cached yet when messages arrive through
	// the live-fetch fallback.
	_, err = tx.Exec(`
		INSERT OR IGNORE INTO mailboxes (c_username, c_address, path)
		VALUES (?, ?, ?)
	`, username, address, mailbox)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	msgStmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO messages (
			message_uid, c_username, c_address, m_path, sequence_id,
			message_id, subject, from_, sender, to_, cc, bcc, reply_to,
			in_reply_to, delivered_to, date_, received, html, text
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}
	defer func() { _ = msgStmt.Close() }()

	flagStmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO flags (message_uid, c_username, c_address, m_path, flag)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}
	defer func() { _ = flagStmt.Close() }()

	for _, msg := range msgs {
		html, err := decodeBody(msg.HTML)
		if err != nil {
			return fault.Wrap(fault.KindParse, op, err)
		}
		text, err := decodeBody(msg.Text)
		if err != nil {
			return fault.Wrap(fault.KindParse, op, err)
		}

		_, err = msgStmt.Exec(
			msg.UID, username, address, mailbox, msg.SequenceID,
			msg.MessageID, msg.Subject,
			marshalAddresses(msg.From), marshalAddresses(msg.Sender),
			marshalAddresses(msg.To), marshalAddresses(msg.Cc),
			marshalAddresses(msg.Bcc), marshalAddresses(msg.ReplyTo),
			msg.InReplyTo, msg.DeliveredTo, msg.Date, msg.Received,
			html, text,
		)
		if err != nil {
			return fault.Wrap(fault.KindStore, op, err)
		}

		for _, flag := range msg.Flags {
			if _, err := flagStmt.Exec(msg.UID, username, address, mailbox, flag); err != nil {
				return fault.Wrap(fault.KindStore, op, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	return nil
}

// GetMessagesSorted returns the cached window [start, end] (0-based,
// inclusive) ordered by received time, newest first.
func GetMessagesSorted(db *sql.DB, username, address, mailbox string, start, end uint32) ([]models.Message, error) {
	const op = "db.GetMessagesSorted"

	if start > end {
		return nil, fault.New(fault.KindInvalidArgument, op, "start must be less than or equal to end")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM messages
		WHERE c_username = ? AND c_address = ? AND m_path = ?
		ORDER BY received DESC
		LIMIT ? OFFSET ?
	`, messageColumns)

	rows, err := db.Query(query, username, address, mailbox, end-start+1, start)
	if err != nil {
		return nil, fault.Wrap(fault.KindStore, op, err)
	}

	return collectMessages(db, rows, username, address, mailbox, op)
}

// GetMessagesWithUIDs returns the cached rows for the given UIDs. UIDs
// absent from the cache are omitted, never an error; callers diff the
// result against the input to find misses.
func GetMessagesWithUIDs(db *sql.DB, username, address, mailbox string, uids []uint32) ([]models.Message, error) {
	const op = "db.GetMessagesWithUIDs"

	if len(uids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM messages
		WHERE c_username = ? AND c_address = ? AND m_path = ?
		AND message_uid IN (%s)
	`, messageColumns, placeholders(len(uids)))

	args := []interface{}{username, address, mailbox}
	for _, uid := range uids {
		args = append(args, uid)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fault.Wrap(fault.KindStore, op, err)
	}

	return collectMessages(db, rows, username, address, mailbox, op)
}

// GetMessage returns one cached message, or nil without error on a
// cache miss.
func GetMessage(db *sql.DB, username, address, mailbox string, uid uint32) (*models.Message, error) {
	msgs, err := GetMessagesWithUIDs(db, username, address, mailbox, []uint32{uid})
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}

// GetSequenceIDs maps each cached UID in uids to its cached sequence id.
// Unknown UIDs are absent from the result.
func GetSequenceIDs(db *sql.DB, username, address, mailbox string, uids []uint32) (map[uint32]uint32, error) {
	const op = "db.GetSequenceIDs"

	if len(uids) == 0 {
		return map[uint32]uint32{}, nil
	}

	query := fmt.Sprintf(`
		SELECT message_uid, sequence_id FROM messages
		WHERE c_username = ? AND c_address = ? AND m_path = ?
		AND message_uid IN (%s)
	`, placeholders(len(uids)))

	args := []interface{}{username, address, mailbox}
	for _, uid := range uids {
		args = append(args, uid)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fault.Wrap(fault.KindStore, op, err)
	}
	defer func() { _ = rows.Close() }()

	seqs := make(map[uint32]uint32)
	for rows.Next() {
		var uid, seq uint32
		if err := rows.Scan(&uid, &seq); err != nil {
			return nil, fault.Wrap(fault.KindStore, op, err)
		}
		seqs[uid] = seq
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindStore, op, err)
	}

	return seqs, nil
}

// GetAllFlags returns the cached flag sets of a whole mailbox, keyed by
// UID.
func GetAllFlags(db *sql.DB, username, address, mailbox string) (map[uint32][]string, error) {
	const op = "db.GetAllFlags"

	rows, err := db.Query(`
		SELECT message_uid, flag FROM flags
		WHERE c_username = ? AND c_address = ? AND m_path = ?
	`, username, address, mailbox)
	if err != nil {
		return nil, fault.Wrap(fault.KindStore, op, err)
	}
	defer func() { _ = rows.Close() }()

	flags := make(map[uint32][]string)
	for rows.Next() {
		var uid uint32
		var flag string
		if err := rows.Scan(&uid, &flag); err != nil {
			return nil, fault.Wrap(fault.KindStore, op, err)
		}
		flags[uid] = append(flags[uid], flag)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindStore, op, err)
	}

	return flags, nil
}

// UpdateFlags replaces the cached flag set for one message.
func UpdateFlags(db *sql.DB, username, address, mailbox string, uid uint32, flags []string) error {
	const op = "db.UpdateFlags"

	tx, err := db.Begin()
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}
	defer func() { _ = tx.Rollback() }()

	// A message that never made it into the cache has no flag rows to
	// refresh; the live answer stands on its own.
	var cached int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM messages
		WHERE c_username = ? AND c_address = ? AND m_path = ? AND message_uid = ?
	`, username, address, mailbox, uid).Scan(&cached)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}
	if cached == 0 {
		return nil
	}

	_, err = tx.Exec(`
		DELETE FROM flags
		WHERE c_username = ? AND c_address = ? AND m_path = ? AND message_uid = ?
	`, username, address, mailbox, uid)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	for _, flag := range flags {
		_, err = tx.Exec(`
			INSERT OR IGNORE INTO flags (message_uid, c_username, c_address, m_path, flag)
			VALUES (?, ?, ?, ?, ?)
		`, uid, username, address, mailbox, flag)
		if err != nil {
			return fault.Wrap(fault.KindStore, op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	return nil
}

// UpdateSequenceID renumbers one cached message. Content is untouched.
func UpdateSequenceID(db *sql.DB, username, address, mailbox string, uid, newSeq uint32) error {
	const op = "db.UpdateSequenceID"

	_, err := db.Exec(`
		UPDATE messages SET sequence_id = ?
		WHERE c_username = ? AND c_address = ? AND m_path = ? AND message_uid = ?
	`, newSeq, username, address, mailbox, uid)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	return nil
}

// MoveMessage rewrites a cached message's mailbox path, UID and sequence
// id after a server-side move, carrying its flag rows along.
func MoveMessage(db *sql.DB, username, address, mailboxFrom string, uid uint32, mailboxTo string, newUID, newSeq uint32) error {
	const op = "db.MoveMessage"

	tx, err := db.Begin()
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}
	defer func() { _ = tx.Rollback() }()

	// The message and flag rows reference each other's key columns, so
	// the rewrite is only consistent at commit time.
	if _, err := tx.Exec("PRAGMA defer_foreign_keys = ON"); err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	_, err = tx.Exec(`
		INSERT OR IGNORE INTO mailboxes (c_username, c_address, path)
		VALUES (?, ?, ?)
	`, username, address, mailboxTo)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	res, err := tx.Exec(`
		UPDATE messages SET m_path = ?, message_uid = ?, sequence_id = ?
		WHERE c_username = ? AND c_address = ? AND m_path = ? AND message_uid = ?
	`, mailboxTo, newUID, newSeq, username, address, mailboxFrom, uid)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fault.Newf(fault.KindNotFound, op, "no cached message %d in %s", uid, mailboxFrom)
	}

	_, err = tx.Exec(`
		UPDATE flags SET m_path = ?, message_uid = ?
		WHERE c_username = ? AND c_address = ? AND m_path = ? AND message_uid = ?
	`, mailboxTo, newUID, username, address, mailboxFrom, uid)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	if err := tx.Commit(); err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	return nil
}

// RemoveMessage drops one cached message; its flag rows cascade.
func RemoveMessage(db *sql.DB, username, address, mailbox string, uid uint32) error {
	const op = "db.RemoveMessage"

	_, err := db.Exec(`
		DELETE FROM messages
		WHERE c_username = ? AND c_address = ? AND m_path = ? AND message_uid = ?
	`, username, address, mailbox, uid)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	return nil
}

// GetMessagesWithFlag returns cached messages carrying (or, with want
// false, lacking) the given flag, newest first.
func GetMessagesWithFlag(db *sql.DB, username, address, mailbox, flag string, want bool) ([]models.Message, error) {
	const op = "db.GetMessagesWithFlag"

	cond := "IN"
	if !want {
		cond = "NOT IN"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM messages
		WHERE c_username = ? AND c_address = ? AND m_path = ?
		AND message_uid %s (
			SELECT message_uid FROM flags
			WHERE c_username = ? AND c_address = ? AND m_path = ? AND flag = ?
		)
		ORDER BY received DESC
	`, messageColumns, cond)

	rows, err := db.Query(query, username, address, mailbox,
		username, address, mailbox, flag)
	if err != nil {
		return nil, fault.Wrap(fault.KindStore, op, err)
	}

	return collectMessages(db, rows, username, address, mailbox, op)
}

func collectMessages(db *sql.DB, rows *sql.Rows, username, address, mailbox, op string) ([]models.Message, error) {
	defer func() { _ = rows.Close() }()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		var from, sender, to, cc, bcc, replyTo string
		var html, text []byte

		err := rows.Scan(
			&m.UID, &m.SequenceID, &m.MessageID, &m.Subject,
			&from, &sender, &to, &cc, &bcc, &replyTo,
			&m.InReplyTo, &m.DeliveredTo, &m.Date, &m.Received,
			&html, &text,
		)
		if err != nil {
			return nil, fault.Wrap(fault.KindStore, op, err)
		}

		m.From = unmarshalAddresses(from)
		m.Sender = unmarshalAddresses(sender)
		m.To = unmarshalAddresses(to)
		m.Cc = unmarshalAddresses(cc)
		m.Bcc = unmarshalAddresses(bcc)
		m.ReplyTo = unmarshalAddresses(replyTo)
		m.HTML = encodeBody(html)
		m.Text = encodeBody(text)
		m.Flags = []string{}

		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindStore, op, err)
	}

	if err := attachFlags(db, username, address, mailbox, msgs); err != nil {
		return nil, err
	}

	return msgs, nil
}

func attachFlags(db *sql.DB, username, address, mailbox string, msgs []models.Message) error {
	const op = "db.attachFlags"

	if len(msgs) == 0 {
		return nil
	}

	byUID := make(map[uint32]*models.Message, len(msgs))
	uids := make([]uint32, 0, len(msgs))
	for i := range msgs {
		byUID[msgs[i].UID] = &msgs[i]
		uids = append(uids, msgs[i].UID)
	}

	query := fmt.Sprintf(`
		SELECT message_uid, flag FROM flags
		WHERE c_username = ? AND c_address = ? AND m_path = ?
		AND message_uid IN (%s)
	`, placeholders(len(uids)))

	args := []interface{}{username, address, mailbox}
	for _, uid := range uids {
		args = append(args, uid)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var uid uint32
		var flag string
		if err := rows.Scan(&uid, &flag); err != nil {
			return fault.Wrap(fault.KindStore, op, err)
		}
		if m, ok := byUID[uid]; ok {
			m.Flags = append(m.Flags, flag)
		}
	}
	if err := rows.Err(); err != nil {
		return fault.Wrap(fault.KindStore, op, err)
	}

	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func marshalAddresses(addrs []models.Address) string {
	if addrs == nil {
		addrs = []models.Address{}
	}
	b, err := json.Marshal(addrs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalAddresses(s string) []models.Address {
	addrs := []models.Address{}
	if s == "" {
		return addrs
	}
	if err := json.Unmarshal([]byte(s), &addrs); err != nil {
		return []models.Address{}
	}
	return addrs
}

// decodeBody crosses the base64 API boundary on the way in; bodies are
// stored as decoded bytes.
func decodeBody(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

func encodeBody(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}
