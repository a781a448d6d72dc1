// Package imap owns the live connections to upstream IMAP servers: one
// authenticated session per account, a stable handle for each, and a
// single reconnect-and-retry policy every server-touching operation goes
// through.
package imap

import "mailgate/internal/models"

// Transport is one authenticated IMAP connection. Sequence-set strings
// address messages by sequence number; UID arguments address them by
// stable UID.
type Transport interface {
	// Select opens a mailbox and returns its current message count.
	Select(mailbox string) (uint32, error)
	// FetchUIDs resolves sequence numbers to UIDs.
	FetchUIDs(seqSet string) ([]models.SeqUID, error)
	// FetchFlags fetches flags by sequence set.
	FetchFlags(seqSet string) ([]models.FlagsRecord, error)
	// FetchFlagsUID fetches flags for specific UIDs.
	FetchFlagsUID(uids []uint32) ([]models.FlagsRecord, error)
	// FetchFull fetches flags, envelope and full body for specific UIDs
	// without setting the seen flag.
	FetchFull(uids []uint32) ([]models.FullRecord, error)
	// StoreFlags adds or removes flags on one message.
	StoreFlags(uid uint32, add bool, flags []string) error
	// Move moves one message to another mailbox on the server.
	Move(uid uint32, dest string) error
	// List returns all mailbox paths on the server.
	List() ([]string, error)
	// Logout ends the session.
	Logout() error
}

// Dialer opens and authenticates a transport for an account. Tests
// substitute their own.
type Dialer func(account models.Account) (Transport, error)
