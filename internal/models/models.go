package models

import "time"

// Account identifies one upstream IMAP account. Username and Address
// together are the account key; the same user on two servers is two
// accounts.
type Account struct {
	Username string `json:"username"`
	Address  string `json:"address"`
	Password string `json:"-"`
	Port     uint16 `json:"port"`
}

// SessionInfo is the externally visible view of a live session. It never
// carries the password.
type SessionInfo struct {
	ID       int64  `json:"session_id"`
	Username string `json:"username"`
	Address  string `json:"address"`
	Port     uint16 `json:"port"`
}

// Address is one mailbox address from an envelope header.
type Address struct {
	Name    string `json:"name"`
	Mailbox string `json:"mailbox"`
	Host    string `json:"host"`
}

// Message is the cached representation of one message in one mailbox.
// UID is stable within the mailbox; SequenceID is the volatile position
// the upstream server last reported. Text and HTML bodies are base64
// encoded strings. Date and Received are Unix milliseconds.
type Message struct {
	UID         uint32    `json:"message_uid"`
	SequenceID  uint32    `json:"sequence_id"`
	MessageID   string    `json:"message_id"`
	Subject     string    `json:"subject"`
	From        []Address `json:"from"`
	Sender      []Address `json:"sender"`
	To          []Address `json:"to"`
	Cc          []Address `json:"cc"`
	Bcc         []Address `json:"bcc"`
	ReplyTo     []Address `json:"reply_to"`
	InReplyTo   string    `json:"in_reply_to"`
	DeliveredTo string    `json:"delivered_to"`
	Date        int64     `json:"date"`
	Received    int64     `json:"received"`
	Flags       []string  `json:"flags"`
	Text        string    `json:"text"`
	HTML        string    `json:"html"`
}

// Envelope carries the header fields the upstream server pre-parses for
// a FETCH ENVELOPE item.
type Envelope struct {
	Date      time.Time
	Subject   string
	MessageID string
	From      []Address
	Sender    []Address
	ReplyTo   []Address
	To        []Address
	Cc        []Address
	Bcc       []Address
}

// SeqUID pairs a message's volatile sequence number with its stable UID,
// as returned by a bare UID fetch.
type SeqUID struct {
	SeqNum uint32
	UID    uint32
}

// FlagsRecord is the result of a flags-only fetch for one message.
type FlagsRecord struct {
	SeqNum uint32
	UID    uint32
	Flags  []string
}

// FullRecord is the result of a full fetch: identity, flags, envelope
// and the raw RFC 822 body.
type FullRecord struct {
	SeqNum   uint32
	UID      uint32
	Flags    []string
	Envelope *Envelope
	Body     []byte
}
