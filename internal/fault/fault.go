package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can map it to behaviour (retry,
// fallback, HTTP status) without matching on message text.
type Kind int

const (
	// KindUnknown is the zero value for errors that carry no classification.
	KindUnknown Kind = iota
	// KindConnection covers dial failures, dropped sockets and timeouts.
	KindConnection
	// KindAuth covers rejected credentials.
	KindAuth
	// KindProtocol covers unexpected or malformed server responses.
	KindProtocol
	// KindStore covers local cache read/write failures.
	KindStore
	// KindParse covers message decoding failures.
	KindParse
	// KindNotFound covers lookups of sessions, mailboxes or messages that
	// do not exist. A cache miss on a read path is not a KindNotFound error;
	// it triggers the live fallback instead.
	KindNotFound
	// KindInvalidArgument covers malformed caller input.
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindAuth:
		return "auth"
	case KindProtocol:
		return "protocol"
	case KindStore:
		return "store"
	case KindParse:
		return "parse"
	case KindNotFound:
		return "not found"
	case KindInvalidArgument:
		return "invalid argument"
	default:
		return "unknown"
	}
}

// Error is a classified error with the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error from a message.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Newf creates a classified error from a format string.
func Newf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error. A nil err yields nil. If err is
// already classified its kind is preserved and only the operation chain
// grows, so the first classification wins.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	if existing := KindOf(err); existing != KindUnknown {
		kind = existing
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the classification of err, or KindUnknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsDisconnect reports whether err indicates the IMAP connection is no
// longer usable and the session should be re-established.
func IsDisconnect(err error) bool {
	return KindOf(err) == KindConnection
}
