package imap

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"mailgate/internal/fault"
	"mailgate/internal/models"
)

// NewDialer returns a Dialer that opens a TLS connection and logs in.
func NewDialer(insecureSkipVerify bool) Dialer {
	return func(account models.Account) (Transport, error) {
		const op = "imap.Dial"

		addr := fmt.Sprintf("%s:%d", account.Address, account.Port)

		var opts imapclient.Options
		if insecureSkipVerify {
			opts.TLSConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- opt-in for self-hosted servers
		}

		c, err := imapclient.DialTLS(addr, &opts)
		if err != nil {
			return nil, fault.Wrap(fault.KindConnection, op, err)
		}

		if err := c.Login(account.Username, account.Password).Wait(); err != nil {
			_ = c.Logout().Wait()
			return nil, fault.Wrap(fault.KindAuth, op, err)
		}

		return &client{c: c}, nil
	}
}

type client struct {
	c *imapclient.Client
}

func (cl *client) Select(mailbox string) (uint32, error) {
	const op = "imap.Select"

	data, err := cl.c.Select(mailbox, nil).Wait()
	if err != nil {
		return 0, classify(op, err)
	}

	return data.NumMessages, nil
}

func (cl *client) FetchUIDs(seqSet string) ([]models.SeqUID, error) {
	const op = "imap.FetchUIDs"

	set, err := parseSeqSet(seqSet)
	if err != nil {
		return nil, err
	}

	fetchCmd := cl.c.Fetch(set, &imap.FetchOptions{UID: true})
	defer fetchCmd.Close()

	var pairs []models.SeqUID
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			return nil, classify(op, err)
		}

		pairs = append(pairs, models.SeqUID{SeqNum: buf.SeqNum, UID: uint32(buf.UID)})
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, classify(op, err)
	}

	return pairs, nil
}

func (cl *client) FetchFlags(seqSet string) ([]models.FlagsRecord, error) {
	const op = "imap.FetchFlags"

	set, err := parseSeqSet(seqSet)
	if err != nil {
		return nil, err
	}

	return cl.fetchFlags(op, set)
}

func (cl *client) FetchFlagsUID(uids []uint32) ([]models.FlagsRecord, error) {
	return cl.fetchFlags("imap.FetchFlagsUID", uidSet(uids))
}

func (cl *client) fetchFlags(op string, set imap.NumSet) ([]models.FlagsRecord, error) {
	fetchCmd := cl.c.Fetch(set, &imap.FetchOptions{UID: true, Flags: true})
	defer fetchCmd.Close()

	var recs []models.FlagsRecord
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			return nil, classify(op, err)
		}

		recs = append(recs, models.FlagsRecord{
			SeqNum: buf.SeqNum,
			UID:    uint32(buf.UID),
			Flags:  flagStrings(buf.Flags),
		})
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, classify(op, err)
	}

	return recs, nil
}

func (cl *client) FetchFull(uids []uint32) ([]models.FullRecord, error) {
	const op = "imap.FetchFull"

	bodySection := &imap.FetchItemBodySection{Peek: true}

	fetchCmd := cl.c.Fetch(uidSet(uids), &imap.FetchOptions{
		UID:         true,
		Flags:       true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var recs []models.FullRecord
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			return nil, classify(op, err)
		}

		recs = append(recs, models.FullRecord{
			SeqNum:   buf.SeqNum,
			UID:      uint32(buf.UID),
			Flags:    flagStrings(buf.Flags),
			Envelope: envelopeFromBuffer(buf.Envelope),
			Body:     buf.FindBodySection(bodySection),
		})
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, classify(op, err)
	}

	return recs, nil
}

func (cl *client) StoreFlags(uid uint32, add bool, flags []string) error {
	const op = "imap.StoreFlags"

	storeOp := imap.StoreFlagsAdd
	if !add {
		storeOp = imap.StoreFlagsDel
	}

	imapFlags := make([]imap.Flag, 0, len(flags))
	for _, f := range flags {
		imapFlags = append(imapFlags, imap.Flag(f))
	}

	storeCmd := cl.c.Store(uidSet([]uint32{uid}), &imap.StoreFlags{
		Op:     storeOp,
		Silent: true,
		Flags:  imapFlags,
	}, nil)

	if err := storeCmd.Close(); err != nil {
		return classify(op, err)
	}

	return nil
}

func (cl *client) Move(uid uint32, dest string) error {
	const op = "imap.Move"

	if _, err := cl.c.Move(uidSet([]uint32{uid}), dest).Wait(); err != nil {
		return classify(op, err)
	}

	return nil
}

func (cl *client) List() ([]string, error) {
	const op = "imap.List"

	listCmd := cl.c.List("", "*", nil)

	var paths []string
	for {
		data := listCmd.Next()
		if data == nil {
			break
		}
		paths = append(paths, data.Mailbox)
	}

	if err := listCmd.Close(); err != nil {
		return nil, classify(op, err)
	}

	return paths, nil
}

func (cl *client) Logout() error {
	const op = "imap.Logout"

	if err := cl.c.Logout().Wait(); err != nil {
		return classify(op, err)
	}

	return nil
}

func uidSet(uids []uint32) imap.UIDSet {
	set := imap.UIDSet{}
	for _, uid := range uids {
		set.AddNum(imap.UID(uid))
	}
	return set
}

// parseSeqSet turns the codec's wire syntax back into a typed set. The
// star stands for the last message and maps to the library's zero
// sentinel.
func parseSeqSet(s string) (imap.SeqSet, error) {
	const op = "imap.parseSeqSet"

	var set imap.SeqSet
	for _, token := range strings.Split(s, ",") {
		startStr, stopStr, isRange := strings.Cut(token, ":")

		start, err := parseSeqNum(startStr)
		if err != nil {
			return nil, fault.Wrap(fault.KindInvalidArgument, op, err)
		}

		if !isRange {
			set.AddNum(start)
			continue
		}

		stop, err := parseSeqNum(stopStr)
		if err != nil {
			return nil, fault.Wrap(fault.KindInvalidArgument, op, err)
		}

		set.AddRange(start, stop)
	}

	return set, nil
}

func parseSeqNum(s string) (uint32, error) {
	if s == "*" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func flagStrings(flags []imap.Flag) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		out = append(out, string(f))
	}
	return out
}

func envelopeFromBuffer(env *imap.Envelope) *models.Envelope {
	if env == nil {
		return nil
	}

	return &models.Envelope{
		Date:      env.Date,
		Subject:   env.Subject,
		MessageID: env.MessageID,
		From:      addressList(env.From),
		Sender:    addressList(env.Sender),
		ReplyTo:   addressList(env.ReplyTo),
		To:        addressList(env.To),
		Cc:        addressList(env.Cc),
		Bcc:       addressList(env.Bcc),
	}
}

func addressList(addrs []imap.Address) []models.Address {
	out := make([]models.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, models.Address{
			Name:    a.Name,
			Mailbox: a.Mailbox,
			Host:    a.Host,
		})
	}
	return out
}

// classify sorts a transport error into the disconnect class, which
// triggers one transparent reconnect, or the protocol class, which
// propagates unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if existing := fault.KindOf(err); existing != fault.KindUnknown {
		return fault.Wrap(existing, op, err)
	}

	var netErr net.Error
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.As(err, &netErr) {
		return fault.Wrap(fault.KindConnection, op, err)
	}

	msg := err.Error()
	for _, token := range []string{"use of closed", "broken pipe", "connection reset", "EOF", "i/o timeout"} {
		if strings.Contains(msg, token) {
			return fault.Wrap(fault.KindConnection, op, err)
		}
	}

	return fault.Wrap(fault.KindProtocol, op, err)
}
