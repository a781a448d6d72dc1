// Package parser turns fetched IMAP records into cached message models.
//
// Bodies are walked by a line-oriented state machine rather than a full
// MIME implementation. The machine collects top-level headers with RFC 822
// folding, then picks out the first text/plain and first text/html part,
// each with its own Content-Transfer-Encoding. Part content is stored
// base64 encoded regardless of how it arrived.
package parser

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode"

	"mailgate/internal/fault"
	"mailgate/internal/models"
)

type state int

const (
	stateHeaderKey state = iota
	stateHeaderValue
	stateTextHeader
	stateText
	stateHTMLHeader
	stateHTML
	stateBoundary
)

// BodyData is the result of walking one raw RFC 822 body.
type BodyData struct {
	Headers map[string]string
	// Text and HTML are base64 encoded part contents, empty when the
	// part is absent.
	Text string
	HTML string
}

var hexPairRe = regexp.MustCompile("=(..)")

// ParseBody walks the raw body line by line. Lines are joined without
// separators inside a part; a line starting with "--" ends the part.
func ParseBody(body string) *BodyData {
	st := stateHeaderKey

	headerKey := ""
	headers := make(map[string]string)
	var text, html strings.Builder

	textEncoding := "utf-8"
	htmlEncoding := "utf-8"

	lines := strings.Split(body, "\n")

	i := 0
	for i < len(lines) {
		line := strings.TrimSuffix(lines[i], "\r")
		i++

		switch st {
		case stateHeaderKey:
			if line == "" {
				st = stateBoundary
				continue
			}

			key, value, found := strings.Cut(line, ":")
			if !found {
				key, value = "", ""
			}

			headerKey = key
			headers[headerKey] += strings.TrimSpace(value)
			st = stateHeaderValue

		case stateHeaderValue:
			if line == "" {
				st = stateBoundary
				continue
			}
			if strings.Contains(line, ":") && startsAlphabetic(line) {
				st = stateHeaderKey
				i--
				continue
			}

			// Folded continuation line, appended to the last header.
			headers[headerKey] += strings.TrimSpace(line)

		case stateTextHeader:
			if line == "" || (!strings.Contains(line, ":") && startsAlphabetic(line)) {
				st = stateText
				continue
			}

			key, value, _ := strings.Cut(line, ":")
			if strings.TrimSpace(key) == "Content-Transfer-Encoding" {
				textEncoding = strings.TrimSpace(value)
			}

		case stateText:
			if strings.HasPrefix(line, "--") {
				st = stateBoundary
				continue
			}
			text.WriteString(line)

		case stateHTMLHeader:
			if line == "" || (!strings.Contains(line, ":") && startsAlphabetic(line)) {
				st = stateHTML
				continue
			}

			key, value, _ := strings.Cut(line, ":")
			if strings.TrimSpace(key) == "Content-Transfer-Encoding" {
				htmlEncoding = strings.TrimSpace(value)
			}

		case stateHTML:
			if strings.HasPrefix(line, "--") {
				st = stateBoundary
				continue
			}
			html.WriteString(line)

		case stateBoundary:
			if strings.HasPrefix(line, "Content-Type: text/plain") && text.Len() == 0 {
				st = stateTextHeader
			} else if strings.HasPrefix(line, "Content-Type: text/html") && html.Len() == 0 {
				st = stateHTMLHeader
			}
		}
	}

	htmlStr := unescapeHTML(html.String())
	textStr := text.String()

	if textEncoding != "base64" {
		textStr = base64.StdEncoding.EncodeToString([]byte(textStr))
	}
	if htmlEncoding != "base64" {
		htmlStr = base64.StdEncoding.EncodeToString([]byte(htmlStr))
	}

	return &BodyData{
		Headers: headers,
		Text:    textStr,
		HTML:    htmlStr,
	}
}

// unescapeHTML strips quoted-printable soft escapes and a handful of
// common entities from an HTML part. Only the sequences mail providers
// were seen emitting are handled.
func unescapeHTML(html string) string {
	html = hexPairRe.ReplaceAllStringFunc(html, func(m string) string {
		if m[1:] == "3D" {
			return "="
		}
		return m[1:]
	})

	r := strings.NewReplacer(
		"=3D", "=",
		"&#39;", "'",
		"&amp;", "&",
		"&copy;", "©",
		"E28099", "'",
		"C2A0", " ",
	)
	return r.Replace(html)
}

func startsAlphabetic(line string) bool {
	for _, r := range line {
		return unicode.IsLetter(r)
	}
	return false
}

// FromFetch builds the cached message model from one full fetch record.
// Subject and address lists come from the pre-parsed envelope; Date,
// Received, In-Reply-To and Delivered-To come from the raw body headers.
func FromFetch(rec *models.FullRecord) (*models.Message, error) {
	const op = "parser.FromFetch"

	if rec.Envelope == nil {
		return nil, fault.New(fault.KindParse, op, "message envelope not found in fetch")
	}
	if rec.UID == 0 {
		return nil, fault.New(fault.KindParse, op, "message UID not found in fetch")
	}
	if rec.Body == nil {
		return nil, fault.New(fault.KindParse, op, "message body not found in fetch")
	}

	body := ParseBody(string(rec.Body))

	flags := rec.Flags
	if flags == nil {
		flags = []string{}
	}

	return &models.Message{
		UID:         rec.UID,
		SequenceID:  rec.SeqNum,
		MessageID:   rec.Envelope.MessageID,
		Subject:     rec.Envelope.Subject,
		From:        addresses(rec.Envelope.From),
		Sender:      addresses(rec.Envelope.Sender),
		To:          addresses(rec.Envelope.To),
		Cc:          addresses(rec.Envelope.Cc),
		Bcc:         addresses(rec.Envelope.Bcc),
		ReplyTo:     addresses(rec.Envelope.ReplyTo),
		InReplyTo:   body.Headers["In-Reply-To"],
		DeliveredTo: body.Headers["Delivered-To"],
		Date:        ParseTime(body.Headers["Date"]),
		Received:    ParseTime(body.Headers["Received"]),
		Flags:       flags,
		Text:        body.Text,
		HTML:        body.HTML,
	}, nil
}

func addresses(a []models.Address) []models.Address {
	if a == nil {
		return []models.Address{}
	}
	return a
}
