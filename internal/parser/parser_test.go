package parser

import (
	"encoding/base64"
	"strings"
	"testing"

	"mailgate/internal/models"
)

const sampleBody = "Delivered-To: alice@example.com\r\n" +
	"Received: from mail.example.com by mx.example.com;\r\n" +
	" Thu, 1 Jan 1970 00:00:10 +0000\r\n" +
	"Date: Thu, 1 Jan 1970 00:00:10 +0000\r\n" +
	"Message-ID: <abc@example.com>\r\n" +
	"In-Reply-To: <parent@example.com>\r\n" +
	"Subject: Hello\r\n" +
	"Content-Type: multipart/alternative; boundary=\"sep\"\r\n" +
	"\r\n" +
	"--sep\r\n" +
	"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
	"Content-Transfer-Encoding: 7bit\r\n" +
	"\r\n" +
	"Hello there\r\n" +
	"--sep\r\n" +
	"Content-Type: text/html; charset=\"utf-8\"\r\n" +
	"Content-Transfer-Encoding: 7bit\r\n" +
	"\r\n" +
	"<p>Hello &amp; welcome</p>\r\n" +
	"--sep--\r\n"

func TestParseBodyParts(t *testing.T) {
	data := ParseBody(sampleBody)

	text, err := base64.StdEncoding.DecodeString(data.Text)
	if err != nil {
		t.Fatalf("text is not base64: %v", err)
	}
	if string(text) != "Hello there" {
		t.Errorf("text = %q", text)
	}

	html, err := base64.StdEncoding.DecodeString(data.HTML)
	if err != nil {
		t.Fatalf("html is not base64: %v", err)
	}
	if string(html) != "<p>Hello & welcome</p>" {
		t.Errorf("html = %q", html)
	}
}

func TestParseBodyHeaders(t *testing.T) {
	data := ParseBody(sampleBody)

	if got := data.Headers["Delivered-To"]; got != "alice@example.com" {
		t.Errorf("Delivered-To = %q", got)
	}
	if got := data.Headers["In-Reply-To"]; got != "<parent@example.com>" {
		t.Errorf("In-Reply-To = %q", got)
	}
	// Folded header lines are appended to the previous value.
	if got := data.Headers["Received"]; !strings.Contains(got, "Thu, 1 Jan 1970 00:00:10 +0000") {
		t.Errorf("Received = %q", got)
	}
}

func TestParseBodyBase64PartKeptVerbatim(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("already encoded"))
	body := "Subject: x\r\n" +
		"\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		encoded + "\r\n" +
		"--end\r\n"

	data := ParseBody(body)
	if data.Text != encoded {
		t.Errorf("text = %q, want %q", data.Text, encoded)
	}
}

func TestParseBodyHTMLUnescapes(t *testing.T) {
	body := "Subject: x\r\n" +
		"\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"a=3Db &#39;c&#39; &copy;\r\n" +
		"--end\r\n"

	data := ParseBody(body)
	html, err := base64.StdEncoding.DecodeString(data.HTML)
	if err != nil {
		t.Fatalf("html is not base64: %v", err)
	}
	if string(html) != "a=b 'c' ©" {
		t.Errorf("html = %q", html)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int64
	}{
		{"valid", "Thu, 1 Jan 1970 00:00:10 +0000", 10000},
		{"with routing prefix", "from a by b; Thu, 1 Jan 1970 00:00:10 +0000", 10000},
		{"empty", "", 0},
		{"invalid", "invalid", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTime(tt.value); got != tt.want {
				t.Errorf("ParseTime(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestFromFetch(t *testing.T) {
	rec := &models.FullRecord{
		SeqNum: 3,
		UID:    42,
		Flags:  []string{"\\Seen"},
		Envelope: &models.Envelope{
			Subject:   "Hello",
			MessageID: "<abc@example.com>",
			From:      []models.Address{{Name: "Bob", Mailbox: "bob", Host: "example.com"}},
		},
		Body: []byte(sampleBody),
	}

	msg, err := FromFetch(rec)
	if err != nil {
		t.Fatalf("FromFetch() error: %v", err)
	}

	if msg.UID != 42 || msg.SequenceID != 3 {
		t.Errorf("identity = (%d, %d)", msg.UID, msg.SequenceID)
	}
	if msg.Subject != "Hello" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if msg.DeliveredTo != "alice@example.com" {
		t.Errorf("delivered_to = %q", msg.DeliveredTo)
	}
	if msg.InReplyTo != "<parent@example.com>" {
		t.Errorf("in_reply_to = %q", msg.InReplyTo)
	}
	if msg.Date != 10000 {
		t.Errorf("date = %d", msg.Date)
	}
	if len(msg.From) != 1 || msg.From[0].Mailbox != "bob" {
		t.Errorf("from = %+v", msg.From)
	}
	// Absent address lists come back empty, not nil, so the JSON form
	// is always an array.
	if msg.Cc == nil {
		t.Error("cc is nil")
	}
}

func TestFromFetchMissingEnvelope(t *testing.T) {
	rec := &models.FullRecord{UID: 1, Body: []byte("x")}
	if _, err := FromFetch(rec); err == nil {
		t.Error("FromFetch() expected error for missing envelope")
	}
}

func TestFromFetchMissingBody(t *testing.T) {
	rec := &models.FullRecord{UID: 1, Envelope: &models.Envelope{}}
	if _, err := FromFetch(rec); err == nil {
		t.Error("FromFetch() expected error for missing body")
	}
}
