package parser

import (
	"regexp"
	"time"
)

// Matches the date token inside header values like Date or Received,
// where the value may carry routing prefixes before the date itself.
var timeRe = regexp.MustCompile(`(\w{1,3}, \d{1,2} \w{1,3} \d{4} \d{2}:\d{2}:\d{2} ([+-]\d{4})?(\w{3})?)`)

var timeLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05",
}

// ParseTime extracts an RFC 2822 date from a header value and returns it
// as Unix milliseconds. Missing or unparseable dates fall back to epoch
// zero rather than failing the caller's parse.
func ParseTime(value string) int64 {
	m := timeRe.FindStringSubmatch(value)
	if m == nil {
		return 0
	}

	token := m[1]
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
