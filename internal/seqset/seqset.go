// Package seqset renders message selections as IMAP sequence-set strings.
//
// A selection addresses messages by position, counted from the oldest
// message. When a caller wants positions counted from the newest message
// instead, the renderer flips each position against the mailbox's EXISTS
// count so the wire string always uses the server's ordering.
package seqset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"mailgate/internal/fault"
)

// All is the sentinel meaning "every message" when used as Count, or
// "the last message" when used as the End of a range.
const All = math.MaxUint32

// Range selects the inclusive positions Start through End. End may be
// All to extend the range to the end of the mailbox.
type Range struct {
	Start uint32
	End   uint32
}

// Set describes one selection. Exactly one of Count, Range or Idx should
// be set; with none set the selection covers the whole mailbox.
type Set struct {
	// Count selects the first Count messages (or all of them when Count
	// is All).
	Count *uint32
	// Range selects an inclusive position range.
	Range *Range
	// Idx selects individual positions.
	Idx []uint32
}

// String renders the selection against a mailbox holding exists messages.
// With reversed set, positions count from the newest message and are
// flipped to server positions before rendering.
func (s *Set) String(exists uint32, reversed bool) (string, error) {
	const op = "seqset"

	switch {
	case s.Count != nil && s.Range == nil && s.Idx == nil:
		nr := *s.Count
		if nr == All {
			return "1:*", nil
		}
		if reversed {
			return fmt.Sprintf("%d:%d", exists-nr+1, exists), nil
		}
		return fmt.Sprintf("1:%d", nr), nil

	case s.Count == nil && s.Range != nil && s.Idx == nil:
		start, end := s.Range.Start, s.Range.End
		if start > end {
			return "", fault.New(fault.KindInvalidArgument, op, "start must be less than or equal to end")
		}
		if !reversed {
			if end == All {
				return fmt.Sprintf("%d:*", start), nil
			}
			return fmt.Sprintf("%d:%d", start, end), nil
		}

		last := exists - start + 1
		if end == All {
			return fmt.Sprintf("1:%d", last), nil
		}
		begin := exists - end + 1
		// Ranges reaching past the mailbox are clamped to position 1;
		// a range entirely out of reach collapses to a sentinel the
		// server will answer with an empty result.
		if exists < end+1 {
			begin = 1
		}
		if exists < start+1 {
			last = 1
		}
		if exists < end+1 && exists < start+1 {
			begin = All - 1
			last = All - 1
		}
		if last == All {
			return fmt.Sprintf("%d:*", begin), nil
		}
		return fmt.Sprintf("%d:%d", begin, last), nil

	case s.Count == nil && s.Range == nil && s.Idx != nil:
		parts := make([]string, 0, len(s.Idx))
		for _, idx := range s.Idx {
			if reversed {
				parts = append(parts, strconv.FormatUint(uint64(exists-idx+1), 10))
			} else {
				parts = append(parts, strconv.FormatUint(uint64(idx), 10))
			}
		}
		return strings.Join(parts, ","), nil

	default:
		if reversed {
			return fmt.Sprintf("%d:*", exists), nil
		}
		return "1:*", nil
	}
}
