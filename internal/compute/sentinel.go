package compute

import (
	"bytes"
	"fmt"
)

// OutcomeKind tags a ParseOutcome.
type OutcomeKind int

const (
	// NotFound: the START marker has not been seen yet.
	NotFound OutcomeKind = iota
	// Partial: the marker was seen but the closing prompt was not.
	Partial
	// Complete: both the marker and the closing prompt were seen.
	Complete
)

func (k OutcomeKind) String() string {
	switch k {
	case Partial:
		return "partial"
	case Complete:
		return "complete"
	default:
		return "not_found"
	}
}

// ParseOutcome is the result of scanning interpreter output for one execution.
type ParseOutcome struct {
	Kind OutcomeKind
	Text string
}

// StartMarker is the line the interpreter prints before the output of execution n.
func StartMarker(n int) string { return fmt.Sprintf("START%d", n) }

// sentinelScanner extracts the output of one execution from a growing stream.
// It keeps watermarks so each byte is searched a bounded number of times, and
// rewinds each watermark by len(needle)-1 so a needle split across two chunks
// is still found.
type sentinelScanner struct {
	marker []byte
	prompt []byte
	buf    []byte
	// start is the offset just past the marker line, or -1.
	start      int
	markerFrom int
	promptFrom int
	done       bool
	end        int
}

func newSentinelScanner(execNumber int, prompt string) *sentinelScanner {
	return &sentinelScanner{
		marker: []byte(StartMarker(execNumber) + "\n"),
		prompt: []byte(prompt),
		start:  -1,
	}
}

// feed appends newly read bytes. Carriage returns are dropped so pty output
// (CRLF) and pipe output (LF) frame the same way.
func (s *sentinelScanner) feed(p []byte) ParseOutcome {
	if s.done {
		return s.outcome()
	}
	for _, c := range p {
		if c != '\r' {
			s.buf = append(s.buf, c)
		}
	}
	if s.start < 0 {
		idx := bytes.Index(s.buf[s.markerFrom:], s.marker)
		if idx < 0 {
			s.markerFrom = rewind(len(s.buf), len(s.marker), 0)
			return s.outcome()
		}
		s.start = s.markerFrom + idx + len(s.marker)
		s.promptFrom = s.start
	}
	if len(s.prompt) == 0 {
		return s.outcome()
	}
	idx := bytes.Index(s.buf[s.promptFrom:], s.prompt)
	if idx < 0 {
		s.promptFrom = rewind(len(s.buf), len(s.prompt), s.start)
		return s.outcome()
	}
	s.end = s.promptFrom + idx
	s.done = true
	return s.outcome()
}

func (s *sentinelScanner) outcome() ParseOutcome {
	switch {
	case s.done:
		return ParseOutcome{Kind: Complete, Text: string(s.buf[s.start:s.end])}
	case s.start >= 0:
		return ParseOutcome{Kind: Partial, Text: string(s.buf[s.start : len(s.buf)-s.heldBack()])}
	default:
		return ParseOutcome{Kind: NotFound}
	}
}

// heldBack is the length of the longest buffer suffix that could be the
// start of the prompt. Partial text excludes it so it never shrinks later.
func (s *sentinelScanner) heldBack() int {
	tail := s.buf[s.start:]
	for n := min(len(s.prompt)-1, len(tail)); n > 0; n-- {
		if bytes.HasPrefix(s.prompt, tail[len(tail)-n:]) {
			return n
		}
	}
	return 0
}

// raw returns everything captured, used when the stream ends without a marker.
func (s *sentinelScanner) raw() string { return string(s.buf) }

func rewind(length, needle, floor int) int {
	n := length - needle + 1
	if n < floor {
		return floor
	}
	return n
}

// ScanOutput scans a complete buffer in one pass. It is equivalent to the
// dot-all search START<n>\n(.*?)<prompt> and is used where no stream state exists.
func ScanOutput(buf string, execNumber int, prompt string) ParseOutcome {
	s := newSentinelScanner(execNumber, prompt)
	return s.feed([]byte(buf))
}
