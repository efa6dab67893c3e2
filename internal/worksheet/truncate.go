package worksheet

import (
	"strings"
	"unicode/utf8"
)

// TruncationMarker separates the head and tail of truncated output.
const TruncationMarker = "WARNING: Output truncated!"

// FullOutputFile is the name of the side file holding untruncated output.
const FullOutputFile = "full_output.txt"

// Defaults for TruncationPolicy.
const (
	DefaultMaxOutputBytes = 32000
	DefaultMaxOutputLines = 120
	DefaultHeadLines      = 40
	DefaultTailLines      = 40
)

// TruncationPolicy bounds how much output a cell keeps inline.
type TruncationPolicy struct {
	MaxBytes  int `json:"max_bytes" yaml:"max_bytes" toml:"max_bytes"`
	MaxLines  int `json:"max_lines" yaml:"max_lines" toml:"max_lines"`
	HeadLines int `json:"head_lines" yaml:"head_lines" toml:"head_lines"`
	TailLines int `json:"tail_lines" yaml:"tail_lines" toml:"tail_lines"`
}

func (p TruncationPolicy) withDefaults() TruncationPolicy {
	if p.MaxBytes <= 0 {
		p.MaxBytes = DefaultMaxOutputBytes
	}
	if p.MaxLines <= 0 {
		p.MaxLines = DefaultMaxOutputLines
	}
	if p.HeadLines <= 0 {
		p.HeadLines = DefaultHeadLines
	}
	if p.TailLines <= 0 {
		p.TailLines = DefaultTailLines
	}
	// The window never holds more lines than the ceiling.
	p.HeadLines = min(p.HeadLines, p.MaxLines/2)
	p.TailLines = min(p.TailLines, p.MaxLines/2)
	return p
}

// exceeds reports whether text is over either ceiling.
func (p TruncationPolicy) exceeds(text string) bool {
	if len(text) > p.MaxBytes {
		return true
	}
	return strings.Count(text, "\n") > p.MaxLines
}

// Apply returns text unchanged when it fits. Otherwise it keeps a head and a
// tail around TruncationMarker; fullRef, when set, names where the complete
// output was saved.
func (p TruncationPolicy) Apply(text, fullRef string) (string, bool) {
	p = p.withDefaults()
	if !p.exceeds(text) {
		return text, false
	}
	lines := strings.SplitAfter(text, "\n")
	head := lines
	tail := []string(nil)
	if len(lines) > p.HeadLines+p.TailLines {
		head = lines[:p.HeadLines]
		tail = lines[len(lines)-p.TailLines:]
	}
	budget := p.MaxBytes / 2
	headText := clipBytes(strings.Join(head, ""), budget, false)
	tailText := clipBytes(strings.Join(tail, ""), budget, true)

	var b strings.Builder
	b.WriteString(headText)
	if !strings.HasSuffix(headText, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("...\n")
	b.WriteString(TruncationMarker)
	b.WriteString("\n")
	if fullRef != "" {
		b.WriteString("Full output: ")
		b.WriteString(fullRef)
		b.WriteString("\n")
	}
	b.WriteString("...\n")
	b.WriteString(tailText)
	return b.String(), true
}

// clipBytes keeps at most n bytes of s, from the end when fromEnd is set.
// Cuts land on rune boundaries.
func clipBytes(s string, n int, fromEnd bool) string {
	if len(s) <= n {
		return s
	}
	if fromEnd {
		i := len(s) - n
		for i < len(s) && !utf8.RuneStart(s[i]) {
			i++
		}
		return s[i:]
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
