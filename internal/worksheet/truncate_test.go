package worksheet

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncationLeavesShortOutputAlone(t *testing.T) {
	p := TruncationPolicy{MaxBytes: 100, MaxLines: 10}
	for _, in := range []string{"", "5\n", strings.Repeat("x\n", 10), strings.Repeat("y", 100)} {
		got, truncated := p.Apply(in, "ref")
		if truncated || got != in {
			t.Fatalf("Apply(%q) = %q, %v", in, got, truncated)
		}
	}
}

func TestTruncationByLines(t *testing.T) {
	p := TruncationPolicy{MaxBytes: 1 << 20, MaxLines: 10, HeadLines: 2, TailLines: 3}
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("line")
		b.WriteByte(byte('a' + i))
		b.WriteByte('\n')
	}
	got, truncated := p.Apply(b.String(), "cells/1/full_output.txt")
	if !truncated {
		t.Fatalf("expected truncation")
	}
	for _, want := range []string{"linea\nlineb\n", TruncationMarker, "cells/1/full_output.txt", "liner\nlines\nlinet\n"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "linec") || strings.Contains(got, "lineq") {
		t.Fatalf("middle lines leaked: %q", got)
	}
}

func TestTruncationByBytes(t *testing.T) {
	p := TruncationPolicy{MaxBytes: 64, MaxLines: 1000}
	got, truncated := p.Apply(strings.Repeat("z", 1000), "")
	if !truncated || !strings.Contains(got, TruncationMarker) {
		t.Fatalf("got %q", got)
	}
	if strings.Count(got, "z") > 64 {
		t.Fatalf("kept %d bytes of payload", strings.Count(got, "z"))
	}
}

func TestTruncationWindowFitsLineCeiling(t *testing.T) {
	p := TruncationPolicy{MaxLines: 10}
	in := strings.Repeat("line\n", 30)
	got, truncated := p.Apply(in, "ref")
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if n := strings.Count(got, "line\n"); n > 10 {
		t.Fatalf("kept %d lines, ceiling is 10", n)
	}
	if len(got) >= len(in) {
		t.Fatalf("truncated output is not shorter: %d >= %d", len(got), len(in))
	}
}

func TestTruncationKeepsRunesWhole(t *testing.T) {
	p := TruncationPolicy{MaxBytes: 11, MaxLines: 1000}
	got, truncated := p.Apply(strings.Repeat("é", 20), "")
	if !truncated || !strings.Contains(got, TruncationMarker) {
		t.Fatalf("got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncated output is not valid UTF-8: %q", got)
	}
	if !strings.HasPrefix(got, "éé\n") {
		t.Fatalf("got %q", got)
	}
}
