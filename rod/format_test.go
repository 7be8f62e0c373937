package rod

import (
	"strings"
	"testing"
)

func padHeader(s string) []byte {
	h := make([]byte, AsciiHeaderSize)
	for i := range h {
		h[i] = ' '
	}
	copy(h, s)
	return h
}

func TestUnderstand(t *testing.T) {
	good := buildASCII(415, 437, BinaryHeaderEnd)

	nonASCII := append([]byte(nil), good...)
	nonASCII[40] = 0xFF

	cases := []struct {
		name string
		head []byte
		want bool
	}{
		{"valid header", good, true},
		{"crlf terminators", padHeader("OD SAPPHIRE 2.3\r\nCOMPRESSION=TY6\r\n"), true},
		{"bare cr terminators", padHeader("OD SAPPHIRE 2.3\rCOMPRESSION=TY6\r"), true},
		{"empty", nil, false},
		{"short read", good[:100], false},
		{"non-ASCII byte", nonASCII, false},
		{"wrong vendor", padHeader("XX SAPPHIRE 2.3\nCOMPRESSION=TY6\n"), false},
		{"wrong model", padHeader("OD RUBY 2.3\nCOMPRESSION=TY6\n"), false},
		{"missing compression line", padHeader("OD SAPPHIRE 2.3\n"), false},
		{"compression key misspelled", padHeader("OD SAPPHIRE 2.3\nCOMPRESION=TY6\n"), false},
		{"arbitrary binary", []byte(strings.Repeat("\x00\x01", AsciiHeaderSize)), false},
	}
	for _, c := range cases {
		if got := Understand(c.head); got != c.want {
			t.Errorf("%s: Understand = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSplitHeaderLines(t *testing.T) {
	cases := []struct {
		in   string
		want int // number of lines
	}{
		{"a\nb\nc", 3},
		{"a\r\nb\r\nc", 3},
		{"a\rb\rc", 3},
		{"a\nb\r\nc\rd", 4},
	}
	for _, c := range cases {
		if got := splitHeaderLines(c.in); len(got) != c.want {
			t.Errorf("splitHeaderLines(%q): %d lines, want %d", c.in, len(got), c.want)
		}
	}
}
