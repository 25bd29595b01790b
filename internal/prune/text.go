// Package prune caps tool output text so oversized backend payloads do not
// flood the client's context window.
package prune

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMarker   = "[output truncated]"
	DefaultMaxBytes = 32 * 1024
	DefaultMaxLines = 400
)

// Budget bounds a text. Head and tail sizes select what survives when the
// text is over budget; a zero head drops the body entirely.
type Budget struct {
	MaxBytes  int
	MaxLines  int
	HeadBytes int
	HeadLines int
	TailBytes int
	TailLines int
	Marker    string
}

// DefaultBudget keeps the first 24KiB and the last 4KiB of long output.
func DefaultBudget() Budget {
	return Budget{
		MaxBytes:  DefaultMaxBytes,
		MaxLines:  DefaultMaxLines,
		HeadBytes: 24 * 1024,
		HeadLines: 300,
		TailBytes: 4 * 1024,
		TailLines: 50,
		Marker:    DefaultMarker,
	}
}

func Exceeds(s string, maxBytes, maxLines int) bool {
	return len(s) > maxBytes || CountLines(s) > maxLines
}

func CountLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// Text returns s unchanged when it fits b, otherwise a marked head/tail
// excerpt that itself fits b.
func Text(s, label string, b Budget) string {
	b = b.normalize()
	if s == "" || !Exceeds(s, b.MaxBytes, b.MaxLines) {
		return s
	}
	if b.HeadBytes == 0 || b.HeadLines == 0 {
		return clamp(fmt.Sprintf("%s %s omitted (bytes=%d, lines=%d)", b.Marker, label, len(s), CountLines(s)), b)
	}
	head := prefix(s, b.HeadBytes, b.HeadLines)
	tail := suffix(s, b.TailBytes, b.TailLines)
	out := fmt.Sprintf("%s %s too long (bytes=%d, lines=%d)\n\n%s", b.Marker, label, len(s), CountLines(s), head)
	if tail != "" {
		out += "\n\n[...]\n\n" + tail
	}
	return clamp(out, b)
}

func (b Budget) normalize() Budget {
	if b.MaxBytes <= 0 {
		b.MaxBytes = DefaultMaxBytes
	}
	if b.MaxLines <= 0 {
		b.MaxLines = DefaultMaxLines
	}
	if b.Marker == "" {
		b.Marker = DefaultMarker
	}
	b.HeadBytes = max(b.HeadBytes, 0)
	b.HeadLines = max(b.HeadLines, 0)
	b.TailBytes = max(b.TailBytes, 0)
	b.TailLines = max(b.TailLines, 0)
	return b
}

func clamp(s string, b Budget) string {
	if !Exceeds(s, b.MaxBytes, b.MaxLines) {
		return s
	}
	if cut := prefix(s, b.MaxBytes, b.MaxLines); cut != "" {
		return cut
	}
	return b.Marker
}

// prefix keeps at most maxBytes and maxLines from the start without
// splitting a rune.
func prefix(s string, maxBytes, maxLines int) string {
	if s == "" || maxBytes <= 0 || maxLines <= 0 {
		return ""
	}
	if maxBytes < len(s) {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	if lines := strings.Split(s, "\n"); len(lines) > maxLines {
		s = strings.Join(lines[:maxLines], "\n")
	}
	return s
}

// suffix keeps at most maxBytes and maxLines from the end without
// splitting a rune.
func suffix(s string, maxBytes, maxLines int) string {
	if s == "" || maxBytes <= 0 || maxLines <= 0 {
		return ""
	}
	if maxBytes < len(s) {
		start := len(s) - maxBytes
		for start < len(s) && !utf8.RuneStart(s[start]) {
			start++
		}
		s = s[start:]
	}
	if lines := strings.Split(s, "\n"); len(lines) > maxLines {
		s = strings.Join(lines[len(lines)-maxLines:], "\n")
	}
	return s
}
