package repository

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateTitleKeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("日", 40)
	got := truncateTitle(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated title is invalid UTF-8: %q", got)
	}
	if len(got) > maxTitleLen {
		t.Fatalf("title exceeds %d bytes: %d", maxTitleLen, len(got))
	}
	if got != strings.Repeat("日", 26) {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestTruncateTitleEmoji(t *testing.T) {
	long := strings.Repeat("📊", 30)
	got := truncateTitle(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated title is invalid UTF-8: %q", got)
	}
	if len(got) > maxTitleLen {
		t.Fatalf("title exceeds %d bytes: %d", maxTitleLen, len(got))
	}
}

func TestTruncateTitleShortAndEmpty(t *testing.T) {
	if got := truncateTitle("hello"); got != "hello" {
		t.Fatalf("short title must pass through, got %q", got)
	}
	if got := truncateTitle(""); got != "New chat" {
		t.Fatalf("empty title must default, got %q", got)
	}
	exact := strings.Repeat("a", maxTitleLen)
	if got := truncateTitle(exact); got != exact {
		t.Fatalf("title at the cap must pass through, got %d bytes", len(got))
	}
}
