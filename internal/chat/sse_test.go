package chat

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSSEWriterFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewSSEWriter(rec)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	if err := w.Send("ack", map[string]any{"sessionId": "s1"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := w.Send("data", "raw text"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event-stream content type, got %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: ack\ndata: {\"sessionId\":\"s1\"}\n\n") {
		t.Fatalf("ack event malformed: %q", body)
	}
	if !strings.Contains(body, "event: data\ndata: raw text\n\n") {
		t.Fatalf("string payload must pass through unencoded: %q", body)
	}
	if !rec.Flushed {
		t.Fatal("events must be flushed")
	}
}
