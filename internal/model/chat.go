package model

import (
	"encoding/json"
	"time"
)

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatSession is one conversation. Sessions belong to a user within a
// tenant; public sessions are readable by anyone holding the share link.
type ChatSession struct {
	ID           string    `db:"id"`
	TenantID     string    `db:"tenant_id"`
	UserID       string    `db:"user_id"`
	Title        string    `db:"title"`
	IsPublic     bool      `db:"is_public"`
	CreatedAt    time.Time `db:"created_at"`
	MessageCount int       `db:"message_count"`
}

// ChatMessage is one turn in a session. Meta carries the answerer's SQL and
// chart payload for assistant turns.
type ChatMessage struct {
	ID        string          `db:"id"`
	SessionID string          `db:"session_id"`
	Role      ChatRole        `db:"role"`
	Content   string          `db:"content"`
	Meta      json.RawMessage `db:"meta"`
	CreatedAt time.Time       `db:"created_at"`
}
