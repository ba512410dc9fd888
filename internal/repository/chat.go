package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clett-ai/clett/internal/model"
)

const maxTitleLen = 80

// ChatRepository persists and reads chat sessions and messages.
type ChatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository returns a ChatRepository using the given pool.
func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// GetOrCreateSession returns the caller's existing session when sessionID
// matches one they own, otherwise creates a new session titled after the
// first message.
func (r *ChatRepository) GetOrCreateSession(ctx context.Context, tenantID, userID, proposedTitle, sessionID string) (*model.ChatSession, error) {
	if sessionID != "" {
		var s model.ChatSession
		err := r.pool.QueryRow(ctx, `
			SELECT id, tenant_id, user_id, title, is_public, created_at
			FROM chat_sessions WHERE id = $1 AND user_id = $2`, sessionID, userID).Scan(
			&s.ID, &s.TenantID, &s.UserID, &s.Title, &s.IsPublic, &s.CreatedAt,
		)
		if err == nil {
			return &s, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	s := model.ChatSession{
		ID:       uuid.New().String(),
		TenantID: tenantID,
		UserID:   userID,
		Title:    truncateTitle(proposedTitle),
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat_sessions (id, tenant_id, user_id, title)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		s.ID, s.TenantID, s.UserID, s.Title,
	).Scan(&s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &s, nil
}

// truncateTitle caps the session title at maxTitleLen bytes. The cut never
// lands inside a multi-byte rune; the stored title is always valid UTF-8.
func truncateTitle(s string) string {
	if s == "" {
		return "New chat"
	}
	if len(s) <= maxTitleLen {
		return s
	}
	cut := maxTitleLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// SaveMessage appends one message to a session and returns its id.
func (r *ChatRepository) SaveMessage(ctx context.Context, sessionID string, role model.ChatRole, content string, meta any) (string, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode meta: %w", err)
	}
	id := uuid.New().String()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content, meta)
		VALUES ($1, $2, $3, $4, $5)`,
		id, sessionID, role, content, metaJSON,
	)
	if err != nil {
		return "", fmt.Errorf("save message: %w", err)
	}
	return id, nil
}

// ListSessions returns the user's sessions newest first, each with its
// message count.
func (r *ChatRepository) ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.tenant_id, s.user_id, s.title, s.is_public, s.created_at,
		       (SELECT count(1) FROM chat_messages m WHERE m.session_id = s.id) AS message_count
		FROM chat_sessions s
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.ChatSession
	for rows.Next() {
		var s model.ChatSession
		if err := rows.Scan(&s.ID, &s.TenantID, &s.UserID, &s.Title, &s.IsPublic, &s.CreatedAt, &s.MessageCount); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// GetSession returns one session by id, or nil if not found. Visibility is
// the caller's concern: private sessions are served only to their owner.
func (r *ChatRepository) GetSession(ctx context.Context, id string) (*model.ChatSession, error) {
	var s model.ChatSession
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, user_id, title, is_public, created_at
		FROM chat_sessions WHERE id = $1`, id).Scan(
		&s.ID, &s.TenantID, &s.UserID, &s.Title, &s.IsPublic, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListMessages returns all messages of a session oldest first.
func (r *ChatRepository) ListMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, role, content, meta, created_at
		FROM chat_messages WHERE session_id = $1
		ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.ChatMessage
	for rows.Next() {
		m := model.ChatMessage{SessionID: sessionID}
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.Meta, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// SetPublic flips a session's share flag. Only the owner may change it; ok
// is false when no owned session matched.
func (r *ChatRepository) SetPublic(ctx context.Context, id, userID string, public bool) (isPublic, ok bool, err error) {
	err = r.pool.QueryRow(ctx, `
		UPDATE chat_sessions SET is_public = $1
		WHERE id = $2 AND user_id = $3
		RETURNING is_public`, public, id, userID).Scan(&isPublic)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return isPublic, true, nil
}
