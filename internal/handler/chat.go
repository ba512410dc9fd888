package handler

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clett-ai/clett/internal/chat"
	"github.com/clett-ai/clett/internal/model"
	"github.com/clett-ai/clett/internal/response"
	"github.com/clett-ai/clett/internal/session"
)

// ChatStore is the persistence slice the chat endpoints need; implemented
// by repository.ChatRepository.
type ChatStore interface {
	GetOrCreateSession(ctx context.Context, tenantID, userID, proposedTitle, sessionID string) (*model.ChatSession, error)
	SaveMessage(ctx context.Context, sessionID string, role model.ChatRole, content string, meta any) (string, error)
	ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error)
	GetSession(ctx context.Context, id string) (*model.ChatSession, error)
	ListMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	SetPublic(ctx context.Context, id, userID string, public bool) (isPublic, ok bool, err error)
}

// QuestionAnswerer resolves one question to a heuristic answer.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string) (*chat.Answer, error)
}

// ChatHandler serves the conversational analytics endpoints.
type ChatHandler struct {
	Store        ChatStore
	Answerer     QuestionAnswerer
	ShareBaseURL string
	WordDelay    time.Duration
	Logger       zerolog.Logger
}

type chatRequest struct {
	Message string `json:"message"`
	Context *struct {
		SessionID string `json:"sessionId"`
	} `json:"context"`
}

type answerMeta struct {
	SQL   *string     `json:"sql"`
	Chart *chat.Chart `json:"chart"`
}

// PostChat answers one question over an SSE stream: ack, sql, optional
// chart, word-by-word data deltas, then done.
func (h *ChatHandler) PostChat(c echo.Context) error {
	sess := session.FromContext(c)
	if sess == nil || sess.Uid == "" {
		return response.Unauthorized(c)
	}

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid JSON body", err.Error())
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return response.BadRequest(c, "message is required", "empty message")
	}
	sessionID := ""
	if req.Context != nil {
		sessionID = req.Context.SessionID
	}

	ctx := c.Request().Context()
	chatSession, err := h.Store.GetOrCreateSession(ctx, sess.Tid, sess.Uid, message, sessionID)
	if err != nil {
		return response.InternalError(c, "could not open chat session", err.Error())
	}
	userMessageID, err := h.Store.SaveMessage(ctx, chatSession.ID, model.RoleUser, message, map[string]any{})
	if err != nil {
		return response.InternalError(c, "could not save message", err.Error())
	}

	sse, err := chat.NewSSEWriter(c.Response())
	if err != nil {
		return response.InternalError(c, "streaming unsupported", err.Error())
	}
	_ = sse.Send("ack", map[string]any{"sessionId": chatSession.ID, "messageId": userMessageID})

	answer, err := h.Answerer.Answer(ctx, message)
	if err != nil {
		h.Logger.Error().Err(err).Str("session", chatSession.ID).Msg("answer failed")
		_ = sse.Send("error", map[string]any{"message": err.Error()})
		_ = sse.Send("done", map[string]any{"ok": false})
		return nil
	}

	meta := answerMeta{Chart: answer.Chart}
	if answer.SQL != "" {
		meta.SQL = &answer.SQL
	}
	_ = sse.Send("sql", map[string]any{"sql": meta.SQL})
	if answer.Chart != nil {
		_ = sse.Send("chart", answer.Chart)
	}

	for _, delta := range chat.SplitDeltas(answer.Text) {
		if err := sse.Send("data", map[string]any{"delta": delta}); err != nil {
			return nil
		}
		if h.WordDelay > 0 {
			time.Sleep(h.WordDelay)
		}
	}

	if _, err := h.Store.SaveMessage(ctx, chatSession.ID, model.RoleAssistant, answer.Text, meta); err != nil {
		h.Logger.Error().Err(err).Str("session", chatSession.ID).Msg("save assistant message failed")
		_ = sse.Send("error", map[string]any{"message": err.Error()})
		_ = sse.Send("done", map[string]any{"ok": false})
		return nil
	}
	_ = sse.Send("done", map[string]any{"ok": true})
	return nil
}

type sessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	IsPublic     bool      `json:"is_public"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

// ListSessions returns the caller's chat sessions, newest first.
func (h *ChatHandler) ListSessions(c echo.Context) error {
	sess := session.FromContext(c)
	if sess == nil || sess.Uid == "" {
		return response.Unauthorized(c)
	}
	list, err := h.Store.ListSessions(c.Request().Context(), sess.Uid)
	if err != nil {
		return response.InternalError(c, "could not list sessions", err.Error())
	}
	out := make([]sessionSummary, 0, len(list))
	for _, s := range list {
		out = append(out, sessionSummary{
			ID:           s.ID,
			Title:        s.Title,
			IsPublic:     s.IsPublic,
			CreatedAt:    s.CreatedAt,
			MessageCount: s.MessageCount,
		})
	}
	return response.OK(c, out, "")
}

type messageView struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Meta      any       `json:"meta"`
	CreatedAt time.Time `json:"created_at"`
}

// GetMessages returns one session with its messages. Public sessions are
// readable without a session cookie; private ones only by their owner.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	ctx := c.Request().Context()
	chatSession, err := h.Store.GetSession(ctx, c.Param("id"))
	if err != nil {
		return response.InternalError(c, "could not read session", err.Error())
	}
	if chatSession == nil {
		return response.NotFound(c, "session not found", "no such chat session")
	}

	sess := session.FromContext(c)
	if !chatSession.IsPublic && (sess == nil || sess.Uid != chatSession.UserID) {
		return response.Forbidden(c, "session is private", "only the owner may read this session")
	}

	msgs, err := h.Store.ListMessages(ctx, chatSession.ID)
	if err != nil {
		return response.InternalError(c, "could not list messages", err.Error())
	}
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageView{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Meta:      m.Meta,
			CreatedAt: m.CreatedAt,
		})
	}
	return response.OK(c, map[string]any{
		"session": map[string]any{
			"id":        chatSession.ID,
			"title":     chatSession.Title,
			"is_public": chatSession.IsPublic,
		},
		"messages": out,
	}, "")
}

type shareRequest struct {
	Public *bool `json:"public"`
}

// Share toggles a session's public flag and returns the share link.
func (h *ChatHandler) Share(c echo.Context) error {
	sess := session.FromContext(c)
	if sess == nil || sess.Uid == "" {
		return response.Unauthorized(c)
	}

	// No body at all shares the session; a JSON body is taken literally,
	// with an absent or false "public" field revoking.
	makePublic := true
	if c.Request().ContentLength != 0 {
		var req shareRequest
		if err := c.Bind(&req); err == nil {
			makePublic = req.Public != nil && *req.Public
		}
	}

	id := c.Param("id")
	isPublic, ok, err := h.Store.SetPublic(c.Request().Context(), id, sess.Uid, makePublic)
	if err != nil {
		return response.InternalError(c, "could not update session", err.Error())
	}
	if !ok {
		return response.NotFound(c, "session not found", "no owned session with that id")
	}
	return response.OK(c, map[string]any{
		"id":        id,
		"is_public": isPublic,
		"link":      h.ShareBaseURL + "/share/" + id,
	}, "")
}
