package handler

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/clett-ai/clett/internal/response"
	"github.com/clett-ai/clett/internal/session"
	"github.com/clett-ai/clett/internal/storage"
)

// RowQuerier is the pool slice the health check needs.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SystemHandler serves health and archive-inspection endpoints.
type SystemHandler struct {
	DB      RowQuerier
	Archive *storage.ArchiveClient
}

// Health does a database round-trip so a green check means the store is
// actually reachable.
func (h *SystemHandler) Health(c echo.Context) error {
	var now time.Time
	if err := h.DB.QueryRow(c.Request().Context(), "select now()").Scan(&now); err != nil {
		return response.InternalError(c, "database unreachable", err.Error())
	}
	return response.OK(c, map[string]any{"ok": true, "db_time": now}, "")
}

// ListUploads lists archived raw uploads, optionally under a dataType
// prefix. Requires a session.
func (h *SystemHandler) ListUploads(c echo.Context) error {
	sess := session.FromContext(c)
	if sess == nil || sess.Tid == "" {
		return response.Unauthorized(c)
	}
	if h.Archive == nil {
		return response.OK(c, map[string]any{"objects": []storage.ObjectInfo{}}, "archive not configured")
	}
	list, err := h.Archive.ListUploads(c.Request().Context(), c.QueryParam("prefix"))
	if err != nil {
		return response.InternalError(c, "list uploads failed", err.Error())
	}
	if list == nil {
		list = []storage.ObjectInfo{}
	}
	return response.OK(c, map[string]any{"objects": list}, "")
}
