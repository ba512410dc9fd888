package handler

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clett-ai/clett/internal/ingest"
	"github.com/clett-ai/clett/internal/response"
	"github.com/clett-ai/clett/internal/session"
)

// RowLoader persists canonical rows for a tenant.
type RowLoader interface {
	Load(ctx context.Context, rows []ingest.CanonicalRow, dt ingest.DataType, tenantID string) (int, error)
}

// Archiver keeps the raw upload bytes. Implementations may be a no-op when
// no archive bucket is configured.
type Archiver interface {
	PutUpload(ctx context.Context, dataType, ext, contentType string, body []byte) (string, error)
}

var allowedExts = map[string]bool{".csv": true, ".xlsx": true, ".json": true}

// UploadHandler handles POST /api/upload-data: validate, archive the raw
// file, then decode → normalize → load.
type UploadHandler struct {
	Loader   RowLoader
	Archive  Archiver
	MaxBytes int64
	Logger   zerolog.Logger
}

type uploadResult struct {
	DataType string `json:"dataType"`
	Rows     int    `json:"rows"`
	S3Key    string `json:"s3Key,omitempty"`
}

// Upload runs the ingestion pipeline for one multipart upload.
func (h *UploadHandler) Upload(c echo.Context) error {
	sess := session.FromContext(c)
	if sess == nil || sess.Tid == "" {
		return response.Unauthorized(c)
	}

	dt, err := ingest.ParseDataType(strings.ToLower(c.FormValue("dataType")))
	if err != nil {
		return response.BadRequest(c, "Missing/invalid dataType", err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "file is required", err.Error())
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExts[ext] {
		return response.BadRequest(c, "Invalid file format", "supported extensions: .csv, .xlsx, .json")
	}
	if file.Size > h.MaxBytes {
		return response.TooLarge(c, "File too large", "upload exceeds size limit")
	}

	src, err := file.Open()
	if err != nil {
		return response.InternalError(c, "could not read upload", err.Error())
	}
	defer src.Close()
	// Size cap again on the actual stream; multipart headers can lie.
	buf, err := io.ReadAll(io.LimitReader(src, h.MaxBytes+1))
	if err != nil {
		return response.InternalError(c, "could not read upload", err.Error())
	}
	if int64(len(buf)) > h.MaxBytes {
		return response.TooLarge(c, "File too large", "upload exceeds size limit")
	}

	ctx := c.Request().Context()
	key, err := h.Archive.PutUpload(ctx, string(dt), ext, file.Header.Get("Content-Type"), buf)
	if err != nil {
		h.Logger.Error().Err(err).Str("data_type", string(dt)).Msg("archive upload failed")
		return response.InternalError(c, "could not archive upload", err.Error())
	}

	rows, err := ingest.Decode(buf, ext)
	if err != nil {
		return response.BadRequest(c, "could not parse file", err.Error())
	}
	n, err := h.Loader.Load(ctx, ingest.Normalize(rows, dt), dt, sess.Tid)
	if err != nil {
		h.Logger.Error().Err(err).Str("tenant", sess.Tid).Str("data_type", string(dt)).Msg("load failed")
		return response.InternalError(c, "could not load rows", err.Error())
	}

	h.Logger.Info().Str("tenant", sess.Tid).Str("data_type", string(dt)).Int("rows", n).Str("s3_key", key).Msg("upload ingested")
	return response.OK(c, uploadResult{DataType: string(dt), Rows: n, S3Key: key}, "")
}
